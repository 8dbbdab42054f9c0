package worklog

import (
	"fmt"
	"strings"

	"github.com/opshelm/worklog/pkg/database"
)

const (
	// defaultLimit applies when a caller leaves the page size unset.
	defaultLimit = 20

	// maxLimit caps the page size so no query is unbounded.
	maxLimit = 100
)

// escapeClause makes the backslash the LIKE escape character in both
// dialects, so patterns produced by EscapePattern match literally.
const escapeClause = ` ESCAPE '\'`

// Filter is the single optional comparison a table query accepts. Column and
// Operator are validated before assembly; Value is always bound, never
// spliced into SQL text.
type Filter struct {
	Column   string
	Operator string
	Value    any
}

// Query assembles one parameterized SELECT for a specific backend dialect.
// Structural fragments (table, columns, order) only enter through validated
// types; everything else becomes a placeholder and a positional argument.
// The same logical query produces identical row sets on either backend.
type Query struct {
	backend database.Backend
	table   string
	columns []ValidatedColumn
	where   []string
	args    []any
	order   OrderBy
	limit   int
	offset  int
	paged   bool
}

// NewQuery starts a query against a validated table. With no columns the
// query selects everything.
func NewQuery(backend database.Backend, table string, columns ...ValidatedColumn) *Query {
	if len(columns) == 0 {
		columns = []ValidatedColumn{Star}
	}

	return &Query{
		backend: backend,
		table:   table,
		columns: columns,
	}
}

// next returns the placeholder for the next bound argument.
func (q *Query) next() string {
	return q.backend.Placeholder(len(q.args) + 1)
}

// Where adds a comparison against a bound value. ILIKE is not portable SQL,
// so it routes through the backend's dialect expression.
func (q *Query) Where(column ValidatedColumn, operator string, value any) *Query {
	ph := q.next()
	q.args = append(q.args, value)

	if operator == "ILIKE" {
		q.where = append(q.where, q.backend.ILike(column.String(), ph))
	} else {
		q.where = append(q.where, fmt.Sprintf("%s %s %s", column, operator, ph))
	}

	return q
}

// WhereSearch adds a case-insensitive substring match of the term over any
// of the given columns. The term is wildcard-escaped, so it matches
// literally.
func (q *Query) WhereSearch(term string, columns ...ValidatedColumn) *Query {
	pattern := EscapePattern(term)

	parts := make([]string, len(columns))
	for i, column := range columns {
		ph := q.next()
		q.args = append(q.args, pattern)
		parts[i] = q.backend.ILike(column.String(), ph) + escapeClause
	}

	q.where = append(q.where, "("+strings.Join(parts, " OR ")+")")

	return q
}

// WhereIn adds a membership test against a list of values. The IN-list vs
// array-binding asymmetry between the dialects stays hidden behind the
// backend's ListBinding.
func (q *Query) WhereIn(column ValidatedColumn, values []string) *Query {
	binding, args := q.backend.ListBinding(values, len(q.args)+1)
	q.args = append(q.args, args...)
	q.where = append(q.where, q.backend.ArrayContains(column.String(), binding))

	return q
}

// WhereTagAny matches rows whose comma-joined tag column contains any of the
// given tags as an exact token. Wrapping both sides in commas makes "go"
// match "go,api" but not "golang", and works identically in both dialects.
func (q *Query) WhereTagAny(column ValidatedColumn, tags []string) *Query {
	parts := make([]string, len(tags))
	for i, tag := range tags {
		ph := q.next()
		q.args = append(q.args, tag)
		parts[i] = fmt.Sprintf("(',' || %s || ',') LIKE ('%%,' || %s || ',%%')", column, ph)
	}

	q.where = append(q.where, "("+strings.Join(parts, " OR ")+")")

	return q
}

// WhereSince keeps rows whose timestamp column is newer than N days ago.
func (q *Query) WhereSince(column ValidatedColumn, days int) *Query {
	q.where = append(q.where, fmt.Sprintf("%s > %s", column, q.backend.IntervalDays(days)))

	return q
}

// OrderBy applies a validated ordering. The zero OrderBy is a no-op.
func (q *Query) OrderBy(order OrderBy) *Query {
	q.order = order

	return q
}

// Page applies limit and offset. The limit is clamped to [1, 100] with the
// default page size standing in for an unset value; the offset is clamped
// to zero or more.
func (q *Query) Page(limit, offset int) *Query {
	q.limit = ClampLimit(limit)
	q.offset = max(offset, 0)
	q.paged = true

	return q
}

// Limit reports the clamped page size.
func (q *Query) Limit() int {
	return q.limit
}

// Offset reports the clamped offset.
func (q *Query) Offset() int {
	return q.offset
}

// SQL renders the SELECT statement and its positional arguments.
func (q *Query) SQL() (string, []any) {
	names := make([]string, len(q.columns))
	for i, c := range q.columns {
		names[i] = c.String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(names, ", "), q.table)

	if len(q.where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(q.where, " AND "))
	}
	if o := q.order.String(); o != "" {
		sb.WriteString(" ORDER BY " + o)
	}

	args := q.args
	if q.paged {
		args = append(append([]any{}, q.args...), q.limit, q.offset)
		fmt.Fprintf(&sb, " LIMIT %s OFFSET %s",
			q.backend.Placeholder(len(q.args)+1), q.backend.Placeholder(len(q.args)+2))
	}

	return sb.String(), args
}

// CountSQL renders the parallel COUNT statement sharing the WHERE fragment,
// for reporting the total row count alongside a page.
func (q *Query) CountSQL() (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT COUNT(*) AS total FROM %s", q.table)

	if len(q.where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(q.where, " AND "))
	}

	return sb.String(), q.args
}

// ClampLimit clamps a requested page size to [1, 100], substituting the
// default for an unset or non-positive value.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}

	return min(limit, maxLimit)
}

// clampUnit clamps a score to [0, 1].
func clampUnit(v float64) float64 {
	return min(max(v, 0), 1)
}

// insertSQL renders an INSERT for the backend with one placeholder per
// column. Table and column names here are package constants, never caller
// input.
func insertSQL(b database.Backend, table string, columns ...string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = b.Placeholder(i + 1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}
