package worklog

import (
	"fmt"
	"slices"
	"strings"
)

// ValidatedColumn is a column name that passed whitelist validation. Values
// can only be produced inside this package, so query assembly can splice
// them into SQL by construction.
type ValidatedColumn struct {
	name string
}

func (c ValidatedColumn) String() string {
	return c.name
}

// Star is the validated wildcard selection.
var Star = ValidatedColumn{name: "*"}

// OrderBy is a validated ORDER BY fragment. The zero value means no ordering.
type OrderBy struct {
	fragment string
}

func (o OrderBy) String() string {
	return o.fragment
}

// operators are the permitted filter comparison operators.
var operators = []string{"=", "!=", ">", "<", ">=", "<=", "LIKE", "ILIKE"}

// ValidateTable checks a table name against the whitelist and returns its
// canonical form.
func ValidateTable(table string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(table))
	if !slices.Contains(Tables, name) {
		return "", ValidationError{
			Reason: fmt.Sprintf("Invalid table. Must be one of: %s", strings.Join(Tables, ", ")),
		}
	}

	return name, nil
}

// ValidateColumns validates a comma-separated column selection against the
// table's whitelist. "*" (or empty) selects everything. The whole selection
// is rejected when any token is unknown, naming the offending tokens.
func ValidateColumns(spec, table string) ([]ValidatedColumn, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == "*" {
		return []ValidatedColumn{Star}, nil
	}

	allowed := tableColumns[table]

	var columns []ValidatedColumn
	var invalid []string
	for _, token := range strings.Split(spec, ",") {
		name := strings.ToLower(strings.TrimSpace(token))
		if name == "" {
			continue
		}

		if slices.Contains(allowed, name) {
			columns = append(columns, ValidatedColumn{name: name})
		} else {
			invalid = append(invalid, name)
		}
	}

	if len(invalid) > 0 {
		return nil, ValidationError{
			Reason: fmt.Sprintf("Invalid columns for %s: %s", table, strings.Join(invalid, ", ")),
		}
	}
	if len(columns) == 0 {
		return nil, ValidationError{
			Reason: fmt.Sprintf("No columns selected for %s", table),
		}
	}

	return columns, nil
}

// ValidateFilterColumn validates a single filter column against the table's
// whitelist.
func ValidateFilterColumn(column, table string) (ValidatedColumn, error) {
	name := strings.ToLower(strings.TrimSpace(column))
	if !slices.Contains(tableColumns[table], name) {
		return ValidatedColumn{}, ValidationError{
			Reason: fmt.Sprintf("Invalid filter column for %s: %s", table, name),
		}
	}

	return ValidatedColumn{name: name}, nil
}

// ValidateOperator checks a filter operator against the permitted set and
// returns its canonical (uppercase) form.
func ValidateOperator(op string) (string, error) {
	canon := strings.ToUpper(strings.TrimSpace(op))
	if !slices.Contains(operators, canon) {
		return "", ValidationError{
			Reason: fmt.Sprintf("Invalid operator. Must be one of: %s", strings.Join(operators, ", ")),
		}
	}

	return canon, nil
}

// ValidateOrderBy validates "column" or "column direction" ordering input.
// Empty input is valid and means no ordering. A bare column orders ascending;
// the direction, when present, must be ASC or DESC in any case. Anything
// longer than two tokens is rejected.
func ValidateOrderBy(spec, table string) (OrderBy, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return OrderBy{}, nil
	}

	tokens := strings.Fields(spec)
	if len(tokens) > 2 {
		return OrderBy{}, ValidationError{
			Reason: fmt.Sprintf("Invalid order_by: %s", spec),
		}
	}

	column := strings.ToLower(tokens[0])
	if !slices.Contains(tableColumns[table], column) {
		return OrderBy{}, ValidationError{
			Reason: fmt.Sprintf("Invalid order_by column for %s: %s", table, column),
		}
	}

	direction := "ASC"
	if len(tokens) == 2 {
		direction = strings.ToUpper(tokens[1])
		if direction != "ASC" && direction != "DESC" {
			return OrderBy{}, ValidationError{
				Reason: fmt.Sprintf("Invalid order_by direction: %s", tokens[1]),
			}
		}
	}

	return OrderBy{fragment: column + " " + direction}, nil
}

// mustOrderBy validates a package-internal, possibly multi-column ordering
// spec. It panics on a mismatch, which can only mean the spec constant and
// the whitelist have drifted.
func mustOrderBy(spec, table string) OrderBy {
	var fragments []string
	for _, part := range strings.Split(spec, ",") {
		o, err := ValidateOrderBy(part, table)
		if err != nil {
			panic(err)
		}
		fragments = append(fragments, o.String())
	}

	return OrderBy{fragment: strings.Join(fragments, ", ")}
}

// ValidateEntryTable checks a table against the set allowed to participate
// in relationships, topics, and duplicate reports.
func ValidateEntryTable(table string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(table))
	if !slices.Contains(EntryTables, name) {
		return "", ValidationError{
			Reason: fmt.Sprintf("Invalid entry table. Must be one of: %s", strings.Join(EntryTables, ", ")),
		}
	}

	return name, nil
}

// validateEnum checks a value against a fixed enum, exact match after
// trimming, and reports the permitted set on failure.
func validateEnum(value, what string, allowed []string) (string, error) {
	v := strings.TrimSpace(value)
	if !slices.Contains(allowed, v) {
		return "", ValidationError{
			Reason: fmt.Sprintf("Invalid %s. Must be one of: %s", what, strings.Join(allowed, ", ")),
		}
	}

	return v, nil
}
