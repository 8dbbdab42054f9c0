package worklog_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/database/postgres"
	"github.com/opshelm/worklog/pkg/database/sqlite"
	"github.com/opshelm/worklog/pkg/worklog"
)

var _ = Describe("Query", func() {
	var (
		lite *sqlite.SQLiteBackend
		pg   *postgres.PostgresBackend
	)

	col := func(name, table string) worklog.ValidatedColumn {
		column, err := worklog.ValidateFilterColumn(name, table)
		Expect(err).NotTo(HaveOccurred())
		return column
	}

	order := func(spec, table string) worklog.OrderBy {
		o, err := worklog.ValidateOrderBy(spec, table)
		Expect(err).NotTo(HaveOccurred())
		return o
	}

	BeforeEach(func() {
		// Dialect rendering needs no connection on either backend.
		lite = sqlite.NewSQLiteBackend("unused.db")
		pg = postgres.NewPostgresBackend(postgres.Config{})
	})

	// build assembles the same logical query against either backend.
	build := func(b database.Backend) *worklog.Query {
		return worklog.NewQuery(b, "memories").
			Where(col("importance", "memories"), ">=", 5).
			WhereSearch("deploy", col("content", "memories"), col("summary", "memories")).
			Page(10, 20)
	}

	It("renders SQLite placeholders and dialect fragments", func() {
		sql, args := build(lite).SQL()
		Expect(sql).To(Equal(
			`SELECT * FROM memories WHERE importance >= ? AND ` +
				`(LOWER(content) LIKE LOWER(?) ESCAPE '\' OR LOWER(summary) LIKE LOWER(?) ESCAPE '\') ` +
				`LIMIT ? OFFSET ?`))
		Expect(args).To(Equal([]any{5, "%deploy%", "%deploy%", 10, 20}))
	})

	It("renders PostgreSQL placeholders and dialect fragments", func() {
		sql, args := build(pg).SQL()
		Expect(sql).To(Equal(
			`SELECT * FROM memories WHERE importance >= $1 AND ` +
				`(content ILIKE $2 ESCAPE '\' OR summary ILIKE $3 ESCAPE '\') ` +
				`LIMIT $4 OFFSET $5`))
		Expect(args).To(Equal([]any{5, "%deploy%", "%deploy%", 10, 20}))
	})

	It("renders explicit column selections in order", func() {
		columns, err := worklog.ValidateColumns("id, key, importance", "memories")
		Expect(err).NotTo(HaveOccurred())

		sql, args := worklog.NewQuery(lite, "memories", columns...).SQL()
		Expect(sql).To(Equal("SELECT id, key, importance FROM memories"))
		Expect(args).To(BeEmpty())
	})

	It("expands IN lists per value on SQLite", func() {
		sql, args := worklog.NewQuery(lite, "memories").
			WhereIn(col("memory_type", "memories"), []string{"fact", "entity"}).
			SQL()
		Expect(sql).To(Equal("SELECT * FROM memories WHERE memory_type IN (?, ?)"))
		Expect(args).To(Equal([]any{"fact", "entity"}))
	})

	It("binds list membership as a single array on PostgreSQL", func() {
		sql, args := worklog.NewQuery(pg, "memories").
			WhereIn(col("memory_type", "memories"), []string{"fact", "entity"}).
			SQL()
		Expect(sql).To(Equal("SELECT * FROM memories WHERE memory_type = ANY($1::text[])"))
		Expect(args).To(HaveLen(1))
		Expect(args[0]).To(Equal([]string{"fact", "entity"}))
	})

	It("numbers placeholders correctly after an array binding", func() {
		sql, args := worklog.NewQuery(pg, "memories").
			WhereIn(col("memory_type", "memories"), []string{"fact"}).
			Where(col("importance", "memories"), ">=", 7).
			SQL()
		Expect(sql).To(Equal(
			"SELECT * FROM memories WHERE memory_type = ANY($1::text[]) AND importance >= $2"))
		Expect(args).To(HaveLen(2))
	})

	It("matches comma-joined tags as exact tokens", func() {
		sql, args := worklog.NewQuery(lite, "memories").
			WhereTagAny(col("tags", "memories"), []string{"go", "api"}).
			SQL()
		Expect(sql).To(Equal(
			"SELECT * FROM memories WHERE " +
				"((',' || tags || ',') LIKE ('%,' || ? || ',%') OR (',' || tags || ',') LIKE ('%,' || ? || ',%'))"))
		Expect(args).To(Equal([]any{"go", "api"}))
	})

	It("renders trailing-window comparisons through the dialect", func() {
		sql, _ := worklog.NewQuery(lite, "entries").
			WhereSince(col("timestamp", "entries"), 7).
			SQL()
		Expect(sql).To(Equal(
			"SELECT * FROM entries WHERE timestamp > datetime('now', '-7 days')"))

		sql, _ = worklog.NewQuery(pg, "entries").
			WhereSince(col("timestamp", "entries"), 7).
			SQL()
		Expect(sql).To(Equal(
			"SELECT * FROM entries WHERE timestamp > NOW() - INTERVAL '7 days'"))
	})

	It("applies validated ordering", func() {
		sql, _ := worklog.NewQuery(lite, "memories").
			OrderBy(order("importance desc", "memories")).
			SQL()
		Expect(sql).To(Equal("SELECT * FROM memories ORDER BY importance DESC"))
	})

	It("shares the WHERE fragment with the count query", func() {
		q := worklog.NewQuery(lite, "memories").
			Where(col("status", "memories"), "=", "staging").
			Page(5, 0)

		countSQL, countArgs := q.CountSQL()
		Expect(countSQL).To(Equal("SELECT COUNT(*) AS total FROM memories WHERE status = ?"))
		Expect(countArgs).To(Equal([]any{"staging"}))

		sql, args := q.SQL()
		Expect(sql).To(Equal("SELECT * FROM memories WHERE status = ? LIMIT ? OFFSET ?"))
		Expect(args).To(Equal([]any{"staging", 5, 0}))
	})

	Describe("ClampLimit", func() {
		It("substitutes the default for unset values", func() {
			Expect(worklog.ClampLimit(0)).To(Equal(20))
			Expect(worklog.ClampLimit(-5)).To(Equal(20))
		})

		It("caps oversized requests", func() {
			Expect(worklog.ClampLimit(1000)).To(Equal(100))
		})

		It("passes reasonable values through", func() {
			Expect(worklog.ClampLimit(33)).To(Equal(33))
		})
	})

	Describe("Page", func() {
		It("clamps negative offsets to zero", func() {
			q := worklog.NewQuery(lite, "memories").Page(10, -4)
			Expect(q.Offset()).To(Equal(0))
			Expect(q.Limit()).To(Equal(10))
		})
	})
})
