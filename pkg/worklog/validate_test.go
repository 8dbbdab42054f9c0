package worklog_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opshelm/worklog/pkg/worklog"
)

// expectValidation asserts an error is a ValidationError.
func expectValidation(err error) {
	GinkgoHelper()

	Expect(err).To(HaveOccurred())
	var v worklog.ValidationError
	Expect(errors.As(err, &v)).To(BeTrue(), "expected ValidationError, got %T: %v", err, err)
}

var _ = Describe("Validation", func() {
	Describe("ValidateTable", func() {
		It("accepts every whitelisted table", func() {
			for _, table := range worklog.Tables {
				name, err := worklog.ValidateTable(table)
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal(table))
			}
		})

		It("canonicalizes case and whitespace", func() {
			name, err := worklog.ValidateTable("  Memories ")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("memories"))
		})

		It("rejects unknown tables with the permitted set", func() {
			_, err := worklog.ValidateTable("users; DROP TABLE memories")
			expectValidation(err)
			Expect(err.Error()).To(ContainSubstring("memories, knowledge_base"))
		})

		It("rejects the empty string", func() {
			_, err := worklog.ValidateTable("")
			expectValidation(err)
		})
	})

	Describe("ValidateColumns", func() {
		It("treats empty and * as select-everything", func() {
			for _, spec := range []string{"", "*", "  "} {
				columns, err := worklog.ValidateColumns(spec, "memories")
				Expect(err).NotTo(HaveOccurred())
				Expect(columns).To(Equal([]worklog.ValidatedColumn{worklog.Star}))
			}
		})

		It("accepts a comma-separated selection", func() {
			columns, err := worklog.ValidateColumns("id, key, importance", "memories")
			Expect(err).NotTo(HaveOccurred())
			Expect(columns).To(HaveLen(3))
			Expect(columns[1].String()).To(Equal("key"))
		})

		It("rejects the whole selection when any token is unknown", func() {
			_, err := worklog.ValidateColumns("id, password, secret", "memories")
			expectValidation(err)
			Expect(err.Error()).To(ContainSubstring("password"))
			Expect(err.Error()).To(ContainSubstring("secret"))
		})

		It("validates per table", func() {
			_, err := worklog.ValidateColumns("key", "entries")
			expectValidation(err)

			columns, err := worklog.ValidateColumns("task_type", "entries")
			Expect(err).NotTo(HaveOccurred())
			Expect(columns[0].String()).To(Equal("task_type"))
		})
	})

	Describe("ValidateFilterColumn", func() {
		It("accepts a whitelisted column", func() {
			column, err := worklog.ValidateFilterColumn("importance", "memories")
			Expect(err).NotTo(HaveOccurred())
			Expect(column.String()).To(Equal("importance"))
		})

		It("rejects columns from other tables", func() {
			_, err := worklog.ValidateFilterColumn("task_type", "memories")
			expectValidation(err)
		})
	})

	Describe("ValidateOperator", func() {
		It("accepts the comparison set in any case", func() {
			for _, op := range []string{"=", "!=", ">", "<", ">=", "<=", "like", "ILIKE"} {
				_, err := worklog.ValidateOperator(op)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("canonicalizes to uppercase", func() {
			op, err := worklog.ValidateOperator("ilike")
			Expect(err).NotTo(HaveOccurred())
			Expect(op).To(Equal("ILIKE"))
		})

		It("rejects anything else", func() {
			for _, op := range []string{"BETWEEN", "IN", "= 1 OR 1", ""} {
				_, err := worklog.ValidateOperator(op)
				expectValidation(err)
			}
		})
	})

	Describe("ValidateOrderBy", func() {
		It("treats empty as no ordering", func() {
			order, err := worklog.ValidateOrderBy("", "memories")
			Expect(err).NotTo(HaveOccurred())
			Expect(order.String()).To(Equal(""))
		})

		It("defaults a bare column to ascending", func() {
			order, err := worklog.ValidateOrderBy("importance", "memories")
			Expect(err).NotTo(HaveOccurred())
			Expect(order.String()).To(Equal("importance ASC"))
		})

		It("accepts an explicit direction in any case", func() {
			order, err := worklog.ValidateOrderBy("created_at desc", "memories")
			Expect(err).NotTo(HaveOccurred())
			Expect(order.String()).To(Equal("created_at DESC"))
		})

		It("rejects unknown columns", func() {
			_, err := worklog.ValidateOrderBy("password DESC", "memories")
			expectValidation(err)
		})

		It("rejects invalid directions", func() {
			_, err := worklog.ValidateOrderBy("importance SIDEWAYS", "memories")
			expectValidation(err)
		})

		It("rejects extra tokens", func() {
			_, err := worklog.ValidateOrderBy("importance DESC, id", "memories")
			expectValidation(err)
		})
	})

	Describe("ValidateEntryTable", func() {
		It("accepts the graph-capable tables only", func() {
			for _, table := range []string{"memories", "knowledge_base", "entries"} {
				name, err := worklog.ValidateEntryTable(table)
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal(table))
			}

			_, err := worklog.ValidateEntryTable("agent_chat")
			expectValidation(err)
		})
	})

	Describe("NormalizeTagList", func() {
		It("lowercases, trims, and deduplicates preserving order", func() {
			Expect(worklog.NormalizeTagList(" Go , api, GO ,, sqlite ")).
				To(Equal("go,api,sqlite"))
		})

		It("returns empty for an empty list", func() {
			Expect(worklog.NormalizeTagList("")).To(Equal(""))
			Expect(worklog.NormalizeTagList(" , , ")).To(Equal(""))
		})
	})
})
