package plane_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opshelm/worklog/pkg/plane"
)

// scriptRunner records queries and plays back canned responses in order.
type scriptRunner struct {
	queries   []string
	responses []string
}

func (r *scriptRunner) Run(_ context.Context, query string) (string, error) {
	r.queries = append(r.queries, query)

	if len(r.responses) == 0 {
		return "", nil
	}

	response := r.responses[0]
	r.responses = r.responses[1:]

	return response, nil
}

var _ = Describe("DBClient", func() {
	var (
		runner *scriptRunner
		client *plane.DBClient
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		runner = &scriptRunner{}
		client = plane.NewDBClient(runner, nil)
	})

	Describe("ListWorkspaces", func() {
		It("wraps the query in json_agg and decodes rows", func() {
			runner.responses = []string{`[{"slug": "ops", "name": "Ops"}]`}

			rows, err := client.ListWorkspaces(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]["slug"]).To(Equal("ops"))

			Expect(runner.queries[0]).To(HavePrefix("SELECT json_agg(t) FROM ("))
			Expect(runner.queries[0]).To(ContainSubstring("deleted_at IS NULL"))
		})

		It("treats a null aggregate as no rows", func() {
			runner.responses = []string{"null"}

			rows, err := client.ListWorkspaces(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})
	})

	Describe("WorkspaceID", func() {
		It("escapes single quotes in the slug", func() {
			_, err := client.WorkspaceID(ctx, "o'brien")
			Expect(err).NotTo(HaveOccurred())
			Expect(runner.queries[0]).To(ContainSubstring("slug = 'o''brien'"))
		})
	})

	Describe("ListPages", func() {
		It("joins through project_pages when a project is given", func() {
			_, err := client.ListPages(ctx, "ops", "proj-1", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(runner.queries[0]).To(ContainSubstring("JOIN project_pages"))
			Expect(runner.queries[0]).To(ContainSubstring("pp.deleted_at IS NULL"))
			Expect(runner.queries[0]).To(ContainSubstring("LIMIT 10"))
		})

		It("skips the project join otherwise and defaults the limit", func() {
			_, err := client.ListPages(ctx, "ops", "", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(runner.queries[0]).NotTo(ContainSubstring("project_pages"))
			Expect(runner.queries[0]).To(ContainSubstring("LIMIT 50"))
		})
	})

	Describe("GetPage", func() {
		It("returns nil for an unknown page", func() {
			runner.responses = []string{""}

			page, err := client.GetPage(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(page).To(BeNil())
		})
	})

	Describe("CreatePage", func() {
		BeforeEach(func() {
			runner.responses = []string{
				"workspace-uuid", // workspace lookup
				"user-uuid",      // owner lookup
				"",               // page insert
				"",               // project link insert
				`[{"id": "page-uuid", "name": "Runbook"}]`, // read-back
			}
		})

		It("inserts the page and its project link, then reads it back", func() {
			page, err := client.CreatePage(ctx, plane.DBCreatePageParams{
				WorkspaceSlug:   "ops",
				ProjectID:       "proj-1",
				Name:            "Runbook",
				DescriptionHTML: "<p>Restart the <b>broker</b> first</p>",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(page["name"]).To(Equal("Runbook"))
			Expect(runner.queries).To(HaveLen(5))

			pageInsert := runner.queries[2]
			Expect(pageInsert).To(ContainSubstring("INSERT INTO pages"))
			Expect(pageInsert).To(ContainSubstring("'workspace-uuid'"))
			Expect(pageInsert).To(ContainSubstring("'user-uuid'"))

			// The stripped column drops the markup.
			Expect(pageInsert).To(ContainSubstring("'Restart the broker first'"))

			linkInsert := runner.queries[3]
			Expect(linkInsert).To(ContainSubstring("INSERT INTO project_pages"))
			Expect(linkInsert).To(ContainSubstring("'proj-1'"))
		})

		It("escapes quotes in the page name", func() {
			_, err := client.CreatePage(ctx, plane.DBCreatePageParams{
				WorkspaceSlug: "ops",
				ProjectID:     "proj-1",
				Name:          "O'Brien's notes",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(runner.queries[2]).To(ContainSubstring("'O''Brien''s notes'"))
		})

		It("renders absent optional references as NULL", func() {
			_, err := client.CreatePage(ctx, plane.DBCreatePageParams{
				WorkspaceSlug: "ops",
				ProjectID:     "proj-1",
				Name:          "n",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(runner.queries[2]).To(ContainSubstring("NULL"))
		})

		It("fails before writing when the workspace is unknown", func() {
			runner.responses = []string{""}

			_, err := client.CreatePage(ctx, plane.DBCreatePageParams{
				WorkspaceSlug: "ghost",
				ProjectID:     "proj-1",
				Name:          "n",
			})
			Expect(err).To(MatchError(ContainSubstring("workspace 'ghost' not found")))
			Expect(runner.queries).To(HaveLen(1))
		})
	})

	Describe("UpdatePage", func() {
		It("refreshes the stripped text alongside the html", func() {
			runner.responses = []string{"", `[{"id": "page-uuid"}]`}

			html := "<h1>Title</h1><p>body</p>"
			_, err := client.UpdatePage(ctx, "page-uuid", "", &html)
			Expect(err).NotTo(HaveOccurred())

			Expect(runner.queries[0]).To(ContainSubstring("description_html = '<h1>Title</h1><p>body</p>'"))
			Expect(runner.queries[0]).To(ContainSubstring("description_stripped = 'Titlebody'"))
			Expect(runner.queries[0]).To(ContainSubstring("deleted_at IS NULL"))
		})

		It("rejects an update with nothing to change", func() {
			_, err := client.UpdatePage(ctx, "page-uuid", "", nil)
			Expect(err).To(HaveOccurred())
			Expect(runner.queries).To(BeEmpty())
		})
	})

	Describe("DeletePage", func() {
		It("soft-deletes the page and its project links", func() {
			Expect(client.DeletePage(ctx, "page-uuid")).To(Succeed())
			Expect(runner.queries).To(HaveLen(2))
			Expect(runner.queries[0]).To(ContainSubstring("UPDATE pages SET deleted_at"))
			Expect(runner.queries[1]).To(ContainSubstring("UPDATE project_pages SET deleted_at"))
		})
	})
})
