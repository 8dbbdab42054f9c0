package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/database/sqlite"
	"github.com/opshelm/worklog/pkg/logger"
	"github.com/opshelm/worklog/pkg/plane"
	"github.com/opshelm/worklog/pkg/worklog"
)

// newToolServer builds a Server over a fresh SQLite-backed service.
func newToolServer() *Server {
	dbPath := filepath.Join(GinkgoT().TempDir(), "worklog.db")

	provider, err := database.NewProvider(database.ProviderConfig{
		Open: func(ctx context.Context) (database.Backend, error) {
			b := sqlite.NewSQLiteBackend(dbPath)
			if err := b.Connect(ctx); err != nil {
				return nil, err
			}

			return b, nil
		},
	})
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(provider.Close)

	service, err := worklog.NewService(worklog.Config{Provider: provider})
	Expect(err).NotTo(HaveOccurred())

	server, err := NewServer(Config{
		Service: service,
		Logger:  logger.Nop(),
	})
	Expect(err).NotTo(HaveOccurred())

	return server
}

// resultText extracts the text mirror from a tool result.
func resultText(result *sdk.CallToolResult) string {
	GinkgoHelper()
	Expect(result.Content).To(HaveLen(1))

	text, ok := result.Content[0].(*sdk.TextContent)
	Expect(ok).To(BeTrue())

	return text.Text
}

var _ = Describe("Worklog tools", func() {
	var (
		server *Server
		ctx    context.Context
	)

	BeforeEach(func() {
		server = newToolServer()
		ctx = context.Background()
	})

	Describe("store_memory", func() {
		It("stores a memory and mirrors the output as JSON", func() {
			result, output, err := server.handleStoreMemory(ctx, nil, StoreMemoryInput{
				Key:     "work.deploy",
				Content: "Deploys go through the staging cluster first",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Key).To(Equal("work.deploy"))
			Expect(output.ID).To(BeNumerically(">", 0))
			Expect(resultText(result)).To(ContainSubstring(`"key":"work.deploy"`))
		})

		It("reports a duplicate key as an error result, not a Go error", func() {
			_, _, err := server.handleStoreMemory(ctx, nil, StoreMemoryInput{
				Key: "dup", Content: "first",
			})
			Expect(err).NotTo(HaveOccurred())

			result, output, err := server.handleStoreMemory(ctx, nil, StoreMemoryInput{
				Key: "dup", Content: "second",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
			Expect(output).To(BeNil())
			Expect(resultText(result)).To(ContainSubstring("already exists"))
		})
	})

	Describe("get_memory", func() {
		It("round-trips a stored memory", func() {
			_, _, err := server.handleStoreMemory(ctx, nil, StoreMemoryInput{
				Key: "work.oncall", Content: "Rotation flips on Mondays",
			})
			Expect(err).NotTo(HaveOccurred())

			result, output, err := server.handleGetMemory(ctx, nil, GetMemoryInput{Key: "work.oncall"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Memory["content"]).To(Equal("Rotation flips on Mondays"))
		})

		It("reports an unknown key as an error result", func() {
			result, _, err := server.handleGetMemory(ctx, nil, GetMemoryInput{Key: "ghost"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
			Expect(resultText(result)).To(ContainSubstring("ghost"))
		})
	})

	Describe("query_table", func() {
		It("rejects an unknown table as an error result", func() {
			result, _, err := server.handleQueryTable(ctx, nil, QueryTableInput{Table: "users; DROP TABLE"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})

		It("builds the filter from the flat input fields", func() {
			_, _, err := server.handleStoreMemory(ctx, nil, StoreMemoryInput{
				Key: "k1", Content: "c", Importance: 9,
			})
			Expect(err).NotTo(HaveOccurred())
			_, _, err = server.handleStoreMemory(ctx, nil, StoreMemoryInput{
				Key: "k2", Content: "c", Importance: 2,
			})
			Expect(err).NotTo(HaveOccurred())

			result, output, err := server.handleQueryTable(ctx, nil, QueryTableInput{
				Table:          "memories",
				FilterColumn:   "importance",
				FilterOperator: ">=",
				FilterValue:    5,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Count).To(Equal(1))
			Expect(output.Rows[0]["key"]).To(Equal("k1"))
		})
	})

	Describe("list_tables", func() {
		It("counts every table", func() {
			result, output, err := server.handleListTables(ctx, nil, ListTablesInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Tables).To(HaveKey("memories"))
			Expect(output.Tables).To(HaveKey("agent_chat"))
		})
	})

	Describe("respond_agent_message", func() {
		It("reports the resulting status", func() {
			_, sent, err := server.handleSendAgentMessage(ctx, nil, SendAgentMessageInput{
				ToAgent: "all", Message: "broker restart at noon",
			})
			Expect(err).NotTo(HaveOccurred())

			result, output, err := server.handleRespondAgentMessage(ctx, nil, RespondAgentMessageInput{
				MessageID: sent.ID,
				Response:  "ack",
				Resolve:   true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Status).To(Equal("resolved"))
		})
	})

	Describe("record_curation", func() {
		It("defaults an omitted success flag to true", func() {
			result, output, err := server.handleRecordCuration(ctx, nil, RecordCurationInput{
				Operation: "duplicate_detection",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.ID).To(BeNumerically(">", 0))

			_, report, err := server.handleGetCurationStatus(ctx, nil, GetCurationStatusInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Operations).To(ContainElement(worklog.OperationStats{
				Operation: "duplicate_detection", Runs: 1, Successes: 1,
			}))
		})
	})
})

var _ = Describe("Plane tool helpers", func() {
	Describe("ensureHTML", func() {
		It("wraps plain text in a paragraph", func() {
			Expect(ensureHTML("restart the broker")).To(Equal("<p>restart the broker</p>"))
		})

		It("passes markup through untouched", func() {
			Expect(ensureHTML("<h1>Runbook</h1>")).To(Equal("<h1>Runbook</h1>"))
		})

		It("leaves an empty description empty", func() {
			Expect(ensureHTML("")).To(BeEmpty())
		})
	})

	Describe("splitList", func() {
		It("drops empty items and trims whitespace", func() {
			Expect(splitList(" blocks, relates_to ,")).To(Equal([]string{"blocks", "relates_to"}))
			Expect(splitList("")).To(BeNil())
		})
	})

	Describe("workspaceSlug", func() {
		It("falls back to the configured workspace", func() {
			client, err := plane.NewClient(plane.Config{
				APIURL:        "http://plane.local",
				APIKey:        "k",
				WorkspaceSlug: "ops",
			})
			Expect(err).NotTo(HaveOccurred())

			s := &Server{config: Config{Plane: client}}
			Expect(s.workspaceSlug("")).To(Equal("ops"))
			Expect(s.workspaceSlug("other")).To(Equal("other"))
		})
	})

	Describe("checkPagesEnabled", func() {
		var (
			response string
			server   *Server
			ctx      context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()

			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(response))
			}))
			DeferCleanup(api.Close)

			client, err := plane.NewClient(plane.Config{APIURL: api.URL, APIKey: "k"})
			Expect(err).NotTo(HaveOccurred())

			server = &Server{config: Config{Plane: client}}
		})

		It("allows projects with pages enabled", func() {
			response = `{"id": "proj-1", "page_view": true}`

			blocked, err := server.checkPagesEnabled(ctx, "ops", "proj-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(blocked).To(BeNil())
		})

		It("blocks projects with pages disabled and names the remedy", func() {
			response = `{"id": "proj-1", "page_view": false}`

			blocked, err := server.checkPagesEnabled(ctx, "ops", "proj-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(blocked).To(HaveKeyWithValue("hint", "Enable page_view in project settings first"))
		})

		It("relays an API error payload", func() {
			response = `{"error": "HTTP 404: not found", "status_code": 404}`

			blocked, err := server.checkPagesEnabled(ctx, "ops", "ghost")
			Expect(err).NotTo(HaveOccurred())
			Expect(blocked).To(HaveKey("error"))
		})

		It("skips the check without a REST client", func() {
			bare := &Server{config: Config{}}

			blocked, err := bare.checkPagesEnabled(ctx, "ops", "proj-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(blocked).To(BeNil())
		})
	})
})
