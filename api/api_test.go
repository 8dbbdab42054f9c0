package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/database/sqlite"
	"github.com/opshelm/worklog/pkg/logger"
	"github.com/opshelm/worklog/pkg/worklog"
)

// newTestService builds a worklog service over a fresh SQLite database.
func newTestService() *worklog.Service {
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

	svc, err := worklog.NewService(worklog.Config{Provider: provider})
	Expect(err).NotTo(HaveOccurred())

	return svc
}

var _ = Describe("Server", func() {
	var (
		service *worklog.Service
		server  *Server
	)

	BeforeEach(func() {
		service = newTestService()

		var err error
		server, err = NewServer(Config{ListenAddr: ":0"}, service, nil, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the service is nil", func() {
			_, err := NewServer(Config{}, nil, nil, logger.Nop())
			Expect(err).To(HaveOccurred())
		})

		It("returns an error when the logger is nil", func() {
			_, err := NewServer(Config{}, service, nil, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal(`"pong"`))
		})
	})

	Describe("GET /stats", func() {
		It("returns the curation report", func() {
			_, err := service.StoreMemory(context.Background(), worklog.StoreMemoryParams{
				Key:     "work.deploy",
				Content: "Deploys go through staging first",
				Tags:    "deploys",
			})
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/stats", nil))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var report worklog.CurationReport
			Expect(json.NewDecoder(resp.Body).Decode(&report)).To(Succeed())
			Expect(report.Tables["memories"]).To(Equal(int64(1)))
			Expect(report.TagCoverage).To(Equal(100.0))
		})
	})

	Describe("the MCP mount", func() {
		It("is absent when no handler is injected", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/mcp", nil))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("forwards requests to an injected handler", func() {
			mounted, err := NewServer(Config{}, service, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}), logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			resp, err := mounted.app.Test(httptest.NewRequest(http.MethodPost, "/mcp", nil))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusTeapot))
		})
	})
})
