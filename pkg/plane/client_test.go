package plane_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opshelm/worklog/pkg/plane"
)

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		client   *plane.Client
		requests []*http.Request
		bodies   []map[string]any
		respond  func(w http.ResponseWriter)
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		requests = nil
		bodies = nil
		respond = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok": true}`))
		}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r)

			var body map[string]any
			if r.Body != nil {
				json.NewDecoder(r.Body).Decode(&body)
			}
			bodies = append(bodies, body)

			respond(w)
		}))
		DeferCleanup(server.Close)

		var err error
		client, err = plane.NewClient(plane.Config{
			APIURL: server.URL + "/", // trailing slash is normalized away
			APIKey: "test-key",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewClient", func() {
		It("requires an api url and key", func() {
			_, err := plane.NewClient(plane.Config{APIKey: "k"})
			Expect(err).To(HaveOccurred())

			_, err = plane.NewClient(plane.Config{APIURL: "http://plane.local"})
			Expect(err).To(HaveOccurred())
		})
	})

	It("sends the api key header on every request", func() {
		_, err := client.ListWorkspaces(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(requests[0].Header.Get("X-API-Key")).To(Equal("test-key"))
		Expect(requests[0].Header.Get("Content-Type")).To(Equal("application/json"))
	})

	It("expands endpoint templates with escaped parameters", func() {
		_, err := client.GetIssue(ctx, "my team", "proj-1", "issue-9")
		Expect(err).NotTo(HaveOccurred())
		Expect(requests[0].URL.Path).To(Equal(
			"/api/v1/workspaces/my%20team/projects/proj-1/issues/issue-9/"))
	})

	It("passes query parameters through on list calls", func() {
		_, err := client.ListIssues(ctx, "ws", "proj", url.Values{"state": {"backlog"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(requests[0].URL.Query().Get("state")).To(Equal("backlog"))
	})

	It("returns non-2xx responses as error data, not a Go error", func() {
		respond = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail": "Not found."}`))
		}

		result, err := client.GetProject(ctx, "ws", "missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(result["status_code"]).To(Equal(404))
		Expect(result["error"]).To(Equal(`HTTP 404: {"detail": "Not found."}`))
	})

	It("wraps bare array responses under results", func() {
		respond = func(w http.ResponseWriter) {
			w.Write([]byte(`[{"id": "a"}, {"id": "b"}]`))
		}

		result, err := client.ListCycles(ctx, "ws", "proj")
		Expect(err).NotTo(HaveOccurred())
		Expect(result["results"]).To(HaveLen(2))
	})

	Describe("CreateIssue", func() {
		It("wraps a plain description in a paragraph", func() {
			_, err := client.CreateIssue(ctx, "ws", "proj", plane.CreateIssueParams{
				Name:        "Fix the flaky deploy",
				Description: "It fails on Tuesdays",
				Priority:    "high",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(requests[0].Method).To(Equal(http.MethodPost))
			Expect(bodies[0]).To(HaveKeyWithValue("name", "Fix the flaky deploy"))
			Expect(bodies[0]).To(HaveKeyWithValue("description_html", "<p>It fails on Tuesdays</p>"))
			Expect(bodies[0]).To(HaveKeyWithValue("priority", "high"))
			Expect(bodies[0]).NotTo(HaveKey("state"))
		})

		It("merges extra fields into the payload", func() {
			_, err := client.CreateIssue(ctx, "ws", "proj", plane.CreateIssueParams{
				Name:  "n",
				Extra: map[string]any{"labels": []any{"ops"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(bodies[0]).To(HaveKey("labels"))
		})
	})

	Describe("UpdateIssue", func() {
		It("patches only the given fields", func() {
			_, err := client.UpdateIssue(ctx, "ws", "proj", "issue-1",
				map[string]any{"priority": "urgent"})
			Expect(err).NotTo(HaveOccurred())

			Expect(requests[0].Method).To(Equal(http.MethodPatch))
			Expect(bodies[0]).To(Equal(map[string]any{"priority": "urgent"}))
		})
	})
})
