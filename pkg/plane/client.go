// Package plane integrates the worklog with a self-hosted Plane project
// tracker: a REST client for the public API, and a direct database client
// for pages, which the public API does not expose.
package plane

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opshelm/worklog/pkg/logger"
)

// endpoints maps logical operation names to API path templates. Path
// parameters are spliced by buildPath, never by callers.
var endpoints = map[string]string{
	"workspaces": "/api/v1/workspaces/",
	"projects":   "/api/v1/workspaces/{workspace_slug}/projects/",
	"project":    "/api/v1/workspaces/{workspace_slug}/projects/{project_id}/",
	"issues":     "/api/v1/workspaces/{workspace_slug}/projects/{project_id}/issues/",
	"issue":      "/api/v1/workspaces/{workspace_slug}/projects/{project_id}/issues/{issue_id}/",
	"pages":      "/api/v1/workspaces/{workspace_slug}/projects/{project_id}/pages/",
	"page":       "/api/v1/workspaces/{workspace_slug}/projects/{project_id}/pages/{page_id}/",
	"cycles":     "/api/v1/workspaces/{workspace_slug}/projects/{project_id}/cycles/",
	"modules":    "/api/v1/workspaces/{workspace_slug}/projects/{project_id}/modules/",
}

// Config is the configuration options for the Plane API client.
type Config struct {
	// APIURL is the base URL of the Plane instance. Required.
	APIURL string

	// APIKey authenticates requests via the X-API-Key header. Required.
	APIKey string

	// WorkspaceSlug is the default workspace for tools that omit one.
	WorkspaceSlug string

	// HTTPClient overrides the default 30 second timeout client.
	HTTPClient *http.Client

	// Logger receives request diagnostics. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Client calls the Plane REST API. API-level failures (non-2xx) come back
// as data with an "error" and "status_code" key, so tool callers can relay
// them verbatim; only transport and decoding failures are Go errors.
type Client struct {
	baseURL   string
	apiKey    string
	workspace string
	http      *http.Client
	log       *slog.Logger
}

// NewClient creates a Plane API client from the given config.
func NewClient(c Config) (*Client, error) {
	if c.APIURL == "" {
		return nil, errors.New("plane api url is required")
	}
	if c.APIKey == "" {
		return nil, errors.New("plane api key is required")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		baseURL:   strings.TrimRight(c.APIURL, "/"),
		apiKey:    c.APIKey,
		workspace: c.WorkspaceSlug,
		http:      httpClient,
		log:       log,
	}, nil
}

// Workspace returns the configured default workspace slug, which may be
// empty.
func (c *Client) Workspace() string {
	return c.workspace
}

// buildPath expands an endpoint template with path-escaped parameters.
func buildPath(endpoint string, params map[string]string) string {
	path := endpoints[endpoint]
	for key, value := range params {
		path = strings.ReplaceAll(path, "{"+key+"}", url.PathEscape(value))
	}

	return path
}

// Result is a decoded API response. Failed API calls carry "error" and
// "status_code" keys instead of payload fields.
type Result = map[string]any

// request performs one API call and decodes the response body.
func (c *Client) request(ctx context.Context, method, endpoint string, pathParams map[string]string, query url.Values, payload any) (Result, error) {
	target := c.baseURL + buildPath(endpoint, pathParams)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling plane api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading plane response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("plane api call failed",
			"method", method,
			"endpoint", endpoint,
			"status", resp.StatusCode,
		)
		return Result{
			"error":       fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			"status_code": resp.StatusCode,
		}, nil
	}

	return decodeBody(raw)
}

// decodeBody decodes a response body. List endpoints that return a bare
// array are wrapped under "results" so every call yields an object.
func decodeBody(raw []byte) (Result, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decoding plane response: %w", err)
	}

	switch v := decoded.(type) {
	case map[string]any:
		return v, nil
	case []any:
		return Result{"results": v}, nil
	default:
		return Result{"result": v}, nil
	}
}

// ListWorkspaces lists every workspace the API key can see.
func (c *Client) ListWorkspaces(ctx context.Context) (Result, error) {
	return c.request(ctx, http.MethodGet, "workspaces", nil, nil, nil)
}

// ListProjects lists the projects in a workspace.
func (c *Client) ListProjects(ctx context.Context, workspaceSlug string) (Result, error) {
	return c.request(ctx, http.MethodGet, "projects",
		map[string]string{"workspace_slug": workspaceSlug}, nil, nil)
}

// GetProject returns one project.
func (c *Client) GetProject(ctx context.Context, workspaceSlug, projectID string) (Result, error) {
	return c.request(ctx, http.MethodGet, "project",
		map[string]string{"workspace_slug": workspaceSlug, "project_id": projectID}, nil, nil)
}

// ListIssues lists the issues in a project. Query parameters pass through
// to the API for filtering and pagination.
func (c *Client) ListIssues(ctx context.Context, workspaceSlug, projectID string, query url.Values) (Result, error) {
	return c.request(ctx, http.MethodGet, "issues",
		map[string]string{"workspace_slug": workspaceSlug, "project_id": projectID}, query, nil)
}

// GetIssue returns one issue.
func (c *Client) GetIssue(ctx context.Context, workspaceSlug, projectID, issueID string) (Result, error) {
	return c.request(ctx, http.MethodGet, "issue",
		map[string]string{
			"workspace_slug": workspaceSlug,
			"project_id":     projectID,
			"issue_id":       issueID,
		}, nil, nil)
}

// CreateIssueParams are the arguments for CreateIssue.
type CreateIssueParams struct {
	Name        string
	Description string
	Priority    string
	StateID     string

	// Extra passes additional issue fields straight to the API.
	Extra map[string]any
}

// CreateIssue creates an issue. A plain-text description is wrapped in a
// paragraph tag, matching what the Plane editor stores.
func (c *Client) CreateIssue(ctx context.Context, workspaceSlug, projectID string, p CreateIssueParams) (Result, error) {
	payload := map[string]any{"name": p.Name}
	if p.Description != "" {
		payload["description_html"] = "<p>" + p.Description + "</p>"
	}
	if p.Priority != "" {
		payload["priority"] = p.Priority
	}
	if p.StateID != "" {
		payload["state"] = p.StateID
	}
	for key, value := range p.Extra {
		payload[key] = value
	}

	return c.request(ctx, http.MethodPost, "issues",
		map[string]string{"workspace_slug": workspaceSlug, "project_id": projectID}, nil, payload)
}

// UpdateIssue patches the given issue fields.
func (c *Client) UpdateIssue(ctx context.Context, workspaceSlug, projectID, issueID string, fields map[string]any) (Result, error) {
	return c.request(ctx, http.MethodPatch, "issue",
		map[string]string{
			"workspace_slug": workspaceSlug,
			"project_id":     projectID,
			"issue_id":       issueID,
		}, nil, fields)
}

// ListPages lists the pages in a project.
func (c *Client) ListPages(ctx context.Context, workspaceSlug, projectID string, query url.Values) (Result, error) {
	return c.request(ctx, http.MethodGet, "pages",
		map[string]string{"workspace_slug": workspaceSlug, "project_id": projectID}, query, nil)
}

// GetPage returns one page.
func (c *Client) GetPage(ctx context.Context, workspaceSlug, projectID, pageID string) (Result, error) {
	return c.request(ctx, http.MethodGet, "page",
		map[string]string{
			"workspace_slug": workspaceSlug,
			"project_id":     projectID,
			"page_id":        pageID,
		}, nil, nil)
}

// CreatePageParams are the arguments for CreatePage.
type CreatePageParams struct {
	Name        string
	Description string
	Extra       map[string]any
}

// CreatePage creates a page through the API.
func (c *Client) CreatePage(ctx context.Context, workspaceSlug, projectID string, p CreatePageParams) (Result, error) {
	payload := map[string]any{"name": p.Name}
	if p.Description != "" {
		payload["description_html"] = "<p>" + p.Description + "</p>"
	}
	for key, value := range p.Extra {
		payload[key] = value
	}

	return c.request(ctx, http.MethodPost, "pages",
		map[string]string{"workspace_slug": workspaceSlug, "project_id": projectID}, nil, payload)
}

// UpdatePage patches the given page fields.
func (c *Client) UpdatePage(ctx context.Context, workspaceSlug, projectID, pageID string, fields map[string]any) (Result, error) {
	return c.request(ctx, http.MethodPatch, "page",
		map[string]string{
			"workspace_slug": workspaceSlug,
			"project_id":     projectID,
			"page_id":        pageID,
		}, nil, fields)
}

// ListCycles lists the cycles in a project.
func (c *Client) ListCycles(ctx context.Context, workspaceSlug, projectID string) (Result, error) {
	return c.request(ctx, http.MethodGet, "cycles",
		map[string]string{"workspace_slug": workspaceSlug, "project_id": projectID}, nil, nil)
}

// ListModules lists the modules in a project.
func (c *Client) ListModules(ctx context.Context, workspaceSlug, projectID string) (Result, error) {
	return c.request(ctx, http.MethodGet, "modules",
		map[string]string{"workspace_slug": workspaceSlug, "project_id": projectID}, nil, nil)
}
