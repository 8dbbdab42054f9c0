package plane

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opshelm/worklog/pkg/logger"
)

// Runner executes one SQL statement against the Plane database and returns
// the raw psql output. It exists so the SSH transport can be swapped out in
// tests.
type Runner interface {
	Run(ctx context.Context, query string) (string, error)
}

// DBConfig locates the containerized Plane PostgreSQL behind SSH.
type DBConfig struct {
	SSHHost   string
	Container string
	User      string
	Password  string
	Database  string
}

// SSHRunner reaches the Plane database by piping queries over SSH into a
// psql inside the database container. The container's port is not exposed
// outside the host, so this is the only path in.
type SSHRunner struct {
	config DBConfig
	log    *slog.Logger
}

// NewSSHRunner creates a runner for the given database location.
func NewSSHRunner(config DBConfig, log *slog.Logger) *SSHRunner {
	if log == nil {
		log = logger.Nop()
	}

	return &SSHRunner{config: config, log: log}
}

// Run executes a query remotely. The whole remote script travels
// base64-encoded so shell metacharacters in SQL literals and credentials
// survive the two shells in between.
func (r *SSHRunner) Run(ctx context.Context, query string) (string, error) {
	encoded := base64.StdEncoding.EncodeToString([]byte(r.remoteScript(query)))

	cmd := exec.CommandContext(ctx, "ssh", r.config.SSHHost,
		"echo "+encoded+" | base64 -d | sh")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = err.Error()
		}
		return "", fmt.Errorf("plane database query failed: %s", message)
	}

	r.log.Debug("plane database query ran",
		"host", r.config.SSHHost,
		"duration", time.Since(started),
	)

	return strings.TrimSpace(stdout.String()), nil
}

// remoteScript renders the commands the remote shell reads from stdin. The
// password is decoded from a heredoc and handed to docker exec by name, so
// it never appears in a process listing on the remote host.
func (r *SSHRunner) remoteScript(query string) string {
	encodedQuery := base64.StdEncoding.EncodeToString([]byte(query))
	encodedPassword := base64.StdEncoding.EncodeToString([]byte(r.config.Password))

	return fmt.Sprintf(`PGPASSWORD=$(base64 -d <<'B64'
%s
B64
)
export PGPASSWORD
echo %s | base64 -d | docker exec -i -e PGPASSWORD %s psql -U %s -d %s -t -A`,
		encodedPassword, encodedQuery, r.config.Container, r.config.User, r.config.Database)
}

// DBClient reads and writes Plane pages directly in the database. Pages are
// not exposed through the public API, so this client owns their CRUD.
// Multi-statement writes run sequentially without a transaction; a failure
// between statements can leave a page without its project link.
type DBClient struct {
	runner Runner
	log    *slog.Logger
}

// NewDBClient creates a page client over the given runner.
func NewDBClient(runner Runner, log *slog.Logger) *DBClient {
	if log == nil {
		log = logger.Nop()
	}

	return &DBClient{runner: runner, log: log}
}

// queryJSON runs a query wrapped in json_agg so rows come back structured.
func (c *DBClient) queryJSON(ctx context.Context, query string) ([]map[string]any, error) {
	wrapped := fmt.Sprintf("SELECT json_agg(t) FROM (%s) t", query)

	raw, err := c.runner.Run(ctx, wrapped)
	if err != nil {
		return nil, err
	}
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("decoding plane rows: %w", err)
	}

	return rows, nil
}

// escapeLiteral doubles single quotes for safe embedding in a SQL string
// literal. Identifiers and structure are never caller-supplied here.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// nullableLiteral renders an optional value as a quoted literal or NULL.
func nullableLiteral(s string) string {
	if s == "" {
		return "NULL"
	}

	return "'" + escapeLiteral(s) + "'"
}

var htmlTags = regexp.MustCompile(`<[^>]+>`)

// stripHTML drops markup for the plain-text page column.
func stripHTML(html string) string {
	return strings.TrimSpace(htmlTags.ReplaceAllString(html, ""))
}

// ListWorkspaces lists the live workspaces.
func (c *DBClient) ListWorkspaces(ctx context.Context) ([]map[string]any, error) {
	return c.queryJSON(ctx, `
		SELECT id::text, slug, name, created_at, updated_at
		FROM workspaces
		WHERE deleted_at IS NULL
		ORDER BY name`)
}

// WorkspaceID resolves a workspace slug to its UUID. Returns empty when the
// slug is unknown.
func (c *DBClient) WorkspaceID(ctx context.Context, workspaceSlug string) (string, error) {
	return c.runner.Run(ctx, fmt.Sprintf(
		"SELECT id::text FROM workspaces WHERE slug = '%s' AND deleted_at IS NULL",
		escapeLiteral(workspaceSlug)))
}

// UserID returns the first member of a workspace, used as the page owner
// for rows created on behalf of the agent.
func (c *DBClient) UserID(ctx context.Context, workspaceSlug string) (string, error) {
	return c.runner.Run(ctx, fmt.Sprintf(`
		SELECT u.id::text FROM users u
		JOIN workspace_members wm ON u.id = wm.member_id
		JOIN workspaces w ON wm.workspace_id = w.id
		WHERE w.slug = '%s' AND w.deleted_at IS NULL
		LIMIT 1`, escapeLiteral(workspaceSlug)))
}

// ListPages lists live pages in a workspace, optionally narrowed to one
// project, newest first.
func (c *DBClient) ListPages(ctx context.Context, workspaceSlug, projectID string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 50
	}

	if projectID != "" {
		return c.queryJSON(ctx, fmt.Sprintf(`
			SELECT p.id::text, p.name, p.description_stripped,
			       p.access, p.is_locked, p.is_global, p.parent_id::text,
			       p.created_at, p.updated_at, p.archived_at,
			       p.external_id, p.external_source,
			       pr.id::text AS project_id, pr.name AS project_name
			FROM pages p
			JOIN project_pages pp ON p.id = pp.page_id
			JOIN projects pr ON pp.project_id = pr.id
			JOIN workspaces w ON p.workspace_id = w.id
			WHERE w.slug = '%s'
			  AND pr.id = '%s'
			  AND p.deleted_at IS NULL
			  AND pp.deleted_at IS NULL
			ORDER BY p.updated_at DESC
			LIMIT %d`,
			escapeLiteral(workspaceSlug), escapeLiteral(projectID), limit))
	}

	return c.queryJSON(ctx, fmt.Sprintf(`
		SELECT p.id::text, p.name, p.description_stripped,
		       p.access, p.is_locked, p.is_global, p.parent_id::text,
		       p.created_at, p.updated_at, p.archived_at,
		       p.external_id, p.external_source
		FROM pages p
		JOIN workspaces w ON p.workspace_id = w.id
		WHERE w.slug = '%s' AND p.deleted_at IS NULL
		ORDER BY p.updated_at DESC
		LIMIT %d`,
		escapeLiteral(workspaceSlug), limit))
}

// GetPage returns one live page with its full content, or nil when it does
// not exist.
func (c *DBClient) GetPage(ctx context.Context, pageID string) (map[string]any, error) {
	rows, err := c.queryJSON(ctx, fmt.Sprintf(`
		SELECT p.id::text, p.name, p.description_html,
		       p.description_stripped, p.access, p.is_locked, p.is_global,
		       p.parent_id::text, p.created_at, p.updated_at, p.archived_at,
		       p.external_id, p.external_source, p.workspace_id::text,
		       w.slug AS workspace_slug
		FROM pages p
		JOIN workspaces w ON p.workspace_id = w.id
		WHERE p.id = '%s' AND p.deleted_at IS NULL`,
		escapeLiteral(pageID)))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return rows[0], nil
}

// DBCreatePageParams are the arguments for DBClient.CreatePage.
type DBCreatePageParams struct {
	WorkspaceSlug   string
	ProjectID       string
	Name            string
	DescriptionHTML string
	ParentID        string
	ExternalID      string
	ExternalSource  string
}

// CreatePage inserts a page and its project link, then reads the page
// back. The two inserts run sequentially over the runner.
func (c *DBClient) CreatePage(ctx context.Context, p DBCreatePageParams) (map[string]any, error) {
	workspaceID, err := c.WorkspaceID(ctx, p.WorkspaceSlug)
	if err != nil {
		return nil, err
	}
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace '%s' not found", p.WorkspaceSlug)
	}

	userID, err := c.UserID(ctx, p.WorkspaceSlug)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("no user found in workspace '%s'", p.WorkspaceSlug)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	pageID := uuid.NewString()
	linkID := uuid.NewString()

	insertPage := fmt.Sprintf(`
		INSERT INTO pages (
			id, name, description, description_html, description_stripped,
			access, is_locked, is_global, workspace_id, owned_by_id,
			created_by_id, updated_by_id, parent_id,
			external_id, external_source,
			color, view_props, logo_props, sort_order,
			created_at, updated_at
		) VALUES (
			'%s', '%s', '{}'::jsonb, '%s', '%s',
			0, false, false, '%s', '%s',
			'%s', '%s', %s,
			%s, %s,
			'', '{}'::jsonb, '{}'::jsonb, 65535,
			'%s', '%s'
		)`,
		pageID, escapeLiteral(p.Name),
		escapeLiteral(p.DescriptionHTML), escapeLiteral(stripHTML(p.DescriptionHTML)),
		workspaceID, userID,
		userID, userID, nullableLiteral(p.ParentID),
		nullableLiteral(p.ExternalID), nullableLiteral(p.ExternalSource),
		now, now)

	if _, err := c.runner.Run(ctx, insertPage); err != nil {
		return nil, err
	}

	insertLink := fmt.Sprintf(`
		INSERT INTO project_pages (
			id, page_id, project_id, workspace_id,
			created_by_id, updated_by_id, created_at, updated_at
		) VALUES (
			'%s', '%s', '%s', '%s',
			'%s', '%s', '%s', '%s'
		)`,
		linkID, pageID, escapeLiteral(p.ProjectID), workspaceID,
		userID, userID, now, now)

	if _, err := c.runner.Run(ctx, insertLink); err != nil {
		return nil, err
	}

	c.log.Info("plane page created", "page_id", pageID, "project_id", p.ProjectID)

	return c.GetPage(ctx, pageID)
}

// UpdatePage updates a page's name and content, refreshing the stripped
// text alongside the HTML.
func (c *DBClient) UpdatePage(ctx context.Context, pageID, name string, descriptionHTML *string) (map[string]any, error) {
	var sets []string

	if name != "" {
		sets = append(sets, fmt.Sprintf("name = '%s'", escapeLiteral(name)))
	}
	if descriptionHTML != nil {
		sets = append(sets,
			fmt.Sprintf("description_html = '%s'", escapeLiteral(*descriptionHTML)),
			fmt.Sprintf("description_stripped = '%s'", escapeLiteral(stripHTML(*descriptionHTML))))
	}

	if len(sets) == 0 {
		return nil, fmt.Errorf("no updates provided")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	sets = append(sets, fmt.Sprintf("updated_at = '%s'", now))

	query := fmt.Sprintf("UPDATE pages SET %s WHERE id = '%s' AND deleted_at IS NULL",
		strings.Join(sets, ", "), escapeLiteral(pageID))

	if _, err := c.runner.Run(ctx, query); err != nil {
		return nil, err
	}

	return c.GetPage(ctx, pageID)
}

// DeletePage soft-deletes a page and its project links. Rows are stamped,
// never removed, matching how Plane itself deletes.
func (c *DBClient) DeletePage(ctx context.Context, pageID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	escaped := escapeLiteral(pageID)

	_, err := c.runner.Run(ctx, fmt.Sprintf(
		"UPDATE pages SET deleted_at = '%s' WHERE id = '%s' AND deleted_at IS NULL", now, escaped))
	if err != nil {
		return err
	}

	_, err = c.runner.Run(ctx, fmt.Sprintf(
		"UPDATE project_pages SET deleted_at = '%s' WHERE page_id = '%s' AND deleted_at IS NULL", now, escaped))

	return err
}
