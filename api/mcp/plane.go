package mcp

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opshelm/worklog/pkg/plane"
)

// addPlaneTools registers the project tracker tools backed by the Plane
// REST API.
func (s *Server) addPlaneTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_projects",
		Description: "List all projects in a Plane workspace.",
	}, s.handleListProjects)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_project",
		Description: "Get details of a Plane project, including its name, description, and settings.",
	}, s.handleGetProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_issues",
		Description: "List issues in a Plane project with optional state and priority filtering.",
	}, s.handleListIssues)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_issue",
		Description: "Get details of a Plane issue, including its state, priority, and assignees.",
	}, s.handleGetIssue)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_issue",
		Description: "Create a new issue in a Plane project. A plain text description is converted to HTML.",
	}, s.handleCreateIssue)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_issue",
		Description: "Update a Plane issue. Only the provided fields change.",
	}, s.handleUpdateIssue)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_cycles",
		Description: "List cycles (sprints) in a Plane project.",
	}, s.handleListCycles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_modules",
		Description: "List modules (feature groups) in a Plane project.",
	}, s.handleListModules)
}

// addPlanePageTools registers the workspace and page tools backed by direct
// database access. Pages and the workspace list are not in Plane's public
// API.
func (s *Server) addPlanePageTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_workspaces",
		Description: "List all accessible Plane workspaces. Uses direct database access since the workspace list is not in the public API.",
	}, s.handleListWorkspaces)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pages",
		Description: "List pages (knowledge base entries) in a Plane workspace or project. Uses direct database access since pages are not in the public API.",
	}, s.handleListPages)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_page",
		Description: "Get a Plane page including its content. Uses direct database access since pages are not in the public API.",
	}, s.handleGetPage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_page",
		Description: "Create a page in a Plane project's knowledge base. Uses direct database access since pages are not in the public API.",
	}, s.handleCreatePage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_page",
		Description: "Update a Plane page's title or content. Uses direct database access since pages are not in the public API.",
	}, s.handleUpdatePage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_page",
		Description: "Soft delete a Plane page. Uses direct database access since pages are not in the public API.",
	}, s.handleDeletePage)
}

// workspaceSlug resolves an explicit workspace slug against the configured
// default.
func (s *Server) workspaceSlug(slug string) string {
	if slug != "" || s.config.Plane == nil {
		return slug
	}

	return s.config.Plane.Workspace()
}

// ensureHTML wraps plain text in a paragraph tag, matching what the Plane
// editor stores. Text that already looks like markup passes through.
func ensureHTML(description string) string {
	if description == "" {
		return ""
	}
	if strings.HasPrefix(strings.TrimSpace(description), "<") {
		return description
	}

	return "<p>" + description + "</p>"
}

// checkPagesEnabled verifies a project has pages turned on. It returns an
// error payload to relay when they are not, or nil when the write may
// proceed. Without a REST client the check is skipped.
func (s *Server) checkPagesEnabled(ctx context.Context, workspaceSlug, projectID string) (plane.Result, error) {
	if s.config.Plane == nil {
		return nil, nil
	}

	project, err := s.config.Plane.GetProject(ctx, workspaceSlug, projectID)
	if err != nil {
		return nil, err
	}
	if _, failed := project["error"]; failed {
		return project, nil
	}

	if enabled, _ := project["page_view"].(bool); !enabled {
		return plane.Result{
			"error": "Pages are not enabled for this project",
			"hint":  "Enable page_view in project settings first",
		}, nil
	}

	return nil, nil
}

// ListProjectsInput represents the input arguments for the list_projects
// tool.
type ListProjectsInput struct {
	WorkspaceSlug string `json:"workspace_slug,omitempty" jsonschema:"the workspace slug (default: the configured workspace)"`
}

func (s *Server) handleListProjects(ctx context.Context, _ *mcp.CallToolRequest, input ListProjectsInput) (*mcp.CallToolResult, plane.Result, error) {
	result, err := s.config.Plane.ListProjects(ctx, s.workspaceSlug(input.WorkspaceSlug))
	if err != nil {
		return s.failure("list_projects", err), nil, nil
	}

	return jsonResult(result)
}

// GetProjectInput represents the input arguments for the get_project tool.
type GetProjectInput struct {
	WorkspaceSlug string `json:"workspace_slug,omitempty" jsonschema:"the workspace slug (default: the configured workspace)"`
	ProjectID     string `json:"project_id" jsonschema:"the project id"`
}

func (s *Server) handleGetProject(ctx context.Context, _ *mcp.CallToolRequest, input GetProjectInput) (*mcp.CallToolResult, plane.Result, error) {
	result, err := s.config.Plane.GetProject(ctx, s.workspaceSlug(input.WorkspaceSlug), input.ProjectID)
	if err != nil {
		return s.failure("get_project", err), nil, nil
	}

	return jsonResult(result)
}

// ListIssuesInput represents the input arguments for the list_issues tool.
type ListIssuesInput struct {
	WorkspaceSlug string `json:"workspace_slug,omitempty" jsonschema:"the workspace slug (default: the configured workspace)"`
	ProjectID     string `json:"project_id" jsonschema:"the project id"`
	State         string `json:"state,omitempty" jsonschema:"filter by state, e.g. backlog, in_progress, done"`
	Priority      string `json:"priority,omitempty" jsonschema:"filter by priority: urgent, high, medium, low, or none"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum issues to return (default: 50)"`
}

func (s *Server) handleListIssues(ctx context.Context, _ *mcp.CallToolRequest, input ListIssuesInput) (*mcp.CallToolResult, plane.Result, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	query := url.Values{"per_page": {strconv.Itoa(limit)}}
	if input.State != "" {
		query.Set("state", input.State)
	}
	if input.Priority != "" {
		query.Set("priority", input.Priority)
	}

	result, err := s.config.Plane.ListIssues(ctx, s.workspaceSlug(input.WorkspaceSlug), input.ProjectID, query)
	if err != nil {
		return s.failure("list_issues", err), nil, nil
	}

	return jsonResult(result)
}

// GetIssueInput represents the input arguments for the get_issue tool.
type GetIssueInput struct {
	WorkspaceSlug string `json:"workspace_slug,omitempty" jsonschema:"the workspace slug (default: the configured workspace)"`
	ProjectID     string `json:"project_id" jsonschema:"the project id"`
	IssueID       string `json:"issue_id" jsonschema:"the issue id"`
}

func (s *Server) handleGetIssue(ctx context.Context, _ *mcp.CallToolRequest, input GetIssueInput) (*mcp.CallToolResult, plane.Result, error) {
	result, err := s.config.Plane.GetIssue(ctx, s.workspaceSlug(input.WorkspaceSlug), input.ProjectID, input.IssueID)
	if err != nil {
		return s.failure("get_issue", err), nil, nil
	}

	return jsonResult(result)
}

// CreateIssueInput represents the input arguments for the create_issue
// tool.
type CreateIssueInput struct {
	WorkspaceSlug string `json:"workspace_slug,omitempty" jsonschema:"the workspace slug (default: the configured workspace)"`
	ProjectID     string `json:"project_id" jsonschema:"the project id"`
	Name          string `json:"name" jsonschema:"issue title"`
	Description   string `json:"description,omitempty" jsonschema:"issue description in plain text"`
	Priority      string `json:"priority,omitempty" jsonschema:"priority: urgent, high, medium, low, or none"`
}

func (s *Server) handleCreateIssue(ctx context.Context, _ *mcp.CallToolRequest, input CreateIssueInput) (*mcp.CallToolResult, plane.Result, error) {
	result, err := s.config.Plane.CreateIssue(ctx, s.workspaceSlug(input.WorkspaceSlug), input.ProjectID,
		plane.CreateIssueParams{
			Name:        input.Name,
			Description: input.Description,
			Priority:    input.Priority,
		})
	if err != nil {
		return s.failure("create_issue", err), nil, nil
	}

	return jsonResult(result)
}

// UpdateIssueInput represents the input arguments for the update_issue
// tool. Absent fields are left untouched.
type UpdateIssueInput struct {
	WorkspaceSlug string `json:"workspace_slug,omitempty" jsonschema:"the workspace slug (default: the configured workspace)"`
	ProjectID     string `json:"project_id" jsonschema:"the project id"`
	IssueID       string `json:"issue_id" jsonschema:"the issue id to update"`
	Name          string `json:"name,omitempty" jsonschema:"new issue title"`
	Description   string `json:"description,omitempty" jsonschema:"new description in plain text"`
	Priority      string `json:"priority,omitempty" jsonschema:"new priority"`
	StateID       string `json:"state_id,omitempty" jsonschema:"new state id"`
}

func (s *Server) handleUpdateIssue(ctx context.Context, _ *mcp.CallToolRequest, input UpdateIssueInput) (*mcp.CallToolResult, plane.Result, error) {
	fields := map[string]any{}
	if input.Name != "" {
		fields["name"] = input.Name
	}
	if input.Description != "" {
		fields["description_html"] = ensureHTML(input.Description)
	}
	if input.Priority != "" {
		fields["priority"] = input.Priority
	}
	if input.StateID != "" {
		fields["state"] = input.StateID
	}
	if len(fields) == 0 {
		return errResult("No updates provided"), nil, nil
	}

	result, err := s.config.Plane.UpdateIssue(ctx, s.workspaceSlug(input.WorkspaceSlug), input.ProjectID, input.IssueID, fields)
	if err != nil {
		return s.failure("update_issue", err), nil, nil
	}

	return jsonResult(result)
}

// ListCyclesInput represents the input arguments for the list_cycles tool.
type ListCyclesInput struct {
	WorkspaceSlug string `json:"workspace_slug,omitempty" jsonschema:"the workspace slug (default: the configured workspace)"`
	ProjectID     string `json:"project_id" jsonschema:"the project id"`
}

func (s *Server) handleListCycles(ctx context.Context, _ *mcp.CallToolRequest, input ListCyclesInput) (*mcp.CallToolResult, plane.Result, error) {
	result, err := s.config.Plane.ListCycles(ctx, s.workspaceSlug(input.WorkspaceSlug), input.ProjectID)
	if err != nil {
		return s.failure("list_cycles", err), nil, nil
	}

	return jsonResult(result)
}

// ListModulesInput represents the input arguments for the list_modules
// tool.
type ListModulesInput struct {
	WorkspaceSlug string `json:"workspace_slug,omitempty" jsonschema:"the workspace slug (default: the configured workspace)"`
	ProjectID     string `json:"project_id" jsonschema:"the project id"`
}

func (s *Server) handleListModules(ctx context.Context, _ *mcp.CallToolRequest, input ListModulesInput) (*mcp.CallToolResult, plane.Result, error) {
	result, err := s.config.Plane.ListModules(ctx, s.workspaceSlug(input.WorkspaceSlug), input.ProjectID)
	if err != nil {
		return s.failure("list_modules", err), nil, nil
	}

	return jsonResult(result)
}

// ListWorkspacesInput represents the (empty) input of the list_workspaces
// tool.
type ListWorkspacesInput struct{}

func (s *Server) handleListWorkspaces(ctx context.Context, _ *mcp.CallToolRequest, _ ListWorkspacesInput) (*mcp.CallToolResult, plane.Result, error) {
	workspaces, err := s.config.PlaneDB.ListWorkspaces(ctx)
	if err != nil {
		return s.failure("list_workspaces", err), nil, nil
	}

	return jsonResult(plane.Result{"results": workspaces, "count": len(workspaces)})
}

// ListPagesInput represents the input arguments for the list_pages tool.
type ListPagesInput struct {
	WorkspaceSlug string `json:"workspace_slug,omitempty" jsonschema:"the workspace slug (default: the configured workspace)"`
	ProjectID     string `json:"project_id,omitempty" jsonschema:"the project id (omit to list all workspace pages)"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum pages to return (default: 50)"`
}

func (s *Server) handleListPages(ctx context.Context, _ *mcp.CallToolRequest, input ListPagesInput) (*mcp.CallToolResult, plane.Result, error) {
	slug := s.workspaceSlug(input.WorkspaceSlug)

	if input.ProjectID != "" {
		blocked, err := s.checkPagesEnabled(ctx, slug, input.ProjectID)
		if err != nil {
			return s.failure("list_pages", err), nil, nil
		}
		if blocked != nil {
			return jsonResult(blocked)
		}
	}

	pages, err := s.config.PlaneDB.ListPages(ctx, slug, input.ProjectID, input.Limit)
	if err != nil {
		return s.failure("list_pages", err), nil, nil
	}

	return jsonResult(plane.Result{"results": pages, "count": len(pages)})
}

// GetPageInput represents the input arguments for the get_page tool.
type GetPageInput struct {
	PageID string `json:"page_id" jsonschema:"the page id"`
}

func (s *Server) handleGetPage(ctx context.Context, _ *mcp.CallToolRequest, input GetPageInput) (*mcp.CallToolResult, plane.Result, error) {
	page, err := s.config.PlaneDB.GetPage(ctx, input.PageID)
	if err != nil {
		return s.failure("get_page", err), nil, nil
	}
	if page == nil {
		return errResult("Page not found"), nil, nil
	}

	return jsonResult(plane.Result(page))
}

// CreatePageInput represents the input arguments for the create_page tool.
type CreatePageInput struct {
	WorkspaceSlug  string `json:"workspace_slug,omitempty" jsonschema:"the workspace slug (default: the configured workspace)"`
	ProjectID      string `json:"project_id" jsonschema:"the project id"`
	Name           string `json:"name" jsonschema:"page title"`
	Description    string `json:"description,omitempty" jsonschema:"page content, plain text or HTML"`
	ParentID       string `json:"parent_id,omitempty" jsonschema:"parent page id for nested pages"`
	ExternalID     string `json:"external_id,omitempty" jsonschema:"external reference id for sync"`
	ExternalSource string `json:"external_source,omitempty" jsonschema:"external source name, e.g. gitea"`
}

func (s *Server) handleCreatePage(ctx context.Context, _ *mcp.CallToolRequest, input CreatePageInput) (*mcp.CallToolResult, plane.Result, error) {
	slug := s.workspaceSlug(input.WorkspaceSlug)

	blocked, err := s.checkPagesEnabled(ctx, slug, input.ProjectID)
	if err != nil {
		return s.failure("create_page", err), nil, nil
	}
	if blocked != nil {
		return jsonResult(blocked)
	}

	page, err := s.config.PlaneDB.CreatePage(ctx, plane.DBCreatePageParams{
		WorkspaceSlug:   slug,
		ProjectID:       input.ProjectID,
		Name:            input.Name,
		DescriptionHTML: ensureHTML(input.Description),
		ParentID:        input.ParentID,
		ExternalID:      input.ExternalID,
		ExternalSource:  input.ExternalSource,
	})
	if err != nil {
		return s.failure("create_page", err), nil, nil
	}

	return jsonResult(plane.Result(page))
}

// UpdatePageInput represents the input arguments for the update_page tool.
type UpdatePageInput struct {
	PageID      string `json:"page_id" jsonschema:"the page id to update"`
	Name        string `json:"name,omitempty" jsonschema:"new page title"`
	Description string `json:"description,omitempty" jsonschema:"new content, plain text or HTML"`
}

func (s *Server) handleUpdatePage(ctx context.Context, _ *mcp.CallToolRequest, input UpdatePageInput) (*mcp.CallToolResult, plane.Result, error) {
	var descriptionHTML *string
	if input.Description != "" {
		html := ensureHTML(input.Description)
		descriptionHTML = &html
	}

	page, err := s.config.PlaneDB.UpdatePage(ctx, input.PageID, input.Name, descriptionHTML)
	if err != nil {
		return s.failure("update_page", err), nil, nil
	}

	return jsonResult(plane.Result(page))
}

// DeletePageInput represents the input arguments for the delete_page tool.
type DeletePageInput struct {
	PageID string `json:"page_id" jsonschema:"the page id to delete"`
}

// DeletePageOutput reports a completed page deletion.
type DeletePageOutput struct {
	PageID string `json:"page_id"`
	Status string `json:"status"`
}

func (s *Server) handleDeletePage(ctx context.Context, _ *mcp.CallToolRequest, input DeletePageInput) (*mcp.CallToolResult, DeletePageOutput, error) {
	if err := s.config.PlaneDB.DeletePage(ctx, input.PageID); err != nil {
		return s.failure("delete_page", err), DeletePageOutput{}, nil
	}

	return jsonResult(DeletePageOutput{PageID: input.PageID, Status: "deleted"})
}
