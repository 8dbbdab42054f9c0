package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/worklog"
)

// addWorklogTools registers the query, memory, entry, and knowledge tools.
func (s *Server) addWorklogTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_table",
		Description: "Run a validated, paginated query against any worklog table. Supports column selection, one filter comparison, ordering, and limit/offset pagination.",
	}, s.handleQueryTable)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Case-insensitive substring search across the searchable tables (memories, knowledge_base, entries, research, error_patterns). Wildcard characters in the query are matched literally.",
	}, s.handleSearchKnowledge)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall_context",
		Description: "Retrieve memories, knowledge, and recent work relevant to a topic. Call this at the start of a task to load context.",
	}, s.handleRecallContext)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_memory",
		Description: "Fetch one memory by key. Each fetch increments the memory's access count.",
	}, s.handleGetMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_knowledge_entry",
		Description: "Fetch one knowledge base entry by id, including its full content.",
	}, s.handleGetKnowledgeEntry)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "store_memory",
		Description: "Store a new memory under a unique key. New memories start in the staging status until promoted.",
	}, s.handleStoreMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_memory",
		Description: "Update an existing memory by key. Only the provided fields change; a status change is recorded in the promotion history.",
	}, s.handleUpdateMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "log_entry",
		Description: "Append a work entry describing a completed task, its rationale, and its outcome.",
	}, s.handleLogEntry)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "store_knowledge",
		Description: "Store a knowledge base entry. The (category, title) pair must be unique.",
	}, s.handleStoreKnowledge)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "store_error_pattern",
		Description: "Record a diagnosed error with its root cause and resolution so the same failure is recognized next time.",
	}, s.handleStoreErrorPattern)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tables",
		Description: "List every worklog table with its row count.",
	}, s.handleListTables)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_recent_entries",
		Description: "Return work entries from the trailing N days, optionally filtered to one agent.",
	}, s.handleGetRecentEntries)
}

// QueryTableInput represents the input arguments for the query_table tool.
type QueryTableInput struct {
	Table          string `json:"table" jsonschema:"the table to query"`
	Columns        string `json:"columns,omitempty" jsonschema:"comma-separated columns to select (default: all)"`
	FilterColumn   string `json:"filter_column,omitempty" jsonschema:"column for the optional filter comparison"`
	FilterOperator string `json:"filter_operator,omitempty" jsonschema:"comparison operator (=, !=, >, <, >=, <=, LIKE, ILIKE)"`
	FilterValue    any    `json:"filter_value,omitempty" jsonschema:"value the filter compares against"`
	OrderBy        string `json:"order_by,omitempty" jsonschema:"ordering, e.g. 'created_at DESC'"`
	Limit          int    `json:"limit,omitempty" jsonschema:"rows per page, 1 to 100 (default: 20)"`
	Offset         int    `json:"offset,omitempty" jsonschema:"rows to skip"`
}

func (s *Server) handleQueryTable(ctx context.Context, _ *mcp.CallToolRequest, input QueryTableInput) (*mcp.CallToolResult, *worklog.QueryResult, error) {
	params := worklog.QueryParams{
		Table:   input.Table,
		Columns: input.Columns,
		OrderBy: input.OrderBy,
		Limit:   input.Limit,
		Offset:  input.Offset,
	}
	if input.FilterColumn != "" {
		params.Filter = &worklog.Filter{
			Column:   input.FilterColumn,
			Operator: input.FilterOperator,
			Value:    input.FilterValue,
		}
	}

	result, err := s.config.Service.QueryTable(ctx, params)
	if err != nil {
		return s.failure("query_table", err), nil, nil
	}

	return jsonResult(result)
}

// SearchKnowledgeInput represents the input arguments for the
// search_knowledge tool.
type SearchKnowledgeInput struct {
	Query  string `json:"query" jsonschema:"the text to search for"`
	Tables string `json:"tables,omitempty" jsonschema:"comma-separated tables to search (default: all searchable tables)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum matches per table (default: 20)"`
}

func (s *Server) handleSearchKnowledge(ctx context.Context, _ *mcp.CallToolRequest, input SearchKnowledgeInput) (*mcp.CallToolResult, *worklog.SearchResult, error) {
	result, err := s.config.Service.SearchKnowledge(ctx, input.Query, input.Tables, input.Limit)
	if err != nil {
		return s.failure("search_knowledge", err), nil, nil
	}

	return jsonResult(result)
}

// RecallContextInput represents the input arguments for the recall_context
// tool.
type RecallContextInput struct {
	Topic         string `json:"topic" jsonschema:"the topic to load context for"`
	MemoryTypes   string `json:"memory_types,omitempty" jsonschema:"comma-separated memory types to include (default: fact,context)"`
	MinImportance int    `json:"min_importance,omitempty" jsonschema:"minimum memory importance (default: 5)"`
	IncludeRecent *bool  `json:"include_recent,omitempty" jsonschema:"also include recent work entries (default: true)"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum rows per category (default: 10)"`
}

func (s *Server) handleRecallContext(ctx context.Context, _ *mcp.CallToolRequest, input RecallContextInput) (*mcp.CallToolResult, *worklog.RecallResult, error) {
	includeRecent := true
	if input.IncludeRecent != nil {
		includeRecent = *input.IncludeRecent
	}

	result, err := s.config.Service.RecallContext(ctx, worklog.RecallParams{
		Topic:         input.Topic,
		MemoryTypes:   input.MemoryTypes,
		MinImportance: input.MinImportance,
		IncludeRecent: includeRecent,
		Limit:         input.Limit,
	})
	if err != nil {
		return s.failure("recall_context", err), nil, nil
	}

	return jsonResult(result)
}

// GetMemoryInput represents the input arguments for the get_memory tool.
type GetMemoryInput struct {
	Key string `json:"key" jsonschema:"the memory key"`
}

// MemoryOutput wraps a fetched memory row.
type MemoryOutput struct {
	Memory database.Row `json:"memory"`
}

func (s *Server) handleGetMemory(ctx context.Context, _ *mcp.CallToolRequest, input GetMemoryInput) (*mcp.CallToolResult, MemoryOutput, error) {
	row, err := s.config.Service.GetMemory(ctx, input.Key)
	if err != nil {
		return s.failure("get_memory", err), MemoryOutput{}, nil
	}

	return jsonResult(MemoryOutput{Memory: row})
}

// GetKnowledgeEntryInput represents the input arguments for the
// get_knowledge_entry tool.
type GetKnowledgeEntryInput struct {
	ID int64 `json:"id" jsonschema:"the knowledge base entry id"`
}

// KnowledgeEntryOutput wraps a fetched knowledge base row.
type KnowledgeEntryOutput struct {
	Entry database.Row `json:"entry"`
}

func (s *Server) handleGetKnowledgeEntry(ctx context.Context, _ *mcp.CallToolRequest, input GetKnowledgeEntryInput) (*mcp.CallToolResult, KnowledgeEntryOutput, error) {
	row, err := s.config.Service.GetKnowledgeEntry(ctx, input.ID)
	if err != nil {
		return s.failure("get_knowledge_entry", err), KnowledgeEntryOutput{}, nil
	}

	return jsonResult(KnowledgeEntryOutput{Entry: row})
}

// StoreMemoryInput represents the input arguments for the store_memory tool.
type StoreMemoryInput struct {
	Key         string `json:"key" jsonschema:"unique key identifying the memory"`
	Content     string `json:"content" jsonschema:"the memory content"`
	Summary     string `json:"summary,omitempty" jsonschema:"short summary shown in search results"`
	MemoryType  string `json:"memory_type,omitempty" jsonschema:"one of fact, entity, preference, context (default: fact)"`
	Importance  int    `json:"importance,omitempty" jsonschema:"importance 1 to 10 (default: 5)"`
	Tags        string `json:"tags,omitempty" jsonschema:"comma-separated tags"`
	SourceAgent string `json:"source_agent,omitempty" jsonschema:"agent that produced the memory"`
	System      string `json:"system,omitempty" jsonschema:"machine or deployment the memory came from"`
}

func (s *Server) handleStoreMemory(ctx context.Context, _ *mcp.CallToolRequest, input StoreMemoryInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	result, err := s.config.Service.StoreMemory(ctx, worklog.StoreMemoryParams{
		Key:         input.Key,
		Content:     input.Content,
		Summary:     input.Summary,
		MemoryType:  input.MemoryType,
		Importance:  input.Importance,
		Tags:        input.Tags,
		SourceAgent: input.SourceAgent,
		System:      input.System,
	})
	if err != nil {
		return s.failure("store_memory", err), nil, nil
	}

	return jsonResult(result)
}

// UpdateMemoryInput represents the input arguments for the update_memory
// tool. Absent fields are left untouched.
type UpdateMemoryInput struct {
	Key        string  `json:"key" jsonschema:"key of the memory to update"`
	Content    *string `json:"content,omitempty" jsonschema:"new content"`
	Summary    *string `json:"summary,omitempty" jsonschema:"new summary"`
	Importance *int    `json:"importance,omitempty" jsonschema:"new importance 1 to 10"`
	Tags       *string `json:"tags,omitempty" jsonschema:"new comma-separated tags"`
	Status     *string `json:"status,omitempty" jsonschema:"new status: staging, promoted, or archived"`
	Reason     string  `json:"reason,omitempty" jsonschema:"reason recorded with a status change"`
	UpdatedBy  string  `json:"updated_by,omitempty" jsonschema:"agent making the change"`
}

func (s *Server) handleUpdateMemory(ctx context.Context, _ *mcp.CallToolRequest, input UpdateMemoryInput) (*mcp.CallToolResult, *worklog.UpdateResult, error) {
	result, err := s.config.Service.UpdateMemory(ctx, worklog.UpdateMemoryParams{
		Key:        input.Key,
		Content:    input.Content,
		Summary:    input.Summary,
		Importance: input.Importance,
		Tags:       input.Tags,
		Status:     input.Status,
		Reason:     input.Reason,
		UpdatedBy:  input.UpdatedBy,
	})
	if err != nil {
		return s.failure("update_memory", err), nil, nil
	}

	return jsonResult(result)
}

// LogEntryInput represents the input arguments for the log_entry tool.
type LogEntryInput struct {
	Title             string `json:"title" jsonschema:"short title for the work entry"`
	TaskType          string `json:"task_type" jsonschema:"kind of work performed, e.g. feature, bugfix, config"`
	Details           string `json:"details,omitempty" jsonschema:"what was done"`
	DecisionRationale string `json:"decision_rationale,omitempty" jsonschema:"why this approach was chosen"`
	Outcome           string `json:"outcome,omitempty" jsonschema:"how it turned out"`
	Tags              string `json:"tags,omitempty" jsonschema:"comma-separated tags"`
	RelatedFiles      string `json:"related_files,omitempty" jsonschema:"comma-separated file paths touched"`
	Agent             string `json:"agent,omitempty" jsonschema:"agent logging the entry (default: this process)"`
}

func (s *Server) handleLogEntry(ctx context.Context, _ *mcp.CallToolRequest, input LogEntryInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	result, err := s.config.Service.LogEntry(ctx, worklog.LogEntryParams{
		Title:             input.Title,
		TaskType:          input.TaskType,
		Details:           input.Details,
		DecisionRationale: input.DecisionRationale,
		Outcome:           input.Outcome,
		Tags:              input.Tags,
		RelatedFiles:      input.RelatedFiles,
		Agent:             input.Agent,
	})
	if err != nil {
		return s.failure("log_entry", err), nil, nil
	}

	return jsonResult(result)
}

// StoreKnowledgeInput represents the input arguments for the
// store_knowledge tool.
type StoreKnowledgeInput struct {
	Category    string `json:"category" jsonschema:"knowledge category, e.g. runbook, architecture"`
	Title       string `json:"title" jsonschema:"entry title, unique within the category"`
	Content     string `json:"content" jsonschema:"the knowledge content"`
	Tags        string `json:"tags,omitempty" jsonschema:"comma-separated tags"`
	SourceAgent string `json:"source_agent,omitempty" jsonschema:"agent that produced the entry"`
	System      string `json:"system,omitempty" jsonschema:"machine or deployment the entry came from"`
	IsProtocol  bool   `json:"is_protocol,omitempty" jsonschema:"mark the entry as a protocol other agents must follow"`
}

func (s *Server) handleStoreKnowledge(ctx context.Context, _ *mcp.CallToolRequest, input StoreKnowledgeInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	result, err := s.config.Service.StoreKnowledge(ctx, worklog.StoreKnowledgeParams{
		Category:    input.Category,
		Title:       input.Title,
		Content:     input.Content,
		Tags:        input.Tags,
		SourceAgent: input.SourceAgent,
		System:      input.System,
		IsProtocol:  input.IsProtocol,
	})
	if err != nil {
		return s.failure("store_knowledge", err), nil, nil
	}

	return jsonResult(result)
}

// StoreErrorPatternInput represents the input arguments for the
// store_error_pattern tool.
type StoreErrorPatternInput struct {
	ErrorSignature string `json:"error_signature" jsonschema:"short signature identifying the error"`
	ErrorMessage   string `json:"error_message,omitempty" jsonschema:"the full error message"`
	Platform       string `json:"platform,omitempty" jsonschema:"platform where the error occurred"`
	Language       string `json:"language,omitempty" jsonschema:"language or runtime involved"`
	RootCause      string `json:"root_cause,omitempty" jsonschema:"diagnosed root cause"`
	Resolution     string `json:"resolution,omitempty" jsonschema:"how the error was fixed"`
	PreventionTip  string `json:"prevention_tip,omitempty" jsonschema:"how to avoid it next time"`
	Tags           string `json:"tags,omitempty" jsonschema:"comma-separated tags"`
}

func (s *Server) handleStoreErrorPattern(ctx context.Context, _ *mcp.CallToolRequest, input StoreErrorPatternInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	result, err := s.config.Service.StoreErrorPattern(ctx, worklog.StoreErrorPatternParams{
		ErrorSignature: input.ErrorSignature,
		ErrorMessage:   input.ErrorMessage,
		Platform:       input.Platform,
		Language:       input.Language,
		RootCause:      input.RootCause,
		Resolution:     input.Resolution,
		PreventionTip:  input.PreventionTip,
		Tags:           input.Tags,
	})
	if err != nil {
		return s.failure("store_error_pattern", err), nil, nil
	}

	return jsonResult(result)
}

// ListTablesInput represents the (empty) input of the list_tables tool.
type ListTablesInput struct{}

// ListTablesOutput maps each table to its row count.
type ListTablesOutput struct {
	Tables map[string]int64 `json:"tables"`
}

func (s *Server) handleListTables(ctx context.Context, _ *mcp.CallToolRequest, _ ListTablesInput) (*mcp.CallToolResult, ListTablesOutput, error) {
	counts, err := s.config.Service.ListTables(ctx)
	if err != nil {
		return s.failure("list_tables", err), ListTablesOutput{}, nil
	}

	return jsonResult(ListTablesOutput{Tables: counts})
}

// GetRecentEntriesInput represents the input arguments for the
// get_recent_entries tool.
type GetRecentEntriesInput struct {
	Agent string `json:"agent,omitempty" jsonschema:"only entries from this agent"`
	Days  int    `json:"days,omitempty" jsonschema:"trailing window in days (default: 7)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum entries to return (default: 20)"`
}

func (s *Server) handleGetRecentEntries(ctx context.Context, _ *mcp.CallToolRequest, input GetRecentEntriesInput) (*mcp.CallToolResult, *worklog.RecentEntriesResult, error) {
	result, err := s.config.Service.GetRecentEntries(ctx, input.Agent, input.Days, input.Limit)
	if err != nil {
		return s.failure("get_recent_entries", err), nil, nil
	}

	return jsonResult(result)
}
