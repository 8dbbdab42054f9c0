package worklog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/eventstream"
	"github.com/opshelm/worklog/pkg/eventstream/nop"
	"github.com/opshelm/worklog/pkg/logger"
)

// Config is the configuration options for the Service.
type Config struct {
	// Provider hands out the shared database backend. Required.
	Provider *database.Provider

	// Events receives change events after successful mutations. Defaults to
	// the no-op publisher.
	Events eventstream.Publisher

	// Agents is the set of valid agent names for chat routing. Defaults to
	// the built-in set.
	Agents []string

	// AgentName identifies this process in emitted events and chat defaults.
	AgentName string

	// System names the machine or deployment in emitted events.
	System string

	// Logger receives operation diagnostics. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Service implements the worklog operations: validated dynamic queries,
// memories and work entries, the knowledge graph, curation metrics, and
// agent chat. All state lives in the database; the service itself caches
// nothing, so every read observes the latest committed write.
type Service struct {
	provider  *database.Provider
	events    eventstream.Publisher
	agents    []string
	agentName string
	system    string
	log       *slog.Logger
}

// NewService creates a Service from the given config.
func NewService(cfg Config) (*Service, error) {
	if cfg.Provider == nil {
		return nil, errors.New("service requires a database provider")
	}

	events := cfg.Events
	if events == nil {
		events = nop.NewPublisher()
	}

	agents := cfg.Agents
	if len(agents) == 0 {
		agents = []string{"claude", "all"}
	}

	agentName := cfg.AgentName
	if agentName == "" {
		agentName = "claude"
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Service{
		provider:  cfg.Provider,
		events:    events,
		agents:    agents,
		agentName: agentName,
		system:    cfg.System,
		log:       log,
	}, nil
}

// backend returns the shared database backend, opening it on first use.
func (s *Service) backend(ctx context.Context) (database.Backend, error) {
	return s.provider.Get(ctx)
}

// publish emits a change event. Delivery failures are logged, never
// surfaced: the mutation already committed and the caller's result must not
// depend on the event stream.
func (s *Service) publish(ctx context.Context, eventType, table string, rowID int64, key string) {
	event := eventstream.NewChangeEvent(eventType, table, eventstream.EventSource{
		Agent:  s.agentName,
		System: s.system,
	})
	event.RowID = rowID
	event.Key = key

	if err := s.events.PublishChange(ctx, event); err != nil {
		s.log.Warn("change event not published",
			"event_type", eventType,
			"table", table,
			"error", err,
		)
	}
}

// insertReturningID runs an INSERT ... RETURNING id through FetchOne so the
// generated id comes back the same way on both backends.
func (s *Service) insertReturningID(ctx context.Context, b database.Backend, sql string, args ...any) (int64, error) {
	row, err := b.FetchOne(ctx, sql+" RETURNING id", args...)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, errors.New("insert returned no id")
	}

	return toInt64(row["id"]), nil
}

// NormalizeTagList canonicalizes a comma-separated tag string for storage:
// tokens are trimmed, lowercased, deduplicated preserving order, and empties
// dropped. Storing tags in this shape keeps exact-token matching portable
// across both backends.
func NormalizeTagList(tags string) string {
	seen := make(map[string]bool)
	var out []string

	for _, tag := range strings.Split(tags, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}

	return strings.Join(out, ",")
}

// QueryParams are the arguments for QueryTable.
type QueryParams struct {
	Table   string
	Columns string
	Filter  *Filter
	OrderBy string
	Limit   int
	Offset  int
}

// QueryResult is one page of rows plus the total count for pagination.
type QueryResult struct {
	Rows   []database.Row `json:"rows"`
	Count  int            `json:"count"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// QueryTable runs a validated, paginated query against any whitelisted
// table. Every structural fragment passes the whitelist before assembly and
// the filter value is always bound.
func (s *Service) QueryTable(ctx context.Context, p QueryParams) (*QueryResult, error) {
	table, err := ValidateTable(p.Table)
	if err != nil {
		return nil, err
	}

	columns, err := ValidateColumns(p.Columns, table)
	if err != nil {
		return nil, err
	}

	order, err := ValidateOrderBy(p.OrderBy, table)
	if err != nil {
		return nil, err
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	q := NewQuery(b, table, columns...)

	if p.Filter != nil {
		column, err := ValidateFilterColumn(p.Filter.Column, table)
		if err != nil {
			return nil, err
		}
		operator, err := ValidateOperator(p.Filter.Operator)
		if err != nil {
			return nil, err
		}
		q.Where(column, operator, p.Filter.Value)
	}

	q.OrderBy(order).Page(p.Limit, p.Offset)

	countSQL, countArgs := q.CountSQL()
	countRow, err := b.FetchOne(ctx, countSQL, countArgs...)
	if err != nil {
		return nil, err
	}

	sql, args := q.SQL()
	rows, err := b.FetchAll(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	var total int64
	if countRow != nil {
		total = toInt64(countRow["total"])
	}

	return &QueryResult{
		Rows:   rows,
		Count:  len(rows),
		Total:  total,
		Limit:  q.Limit(),
		Offset: q.Offset(),
	}, nil
}

// searchSpec describes how one table participates in full-text search.
type searchSpec struct {
	selectColumns string
	searchColumns []string
	orderBy       string
}

// searchSpecs drives SearchKnowledge. Select lists stay narrow so search
// results scan quickly; full rows come from the keyed lookups.
var searchSpecs = map[string]searchSpec{
	"memories": {
		selectColumns: "id, key, summary, memory_type, importance, tags, created_at",
		searchColumns: []string{"content", "summary", "key", "tags"},
		orderBy:       "importance DESC, created_at DESC",
	},
	"knowledge_base": {
		selectColumns: "id, category, title, tags, created_at, updated_at",
		searchColumns: []string{"title", "content", "tags", "category"},
		orderBy:       "updated_at DESC",
	},
	"entries": {
		selectColumns: "id, timestamp, agent, task_type, title, outcome, tags",
		searchColumns: []string{"title", "details", "outcome", "tags"},
		orderBy:       "timestamp DESC",
	},
	"research": {
		selectColumns: "id, source_type, title, summary, relevance_score, tags, status",
		searchColumns: []string{"title", "summary", "key_points", "tags"},
		orderBy:       "relevance_score DESC, created_at DESC",
	},
	"error_patterns": {
		selectColumns: "id, error_signature, platform, language, resolution, tags, created_at",
		searchColumns: []string{"error_signature", "error_message", "root_cause", "tags"},
		orderBy:       "created_at DESC",
	},
}

// SearchResult holds substring search matches grouped by table.
type SearchResult struct {
	Query          string                    `json:"query"`
	Results        map[string][]database.Row `json:"results"`
	TablesSearched []string                  `json:"tables_searched"`
}

// SearchKnowledge searches the given tables (default: every searchable
// table) for a case-insensitive substring match of the query over each
// table's text columns.
func (s *Service) SearchKnowledge(ctx context.Context, query, tables string, limit int) (*SearchResult, error) {
	var searchTables []string
	if strings.TrimSpace(tables) == "" {
		for _, t := range Tables {
			if _, ok := searchSpecs[t]; ok {
				searchTables = append(searchTables, t)
			}
		}
	} else {
		for _, t := range strings.Split(tables, ",") {
			name := strings.ToLower(strings.TrimSpace(t))
			if name == "" {
				continue
			}
			if _, ok := searchSpecs[name]; !ok {
				return nil, ValidationError{
					Reason: fmt.Sprintf("Table %s is not searchable. Options: %s",
						name, strings.Join(searchableTables(), ", ")),
				}
			}
			searchTables = append(searchTables, name)
		}
	}

	if len(searchTables) == 0 {
		return nil, ValidationError{
			Reason: "No valid tables. Options: " + strings.Join(searchableTables(), ", "),
		}
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	results := make(map[string][]database.Row, len(searchTables))
	for _, table := range searchTables {
		spec := searchSpecs[table]

		columns, err := ValidateColumns(spec.selectColumns, table)
		if err != nil {
			return nil, err
		}
		searchCols := make([]ValidatedColumn, len(spec.searchColumns))
		for i, name := range spec.searchColumns {
			searchCols[i] = mustColumn(name, table)
		}

		q := NewQuery(b, table, columns...).
			WhereSearch(query, searchCols...).
			OrderBy(mustOrderBy(spec.orderBy, table)).
			Page(limit, 0)

		sql, args := q.SQL()
		rows, err := b.FetchAll(ctx, sql, args...)
		if err != nil {
			return nil, err
		}
		results[table] = rows
	}

	return &SearchResult{
		Query:          query,
		Results:        results,
		TablesSearched: searchTables,
	}, nil
}

// searchableTables lists the tables SearchKnowledge covers, in whitelist
// order.
func searchableTables() []string {
	var out []string
	for _, t := range Tables {
		if _, ok := searchSpecs[t]; ok {
			out = append(out, t)
		}
	}

	return out
}

// RecallParams are the arguments for RecallContext.
type RecallParams struct {
	Topic         string
	MemoryTypes   string
	MinImportance int
	IncludeRecent bool
	Limit         int
}

// RecallResult is categorized context for the start of a work session.
type RecallResult struct {
	Topic      string         `json:"topic"`
	Memories   []database.Row `json:"memories"`
	Knowledge  []database.Row `json:"knowledge"`
	RecentWork []database.Row `json:"recent_work"`
}

// RecallContext retrieves memories, knowledge, and recent work relevant to
// a topic. Designed to be called at the start of tasks to load context.
func (s *Service) RecallContext(ctx context.Context, p RecallParams) (*RecallResult, error) {
	types := []string{"fact", "context"}
	if strings.TrimSpace(p.MemoryTypes) != "" {
		types = nil
		for _, t := range strings.Split(p.MemoryTypes, ",") {
			name, err := validateEnum(t, "memory_type", MemoryTypes)
			if err != nil {
				return nil, err
			}
			types = append(types, name)
		}
	}

	minImportance := p.MinImportance
	if minImportance <= 0 {
		minImportance = 5
	}

	limit := ClampLimit(p.Limit)

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	result := &RecallResult{
		Topic:      p.Topic,
		Memories:   []database.Row{},
		Knowledge:  []database.Row{},
		RecentWork: []database.Row{},
	}

	memColumns, err := ValidateColumns("id, key, content, summary, memory_type, importance, tags, created_at", "memories")
	if err != nil {
		return nil, err
	}

	memQuery := NewQuery(b, "memories", memColumns...).
		WhereIn(mustColumn("memory_type", "memories"), types).
		Where(mustColumn("importance", "memories"), ">=", minImportance).
		Where(mustColumn("status", "memories"), "!=", "archived").
		WhereSearch(p.Topic,
			mustColumn("content", "memories"),
			mustColumn("summary", "memories"),
			mustColumn("key", "memories"),
			mustColumn("tags", "memories")).
		OrderBy(mustOrderBy("importance DESC, last_accessed DESC", "memories")).
		Page(limit, 0)

	sql, args := memQuery.SQL()
	if result.Memories, err = b.FetchAll(ctx, sql, args...); err != nil {
		return nil, err
	}

	kbColumns, err := ValidateColumns("id, category, title, content, tags, updated_at", "knowledge_base")
	if err != nil {
		return nil, err
	}
	kbOrder, err := ValidateOrderBy("updated_at DESC", "knowledge_base")
	if err != nil {
		return nil, err
	}

	kbQuery := NewQuery(b, "knowledge_base", kbColumns...).
		WhereSearch(p.Topic,
			mustColumn("title", "knowledge_base"),
			mustColumn("content", "knowledge_base"),
			mustColumn("tags", "knowledge_base")).
		OrderBy(kbOrder).
		Page(max(limit/2, 1), 0)

	sql, args = kbQuery.SQL()
	if result.Knowledge, err = b.FetchAll(ctx, sql, args...); err != nil {
		return nil, err
	}

	if p.IncludeRecent {
		entryColumns, err := ValidateColumns("id, timestamp, agent, task_type, title, outcome, tags", "entries")
		if err != nil {
			return nil, err
		}
		entryOrder, err := ValidateOrderBy("timestamp DESC", "entries")
		if err != nil {
			return nil, err
		}

		recentQuery := NewQuery(b, "entries", entryColumns...).
			WhereSince(mustColumn("timestamp", "entries"), 7).
			WhereSearch(p.Topic,
				mustColumn("title", "entries"),
				mustColumn("tags", "entries")).
			OrderBy(entryOrder).
			Page(max(limit/2, 1), 0)

		sql, args = recentQuery.SQL()
		if result.RecentWork, err = b.FetchAll(ctx, sql, args...); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// GetMemory returns a memory by key, bumping its access count and last
// accessed timestamp first so recall frequency is tracked.
func (s *Service) GetMemory(ctx context.Context, key string) (database.Row, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	_, err = b.Execute(ctx,
		`UPDATE memories SET access_count = access_count + 1, last_accessed = CURRENT_TIMESTAMP WHERE key = `+b.Placeholder(1),
		key)
	if err != nil {
		return nil, err
	}

	row, err := b.FetchOne(ctx, "SELECT * FROM memories WHERE key = "+b.Placeholder(1), key)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, NotFoundError{Message: fmt.Sprintf("No memory with key '%s'", key)}
	}

	return row, nil
}

// GetKnowledgeEntry returns a full knowledge base entry by id.
func (s *Service) GetKnowledgeEntry(ctx context.Context, id int64) (database.Row, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	row, err := b.FetchOne(ctx, "SELECT * FROM knowledge_base WHERE id = "+b.Placeholder(1), id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, NotFoundError{Message: fmt.Sprintf("No knowledge base entry with id %d", id)}
	}

	return row, nil
}

// StoreMemoryParams are the arguments for StoreMemory.
type StoreMemoryParams struct {
	Key         string
	Content     string
	Summary     string
	MemoryType  string
	Importance  int
	Tags        string
	SourceAgent string
	System      string
}

// StoreResult reports a successful insert.
type StoreResult struct {
	ID  int64  `json:"id"`
	Key string `json:"key,omitempty"`
}

// StoreMemory inserts a new memory. Importance is clamped to [1, 10] and a
// duplicate key is reported as a conflict after the insert attempt, which is
// race-safe where a pre-check would not be.
func (s *Service) StoreMemory(ctx context.Context, p StoreMemoryParams) (*StoreResult, error) {
	if p.Key == "" {
		return nil, ValidationError{Reason: "key is required"}
	}
	if p.Content == "" {
		return nil, ValidationError{Reason: "content is required"}
	}

	memoryType := p.MemoryType
	if memoryType == "" {
		memoryType = "fact"
	}
	memoryType, err := validateEnum(memoryType, "memory_type", MemoryTypes)
	if err != nil {
		return nil, err
	}

	importance := p.Importance
	if importance == 0 {
		importance = 5
	}
	importance = min(max(importance, 1), 10)

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	sql := insertSQL(b, "memories",
		"key", "content", "summary", "memory_type", "importance", "tags", "source_agent", "system")

	id, err := s.insertReturningID(ctx, b, sql,
		p.Key, p.Content, p.Summary, memoryType, importance,
		NormalizeTagList(p.Tags), p.SourceAgent, p.System)
	if err != nil {
		var conflict database.ConflictError
		if errors.As(err, &conflict) {
			return nil, ConflictError{Message: fmt.Sprintf(
				"Memory with key '%s' already exists. Use update_memory instead.", p.Key)}
		}
		return nil, err
	}

	s.publish(ctx, eventstream.EventTypeMemoryStored, "memories", id, p.Key)

	return &StoreResult{ID: id, Key: p.Key}, nil
}

// UpdateMemoryParams are the arguments for UpdateMemory. Nil fields are left
// untouched.
type UpdateMemoryParams struct {
	Key        string
	Content    *string
	Summary    *string
	Importance *int
	Tags       *string
	Status     *string

	// Reason and UpdatedBy annotate the promotion history row written when
	// Status changes.
	Reason    string
	UpdatedBy string
}

// UpdateResult reports a successful update.
type UpdateResult struct {
	Key           string `json:"key"`
	UpdatedFields int    `json:"updated_fields"`
}

// UpdateMemory updates an existing memory by key with a dynamically built
// SET list. A status change is recorded in promotion_history, and promotion
// also stamps promoted_at.
func (s *Service) UpdateMemory(ctx context.Context, p UpdateMemoryParams) (*UpdateResult, error) {
	if p.Status != nil {
		if _, err := validateEnum(*p.Status, "status", MemoryStatuses); err != nil {
			return nil, err
		}
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	current, err := b.FetchOne(ctx,
		"SELECT id, status FROM memories WHERE key = "+b.Placeholder(1), p.Key)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, NotFoundError{Message: fmt.Sprintf("No memory found with key '%s'", p.Key)}
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = %s", column, b.Placeholder(len(args))))
	}

	if p.Content != nil {
		add("content", *p.Content)
	}
	if p.Summary != nil {
		add("summary", *p.Summary)
	}
	if p.Importance != nil {
		add("importance", min(max(*p.Importance, 1), 10))
	}
	if p.Tags != nil {
		add("tags", NormalizeTagList(*p.Tags))
	}
	if p.Status != nil {
		add("status", *p.Status)
		if *p.Status == "promoted" {
			sets = append(sets, "promoted_at = CURRENT_TIMESTAMP")
		}
	}

	if len(sets) == 0 {
		return nil, ValidationError{Reason: "No fields to update"}
	}

	args = append(args, p.Key)
	sql := fmt.Sprintf("UPDATE memories SET %s WHERE key = %s",
		strings.Join(sets, ", "), b.Placeholder(len(args)))

	affected, err := b.Execute(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, NotFoundError{Message: fmt.Sprintf("No memory found with key '%s'", p.Key)}
	}

	oldStatus, _ := current["status"].(string)
	if p.Status != nil && *p.Status != oldStatus {
		promotedBy := p.UpdatedBy
		if promotedBy == "" {
			promotedBy = s.agentName
		}

		historySQL := insertSQL(b, "promotion_history",
			"memory_id", "memory_key", "from_status", "to_status", "reason", "promoted_by")
		if _, err := b.Execute(ctx, historySQL,
			toInt64(current["id"]), p.Key, oldStatus, *p.Status, p.Reason, promotedBy); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, eventstream.EventTypeMemoryUpdated, "memories", toInt64(current["id"]), p.Key)

	return &UpdateResult{Key: p.Key, UpdatedFields: len(sets)}, nil
}

// LogEntryParams are the arguments for LogEntry.
type LogEntryParams struct {
	Title             string
	TaskType          string
	Details           string
	DecisionRationale string
	Outcome           string
	Tags              string
	RelatedFiles      string
	Agent             string
}

// LogEntry appends a work entry.
func (s *Service) LogEntry(ctx context.Context, p LogEntryParams) (*StoreResult, error) {
	if p.Title == "" {
		return nil, ValidationError{Reason: "title is required"}
	}

	taskType, err := validateEnum(p.TaskType, "task_type", TaskTypes)
	if err != nil {
		return nil, err
	}

	agent := p.Agent
	if agent == "" {
		agent = s.agentName
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	sql := insertSQL(b, "entries",
		"agent", "task_type", "title", "details", "decision_rationale", "outcome", "tags", "related_files")

	id, err := s.insertReturningID(ctx, b, sql,
		agent, taskType, p.Title, p.Details, p.DecisionRationale, p.Outcome,
		NormalizeTagList(p.Tags), p.RelatedFiles)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventstream.EventTypeEntryLogged, "entries", id, "")

	return &StoreResult{ID: id}, nil
}

// StoreKnowledgeParams are the arguments for StoreKnowledge.
type StoreKnowledgeParams struct {
	Category    string
	Title       string
	Content     string
	Tags        string
	SourceAgent string
	System      string
	IsProtocol  bool
}

// StoreKnowledge inserts a knowledge base entry. The (category, title) pair
// is unique; a duplicate is reported as a conflict.
func (s *Service) StoreKnowledge(ctx context.Context, p StoreKnowledgeParams) (*StoreResult, error) {
	if p.Title == "" {
		return nil, ValidationError{Reason: "title is required"}
	}
	if p.Content == "" {
		return nil, ValidationError{Reason: "content is required"}
	}

	category, err := validateEnum(p.Category, "category", KBCategories)
	if err != nil {
		return nil, err
	}

	system := p.System
	if system == "" {
		system = "shared"
	}

	isProtocol := 0
	if p.IsProtocol {
		isProtocol = 1
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	sql := insertSQL(b, "knowledge_base",
		"category", "title", "content", "tags", "source_agent", "system", "is_protocol")

	id, err := s.insertReturningID(ctx, b, sql,
		category, p.Title, p.Content, NormalizeTagList(p.Tags), p.SourceAgent, system, isProtocol)
	if err != nil {
		var conflict database.ConflictError
		if errors.As(err, &conflict) {
			return nil, ConflictError{Message: fmt.Sprintf(
				"Knowledge entry with category '%s' and title '%s' already exists.", category, p.Title)}
		}
		return nil, err
	}

	s.publish(ctx, eventstream.EventTypeKnowledgeStored, "knowledge_base", id, "")

	return &StoreResult{ID: id}, nil
}

// StoreErrorPatternParams are the arguments for StoreErrorPattern.
type StoreErrorPatternParams struct {
	ErrorSignature string
	ErrorMessage   string
	Platform       string
	Language       string
	RootCause      string
	Resolution     string
	PreventionTip  string
	Tags           string
}

// StoreErrorPattern records a diagnosed error with its resolution so the
// same failure is recognized next time.
func (s *Service) StoreErrorPattern(ctx context.Context, p StoreErrorPatternParams) (*StoreResult, error) {
	if p.ErrorSignature == "" {
		return nil, ValidationError{Reason: "error_signature is required"}
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	sql := insertSQL(b, "error_patterns",
		"error_signature", "error_message", "platform", "language",
		"root_cause", "resolution", "prevention_tip", "tags")

	id, err := s.insertReturningID(ctx, b, sql,
		p.ErrorSignature, p.ErrorMessage, p.Platform, p.Language,
		p.RootCause, p.Resolution, p.PreventionTip, NormalizeTagList(p.Tags))
	if err != nil {
		return nil, err
	}

	return &StoreResult{ID: id}, nil
}

// ListTables returns every whitelisted table with its row count.
func (s *Service) ListTables(ctx context.Context) (map[string]int64, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		row, err := b.FetchOne(ctx, "SELECT COUNT(*) AS count FROM "+table)
		if err != nil {
			return nil, err
		}
		if row != nil {
			counts[table] = toInt64(row["count"])
		}
	}

	return counts, nil
}

// RecentEntriesResult is the result of GetRecentEntries.
type RecentEntriesResult struct {
	Entries []database.Row `json:"entries"`
	Count   int            `json:"count"`
	Days    int            `json:"days"`
}

// GetRecentEntries returns work entries from the trailing N days, optionally
// filtered to one agent.
func (s *Service) GetRecentEntries(ctx context.Context, agent string, days, limit int) (*RecentEntriesResult, error) {
	if days <= 0 {
		days = 7
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	columns, err := ValidateColumns("id, timestamp, agent, task_type, title, outcome, tags", "entries")
	if err != nil {
		return nil, err
	}
	order, err := ValidateOrderBy("timestamp DESC", "entries")
	if err != nil {
		return nil, err
	}

	q := NewQuery(b, "entries", columns...).
		WhereSince(mustColumn("timestamp", "entries"), days)
	if agent != "" {
		q.Where(mustColumn("agent", "entries"), "=", agent)
	}
	q.OrderBy(order).Page(limit, 0)

	sql, args := q.SQL()
	rows, err := b.FetchAll(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	return &RecentEntriesResult{
		Entries: rows,
		Count:   len(rows),
		Days:    days,
	}, nil
}

// toInt64 widens the numeric types the two drivers hand back for integer
// columns.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// toFloat64 widens the numeric types the two drivers hand back for real
// columns.
func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

// toString returns the string form of a row value, treating nil as empty.
func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// mustColumn validates a package-internal column name. It panics on a
// mismatch, which can only mean the column constant and the whitelist have
// drifted.
func mustColumn(name, table string) ValidatedColumn {
	col, err := ValidateFilterColumn(name, table)
	if err != nil {
		panic(err)
	}

	return col
}
