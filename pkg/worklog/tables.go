// Package worklog implements the shared knowledge-store operations on top of
// the dual database backends: validated dynamic queries, memories and work
// entries, the knowledge graph, curation metrics, and agent chat.
package worklog

// Tables lists every queryable table.
var Tables = []string{
	"memories",
	"knowledge_base",
	"entries",
	"research",
	"agent_chat",
	"tag_taxonomy",
	"relationships",
	"topic_index",
	"topic_entries",
	"duplicate_candidates",
	"promotion_history",
	"curation_history",
	"error_patterns",
}

// tableColumns is the per-table column whitelist. It is the sole gate between
// caller-supplied column text and SQL structure.
var tableColumns = map[string][]string{
	"memories": {
		"id", "key", "content", "summary", "memory_type", "importance", "status",
		"tags", "source_agent", "system", "access_count", "last_accessed",
		"promoted_at", "created_at",
	},
	"knowledge_base": {
		"id", "category", "title", "content", "tags", "source_agent", "system",
		"is_protocol", "source_url", "created_at", "updated_at",
	},
	"entries": {
		"id", "timestamp", "agent", "task_type", "title", "details",
		"decision_rationale", "outcome", "tags", "related_files",
	},
	"research": {
		"id", "source_type", "title", "summary", "key_points", "relevance_score",
		"tags", "status", "created_at",
	},
	"agent_chat": {
		"id", "from_agent", "to_agent", "message", "context", "priority", "status",
		"parent_id", "response", "created_at", "read_at", "resolved_at",
	},
	"tag_taxonomy": {
		"id", "canonical_tag", "aliases", "category", "description", "usage_count",
		"created_at", "updated_at",
	},
	"relationships": {
		"id", "source_table", "source_id", "target_table", "target_id",
		"relationship_type", "confidence", "bidirectional", "created_by", "created_at",
	},
	"topic_index": {
		"id", "topic_name", "summary", "full_summary", "key_terms", "entry_count",
		"last_curated", "created_at",
	},
	"topic_entries": {
		"id", "topic_id", "entry_table", "entry_id", "relevance_score", "added_at",
	},
	"duplicate_candidates": {
		"id", "table_name", "entry_id_1", "entry_id_2", "similarity_score",
		"detection_method", "status", "reviewed_by", "reviewed_at", "created_at",
	},
	"promotion_history": {
		"id", "memory_id", "memory_key", "from_status", "to_status", "reason",
		"promoted_by", "created_at",
	},
	"curation_history": {
		"id", "operation", "stats", "duration_ms", "success", "error_message",
		"created_at",
	},
	"error_patterns": {
		"id", "error_signature", "error_message", "platform", "language",
		"root_cause", "resolution", "prevention_tip", "tags", "created_at",
	},
}

// MemoryTypes are the kinds of memory the store accepts.
var MemoryTypes = []string{"fact", "entity", "preference", "context"}

// MemoryStatuses are the memory lifecycle states.
var MemoryStatuses = []string{"staging", "promoted", "archived"}

// TaskTypes classify work entries.
var TaskTypes = []string{
	"configuration", "deployment", "debugging",
	"documentation", "research", "maintenance", "handoff",
}

// KBCategories classify knowledge base entries.
var KBCategories = []string{
	"system-administration", "development", "infrastructure",
	"decisions", "projects", "protocols",
}

// ChatStatuses are the agent chat lifecycle states, in forward order.
var ChatStatuses = []string{"pending", "read", "replied", "resolved"}

// ChatPriorities rank agent chat messages.
var ChatPriorities = []string{"low", "normal", "urgent"}

// RelationshipTypes are the permitted edge types in the knowledge graph.
var RelationshipTypes = []string{
	"relates_to", "supersedes", "implements", "documents",
	"duplicate_of", "depends_on", "parent_of", "child_of",
}

// EntryTables are the tables whose rows can participate in relationships,
// topics, and duplicate reports.
var EntryTables = []string{"memories", "knowledge_base", "entries"}

// CurationOperations are the recognized curation history operations.
var CurationOperations = []string{
	"tag_normalization", "relationship_discovery", "topic_indexing",
	"duplicate_detection", "memory_promotion", "full_curation",
	"schema_migration", "schema_migration_triggers",
}
