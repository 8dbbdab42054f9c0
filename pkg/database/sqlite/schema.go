package sqlite

// schema is the embedded database schema. Every statement is idempotent so
// Connect can run the whole script on each startup, creating whatever an
// older database file is missing.
const schema = `
-- Core tables
CREATE TABLE IF NOT EXISTS memories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT UNIQUE NOT NULL,
    content TEXT NOT NULL,
    summary TEXT,
    memory_type TEXT DEFAULT 'fact',
    importance INTEGER DEFAULT 5,
    status TEXT DEFAULT 'staging',
    tags TEXT,
    source_agent TEXT,
    system TEXT,
    access_count INTEGER DEFAULT 0,
    last_accessed TIMESTAMP,
    promoted_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS knowledge_base (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    category TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    tags TEXT,
    source_agent TEXT,
    system TEXT DEFAULT 'shared',
    is_protocol INTEGER DEFAULT 0,
    source_url TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(category, title)
);

CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    agent TEXT DEFAULT 'claude',
    task_type TEXT NOT NULL,
    title TEXT NOT NULL,
    details TEXT,
    decision_rationale TEXT,
    outcome TEXT,
    tags TEXT,
    related_files TEXT
);

CREATE TABLE IF NOT EXISTS research (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_type TEXT NOT NULL,
    title TEXT NOT NULL,
    summary TEXT,
    key_points TEXT,
    relevance_score INTEGER DEFAULT 5,
    tags TEXT,
    status TEXT DEFAULT 'new',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS agent_chat (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    from_agent TEXT NOT NULL,
    to_agent TEXT NOT NULL,
    message TEXT NOT NULL,
    context TEXT,
    priority TEXT DEFAULT 'normal',
    status TEXT DEFAULT 'pending',
    parent_id INTEGER,
    response TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    read_at TIMESTAMP,
    resolved_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS error_patterns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    error_signature TEXT,
    error_message TEXT,
    platform TEXT,
    language TEXT,
    root_cause TEXT,
    resolution TEXT,
    prevention_tip TEXT,
    tags TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Knowledge graph tables
CREATE TABLE IF NOT EXISTS tag_taxonomy (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    canonical_tag TEXT UNIQUE NOT NULL,
    aliases TEXT,
    category TEXT,
    description TEXT,
    usage_count INTEGER DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS relationships (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_table TEXT NOT NULL,
    source_id INTEGER NOT NULL,
    target_table TEXT NOT NULL,
    target_id INTEGER NOT NULL,
    relationship_type TEXT NOT NULL,
    confidence REAL DEFAULT 1.0,
    bidirectional INTEGER DEFAULT 0,
    created_by TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(source_table, source_id, target_table, target_id, relationship_type)
);

CREATE TABLE IF NOT EXISTS topic_index (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic_name TEXT UNIQUE NOT NULL,
    summary TEXT,
    full_summary TEXT,
    key_terms TEXT,
    entry_count INTEGER DEFAULT 0,
    last_curated TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS topic_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic_id INTEGER NOT NULL,
    entry_table TEXT NOT NULL,
    entry_id INTEGER NOT NULL,
    relevance_score REAL DEFAULT 1.0,
    added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(topic_id, entry_table, entry_id)
);

CREATE TABLE IF NOT EXISTS duplicate_candidates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    table_name TEXT NOT NULL,
    entry_id_1 INTEGER NOT NULL,
    entry_id_2 INTEGER NOT NULL,
    similarity_score REAL,
    detection_method TEXT,
    status TEXT DEFAULT 'pending',
    reviewed_by TEXT,
    reviewed_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(table_name, entry_id_1, entry_id_2)
);

-- Curation bookkeeping
CREATE TABLE IF NOT EXISTS promotion_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    memory_id INTEGER,
    memory_key TEXT,
    from_status TEXT,
    to_status TEXT,
    reason TEXT,
    promoted_by TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS curation_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    operation TEXT NOT NULL,
    stats TEXT,
    duration_ms INTEGER,
    success INTEGER DEFAULT 1,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_memories_key ON memories(key);
CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(memory_type);
CREATE INDEX IF NOT EXISTS idx_entries_timestamp ON entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_entries_agent ON entries(agent);
CREATE INDEX IF NOT EXISTS idx_kb_category ON knowledge_base(category);
CREATE INDEX IF NOT EXISTS idx_chat_to_agent ON agent_chat(to_agent);
CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_table, source_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_table, target_id);
CREATE INDEX IF NOT EXISTS idx_topic_entries_topic ON topic_entries(topic_id);
`
