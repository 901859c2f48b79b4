package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id               TEXT PRIMARY KEY,
	text             TEXT NOT NULL,
	importance       REAL NOT NULL DEFAULT 0.5,
	category         TEXT,
	created_at       DATETIME NOT NULL,
	tier             TEXT NOT NULL DEFAULT 'HOT',
	memory_type      TEXT NOT NULL DEFAULT 'factual',
	do_not_inject    INTEGER NOT NULL DEFAULT 0,
	pinned           INTEGER NOT NULL DEFAULT 0,
	use_count        INTEGER NOT NULL DEFAULT 0,
	last_accessed_at DATETIME,
	use_days         TEXT NOT NULL DEFAULT '[]',
	source           TEXT,
	parent_id        TEXT
);
CREATE INDEX IF NOT EXISTS idx_memories_tier ON memories(tier);
CREATE INDEX IF NOT EXISTS idx_memories_pinned ON memories(pinned);
CREATE INDEX IF NOT EXISTS idx_memories_do_not_inject ON memories(do_not_inject);

CREATE TABLE IF NOT EXISTS vectors (
	memory_id TEXT PRIMARY KEY REFERENCES memories(id),
	embedding BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS lexical_postings (
	token     TEXT NOT NULL,
	memory_id TEXT NOT NULL,
	tf        INTEGER NOT NULL,
	PRIMARY KEY (token, memory_id)
);
CREATE INDEX IF NOT EXISTS idx_lexical_postings_memory ON lexical_postings(memory_id);

CREATE TABLE IF NOT EXISTS current_context (
	id          TEXT PRIMARY KEY,
	text        TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	ttl_seconds INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id         TEXT PRIMARY KEY,
	memory_id  TEXT NOT NULL,
	action     TEXT NOT NULL,
	old_value  TEXT,
	new_value  TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_memory ON audit_log(memory_id);

CREATE TABLE IF NOT EXISTS injection_feedback (
	id                TEXT PRIMARY KEY,
	memory_id         TEXT NOT NULL,
	session_key       TEXT NOT NULL,
	injected_at       DATETIME NOT NULL,
	access_frequency  INTEGER NOT NULL DEFAULT 0,
	session_outcome   TEXT,
	injection_density REAL NOT NULL DEFAULT 0,
	decay_resistance  REAL,
	proxy_score       REAL,
	agent_score       REAL,
	agent_notes       TEXT,
	created_at        DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_injection_feedback_memory ON injection_feedback(memory_id);

CREATE TABLE IF NOT EXISTS tuning_log (
	id                  TEXT PRIMARY KEY,
	timestamp           DATETIME NOT NULL,
	parameter           TEXT NOT NULL,
	old_value           TEXT,
	new_value           TEXT,
	reason              TEXT,
	source              TEXT NOT NULL,
	user_override_until DATETIME,
	reverted            INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tuning_log_parameter ON tuning_log(parameter);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
