package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	parent_id    TEXT REFERENCES items(id) ON DELETE CASCADE,
	position     INTEGER NOT NULL DEFAULT 0 CHECK(position >= 0),
	title        TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	completed    INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	completed_at DATETIME,
	type         TEXT CHECK(type IS NULL OR type IN ('task', 'mission', 'objective', 'ambition')),
	manual_type  INTEGER NOT NULL DEFAULT 0 CHECK(manual_type IN (0, 1)),
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);
CREATE INDEX IF NOT EXISTS idx_items_parent ON items(owner_id, parent_id, position);

CREATE TABLE IF NOT EXISTS task_dependencies (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	blocking_task_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	blocked_task_id  TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_task_deps_owner ON task_dependencies(owner_id);
CREATE INDEX IF NOT EXISTS idx_task_deps_blocked ON task_dependencies(blocked_task_id);

CREATE TABLE IF NOT EXISTS date_dependencies (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	task_id    TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	unblock_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_date_deps_owner ON date_dependencies(owner_id);
CREATE INDEX IF NOT EXISTS idx_date_deps_task ON date_dependencies(task_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE UNIQUE INDEX IF NOT EXISTS idx_task_deps_edge
	ON task_dependencies(blocking_task_id, blocked_task_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
