package journal

// schemaVersion is the journal schema version for this build.
const schemaVersion = 1

var schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS captures (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	pipeline   TEXT NOT NULL,
	width      INTEGER NOT NULL,
	height     INTEGER NOT NULL,
	format     TEXT NOT NULL,
	category   TEXT NOT NULL,
	error      TEXT,
	results    INTEGER NOT NULL DEFAULT 0,
	elapsed_ns INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_captures_pipeline ON captures(pipeline);
`
