package store

import "database/sql"

// Migration is one forward-only schema step, applied inside a transaction
// and tracked via PRAGMA user_version.
type Migration struct {
	Version int
	Up      func(tx *sql.Tx) error
}

// migrations is the ordered list of schema migrations. Version numbers
// must be contiguous starting at 1; Store.migrate walks them in order,
// skipping any with Version <= the database's current user_version.
var migrations = []Migration{
	{Version: 1, Up: migrateV1},
}

func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE documents (
			id             TEXT PRIMARY KEY,
			title          TEXT NOT NULL DEFAULT '',
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL,
			deleted_at     TEXT,
			notes_plain    TEXT NOT NULL DEFAULT '',
			notes_markdown TEXT NOT NULL DEFAULT '',
			summary        TEXT NOT NULL DEFAULT '',
			people_json    TEXT NOT NULL DEFAULT '{}',
			calendar_json  TEXT,
			extras_json    TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX idx_documents_updated_at ON documents(updated_at)`,
		`CREATE INDEX idx_documents_deleted_at ON documents(deleted_at)`,

		`CREATE TABLE people (
			id        TEXT PRIMARY KEY,
			name      TEXT NOT NULL DEFAULT '',
			email     TEXT NOT NULL DEFAULT '',
			company   TEXT NOT NULL DEFAULT '',
			job_title TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE calendar_events (
			id          TEXT PRIMARY KEY,
			summary     TEXT NOT NULL DEFAULT '',
			start_time  TEXT NOT NULL,
			end_time    TEXT NOT NULL,
			calendar_id TEXT NOT NULL DEFAULT '',
			attendees_json TEXT NOT NULL DEFAULT '[]'
		)`,

		`CREATE TABLE transcript_utterances (
			id              TEXT PRIMARY KEY,
			document_id     TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			start_timestamp TEXT NOT NULL,
			end_timestamp   TEXT NOT NULL,
			text            TEXT NOT NULL DEFAULT '',
			source          TEXT NOT NULL DEFAULT '',
			final           INTEGER NOT NULL DEFAULT 1,
			api_snapshot    TEXT
		)`,
		`CREATE INDEX idx_utterances_document_id ON transcript_utterances(document_id, start_timestamp)`,

		`CREATE TABLE panels (
			id               TEXT PRIMARY KEY,
			document_id      TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			title            TEXT NOT NULL DEFAULT '',
			content_markdown TEXT NOT NULL DEFAULT '',
			content_json     TEXT,
			template_slug    TEXT NOT NULL DEFAULT '',
			created_at       TEXT NOT NULL,
			deleted_at       TEXT,
			chat_url         TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX idx_panels_document_id ON panels(document_id)`,
		`CREATE INDEX idx_panels_deleted_at ON panels(deleted_at)`,

		`CREATE TABLE templates (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			slug       TEXT NOT NULL DEFAULT '',
			category   TEXT NOT NULL DEFAULT '',
			is_system  INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			extras_json TEXT NOT NULL DEFAULT '{}'
		)`,

		`CREATE TABLE recipes (
			id          TEXT PRIMARY KEY,
			template_id TEXT NOT NULL DEFAULT '',
			prompt      TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL,
			extras_json TEXT NOT NULL DEFAULT '{}'
		)`,

		`CREATE TABLE chunks (
			rowid        INTEGER PRIMARY KEY AUTOINCREMENT,
			source_type  TEXT NOT NULL,
			source_id    TEXT NOT NULL,
			document_id  TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			content_hash TEXT NOT NULL,
			text         TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			created_at   TEXT NOT NULL,
			UNIQUE(source_type, source_id)
		)`,
		`CREATE INDEX idx_chunks_document_id ON chunks(document_id)`,
		`CREATE INDEX idx_chunks_content_hash ON chunks(content_hash)`,

		`CREATE TABLE embeddings (
			chunk_id INTEGER PRIMARY KEY REFERENCES chunks(rowid) ON DELETE CASCADE,
			vector   BLOB NOT NULL
		)`,

		`CREATE TABLE embedding_metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE TABLE transcript_sync_log (
			document_id    TEXT PRIMARY KEY,
			status         TEXT NOT NULL,
			last_attempted TEXT NOT NULL,
			attempt_count  INTEGER NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE panel_sync_log (
			document_id    TEXT PRIMARY KEY,
			status         TEXT NOT NULL,
			last_attempted TEXT NOT NULL,
			attempt_count  INTEGER NOT NULL DEFAULT 1
		)`,

		// Standalone FTS5 tables (not external-content): each stores its
		// own copy of the searchable text so snippet() has something to
		// highlight against without a join back to the source row. Kept
		// in sync via the delete-then-insert pattern since FTS5 virtual
		// tables don't support UPDATE/REPLACE.
		`CREATE VIRTUAL TABLE transcript_fts USING fts5(
			document_id UNINDEXED,
			text,
			tokenize='unicode61'
		)`,
		`CREATE VIRTUAL TABLE notes_fts USING fts5(
			document_id UNINDEXED,
			text,
			tokenize='unicode61'
		)`,
		`CREATE VIRTUAL TABLE panel_fts USING fts5(
			document_id UNINDEXED,
			panel_id UNINDEXED,
			text,
			tokenize='unicode61'
		)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
