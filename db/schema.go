// ABOUTME: Database schema definitions
// ABOUTME: Creates the session token and session event tables
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	session_key TEXT PRIMARY KEY,
	token TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS session_events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	from_state TEXT NOT NULL,
	to_state TEXT NOT NULL,
	event TEXT NOT NULL,
	at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id);
CREATE INDEX IF NOT EXISTS idx_session_events_at ON session_events(at);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
