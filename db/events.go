// ABOUTME: Session transition log stored in SQLite
// ABOUTME: Records every flow state change and lists them for the history command
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/models"
)

// EventRecorder writes the transitions of one session. It satisfies
// flow.Observer, so write failures are logged rather than returned.
type EventRecorder struct {
	db        *sql.DB
	sessionID uuid.UUID
	logger    *log.Logger
	now       func() time.Time
}

func NewEventRecorder(db *sql.DB, sessionID uuid.UUID, logger *log.Logger) *EventRecorder {
	if logger == nil {
		logger = log.Default()
	}
	return &EventRecorder{
		db:        db,
		sessionID: sessionID,
		logger:    logger.WithPrefix("db"),
		now:       time.Now,
	}
}

func (r *EventRecorder) Transition(from, to flow.State, ev flow.Event) {
	event := models.SessionEvent{
		ID:        ulid.Make(),
		SessionID: r.sessionID,
		From:      from.String(),
		To:        to.String(),
		Event:     string(ev),
		At:        r.now().UTC(),
	}
	if err := RecordEvent(r.db, &event); err != nil {
		r.logger.Warn("failed to record session event", "session", r.sessionID, "event", ev, "err", err)
	}
}

func RecordEvent(db *sql.DB, event *models.SessionEvent) error {
	_, err := db.Exec(`
		INSERT INTO session_events (id, session_id, from_state, to_state, event, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID.String(), event.SessionID.String(), event.From, event.To, event.Event, event.At)
	if err != nil {
		return fmt.Errorf("failed to insert session event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent events, oldest first. A nil
// sessionID lists events of every session.
func ListEvents(db *sql.DB, sessionID *uuid.UUID, limit int) ([]models.SessionEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error

	if sessionID != nil {
		rows, err = db.Query(`
			SELECT id, session_id, from_state, to_state, event, at
			FROM (
				SELECT * FROM session_events
				WHERE session_id = ?
				ORDER BY id DESC
				LIMIT ?
			)
			ORDER BY id ASC
		`, sessionID.String(), limit)
	} else {
		rows, err = db.Query(`
			SELECT id, session_id, from_state, to_state, event, at
			FROM (
				SELECT * FROM session_events
				ORDER BY id DESC
				LIMIT ?
			)
			ORDER BY id ASC
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.SessionEvent
	for rows.Next() {
		var e models.SessionEvent
		var id, session string
		if err := rows.Scan(&id, &session, &e.From, &e.To, &e.Event, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		if e.ID, err = ulid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid event id %q: %w", id, err)
		}
		if e.SessionID, err = uuid.Parse(session); err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", session, err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
