// Package history persists chat transcripts in SQLite so a CLI chat can be
// resumed across invocations.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/cortex/pkg/chat"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	copilot_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	session_id TEXT    NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	role       TEXT    NOT NULL,
	content    TEXT    NOT NULL,
	retrievals TEXT,
	updated_at TIMESTAMP,
	PRIMARY KEY (session_id, seq)
);
`

// Session is one persisted conversation.
type Session struct {
	ID        string
	CopilotID string
	CreatedAt time.Time

	// MessageCount is filled in by Sessions.
	MessageCount int
}

// ErrNotFound is returned when a session doesn't exist in the store.
type ErrNotFound struct {
	SessionID string
}

func (e ErrNotFound) Error() string {
	if e.SessionID == "" {
		return "session not found"
	}
	return "session not found: " + e.SessionID
}

// Store is a SQLite-backed transcript store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path.
// The path can be a file path or ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a distinct database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// CreateSession records a new session. Creating an existing session is a no-op.
func (s *Store) CreateSession(ctx context.Context, session Session) error {
	if session.ID == "" {
		return errors.New("session id is required")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, copilot_id, created_at) VALUES (?, ?, ?)`,
		session.ID, session.CopilotID, session.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating session %s: %w", session.ID, err)
	}
	return nil
}

// AppendMessages appends msgs, in order, to the end of the session's transcript.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, msgs []chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return err
	}

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("reading transcript length: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (session_id, seq, role, content, retrievals, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range msgs {
		retrievals, err := encodeRetrievals(m.Retrievals)
		if err != nil {
			return err
		}

		var updatedAt any
		if m.UpdatedAt != nil {
			updatedAt = m.UpdatedAt.UTC()
		}

		if _, err := stmt.ExecContext(ctx, sessionID, next+i, string(m.Role), m.Content, retrievals, updatedAt); err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing messages: %w", err)
	}
	return nil
}

// Messages returns the session's transcript in append order.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if err := sessionExists(ctx, s.db, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, retrievals, updated_at FROM messages WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	msgs := []chat.Message{}
	for rows.Next() {
		var (
			m          chat.Message
			role       string
			retrievals sql.NullString
			updatedAt  sql.NullTime
		)
		if err := rows.Scan(&role, &m.Content, &retrievals, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}

		m.Role = chat.Role(role)
		if retrievals.Valid {
			if err := json.Unmarshal([]byte(retrievals.String), &m.Retrievals); err != nil {
				return nil, fmt.Errorf("decoding retrievals: %w", err)
			}
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			m.UpdatedAt = &t
		}
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

// Sessions lists all sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.copilot_id, s.created_at, COUNT(m.seq)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.CopilotID, &sess.CreatedAt, &sess.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

// DeleteSession removes a session and its transcript.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound{SessionID: sessionID}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sessionExists(ctx context.Context, q queryer, sessionID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound{SessionID: sessionID}
	}
	if err != nil {
		return fmt.Errorf("looking up session %s: %w", sessionID, err)
	}
	return nil
}

// encodeRetrievals keeps the null / empty distinction of Message.Retrievals.
func encodeRetrievals(docs []chat.RetrievedDocument) (any, error) {
	if docs == nil {
		return nil, nil
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encoding retrievals: %w", err)
	}
	return string(raw), nil
}
