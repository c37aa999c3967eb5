package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"parley/internal/chat"
)

const defaultBusyTimeout = 5000

// Session is the authenticated identity the client holds between runs:
// the bearer token plus the user it belongs to. Created on successful
// login or registration, cleared on logout, read-only everywhere else.
type Session struct {
	Token string
	User  chat.User
}

// Store persists at most one session in a local SQLite file, the
// terminal client's stand-in for browser local storage.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at the provided path. Call Close
// when done.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("session store path is required")
	}
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d", path, separator, defaultBusyTimeout)
}

// Migrate runs the schema creation statements.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL,
		user_id TEXT NOT NULL,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		saved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

// Save stores the session, replacing any previous one.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return errors.New("refusing to save session without token")
	}
	if err := sess.User.Validate(); err != nil {
		return fmt.Errorf("refusing to save session: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO session (id, token, user_id, username, email, saved_at)
		VALUES (1, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			username = excluded.username,
			email = excluded.email,
			saved_at = excluded.saved_at;`,
		sess.Token, sess.User.ID, sess.User.Username, sess.User.Email)
	return err
}

// Load returns the stored session, or nil when none exists.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT token, user_id, username, email FROM session WHERE id = 1;`)
	var sess Session
	err := row.Scan(&sess.Token, &sess.User.ID, &sess.User.Username, &sess.User.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.Token == "" {
		return nil, nil
	}
	return &sess, nil
}

// Clear removes the stored session. Used on logout.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1;`)
	return err
}
