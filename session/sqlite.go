package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"shortsmith/logger"
	"shortsmith/types"

	_ "modernc.org/sqlite"
)

const sessionsTable = `CREATE TABLE IF NOT EXISTS sessions (
	name       TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
)`

// SQLiteStore keeps one checkpoint row per name in a local database file.
type SQLiteStore struct {
	conn *sql.DB
	name string
	log  *logger.Logger
}

func NewSQLiteStore(path, name string, log *logger.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating session database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", sessionsTable} {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("preparing session database: %w", err)
		}
	}

	if name == "" {
		name = "default"
	}
	return &SQLiteStore{conn: conn, name: name, log: log.Named("session")}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, state *types.SessionState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO sessions (name, state, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(name) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		s.name, string(data))
	if err != nil {
		return fmt.Errorf("saving session to sqlite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*types.SessionState, error) {
	var data string
	err := s.conn.QueryRowContext(ctx, "SELECT state FROM sessions WHERE name = ?", s.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session from sqlite: %w", err)
	}

	state, err := Decode([]byte(data))
	if err != nil {
		s.log.WithError(err).Warnf("ignoring unreadable session %q", s.name)
		return nil, nil
	}
	return state, nil
}

func (s *SQLiteStore) Delete(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM sessions WHERE name = ?", s.name); err != nil {
		return fmt.Errorf("deleting session from sqlite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
