// ABOUTME: SQLite transcript of conversation turns using modernc.org/sqlite.
// ABOUTME: Operational history only; live session state stays in memory.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates no turns exist for the requested sender.
var ErrNotFound = errors.New("no turns recorded")

// Turn is one completed conversation turn: what came in, what was routed to
// the dialog engine, and what went back out.
type Turn struct {
	ID          string
	SenderID    string
	Source      string // message or postback
	Utterance   string
	RoutedInput string // class name when the classifier substituted, else the utterance
	Reply       string
	Command     string
	CreatedAt   time.Time
}

// SQLiteStore persists turns to a local SQLite database. The schema is
// created automatically on open.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the ledger database at path, creating
// parent directories as needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "ledger")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			id           TEXT PRIMARY KEY,
			sender_id    TEXT NOT NULL,
			source       TEXT NOT NULL,
			utterance    TEXT NOT NULL,
			routed_input TEXT NOT NULL,
			reply        TEXT NOT NULL,
			command      TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_turns_sender ON turns(sender_id, created_at);
	`)
	return err
}

// Record saves one completed turn.
func (s *SQLiteStore) Record(ctx context.Context, turn *Turn) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, sender_id, source, utterance, routed_input, reply, command, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SenderID, turn.Source, turn.Utterance, turn.RoutedInput,
		turn.Reply, turn.Command, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}
	return nil
}

// RecentBySender returns the sender's most recent turns, newest first.
func (s *SQLiteStore) RecentBySender(ctx context.Context, senderID string, limit int) ([]*Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, source, utterance, routed_input, reply, command, created_at
		FROM turns WHERE sender_id = ?
		ORDER BY created_at DESC LIMIT ?`,
		senderID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.ID, &turn.SenderID, &turn.Source, &turn.Utterance,
			&turn.RoutedInput, &turn.Reply, &turn.Command, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}
	if len(turns) == 0 {
		return nil, ErrNotFound
	}
	return turns, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
