// Package history persists a record of every processed document for
// after-the-fact auditing.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nettalco/invoice-extractor/internal/domain"
)

// Entry is one processed document as stored and listed.
type Entry struct {
	ID          string               `json:"id"`
	FileName    string               `json:"file_name"`
	Record      domain.InvoiceRecord `json:"documento"`
	ElapsedSecs float64              `json:"tiempo_respuesta"`
	Attempts    int                  `json:"intentos"`
	CreatedAt   time.Time            `json:"created_at"`
}

// Store is a SQLite-backed extraction log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, domain.StorageError(fmt.Sprintf("cannot open history db at %s", path), err)
	}

	// One writer is plenty here and sidesteps SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS extractions (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			record_json TEXT NOT NULL,
			elapsed_secs REAL NOT NULL,
			attempts INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, domain.StorageError("cannot create history schema", err)
	}

	return &Store{db: db}, nil
}

// Record appends one extraction outcome.
func (s *Store) Record(ctx context.Context, fileName string, outcome *domain.Outcome) error {
	recordJSON, err := json.Marshal(outcome.Record)
	if err != nil {
		return domain.StorageError("cannot encode record", err)
	}

	query := `
		INSERT INTO extractions (id, file_name, record_json, elapsed_secs, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.NewString(), fileName, string(recordJSON),
		outcome.Elapsed.Seconds(), outcome.Attempt, time.Now().UTC(),
	)
	if err != nil {
		return domain.StorageError("cannot insert history entry", err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, file_name, record_json, elapsed_secs, attempts, created_at
		FROM extractions
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, domain.StorageError("cannot query history", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var recordJSON string
		if err := rows.Scan(&e.ID, &e.FileName, &recordJSON, &e.ElapsedSecs, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, domain.StorageError("cannot scan history row", err)
		}
		if err := json.Unmarshal([]byte(recordJSON), &e.Record); err != nil {
			return nil, domain.StorageError("corrupt history entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("history iteration failed", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
