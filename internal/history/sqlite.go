package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kartoza/deepfake-detection/internal/detector"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL,
	prediction  TEXT NOT NULL,
	confidence  REAL NOT NULL,
	file_type   TEXT NOT NULL DEFAULT '',
	detector    TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL,
	created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_predictions_id ON predictions(id);
`

// SQLiteStore keeps the history in a SQLite database so it survives restarts
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// single writer keeps sqlite from returning SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append inserts a result
func (s *SQLiteStore) Append(ctx context.Context, r *detector.PredictionResult) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, prediction, confidence, file_type, detector, body)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Prediction), r.Confidence, string(r.FileType), r.Detector, string(body),
	)
	return err
}

// List returns a page of results, newest first, and the total count
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*detector.PredictionResult, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM predictions ORDER BY seq DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results := make([]*detector.PredictionResult, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, 0, err
		}
		var r detector.PredictionResult
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, 0, fmt.Errorf("failed to parse stored prediction: %w", err)
		}
		results = append(results, &r)
	}
	return results, total, rows.Err()
}

// Reset deletes every stored result
func (s *SQLiteStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM predictions`)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
