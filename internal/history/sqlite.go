package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using a local SQLite database. It is
// the default backend: no external services required.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (and if needed creates) the history database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_history (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		analysis_kind TEXT NOT NULL,
		inputs TEXT NOT NULL DEFAULT '{}',
		derived_value TEXT DEFAULT '',
		failure_class TEXT DEFAULT '',
		error_message TEXT DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_patient ON analysis_history(patient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_history_kind ON analysis_history(analysis_kind);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is satisfied by sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	entry := &Entry{}
	err := s.Scan(
		&entry.ID, &entry.PatientID, &entry.AnalysisKind, &entry.Inputs,
		&entry.DerivedValue, &entry.FailureClass, &entry.ErrorMessage, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Save appends one analysis outcome.
func (s *SQLiteStore) Save(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_history (
			id, patient_id, analysis_kind, inputs,
			derived_value, failure_class, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.PatientID,
		entry.AnalysisKind,
		entry.Inputs,
		entry.DerivedValue,
		entry.FailureClass,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// ListByPatient returns the patient's entries, newest first.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, analysis_kind, inputs,
			derived_value, failure_class, error_message, created_at
		FROM analysis_history
		WHERE patient_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// Count returns the total number of entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_history").Scan(&count)
	return count, err
}

// maxExportLimit bounds a single export.
const maxExportLimit = 1000000

// ExportJSON writes all entries to the writer as a JSON document.
func (s *SQLiteStore) ExportJSON(ctx context.Context, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, analysis_kind, inputs,
			derived_value, failure_class, error_message, created_at
		FROM analysis_history
		ORDER BY created_at DESC
		LIMIT ?
	`, maxExportLimit)
	if err != nil {
		return fmt.Errorf("querying history for export: %w", err)
	}
	defer rows.Close()

	var all []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("scanning history row: %w", err)
		}
		all = append(all, entry)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Entries:    all,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
