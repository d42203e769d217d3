package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL. It expects the
// analysis_history table to exist already (created via migrations).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing connection.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDSN opens a new connection for the store.
func NewPostgresStoreFromDSN(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Save appends one analysis outcome.
func (s *PostgresStore) Save(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_history (
			id, patient_id, analysis_kind, inputs,
			derived_value, failure_class, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
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
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, analysis_kind, inputs,
			derived_value, failure_class, error_message, created_at
		FROM analysis_history
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analysis_history").Scan(&count)
	return count, err
}

// ExportJSON writes all entries to the writer as a JSON document.
func (s *PostgresStore) ExportJSON(ctx context.Context, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_id, analysis_kind, inputs,
			derived_value, failure_class, error_message, created_at
		FROM analysis_history
		ORDER BY created_at DESC
		LIMIT $1
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

// Close closes the underlying connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
