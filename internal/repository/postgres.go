// Package repository provides measurement store implementations and
// decorators over the domain.MeasurementStore interface.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
)

// MeasurementRepository reads abstracted measurements from Postgres.
type MeasurementRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewMeasurementRepository creates a Postgres-backed measurement store.
func NewMeasurementRepository(db *pgxpool.Pool, logger *logrus.Logger) *MeasurementRepository {
	return &MeasurementRepository{
		db:  db,
		log: logger,
	}
}

// FetchLatest returns the most recent abstracted record for the
// patient/concept pair, ordered by measurement time. Absence is
// (nil, nil), not an error.
func (r *MeasurementRepository) FetchLatest(ctx context.Context, patientID, conceptName string) (*domain.AbstractedRecord, error) {
	query := `
		SELECT patient_id, concept_name, value, start_time, end_time
		FROM abstracted_measurements
		WHERE patient_id = $1 AND concept_name = $2
		ORDER BY measured_at DESC, id DESC
		LIMIT 1`

	var record domain.AbstractedRecord
	err := r.db.QueryRow(ctx, query, patientID, conceptName).Scan(
		&record.PatientID,
		&record.ConceptName,
		&record.Value,
		&record.StartTime,
		&record.EndTime,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"concept":    conceptName,
			"error":      err,
		}).Error("Failed to fetch latest abstracted record")
		return nil, fmt.Errorf("fetching latest abstracted record: %w", err)
	}

	return &record, nil
}

// Insert writes an abstracted record. The abstraction pipeline is the
// normal writer; this exists for seeding and tests.
func (r *MeasurementRepository) Insert(ctx context.Context, record *domain.AbstractedRecord) error {
	query := `
		INSERT INTO abstracted_measurements (
			patient_id, concept_name, value, start_time, end_time, measured_at
		) VALUES ($1, $2, $3, $4, $5, NOW())`

	_, err := r.db.Exec(ctx, query,
		record.PatientID,
		record.ConceptName,
		record.Value,
		record.StartTime,
		record.EndTime,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": record.PatientID,
			"concept":    record.ConceptName,
			"error":      err,
		}).Error("Failed to insert abstracted record")
		return fmt.Errorf("inserting abstracted record: %w", err)
	}

	return nil
}
