// Package history persists analysis outcomes for audit and review.
// The analysis core never writes here; API handlers do, after each
// completed call.
package history

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/cds-rules-server/internal/domain"
)

// Entry is one recorded analysis outcome.
type Entry struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	AnalysisKind string    `json:"analysis_kind"`
	Inputs       string    `json:"inputs"` // JSON object of the raw inputs used
	DerivedValue string    `json:"derived_value,omitempty"`
	FailureClass string    `json:"failure_class,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the interface over analysis history persistence.
type Store interface {
	// Save appends one analysis outcome.
	Save(ctx context.Context, entry *Entry) error

	// ListByPatient returns the patient's entries, newest first.
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Entry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes all entries to the writer as a JSON document.
	ExportJSON(ctx context.Context, w io.Writer) error

	// Close releases store resources.
	Close() error
}

// Export is the JSON export envelope.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Entries    []*Entry  `json:"entries"`
}

// NewEntry builds a history entry for an analysis outcome. Inputs are
// stored as a JSON object; derived may be nil when no rule matched or
// the analysis failed.
func NewEntry(kind domain.AnalysisKind, patientID string, inputs domain.InputValues, derived *string, errorMessage string) *Entry {
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		inputsJSON = []byte("{}")
	}

	entry := &Entry{
		ID:           uuid.New().String(),
		PatientID:    patientID,
		AnalysisKind: string(kind),
		Inputs:       string(inputsJSON),
		ErrorMessage: errorMessage,
		FailureClass: string(domain.ClassifyFailure(errorMessage)),
		CreatedAt:    time.Now().UTC(),
	}
	if derived != nil {
		entry.DerivedValue = *derived
	}
	return entry
}
