package domain

import (
	"context"
)

// Clinical concept names produced by the abstraction pipeline.
const (
	ConceptHemoglobinLevel = "Hemoglobin_Level"
	ConceptWBCLevel        = "WBC_Level"
	ConceptFeverLevel      = "Fever_Level"
	ConceptChills          = "Chills"
	ConceptSkinLook        = "Skin-Look"
	ConceptAllergicState   = "Allergic-State"
)

// AbstractedRecord is one categorical observation for a patient, valid
// over the [StartTime, EndTime] window. Records are produced by an
// external abstraction process and are read-only here. Timestamps are
// carried as the raw strings the pipeline wrote; parsing them is the
// temporal checker's fallible concern.
type AbstractedRecord struct {
	PatientID   string `json:"patient_id"`
	ConceptName string `json:"concept_name"`
	Value       string `json:"value"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// MeasurementStore is the query interface over abstracted measurements.
type MeasurementStore interface {
	// FetchLatest returns the most recent record for the patient and
	// concept, or (nil, nil) when no record exists. A non-nil error
	// signals an infrastructure failure, not data absence.
	FetchLatest(ctx context.Context, patientID, conceptName string) (*AbstractedRecord, error)
}
