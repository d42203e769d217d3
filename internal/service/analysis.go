// Package service implements the clinical analysis orchestrator: it
// fetches abstracted measurements, validates completeness and temporal
// overlap, and applies the rule tables.
package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/rules"
	"github.com/cds-rules-server/pkg/temporal"
)

// requiredConcept pairs an abstracted concept with the rule-table field
// it feeds. Slice order is the declared order used in error messages.
type requiredConcept struct {
	concept string
	field   string
}

var hematologicalConcepts = []requiredConcept{
	{domain.ConceptHemoglobinLevel, rules.FieldHemoglobinState},
	{domain.ConceptWBCLevel, rules.FieldWBCLevel},
}

var toxicityConcepts = []requiredConcept{
	{domain.ConceptFeverLevel, rules.FieldFeverLevel},
	{domain.ConceptChills, rules.FieldChills},
	{domain.ConceptSkinLook, rules.FieldSkinLook},
	{domain.ConceptAllergicState, rules.FieldAllergicState},
}

// AnalysisService evaluates the clinical decision rules. It is
// stateless per call: every analysis is an independent computation over
// freshly fetched records and the immutable rule registry.
type AnalysisService struct {
	store  domain.MeasurementStore
	rules  *rules.Registry
	logger *logrus.Logger
}

// NewAnalysisService creates the analysis orchestrator.
func NewAnalysisService(store domain.MeasurementStore, registry *rules.Registry, logger *logrus.Logger) *AnalysisService {
	return &AnalysisService{
		store:  store,
		rules:  registry,
		logger: logger,
	}
}

// AnalyzeHematologicalState applies the 2:1 hematological rule over the
// patient's latest hemoglobin and WBC abstractions. Checked failures
// (missing data, no temporal overlap) are reported on the result; the
// returned error covers measurement store failures only.
func (s *AnalysisService) AnalyzeHematologicalState(ctx context.Context, patientID string) (*domain.HematologicalResult, error) {
	records, inputs, missing, err := s.fetchConcepts(ctx, patientID, hematologicalConcepts)
	if err != nil {
		return nil, err
	}

	result := &domain.HematologicalResult{
		PatientID:        patientID,
		IndividualStates: inputs,
	}

	if len(missing) > 0 {
		result.Error = domain.MissingDataMessage(missing)
		s.logFailure(patientID, domain.AnalysisHematological, result.Error)
		return result, nil
	}

	if !recordsOverlap(records) {
		result.Error = domain.NoOverlapHematologicalMessage
		s.logFailure(patientID, domain.AnalysisHematological, result.Error)
		return result, nil
	}

	result.TemporalOverlap = true
	if state, ok := s.rules.Hematological().Apply(inputs); ok {
		result.HematologicalState = &state
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"state":      result.HematologicalState,
	}).Debug("Hematological analysis completed")

	return result, nil
}

// AnalyzeSystemicToxicity applies the 4:1 systemic toxicity rule over
// the patient's latest fever, chills, skin-look and allergic-state
// abstractions.
func (s *AnalysisService) AnalyzeSystemicToxicity(ctx context.Context, patientID string) (*domain.ToxicityResult, error) {
	records, inputs, missing, err := s.fetchConcepts(ctx, patientID, toxicityConcepts)
	if err != nil {
		return nil, err
	}

	result := &domain.ToxicityResult{
		PatientID:        patientID,
		IndividualStates: inputs,
	}

	if len(missing) > 0 {
		result.Error = domain.MissingDataMessage(missing)
		s.logFailure(patientID, domain.AnalysisSystemicToxicity, result.Error)
		return result, nil
	}

	if !recordsOverlap(records) {
		result.Error = domain.NoOverlapToxicityMessage
		s.logFailure(patientID, domain.AnalysisSystemicToxicity, result.Error)
		return result, nil
	}

	result.TemporalOverlap = true
	if grade, ok := s.rules.SystemicToxicity().Apply(inputs); ok {
		result.SystemicToxicityGrade = &grade
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"grade":      result.SystemicToxicityGrade,
	}).Debug("Systemic toxicity analysis completed")

	return result, nil
}

// AnalyzeTreatment is the second-order analysis: it consumes the two
// upstream results rather than fetching records. Upstream errors
// propagate first; otherwise the caller-supplied gender, the RAW
// hemoglobin state input, and the two derived values feed the
// treatment table.
func (s *AnalysisService) AnalyzeTreatment(patientID, gender string, hema *domain.HematologicalResult, tox *domain.ToxicityResult) *domain.TreatmentResult {
	result := &domain.TreatmentResult{PatientID: patientID}

	if hema == nil || hema.Failed() {
		upstream := "analysis not performed"
		if hema != nil {
			upstream = hema.Error
		}
		result.Error = domain.UpstreamFailureMessage(domain.AnalysisHematological, upstream)
		s.logFailure(patientID, domain.AnalysisTreatment, result.Error)
		return result
	}
	if tox == nil || tox.Failed() {
		upstream := "analysis not performed"
		if tox != nil {
			upstream = tox.Error
		}
		result.Error = domain.UpstreamFailureMessage(domain.AnalysisSystemicToxicity, upstream)
		s.logFailure(patientID, domain.AnalysisTreatment, result.Error)
		return result
	}

	inputs := domain.InputValues{
		rules.FieldGender:                domain.StringPtr(gender),
		rules.FieldHemoglobinState:       hema.IndividualStates[rules.FieldHemoglobinState],
		rules.FieldHematologicalState:    hema.HematologicalState,
		rules.FieldSystemicToxicityGrade: tox.SystemicToxicityGrade,
	}
	result.ClinicalInputs = inputs

	var missing []string
	for _, field := range []string{
		rules.FieldGender,
		rules.FieldHemoglobinState,
		rules.FieldHematologicalState,
		rules.FieldSystemicToxicityGrade,
	} {
		if inputs[field] == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		result.Error = domain.MissingParametersMessage(missing)
		s.logFailure(patientID, domain.AnalysisTreatment, result.Error)
		return result
	}

	if treatment, ok := s.rules.Treatment().Apply(inputs); ok {
		result.TreatmentRecommendations = &treatment
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"treatment":  result.TreatmentRecommendations,
	}).Debug("Treatment analysis completed")

	return result
}

// AnalyzeTreatmentForPatient runs the full pipeline: both first-order
// analyses, then the treatment lookup over their results.
func (s *AnalysisService) AnalyzeTreatmentForPatient(ctx context.Context, patientID, gender string) (*domain.TreatmentResult, error) {
	hema, err := s.AnalyzeHematologicalState(ctx, patientID)
	if err != nil {
		return nil, err
	}
	tox, err := s.AnalyzeSystemicToxicity(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeTreatment(patientID, gender, hema, tox), nil
}

// fetchConcepts retrieves the latest record per required concept. It
// returns the fetched records (nil where absent), the raw input values
// keyed by rule field, and the missing concept names in declared order.
func (s *AnalysisService) fetchConcepts(ctx context.Context, patientID string, concepts []requiredConcept) ([]*domain.AbstractedRecord, domain.InputValues, []string, error) {
	records := make([]*domain.AbstractedRecord, 0, len(concepts))
	inputs := make(domain.InputValues, len(concepts))
	var missing []string

	for _, rc := range concepts {
		record, err := s.store.FetchLatest(ctx, patientID, rc.concept)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"patient_id": patientID,
				"concept":    rc.concept,
				"error":      err,
			}).Error("Failed to fetch abstracted record")
			return nil, nil, nil, err
		}

		records = append(records, record)
		if record == nil {
			inputs[rc.field] = nil
			missing = append(missing, rc.concept)
		} else {
			inputs[rc.field] = domain.StringPtr(record.Value)
		}
	}

	return records, inputs, missing, nil
}

// recordsOverlap is the fail-closed temporal gate: a nil record or an
// unparsable timestamp means overlap cannot be asserted.
func recordsOverlap(records []*domain.AbstractedRecord) bool {
	intervals := make([]temporal.Interval, 0, len(records))
	for _, record := range records {
		if record == nil {
			return false
		}
		interval, err := temporal.Parse(record.StartTime, record.EndTime)
		if err != nil {
			return false
		}
		intervals = append(intervals, interval)
	}
	return temporal.OverlapAll(intervals)
}

func (s *AnalysisService) logFailure(patientID string, kind domain.AnalysisKind, message string) {
	s.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"analysis":   kind,
		"reason":     message,
	}).Warn("Analysis completed with failure")
}
