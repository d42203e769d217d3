package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/rules"
)

// fakeStore is an in-memory MeasurementStore keyed by patient/concept.
type fakeStore struct {
	records map[string]*domain.AbstractedRecord
	err     error
}

func (f *fakeStore) FetchLatest(_ context.Context, patientID, conceptName string) (*domain.AbstractedRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[patientID+"/"+conceptName], nil
}

func record(patientID, concept, value, start, end string) *domain.AbstractedRecord {
	return &domain.AbstractedRecord{
		PatientID:   patientID,
		ConceptName: concept,
		Value:       value,
		StartTime:   start,
		EndTime:     end,
	}
}

func newTestService(t *testing.T, store domain.MeasurementStore) *AnalysisService {
	t.Helper()
	registry, err := rules.NewRegistry(rules.DefaultTables())
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewAnalysisService(store, registry, logger)
}

func hematologicalStore(patientID string) *fakeStore {
	return &fakeStore{records: map[string]*domain.AbstractedRecord{
		patientID + "/Hemoglobin_Level": record(patientID, "Hemoglobin_Level", "Low", "2024-03-01", "2024-03-10"),
		patientID + "/WBC_Level":        record(patientID, "WBC_Level", "Low-Low", "2024-03-05", "2024-03-12"),
	}}
}

func toxicityStore(patientID string) *fakeStore {
	return &fakeStore{records: map[string]*domain.AbstractedRecord{
		patientID + "/Fever_Level":    record(patientID, "Fever_Level", "High", "2024-03-01", "2024-03-10"),
		patientID + "/Chills":         record(patientID, "Chills", "Shaking", "2024-03-02", "2024-03-09"),
		patientID + "/Skin-Look":      record(patientID, "Skin-Look", "Vesiculation", "2024-03-03", "2024-03-08"),
		patientID + "/Allergic-State": record(patientID, "Allergic-State", "Bronchospasm", "2024-03-04", "2024-03-07"),
	}}
}

func TestAnalyzeHematologicalState_Success(t *testing.T) {
	svc := newTestService(t, hematologicalStore("p1"))

	result, err := svc.AnalyzeHematologicalState(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "p1", result.PatientID)
	assert.Empty(t, result.Error)
	assert.True(t, result.TemporalOverlap)
	require.NotNil(t, result.HematologicalState)
	assert.Equal(t, "Pancytopenia", *result.HematologicalState)
	require.NotNil(t, result.IndividualStates["hemoglobin_state"])
	assert.Equal(t, "Low", *result.IndividualStates["hemoglobin_state"])
	require.NotNil(t, result.IndividualStates["wbc_level"])
	assert.Equal(t, "Low-Low", *result.IndividualStates["wbc_level"])
}

func TestAnalyzeHematologicalState_MissingData(t *testing.T) {
	store := hematologicalStore("p1")
	delete(store.records, "p1/WBC_Level")
	svc := newTestService(t, store)

	result, err := svc.AnalyzeHematologicalState(context.Background(), "p1")
	require.NoError(t, err)

	assert.Contains(t, result.Error, "WBC_Level")
	assert.Nil(t, result.HematologicalState)
	assert.False(t, result.TemporalOverlap)
	assert.Nil(t, result.IndividualStates["wbc_level"])
}

func TestAnalyzeHematologicalState_MissingBothEnumeratedInOrder(t *testing.T) {
	svc := newTestService(t, &fakeStore{records: map[string]*domain.AbstractedRecord{}})

	result, err := svc.AnalyzeHematologicalState(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "Missing required abstracted data for: Hemoglobin_Level, WBC_Level", result.Error)
}

func TestAnalyzeHematologicalState_NoOverlap(t *testing.T) {
	store := &fakeStore{records: map[string]*domain.AbstractedRecord{
		"p1/Hemoglobin_Level": record("p1", "Hemoglobin_Level", "Low", "2024-03-01", "2024-03-02"),
		"p1/WBC_Level":        record("p1", "WBC_Level", "Low-Low", "2024-03-05", "2024-03-12"),
	}}
	svc := newTestService(t, store)

	result, err := svc.AnalyzeHematologicalState(context.Background(), "p1")
	require.NoError(t, err)

	assert.Contains(t, result.Error, "temporal overlap")
	assert.Nil(t, result.HematologicalState)
	// Raw inputs stay reported even when the windows are disjoint.
	require.NotNil(t, result.IndividualStates["hemoglobin_state"])
	assert.Equal(t, "Low", *result.IndividualStates["hemoglobin_state"])
}

func TestAnalyzeHematologicalState_UnparsableTimestampFailsClosed(t *testing.T) {
	store := hematologicalStore("p1")
	store.records["p1/WBC_Level"].StartTime = "last tuesday"
	svc := newTestService(t, store)

	result, err := svc.AnalyzeHematologicalState(context.Background(), "p1")
	require.NoError(t, err)

	assert.Contains(t, result.Error, "temporal overlap")
	assert.Nil(t, result.HematologicalState)
}

func TestAnalyzeHematologicalState_NoMatchIsNotAnError(t *testing.T) {
	store := &fakeStore{records: map[string]*domain.AbstractedRecord{
		"p1/Hemoglobin_Level": record("p1", "Hemoglobin_Level", "High", "2024-03-01", "2024-03-10"),
		"p1/WBC_Level":        record("p1", "WBC_Level", "Low-Low", "2024-03-05", "2024-03-12"),
	}}
	svc := newTestService(t, store)

	result, err := svc.AnalyzeHematologicalState(context.Background(), "p1")
	require.NoError(t, err)

	assert.Empty(t, result.Error)
	assert.True(t, result.TemporalOverlap)
	assert.Nil(t, result.HematologicalState)
}

func TestAnalyzeHematologicalState_StoreFailurePropagates(t *testing.T) {
	svc := newTestService(t, &fakeStore{err: errors.New("connection refused")})

	_, err := svc.AnalyzeHematologicalState(context.Background(), "p1")
	require.Error(t, err)
}

func TestAnalyzeHematologicalState_RoundTripThroughTable(t *testing.T) {
	svc := newTestService(t, hematologicalStore("p1"))

	result, err := svc.AnalyzeHematologicalState(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, result.HematologicalState)

	registry, err := rules.NewRegistry(rules.DefaultTables())
	require.NoError(t, err)

	replayed, ok := registry.Hematological().Apply(result.IndividualStates)
	require.True(t, ok)
	assert.Equal(t, *result.HematologicalState, replayed)
}

func TestAnalyzeSystemicToxicity_Success(t *testing.T) {
	svc := newTestService(t, toxicityStore("p2"))

	result, err := svc.AnalyzeSystemicToxicity(context.Background(), "p2")
	require.NoError(t, err)

	assert.Empty(t, result.Error)
	assert.True(t, result.TemporalOverlap)
	require.NotNil(t, result.SystemicToxicityGrade)
	assert.Equal(t, "GRADE II", *result.SystemicToxicityGrade)
}

func TestAnalyzeSystemicToxicity_MissingFever(t *testing.T) {
	store := toxicityStore("p2")
	delete(store.records, "p2/Fever_Level")
	svc := newTestService(t, store)

	result, err := svc.AnalyzeSystemicToxicity(context.Background(), "p2")
	require.NoError(t, err)

	assert.Contains(t, result.Error, "Fever_Level")
	assert.Nil(t, result.SystemicToxicityGrade)
	assert.Nil(t, result.IndividualStates["fever_level"])
	// The present inputs are still reported.
	require.NotNil(t, result.IndividualStates["chills"])
	assert.Equal(t, "Shaking", *result.IndividualStates["chills"])
}

func TestAnalyzeSystemicToxicity_DisjointWindows(t *testing.T) {
	store := toxicityStore("p2")
	// Record A ends before record B starts.
	store.records["p2/Fever_Level"] = record("p2", "Fever_Level", "High", "2024-02-01", "2024-02-10")
	svc := newTestService(t, store)

	result, err := svc.AnalyzeSystemicToxicity(context.Background(), "p2")
	require.NoError(t, err)

	assert.Contains(t, result.Error, "temporal overlap")
	assert.Nil(t, result.SystemicToxicityGrade)
}

func TestAnalyzeTreatment_Success(t *testing.T) {
	svc := newTestService(t, &fakeStore{})

	low := "Low"
	pancytopenia := "Pancytopenia"
	gradeI := "GRADE I"
	hema := &domain.HematologicalResult{
		PatientID: "p3",
		IndividualStates: domain.InputValues{
			"hemoglobin_state": &low,
			"wbc_level":        domain.StringPtr("Low-Low"),
		},
		HematologicalState: &pancytopenia,
		TemporalOverlap:    true,
	}
	tox := &domain.ToxicityResult{
		PatientID:             "p3",
		SystemicToxicityGrade: &gradeI,
		TemporalOverlap:       true,
	}

	result := svc.AnalyzeTreatment("p3", "Male", hema, tox)

	assert.Empty(t, result.Error)
	require.NotNil(t, result.TreatmentRecommendations)
	assert.Equal(t, "Measure BP once a week", *result.TreatmentRecommendations)
	require.NotNil(t, result.ClinicalInputs["gender"])
	assert.Equal(t, "Male", *result.ClinicalInputs["gender"])
	// The raw hemoglobin input feeds the lookup, not the derived state.
	require.NotNil(t, result.ClinicalInputs["hemoglobin_state"])
	assert.Equal(t, "Low", *result.ClinicalInputs["hemoglobin_state"])
}

func TestAnalyzeTreatment_UpstreamHematologicalFailure(t *testing.T) {
	svc := newTestService(t, &fakeStore{})

	hema := &domain.HematologicalResult{
		PatientID: "p3",
		Error:     "Missing required abstracted data for: Hemoglobin_Level",
	}
	tox := &domain.ToxicityResult{PatientID: "p3", TemporalOverlap: true}

	result := svc.AnalyzeTreatment("p3", "Female", hema, tox)

	assert.Contains(t, result.Error, "Hematological analysis failed")
	assert.Contains(t, result.Error, "Missing required abstracted data for: Hemoglobin_Level")
	assert.Nil(t, result.TreatmentRecommendations)
	assert.Nil(t, result.ClinicalInputs)
}

func TestAnalyzeTreatment_UpstreamToxicityFailure(t *testing.T) {
	svc := newTestService(t, &fakeStore{})

	state := "Anemia"
	hema := &domain.HematologicalResult{
		PatientID:          "p3",
		IndividualStates:   domain.InputValues{"hemoglobin_state": domain.StringPtr("Low")},
		HematologicalState: &state,
		TemporalOverlap:    true,
	}
	tox := &domain.ToxicityResult{
		PatientID: "p3",
		Error:     "No temporal overlap between all required measurements",
	}

	result := svc.AnalyzeTreatment("p3", "Female", hema, tox)

	assert.Contains(t, result.Error, "Systemic toxicity analysis failed")
	assert.Contains(t, result.Error, "No temporal overlap between all required measurements")
}

func TestAnalyzeTreatment_MissingParameters(t *testing.T) {
	svc := newTestService(t, &fakeStore{})

	// Upstream analyses succeeded but neither lookup matched a row.
	hema := &domain.HematologicalResult{
		PatientID:        "p3",
		IndividualStates: domain.InputValues{"hemoglobin_state": domain.StringPtr("Low")},
		TemporalOverlap:  true,
	}
	tox := &domain.ToxicityResult{PatientID: "p3", TemporalOverlap: true}

	result := svc.AnalyzeTreatment("p3", "", hema, tox)

	assert.Equal(t,
		"Missing required parameters for treatment analysis: gender, hematological_state, systemic_toxicity_grade",
		result.Error)
	assert.Nil(t, result.TreatmentRecommendations)
}

func TestAnalyzeTreatment_NilUpstreamResult(t *testing.T) {
	svc := newTestService(t, &fakeStore{})

	result := svc.AnalyzeTreatment("p3", "Male", nil, nil)

	assert.Contains(t, result.Error, "Hematological analysis failed")
}

func TestAnalyzeTreatmentForPatient_FullPipeline(t *testing.T) {
	store := hematologicalStore("p4")
	for k, v := range toxicityStore("p4").records {
		store.records[k] = v
	}
	// Align the toxicity values with a GRADE I row so the treatment
	// lookup has a matching tuple.
	store.records["p4/Fever_Level"] = record("p4", "Fever_Level", "Normal-Elevated", "2024-03-01", "2024-03-10")
	store.records["p4/Chills"] = record("p4", "Chills", "None", "2024-03-02", "2024-03-09")
	store.records["p4/Skin-Look"] = record("p4", "Skin-Look", "Erythema", "2024-03-03", "2024-03-08")
	store.records["p4/Allergic-State"] = record("p4", "Allergic-State", "Edema", "2024-03-04", "2024-03-07")
	svc := newTestService(t, store)

	result, err := svc.AnalyzeTreatmentForPatient(context.Background(), "p4", "Male")
	require.NoError(t, err)

	assert.Empty(t, result.Error)
	require.NotNil(t, result.TreatmentRecommendations)
	assert.Equal(t, "Measure BP once a week", *result.TreatmentRecommendations)
}
