package domain

// AnalysisKind identifies one of the rule-based analyses.
type AnalysisKind string

const (
	AnalysisHematological    AnalysisKind = "hematological_state"
	AnalysisSystemicToxicity AnalysisKind = "systemic_toxicity"
	AnalysisTreatment        AnalysisKind = "treatment"
)

// InputValues carries the raw categorical inputs an analysis actually
// used, keyed by rule-table field name. Missing inputs are nil so they
// marshal as JSON null.
type InputValues map[string]*string

// HematologicalResult is the outcome of the 2:1 hematological lookup.
// Error and the derived state are mutually exclusive: a failed analysis
// carries Error with a nil state, a completed one carries the state (nil
// only when no rule row matched) plus the overlap-confirmed marker.
type HematologicalResult struct {
	PatientID          string      `json:"patient_id"`
	IndividualStates   InputValues `json:"individual_states"`
	HematologicalState *string     `json:"hematological_state"`
	TemporalOverlap    bool        `json:"temporal_overlap,omitempty"`
	Error              string      `json:"error,omitempty"`
}

// Failed reports whether the analysis hit one of the checked failures.
func (r *HematologicalResult) Failed() bool {
	return r.Error != ""
}

// ToxicityResult is the outcome of the 4:1 systemic toxicity lookup.
type ToxicityResult struct {
	PatientID             string      `json:"patient_id"`
	IndividualStates      InputValues `json:"individual_states"`
	SystemicToxicityGrade *string     `json:"systemic_toxicity_grade"`
	TemporalOverlap       bool        `json:"temporal_overlap,omitempty"`
	Error                 string      `json:"error,omitempty"`
}

// Failed reports whether the analysis hit one of the checked failures.
func (r *ToxicityResult) Failed() bool {
	return r.Error != ""
}

// TreatmentResult is the outcome of the second-order treatment lookup.
// ClinicalInputs is absent when an upstream analysis failed before any
// input could be extracted.
type TreatmentResult struct {
	PatientID                string      `json:"patient_id"`
	ClinicalInputs           InputValues `json:"clinical_inputs,omitempty"`
	TreatmentRecommendations *string     `json:"treatment_recommendations"`
	Error                    string      `json:"error,omitempty"`
}

// Failed reports whether the analysis hit one of the checked failures.
func (r *TreatmentResult) Failed() bool {
	return r.Error != ""
}

// StringPtr returns a pointer to v, or nil when v is empty. Raw input
// maps use it to keep absent values as JSON null.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
