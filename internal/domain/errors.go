package domain

import (
	"fmt"
	"strings"
)

// FailureClass categorizes an analysis failure. Failures are reported
// as data on the result, never raised past the orchestrator boundary.
type FailureClass string

const (
	FailureMissingData     FailureClass = "MISSING_DATA"
	FailureNoOverlap       FailureClass = "NO_TEMPORAL_OVERLAP"
	FailureUpstreamFailure FailureClass = "UPSTREAM_ANALYSIS_FAILED"
)

// MissingDataMessage enumerates missing concept names in declared order.
func MissingDataMessage(missing []string) string {
	return fmt.Sprintf("Missing required abstracted data for: %s", strings.Join(missing, ", "))
}

// MissingParametersMessage enumerates missing treatment parameters in
// declared order.
func MissingParametersMessage(missing []string) string {
	return fmt.Sprintf("Missing required parameters for treatment analysis: %s", strings.Join(missing, ", "))
}

// Temporal overlap failure messages, one per first-order analysis.
const (
	NoOverlapHematologicalMessage = "No temporal overlap between hemoglobin and WBC measurements"
	NoOverlapToxicityMessage      = "No temporal overlap between all required measurements"
)

// UpstreamFailureMessage nests an upstream analysis error, identifying
// which analysis failed.
func UpstreamFailureMessage(kind AnalysisKind, upstreamErr string) string {
	switch kind {
	case AnalysisHematological:
		return fmt.Sprintf("Hematological analysis failed: %s", upstreamErr)
	case AnalysisSystemicToxicity:
		return fmt.Sprintf("Systemic toxicity analysis failed: %s", upstreamErr)
	default:
		return fmt.Sprintf("%s analysis failed: %s", kind, upstreamErr)
	}
}

// ClassifyFailure maps a result error message onto its failure class.
// Callers that persist analysis outcomes use it to tag history entries.
func ClassifyFailure(message string) FailureClass {
	switch {
	case message == "":
		return ""
	case strings.Contains(message, "temporal overlap"):
		return FailureNoOverlap
	case strings.Contains(message, "analysis failed"):
		return FailureUpstreamFailure
	default:
		return FailureMissingData
	}
}
