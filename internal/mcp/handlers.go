package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/history"
)

// PatientParams carries the patient identifier common to all analysis tools.
type PatientParams struct {
	PatientID string `json:"patient_id"`
}

// TreatmentParams adds gender, which is not an abstracted measurement
// and must be supplied by the caller.
type TreatmentParams struct {
	PatientID string `json:"patient_id"`
	Gender    string `json:"gender"`
}

// handleHematologicalState handles the analyze_hematological_state tool.
func (s *Server) handleHematologicalState(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "analyze_hematological_state").Info("Tool invoked")

	var params PatientParams
	raw, _ := req.Params.Arguments.(json.RawMessage)
	if err := json.Unmarshal(raw, &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	if params.PatientID == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("patient_id is required")), nil
	}

	result, err := s.analysis.AnalyzeHematologicalState(ctx, params.PatientID)
	if err != nil {
		return s.createErrorResult("Measurement store unavailable", err), nil
	}

	s.record(ctx, domain.AnalysisHematological, params.PatientID,
		result.IndividualStates, result.HematologicalState, result.Error)
	return s.createJSONResult(result)
}

// handleSystemicToxicity handles the analyze_systemic_toxicity tool.
func (s *Server) handleSystemicToxicity(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "analyze_systemic_toxicity").Info("Tool invoked")

	var params PatientParams
	raw, _ := req.Params.Arguments.(json.RawMessage)
	if err := json.Unmarshal(raw, &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	if params.PatientID == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("patient_id is required")), nil
	}

	result, err := s.analysis.AnalyzeSystemicToxicity(ctx, params.PatientID)
	if err != nil {
		return s.createErrorResult("Measurement store unavailable", err), nil
	}

	s.record(ctx, domain.AnalysisSystemicToxicity, params.PatientID,
		result.IndividualStates, result.SystemicToxicityGrade, result.Error)
	return s.createJSONResult(result)
}

// handleTreatment handles the recommend_treatment tool.
func (s *Server) handleTreatment(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "recommend_treatment").Info("Tool invoked")

	var params TreatmentParams
	raw, _ := req.Params.Arguments.(json.RawMessage)
	if err := json.Unmarshal(raw, &params); err != nil {
		return s.createErrorResult("Invalid parameters", err), nil
	}
	if params.PatientID == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("patient_id is required")), nil
	}
	if params.Gender == "" {
		return s.createErrorResult("Missing required parameter", fmt.Errorf("gender is required")), nil
	}

	result, err := s.analysis.AnalyzeTreatmentForPatient(ctx, params.PatientID, params.Gender)
	if err != nil {
		return s.createErrorResult("Measurement store unavailable", err), nil
	}

	s.record(ctx, domain.AnalysisTreatment, params.PatientID,
		result.ClinicalInputs, result.TreatmentRecommendations, result.Error)
	return s.createJSONResult(result)
}

// handleListRuleTables handles the list_rule_tables tool.
func (s *Server) handleListRuleTables(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.logger.WithField("tool", "list_rule_tables").Info("Tool invoked")

	return s.createJSONResult(map[string]interface{}{
		"tables": s.registry.Names(),
	})
}

// record persists the analysis outcome; failures are logged only.
func (s *Server) record(ctx context.Context, kind domain.AnalysisKind, patientID string, inputs domain.InputValues, derived *string, errorMessage string) {
	if s.history == nil {
		return
	}
	entry := history.NewEntry(kind, patientID, inputs, derived, errorMessage)
	if err := s.history.Save(ctx, entry); err != nil {
		s.logger.WithError(err).Error("Failed to record analysis outcome")
	}
}

// createJSONResult marshals v as the tool's text content.
func (s *Server) createJSONResult(v interface{}) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(payload)},
		},
	}, nil
}

// createErrorResult reports a tool-level error to the caller.
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	s.logger.WithError(err).Warn(message)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", message, err)},
		},
	}
}
