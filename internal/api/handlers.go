package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/history"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.history.Count(c.Request.Context())
	status := "healthy"
	if err != nil {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        status,
		"timestamp":     time.Now().UTC(),
		"version":       "1.0.0",
		"rule_tables":   s.registry.Names(),
		"history_count": count,
	})
}

// handleHematologicalState runs the 2:1 hematological analysis for a
// patient. Checked failures are part of the result body, not HTTP
// errors; only measurement store failures map to 500.
func (s *Server) handleHematologicalState(c *gin.Context) {
	patientID := c.Param("id")

	result, err := s.analysis.AnalyzeHematologicalState(c.Request.Context(), patientID)
	if err != nil {
		s.storeError(c, err)
		return
	}

	s.record(c, domain.AnalysisHematological, patientID, result.IndividualStates,
		result.HematologicalState, result.Error)
	c.JSON(http.StatusOK, result)
}

// handleSystemicToxicity runs the 4:1 systemic toxicity analysis.
func (s *Server) handleSystemicToxicity(c *gin.Context) {
	patientID := c.Param("id")

	result, err := s.analysis.AnalyzeSystemicToxicity(c.Request.Context(), patientID)
	if err != nil {
		s.storeError(c, err)
		return
	}

	s.record(c, domain.AnalysisSystemicToxicity, patientID, result.IndividualStates,
		result.SystemicToxicityGrade, result.Error)
	c.JSON(http.StatusOK, result)
}

// handleTreatment runs the full treatment pipeline. Gender is a
// required query parameter because it is not an abstracted measurement.
func (s *Server) handleTreatment(c *gin.Context) {
	patientID := c.Param("id")
	gender := c.Query("gender")
	if gender == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "gender query parameter is required",
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}

	result, err := s.analysis.AnalyzeTreatmentForPatient(c.Request.Context(), patientID, gender)
	if err != nil {
		s.storeError(c, err)
		return
	}

	s.record(c, domain.AnalysisTreatment, patientID, result.ClinicalInputs,
		result.TreatmentRecommendations, result.Error)
	c.JSON(http.StatusOK, result)
}

// handleListRules returns the registered rule table names.
func (s *Server) handleListRules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tables": s.registry.Names(),
	})
}

// handleGetRuleTable returns one rule table in full.
func (s *Server) handleGetRuleTable(c *gin.Context) {
	table := s.registry.Table(c.Param("name"))
	if table == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":          "rule table not found",
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}
	c.JSON(http.StatusOK, table)
}

// handlePatientHistory lists recorded analysis outcomes for a patient,
// newest first, with limit/offset paging.
func (s *Server) handlePatientHistory(c *gin.Context) {
	patientID := c.Param("id")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.history.ListByPatient(c.Request.Context(), patientID, limit, offset)
	if err != nil {
		s.storeError(c, err)
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"entries":    entries,
		"count":      len(entries),
	})
}

// handleExportHistory streams the complete history as a JSON document.
func (s *Server) handleExportHistory(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="analysis_history.json"`)

	if err := s.history.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("History export failed")
		// Headers are already sent; nothing more to do than log.
	}
}

// record persists one analysis outcome and broadcasts it to stream
// subscribers. History failures are logged, never surfaced: the
// analysis result already in hand takes precedence.
func (s *Server) record(c *gin.Context, kind domain.AnalysisKind, patientID string, inputs domain.InputValues, derived *string, errorMessage string) {
	entry := history.NewEntry(kind, patientID, inputs, derived, errorMessage)

	// Use a detached context so a cancelled request cannot lose the record.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.history.Save(ctx, entry); err != nil {
		s.logger.WithFields(logrus.Fields{
			"patient_id": patientID,
			"analysis":   kind,
			"error":      err,
		}).Error("Failed to record analysis outcome")
	}

	s.hub.Broadcast(&AnalysisEvent{
		Type:         "analysis_completed",
		AnalysisKind: string(kind),
		PatientID:    patientID,
		DerivedValue: derived,
		Error:        errorMessage,
		Timestamp:    entry.CreatedAt,
	})
}

func (s *Server) storeError(c *gin.Context, err error) {
	s.logger.WithError(err).Error("Request failed on backing store")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":          "analysis backend unavailable",
		"correlation_id": c.GetString("correlation_id"),
	})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
