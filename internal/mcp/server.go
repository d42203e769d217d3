// Package mcp exposes the clinical analyses as MCP tools over stdio,
// so AI agents can invoke them alongside the HTTP API.
package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/history"
	"github.com/cds-rules-server/internal/rules"
	"github.com/cds-rules-server/internal/service"
)

// Server wraps the MCP SDK server around the analysis service.
type Server struct {
	analysis  *service.AnalysisService
	registry  *rules.Registry
	history   history.Store
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates an MCP server with all analysis tools registered.
func NewServer(analysis *service.AnalysisService, registry *rules.Registry, historyStore history.Store, logger *logrus.Logger) (*Server, error) {
	serverInfo := &mcp.Implementation{
		Name:    "cds-rules-server",
		Version: "v0.1.0",
	}

	server := &Server{
		analysis:  analysis,
		registry:  registry,
		history:   historyStore,
		mcpServer: mcp.NewServer(serverInfo, nil),
		logger:    logger,
	}

	if err := server.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register MCP tools: %w", err)
	}

	return server, nil
}

func (s *Server) registerTools() error {
	toolHandlers := []struct {
		tool    *mcp.Tool
		handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}{
		{
			tool: &mcp.Tool{
				Name:        "analyze_hematological_state",
				Description: "Derive a patient's hematological state from their latest hemoglobin and WBC level abstractions. Requires patient_id.",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			handler: s.handleHematologicalState,
		},
		{
			tool: &mcp.Tool{
				Name:        "analyze_systemic_toxicity",
				Description: "Derive a patient's systemic toxicity grade from their latest fever, chills, skin-look and allergic-state abstractions. Requires patient_id.",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			handler: s.handleSystemicToxicity,
		},
		{
			tool: &mcp.Tool{
				Name:        "recommend_treatment",
				Description: "Derive a treatment recommendation from the patient's hematological state, systemic toxicity grade and gender. Requires patient_id and gender.",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			handler: s.handleTreatment,
		},
		{
			tool: &mcp.Tool{
				Name:        "list_rule_tables",
				Description: "List the loaded clinical decision rule tables.",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			handler: s.handleListRuleTables,
		},
	}

	for _, th := range toolHandlers {
		s.mcpServer.AddTool(th.tool, th.handler)
		s.logger.WithField("tool_name", th.tool.Name).Debug("Registered MCP tool")
	}

	s.logger.WithField("tool_count", len(toolHandlers)).Info("Registered all MCP tools")
	return nil
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio transport")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
