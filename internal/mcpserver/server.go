// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the case investigation tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/perthro/internal/investigation"
)

// LayoutURI is the resource URI of the case layout document.
const LayoutURI = "perthro://case-layout"

// Server wraps the MCP server with the investigation tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *investigation.Service
	logger *slog.Logger
}

// New creates a new MCP server with all tools registered.
func New(svc *investigation.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}

	s.mcp = server.NewMCPServer(
		"Perthro",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	s.mcp.AddTool(mcp.NewTool("list_anomalies",
		mcp.WithDescription("List every indicator in the case catalog: manual notes (anomalies/), "+
			"IOC list lines (ioc/) and indicators extracted from PDF reports (reports/)."),
		mcp.WithString("base_dir", mcp.Description("Case directory (defaults to the configured case)")),
	), s.listAnomalies)

	s.mcp.AddTool(mcp.NewTool("search_anomalies",
		mcp.WithDescription("Search CSV, JSON and text artifacts under base_dir for each indicator. "+
			"Matching is a case-insensitive substring test."),
		mcp.WithString("base_dir", mcp.Description("Case directory (defaults to the configured case)")),
		mcp.WithArray("anomalies", mcp.Required(),
			mcp.Description("Indicators to search for: strings or {id, query} objects as returned by list_anomalies")),
		mcp.WithArray("artifact_types", mcp.WithStringItems(),
			mcp.Description("Optional artifact base names to restrict the search to (e.g. MFT.csv)")),
		mcp.WithNumber("max_results", mcp.DefaultNumber(50),
			mcp.Description("Maximum matches per indicator and artifact")),
	), s.searchAnomalies)

	s.mcp.AddTool(mcp.NewTool("list_artifacts",
		mcp.WithDescription("List the searchable artifact files under base_dir with size and modification time."),
		mcp.WithString("base_dir", mcp.Description("Case directory (defaults to the configured case)")),
		mcp.WithBoolean("with_checksums", mcp.Description("Include the SHA-256 of each file")),
	), s.listArtifacts)

	s.mcp.AddTool(mcp.NewTool("classify_text",
		mcp.WithDescription("Extract file names, hashes and network indicators from free text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to classify")),
	), s.classifyText)

	s.mcp.AddResource(
		mcp.NewResource(LayoutURI, "Case Directory Layout",
			mcp.WithResourceDescription("Where indicators and artifacts live inside a case directory."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listAnomalies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.svc.ListIndicators(ctx, req.GetString("base_dir", ""))
	return jsonResult(res, res.Success)
}

func (s *Server) searchAnomalies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in investigation.SearchRequest
	if err := req.BindArguments(&in); err != nil {
		s.logger.Warn("mcp: invalid search arguments", slog.String("error", err.Error()))
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if len(in.Anomalies) == 0 {
		return mcp.NewToolResultError("anomalies must contain at least one indicator"), nil
	}
	res := s.svc.Search(ctx, in)
	return jsonResult(res, res.Success)
}

func (s *Server) listArtifacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.svc.ListArtifacts(ctx, req.GetString("base_dir", ""), req.GetBool("with_checksums", false))
	return jsonResult(res, res.Success)
}

func (s *Server) classifyText(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Classify(text), true)
}

func (s *Server) readLayoutResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LayoutURI,
			MIMEType: "text/markdown",
			Text:     CaseLayout,
		},
	}, nil
}

// jsonResult renders v as indented JSON. Failed operations keep their
// structured body but are flagged as tool errors.
func jsonResult(v any, ok bool) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(string(out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
