// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Shoebox tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/marwick/shoebox/internal/itemservice"
	"github.com/marwick/shoebox/internal/models"
)

// Server wraps the MCP server with Shoebox tools.
type Server struct {
	mcp *server.MCPServer
	svc *itemservice.Service
}

// New creates a new MCP server with all Shoebox tools registered.
func New(svc *itemservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Shoebox",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("capture_text",
		mcp.WithDescription("Capture a text snippet into the shoebox. "+
			"Metadata (counts, language, tags) is derived automatically; read the "+
			"get_capture_format tool or the shoebox://capture-format resource to "+
			"understand the stored format."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Text to capture")),
		mcp.WithString("method", mcp.Description("Capture method label (default quick-note)")),
		mcp.WithString("source_app", mcp.Description("Name of the originating application")),
	), s.captureText)

	s.mcp.AddTool(mcp.NewTool("read_capture",
		mcp.WithDescription("Read a captured item's raw file, including its metadata block."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative item path (e.g. 2025-01-02/03-04-05-678.md)")),
	), s.readCapture)

	s.mcp.AddTool(mcp.NewTool("list_partitions",
		mcp.WithDescription("List date partitions (one folder per capture day), newest first."),
	), s.listPartitions)

	s.mcp.AddTool(mcp.NewTool("list_captures",
		mcp.WithDescription("List the items of one date partition, newest first."),
		mcp.WithString("partition", mcp.Required(), mcp.Description("Partition date (yyyy-MM-dd)")),
	), s.listCaptures)

	s.mcp.AddTool(mcp.NewTool("search_captures",
		mcp.WithDescription("Full-text search through captured text and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCaptures)

	s.mcp.AddTool(mcp.NewTool("get_capture_format",
		mcp.WithDescription("Returns the canonical Shoebox capture file format."),
	), s.getCaptureFormat)

	// Resource: capture format contract.
	s.mcp.AddResource(
		mcp.NewResource("shoebox://capture-format", "Capture Format",
			mcp.WithResourceDescription("Canonical on-disk format of captured items."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCaptureFormatResource,
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

func (s *Server) captureText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	method := models.MethodQuickNote
	if m, mErr := req.RequireString("method"); mErr == nil && m != "" {
		method = models.ParseCaptureMethod(m)
	}
	var source *models.SourceApp
	if app, appErr := req.RequireString("source_app"); appErr == nil && app != "" {
		source = &models.SourceApp{Name: app}
	}

	item, err := s.svc.CaptureText(ctx, content, method, source, models.TabInfo{}, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("captured: %s", item.Path)), nil
}

func (s *Server) readCapture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.Store().ReadRaw(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listPartitions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folders, err := s.svc.Partitions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(folders) == 0 {
		return mcp.NewToolResultText("no captures yet"), nil
	}
	var lines []string
	for _, f := range folders {
		lines = append(lines, fmt.Sprintf("%s (%d items)", f.PartitionName(), f.ItemCount))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listCaptures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	partition, err := req.RequireString("partition")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.Items(ctx, partition)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("partition not found: %s", partition)), nil
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) searchCaptures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCaptureFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CaptureFormatContract), nil
}

func (s *Server) readCaptureFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "shoebox://capture-format",
			MIMEType: "text/markdown",
			Text:     CaptureFormatContract,
		},
	}, nil
}
