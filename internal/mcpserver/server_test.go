package mcpserver

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/marwick/shoebox/internal/analyze"
	"github.com/marwick/shoebox/internal/index"
	"github.com/marwick/shoebox/internal/itemservice"
	"github.com/marwick/shoebox/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.New(t.TempDir(), analyze.New())
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "shoebox-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return New(itemservice.New(st, db, nil, nil))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "capture_text":
		result, err = srv.captureText(ctx, req)
	case "read_capture":
		result, err = srv.readCapture(ctx, req)
	case "list_partitions":
		result, err = srv.listPartitions(ctx, req)
	case "list_captures":
		result, err = srv.listCaptures(ctx, req)
	case "search_captures":
		result, err = srv.searchCaptures(ctx, req)
	case "get_capture_format":
		result, err = srv.getCaptureFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCaptureAndReadCapture(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "capture_text", map[string]interface{}{
		"content": "captured via mcp",
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "captured: ") {
		t.Fatalf("capture result = %q", text)
	}
	path := strings.TrimPrefix(text, "captured: ")

	r = callTool(t, srv, "read_capture", map[string]interface{}{
		"path": path,
	})
	text = resultText(r)
	if !strings.Contains(text, "captured via mcp") {
		t.Errorf("read result missing body: %q", text)
	}
	if !strings.Contains(text, "capture_method: \"quick-note\"") {
		t.Errorf("read result missing metadata: %q", text)
	}
}

func TestListPartitionsAndCaptures(t *testing.T) {
	srv := testServer(t)

	_ = callTool(t, srv, "capture_text", map[string]interface{}{"content": "one"})
	_ = callTool(t, srv, "capture_text", map[string]interface{}{"content": "two"})

	r := callTool(t, srv, "list_partitions", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "(2 items)") {
		t.Errorf("partitions = %q, want a 2-item partition", text)
	}
	partition := strings.Fields(text)[0]

	r = callTool(t, srv, "list_captures", map[string]interface{}{"partition": partition})
	paths := strings.Split(strings.TrimSpace(resultText(r)), "\n")
	if len(paths) != 2 {
		t.Errorf("captures = %d, want 2", len(paths))
	}
}

func TestListPartitions_Empty(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_partitions", map[string]interface{}{})
	if resultText(r) != "no captures yet" {
		t.Errorf("empty partitions = %q", resultText(r))
	}
}

func TestReadCaptureMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_capture", map[string]interface{}{"path": "2025-01-01/nope.md"})
	if !r.IsError {
		t.Error("expected error for missing capture")
	}
}

func TestListCaptures_UnknownPartition(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "list_captures", map[string]interface{}{"partition": "1999-01-01"})
	if !r.IsError {
		t.Error("expected error for unknown partition")
	}
}

func TestSearchCaptures(t *testing.T) {
	srv := testServer(t)

	_ = callTool(t, srv, "capture_text", map[string]interface{}{"content": "uniquetoken lives here"})

	r := callTool(t, srv, "search_captures", map[string]interface{}{"query": "uniquetoken"})
	if !strings.Contains(resultText(r), ".md") {
		t.Errorf("search = %q, want a hit", resultText(r))
	}
}

func TestGetCaptureFormat(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_capture_format", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "capture_method") || !strings.Contains(text, "meta.yaml") {
		t.Errorf("contract missing expected sections")
	}
}
