package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/redmaple/streamsync/internal/apperr"
	"github.com/redmaple/streamsync/internal/content"
	"github.com/redmaple/streamsync/internal/feed"
	"github.com/redmaple/streamsync/internal/importer"
	"github.com/redmaple/streamsync/internal/staging"
	"github.com/redmaple/streamsync/internal/testutil"
)

type stubQueue struct {
	items []feed.QueueItemRef
}

func (q *stubQueue) List(context.Context, int, int) ([]feed.QueueItemRef, int, error) {
	return q.items, len(q.items), nil
}

func (q *stubQueue) Fetch(context.Context, string) (*feed.FetchedDocument, error) {
	return nil, apperr.ErrNotFound
}

func (q *stubQueue) Delete(context.Context, string) error { return nil }

type stubStager struct {
	docs []staging.Doc
}

func (s *stubStager) ListUnimported() ([]staging.Doc, error) { return s.docs, nil }

func testServer(t *testing.T, runner RunnerFunc) (*Server, *content.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	if runner == nil {
		runner = func(context.Context, bool) (*importer.Outcome, error) {
			return &importer.Outcome{}, nil
		}
	}
	queue := &stubQueue{items: []feed.QueueItemRef{{UID: "a-1", Title: "One"}}}
	stager := &stubStager{docs: []staging.Doc{{UID: "a-1", Path: "/tmp/a-1.xml"}}}
	return New(runner, queue, stager, db), db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error
	switch name {
	case "run_import":
		result, err = srv.runImport(ctx, req)
	case "queue_status":
		result, err = srv.queueStatus(ctx, req)
	case "list_staged":
		result, err = srv.listStaged(ctx, req)
	case "list_records":
		result, err = srv.listRecords(ctx, req)
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

func TestRunImportTool(t *testing.T) {
	var gotDelete bool
	runner := func(_ context.Context, deleteAfterDownload bool) (*importer.Outcome, error) {
		gotDelete = deleteAfterDownload
		return &importer.Outcome{Downloaded: 2, Imported: 2}, nil
	}
	srv, _ := testServer(t, runner)

	r := callTool(t, srv, "run_import", map[string]interface{}{"delete_after_download": true})
	if r.IsError {
		t.Fatalf("result = %q", resultText(r))
	}
	if !gotDelete {
		t.Error("delete_after_download not passed through")
	}
	if !strings.Contains(resultText(r), `"imported": 2`) {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestRunImportDefaultKeepsQueue(t *testing.T) {
	gotDelete := true
	runner := func(_ context.Context, deleteAfterDownload bool) (*importer.Outcome, error) {
		gotDelete = deleteAfterDownload
		return &importer.Outcome{}, nil
	}
	srv, _ := testServer(t, runner)

	callTool(t, srv, "run_import", map[string]interface{}{})
	if gotDelete {
		t.Error("default must not delete remote items")
	}
}

func TestRunImportBusy(t *testing.T) {
	runner := func(context.Context, bool) (*importer.Outcome, error) {
		return nil, apperr.ErrCycleActive
	}
	srv, _ := testServer(t, runner)

	r := callTool(t, srv, "run_import", map[string]interface{}{})
	if !r.IsError {
		t.Fatal("expected error result while a cycle is running")
	}
	if !strings.Contains(resultText(r), "already running") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestQueueStatusTool(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "queue_status", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"total_in_queue": 1`) || !strings.Contains(text, "a-1") {
		t.Errorf("result = %q", text)
	}
}

func TestListStagedTool(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "list_staged", map[string]interface{}{})
	if !strings.Contains(resultText(r), "a-1") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestListStagedEmpty(t *testing.T) {
	srv, _ := testServer(t, nil)
	srv.stager = &stubStager{}
	r := callTool(t, srv, "list_staged", map[string]interface{}{})
	if resultText(r) != "no staged documents" {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestListRecordsTool(t *testing.T) {
	srv, db := testServer(t, nil)
	if _, err := db.Create(&content.Record{Title: "Imported Item", Status: content.StatusDraft}); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "list_records", map[string]interface{}{"limit": 5})
	text := resultText(r)
	if !strings.Contains(text, "Imported Item") || !strings.Contains(text, `"total": 1`) {
		t.Errorf("result = %q", text)
	}
}
