// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the ingestion pipeline for LLM integration via stdio transport:
// trigger an import cycle, inspect the remote queue, and browse imported
// records and staged documents.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/redmaple/streamsync/internal/apperr"
	"github.com/redmaple/streamsync/internal/content"
	"github.com/redmaple/streamsync/internal/feed"
	"github.com/redmaple/streamsync/internal/importer"
	"github.com/redmaple/streamsync/internal/staging"
)

// RunnerFunc triggers one import cycle.
type RunnerFunc func(ctx context.Context, deleteAfterDownload bool) (*importer.Outcome, error)

// Stager is the staging-store slice the tools read.
type Stager interface {
	ListUnimported() ([]staging.Doc, error)
}

// Server wraps the MCP server with streamsync tools.
type Server struct {
	mcp     *server.MCPServer
	runner  RunnerFunc
	queue   feed.Queue
	stager  Stager
	records content.Store
}

// New creates a new MCP server with all streamsync tools registered.
func New(runner RunnerFunc, queue feed.Queue, stager Stager, records content.Store) *Server {
	s := &Server{runner: runner, queue: queue, stager: stager, records: records}

	s.mcp = server.NewMCPServer(
		"Streamsync",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("run_import",
		mcp.WithDescription("Run one full import cycle: download pending feed items into staging, "+
			"then parse, deduplicate, and publish every staged document. Returns the cycle outcome."),
		mcp.WithBoolean("delete_after_download",
			mcp.Description("Acknowledge downloaded items on the remote queue (default false)")),
	), s.runImport)

	s.mcp.AddTool(mcp.NewTool("queue_status",
		mcp.WithDescription("Show the head of the remote feed queue and the total number of items waiting."),
	), s.queueStatus)

	s.mcp.AddTool(mcp.NewTool("list_staged",
		mcp.WithDescription("List downloaded documents that have not been imported yet."),
	), s.listStaged)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List imported content records, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of records to return (default 20)")),
	), s.listRecords)

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

func (s *Server) runImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deleteAfter := req.GetBool("delete_after_download", false)

	out, err := s.runner(ctx, deleteAfter)
	if err != nil {
		if errors.Is(err, apperr.ErrCycleActive) {
			return mcp.NewToolResultError("an import cycle is already running"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) queueStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.queue.List(ctx, 10, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _ := json.MarshalIndent(map[string]any{
		"items":          items,
		"total_in_queue": total,
	}, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listStaged(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.stager.ListUnimported()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("no staged documents"), nil
	}
	data, _ := json.MarshalIndent(docs, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listRecords(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	records, total, err := s.records.List(limit, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _ := json.MarshalIndent(map[string]any{
		"records": records,
		"total":   total,
	}, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}
