// Package ragserver exposes the vault as retrieval tools over the Model
// Context Protocol, using stdio transport.
package ragserver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/embed"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/vault"
)

const defaultSearchLimit = 5

// Server wraps the MCP server with the vault retrieval tools. The index may
// be nil when no database has been built yet; tools then answer with an
// explanation instead of failing the transport.
type Server struct {
	mcp      *server.MCPServer
	vault    vault.Provider
	index    store.Index
	embedder embed.Embedder
}

// New creates an MCP server with the retrieval tools registered.
func New(v vault.Provider, idx store.Index, emb embed.Embedder) *Server {
	s := &Server{vault: v, index: idx, embedder: emb}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search through vault notes using vector similarity. "+
			"Use this to find relevant context, memories, or technical details."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_full_note",
		mcp.WithDescription("Read the entire content of a specific markdown note. "+
			"Use this when a search result snippet isn't enough and you need the full context."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Filename of the note (e.g. note.md)")),
	), s.readFullNote)

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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.index == nil {
		return mcp.NewToolResultText("The note index has not been built yet. Run the index command first."), nil
	}

	limit := req.GetInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	vector, err := s.embedder.EmbedForQuery(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("embedding failed: %v", err)), nil
	}

	hits, err := s.index.Search(vector, limit, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("No matching notes found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant notes for '%s':\n\n", len(hits), query)
	for _, h := range hits {
		fmt.Fprintf(&b, "--- NOTE: %s (%s) ---\n", h.Title, h.CreatedDate)
		fmt.Fprintf(&b, "Type: %s\n", h.NoteType)
		fmt.Fprintf(&b, "File: %s\n", h.Filename)
		fmt.Fprintf(&b, "Content Match:\n%s\n\n", h.Content)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readFullNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.index == nil {
		return mcp.NewToolResultText("The note index has not been built yet. Run the index command first."), nil
	}

	// Base name only; the index maps it back to its vault path.
	clean := filepath.Base(filename)

	chunk, err := s.index.LookupByFilename(clean)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: file '%s' not found in the index.", clean)), nil
	}

	data, err := s.vault.Read(chunk.RelativePath)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error reading file: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
