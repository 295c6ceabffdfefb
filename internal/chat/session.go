// Package chat orchestrates retrieval-augmented chat turns: vector
// retrieval, history management, and the backend LLM call.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ansuz/internal/embed"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/store"
)

const ragSystemPrompt = `You are a helpful assistant with access to the user's notes vault.
Use the following retrieved context from their notes to answer questions.
If the context doesn't contain relevant information, say so and answer based on general knowledge.

Retrieved Context:
%s

Guidelines:
- Reference specific notes when relevant (mention titles/filenames)
- Be concise but thorough
- Acknowledge when information is not in the vault`

const noContext = "(No relevant context found in vault)"

// Session owns one conversation: a history, a backend client, and the
// retrieval plumbing. Not safe for concurrent use.
type Session struct {
	client   llm.Client
	embedder embed.Embedder
	index    store.Index // nil when the store has never been ingested into
	history  history.History

	useRAG       bool
	contextLimit int
	lastContext  []store.SearchHit
}

// NewSession builds a session. index may be nil; retrieval then always
// yields no context rather than failing the turn.
func NewSession(client llm.Client, embedder embed.Embedder, index store.Index, hist history.History, useRAG bool, contextLimit int) *Session {
	if contextLimit <= 0 {
		contextLimit = 5
	}
	return &Session{
		client:       client,
		embedder:     embedder,
		index:        index,
		history:      hist,
		useRAG:       useRAG,
		contextLimit: contextLimit,
	}
}

// Send runs one turn: retrieve context, call the backend with history plus
// the composed system prompt, and record both sides of the exchange. The
// retrieved chunks are returned so the caller can render provenance without
// re-querying.
func (s *Session) Send(ctx context.Context, userMessage string) (string, []store.SearchHit, error) {
	var systemPrompt string
	var hits []store.SearchHit

	if s.useRAG {
		hits = s.retrieve(ctx, userMessage)
		systemPrompt = fmt.Sprintf(ragSystemPrompt, formatContext(hits))
	}
	s.lastContext = hits

	s.history.Add(llm.RoleUser, userMessage)

	if summary := s.history.Summary(); summary != "" {
		block := "Conversation Summary (earlier context):\n" + summary
		if systemPrompt != "" {
			systemPrompt = systemPrompt + "\n\n" + block
		} else {
			systemPrompt = block
		}
	}

	response, err := s.client.Chat(ctx, s.history.Messages(), systemPrompt)
	if err != nil {
		return "", hits, err
	}

	s.history.Add(llm.RoleAssistant, response)
	return response, hits, nil
}

// retrieve embeds the query and searches the index. Any failure downgrades
// to "no context": a broken retrieval path must not break the conversation.
func (s *Session) retrieve(ctx context.Context, query string) []store.SearchHit {
	if s.index == nil {
		slog.Warn("note index not found, answering without vault context")
		return nil
	}

	vec, err := s.embedder.EmbedForQuery(ctx, query)
	if err != nil {
		slog.Error("query embedding failed", slog.String("error", err.Error()))
		return nil
	}

	hits, err := s.index.Search(vec, s.contextLimit, nil)
	if err != nil {
		slog.Error("vector search failed", slog.String("error", err.Error()))
		return nil
	}
	return hits
}

// LastContext returns the chunks retrieved by the most recent Send.
func (s *Session) LastContext() []store.SearchHit { return s.lastContext }

// Clear resets the conversation.
func (s *Session) Clear() {
	s.history.Clear()
	s.lastContext = nil
}

// formatContext renders retrieved chunks for prompt injection. The block is
// always present when RAG is on so backend behavior stays deterministic.
func formatContext(hits []store.SearchHit) string {
	if len(hits) == 0 {
		return noContext
	}
	var blocks []string
	for i, h := range hits {
		title := h.Title
		if title == "" {
			title = h.Filename
		}
		blocks = append(blocks, fmt.Sprintf("[%d] %s (%s)\n%s", i+1, title, h.RelativePath, h.Content))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// FormatSources renders a short provenance listing for display after a turn.
// Empty when nothing was retrieved.
func FormatSources(hits []store.SearchHit) string {
	if len(hits) == 0 {
		return ""
	}
	var lines []string
	for _, h := range hits {
		title := h.Title
		if title == "" {
			title = h.Filename
		}
		lines = append(lines, "  - "+title)
	}
	return "Retrieved context from:\n" + strings.Join(lines, "\n")
}
