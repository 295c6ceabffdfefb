// Package extract pulls document metadata (title, authors, summary, tags)
// out of note content with an LLM backend. Extraction is optional
// everywhere it is used, so all call failures degrade to empty metadata.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/llm"
)

// Metadata is the ephemeral extraction result; it is only ever merged into
// frontmatter, never persisted on its own.
type Metadata struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// IsZero reports whether nothing was extracted.
func (m Metadata) IsZero() bool {
	return m.Title == "" && m.Summary == "" && len(m.Authors) == 0 && len(m.Tags) == 0
}

const extractionPrompt = `Analyze the following document and extract metadata.
Return a JSON object with these fields:
- title: The document's title (string)
- authors: List of author names if present (array of strings, empty if none found)
- summary: A brief 1-2 sentence summary of the content (string)
- tags: 3-5 relevant topic tags/keywords (array of strings)

Only return valid JSON, no other text.

Document:
%s`

// Extractor is the metadata-extraction capability. Implementations absorb
// transport and data errors: a failed extraction returns empty Metadata.
type Extractor interface {
	Extract(ctx context.Context, content string) Metadata
}

// Options selects and configures an extractor backend.
type Options struct {
	Backend string

	OllamaHost          string
	OllamaModel         string
	OllamaNumCtx        int
	OllamaMaxContentLen int

	ClaudeModel     string
	AnthropicAPIKey string

	GeminiModel  string
	GoogleAPIKey string

	APIMaxContentLen int
}

// New builds the configured extractor. Unlike the chat factory, an unknown
// or "none" backend is not fatal — extraction is optional, so it degrades
// to a no-op. A known cloud backend with a missing credential still fails:
// that is a configuration mistake, not a request to disable extraction.
func New(opts Options) (Extractor, error) {
	switch strings.ToLower(opts.Backend) {
	case "ollama":
		return newOllamaExtractor(opts), nil
	case "claude":
		client, err := llm.NewClaude(opts.AnthropicAPIKey, opts.ClaudeModel)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		return &llmExtractor{backend: "claude", client: client, maxLen: opts.APIMaxContentLen}, nil
	case "gemini":
		client, err := llm.NewGemini(opts.GoogleAPIKey, opts.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		return &llmExtractor{backend: "gemini", client: client, maxLen: opts.APIMaxContentLen}, nil
	default:
		return NoOp{}, nil
	}
}

// NoOp returns empty metadata; used when extraction is disabled.
type NoOp struct{}

// Extract implements Extractor.
func (NoOp) Extract(context.Context, string) Metadata { return Metadata{} }

// normalizeTags lowercases and kebab-cases extracted tags so they match the
// vault's tag convention.
func normalizeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		t = strings.ToLower(t)
		t = strings.ReplaceAll(t, " ", "-")
		t = strings.ReplaceAll(t, "_", "-")
		out = append(out, t)
	}
	return out
}

// truncate bounds content length so extraction stays inside the backend's
// context window.
func truncate(content string, maxLen int) string {
	if maxLen > 0 && len(content) > maxLen {
		return content[:maxLen]
	}
	return content
}
