package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/llm"
)

// llmExtractor drives any chat backend through the extraction prompt and
// parses the JSON it returns.
type llmExtractor struct {
	backend string
	client  llm.Client
	maxLen  int
}

func (e *llmExtractor) Extract(ctx context.Context, content string) Metadata {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(extractionPrompt, truncate(content, e.maxLen))
	raw, err := e.client.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, "")
	if err != nil {
		slog.Warn("metadata extraction failed",
			slog.String("backend", e.backend), slog.String("error", err.Error()))
		return Metadata{}
	}
	return parseMetadata(e.backend, raw)
}

// ollamaExtractor calls the Ollama generate endpoint directly so it can
// request constrained JSON output.
type ollamaExtractor struct {
	host   string
	model  string
	numCtx int
	maxLen int
	client *http.Client
}

func newOllamaExtractor(opts Options) *ollamaExtractor {
	return &ollamaExtractor{
		host:   strings.TrimRight(opts.OllamaHost, "/"),
		model:  opts.OllamaModel,
		numCtx: opts.OllamaNumCtx,
		maxLen: opts.OllamaMaxContentLen,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format"`
	Options map[string]any `json:"options,omitempty"`
}

func (e *ollamaExtractor) Extract(ctx context.Context, content string) Metadata {
	reqBody := ollamaGenerateRequest{
		Model:  e.model,
		Prompt: fmt.Sprintf(extractionPrompt, truncate(content, e.maxLen)),
		Format: "json",
	}
	if e.numCtx > 0 {
		reqBody.Options = map[string]any{"num_ctx": e.numCtx}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		slog.Warn("metadata extraction failed", slog.String("backend", "ollama"), slog.String("error", err.Error()))
		return Metadata{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		slog.Warn("metadata extraction failed", slog.String("backend", "ollama"), slog.String("error", err.Error()))
		return Metadata{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		slog.Warn("metadata extraction failed", slog.String("backend", "ollama"), slog.String("error", err.Error()))
		return Metadata{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("metadata extraction failed",
			slog.String("backend", "ollama"), slog.String("status", resp.Status))
		return Metadata{}
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		slog.Warn("metadata extraction failed", slog.String("backend", "ollama"), slog.String("error", err.Error()))
		return Metadata{}
	}
	return parseMetadata("ollama", out.Response)
}

// parseMetadata decodes the model's JSON, tolerating fenced code blocks.
// Malformed JSON is a data error: logged and treated as no metadata.
func parseMetadata(backend, raw string) Metadata {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var m Metadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &m); err != nil {
		slog.Warn("failed to parse extraction response as JSON",
			slog.String("backend", backend), slog.String("error", err.Error()))
		return Metadata{}
	}
	m.Tags = normalizeTags(m.Tags)
	return m
}
