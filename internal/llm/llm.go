// Package llm provides a uniform chat interface over the supported LLM
// backends (local Ollama daemon, Anthropic, Google).
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/ansuz/internal/apperr"
)

// Message roles. History only ever holds user and assistant turns; system
// prompts travel separately and are spliced in per backend wire format.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the chat capability shared by all backends.
type Client interface {
	// Chat sends the message list with an optional system prompt (empty
	// string for none) and returns the assistant response text.
	Chat(ctx context.Context, messages []Message, systemPrompt string) (string, error)
}

// Streamer is implemented by backends that can deliver the response
// incrementally. Fragments are pushed to onDelta in order; returning
// ErrStopStream from the callback ends the stream cleanly.
type Streamer interface {
	ChatStream(ctx context.Context, messages []Message, systemPrompt string, onDelta func(string) error) error
}

// ErrStopStream signals early consumer termination of a stream. It is not an
// error condition: ChatStream returns nil after closing the connection.
var ErrStopStream = errors.New("llm: stop stream")

// Options selects and configures a backend.
type Options struct {
	Backend string // "ollama", "claude", or "gemini"

	OllamaHost  string
	OllamaModel string

	ClaudeModel     string
	AnthropicAPIKey string

	GeminiModel  string
	GoogleAPIKey string
}

// New builds the configured chat client. An unknown backend is fatal here:
// chat cannot proceed without a model. Cloud backends fail fast when their
// credential is absent.
func New(opts Options) (Client, error) {
	switch opts.Backend {
	case "ollama":
		return NewOllama(opts.OllamaHost, opts.OllamaModel), nil
	case "claude":
		return NewClaude(opts.AnthropicAPIKey, opts.ClaudeModel)
	case "gemini":
		return NewGemini(opts.GoogleAPIKey, opts.GeminiModel)
	default:
		return nil, fmt.Errorf("llm: chat backend %q: %w (use ollama, claude, or gemini)",
			opts.Backend, apperr.ErrUnknownBackend)
	}
}

// callFailed wraps any transport, status, or payload failure into the one
// uniform error shape this layer surfaces. No retries happen here.
func callFailed(backend string, err error) error {
	return fmt.Errorf("llm: %s chat failed: %w", backend, err)
}
