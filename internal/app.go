package internal

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/ansuz/internal/chat"
	"github.com/starford/ansuz/internal/chunk"
	"github.com/starford/ansuz/internal/embed"
	"github.com/starford/ansuz/internal/extract"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/vault"
)

// Option is a functional option for configuring the application.
type Option func(*App)

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) {
		a.cfg = cfg
	}
}

// App wires the configured components together. Constructors are cheap;
// nothing talks to the network until a component is actually used.
type App struct {
	cfg *Config
}

// NewApp builds an App from options.
func NewApp(opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return a, nil
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.cfg
}

// SetupLogging installs the global JSON logger at the configured level.
func (a *App) SetupLogging() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: a.cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
}

// Vault returns the filesystem vault provider.
func (a *App) Vault() (vault.Provider, error) {
	if err := os.MkdirAll(a.cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	return vault.NewFS(a.cfg.Vault.Path)
}

// OpenIndex opens the vector database, creating it if needed.
func (a *App) OpenIndex() (*store.DB, error) {
	return store.Open(a.cfg.Store.Path)
}

// OpenIndexIfExists opens the vector database only if it was already
// built. Returns (nil, nil) when it does not exist.
func (a *App) OpenIndexIfExists() (*store.DB, error) {
	return store.OpenExisting(a.cfg.Store.Path)
}

// Embedder returns the asymmetric embedding provider.
func (a *App) Embedder() *embed.Provider {
	return embed.NewProvider(a.cfg.Embedding.OllamaHost, a.cfg.Embedding.Model)
}

// Splitter returns the configured markdown chunker.
func (a *App) Splitter() *chunk.Splitter {
	return chunk.NewSplitter(a.cfg.Embedding.ChunkSize, a.cfg.Embedding.ChunkOverlap)
}

// ChatClient builds the conversational LLM client for the configured
// backend.
func (a *App) ChatClient() (llm.Client, error) {
	return llm.New(llm.Options{
		Backend:         a.cfg.Chat.Backend,
		OllamaHost:      a.cfg.Embedding.OllamaHost,
		OllamaModel:     a.cfg.Chat.OllamaModel,
		ClaudeModel:     a.cfg.Chat.ClaudeModel,
		AnthropicAPIKey: a.cfg.Keys.Anthropic,
		GeminiModel:     a.cfg.Chat.GeminiModel,
		GoogleAPIKey:    a.cfg.Keys.Google,
	})
}

// Extractor builds the metadata extractor for the configured backend.
func (a *App) Extractor() (extract.Extractor, error) {
	return extract.New(extract.Options{
		Backend:             a.cfg.Extractor.Backend,
		OllamaHost:          a.cfg.Embedding.OllamaHost,
		OllamaModel:         a.cfg.Extractor.OllamaModel,
		OllamaNumCtx:        a.cfg.Extractor.OllamaNumCtx,
		OllamaMaxContentLen: a.cfg.Extractor.OllamaMaxContentLen,
		ClaudeModel:         a.cfg.Chat.ClaudeModel,
		AnthropicAPIKey:     a.cfg.Keys.Anthropic,
		GeminiModel:         a.cfg.Chat.GeminiModel,
		GoogleAPIKey:        a.cfg.Keys.Google,
		APIMaxContentLen:    a.cfg.Extractor.APIMaxContentLen,
	})
}

// Pipeline wires the full ingestion pipeline over an open index.
func (a *App) Pipeline(v vault.Provider, idx store.Index, autoRepair, autoExtract bool) (*ingest.Pipeline, error) {
	var ex extract.Extractor
	if autoExtract {
		built, err := a.Extractor()
		if err != nil {
			return nil, err
		}
		ex = built
	}
	return ingest.New(v, idx, a.Embedder(), ex, a.Splitter(), ingest.Config{
		AutoRepair:  autoRepair,
		AutoExtract: autoExtract,
	}), nil
}

// History builds the conversation history per the configured strategy.
// summarizer may be nil, in which case compaction falls back to raw
// transcript summaries.
func (a *App) History(summarizer llm.Client) history.History {
	if a.cfg.Chat.EnableCompaction {
		return history.NewCompacting(a.cfg.Chat.TokenLimit, a.cfg.Chat.RecentTurns, summarizer)
	}
	return history.NewWindow(a.cfg.Chat.MaxTurns)
}

// ChatSession assembles a full RAG chat session. idx may be nil when the
// index has not been built; retrieval is then skipped.
func (a *App) ChatSession(idx store.Index, useRAG bool, contextLimit int) (*chat.Session, error) {
	client, err := a.ChatClient()
	if err != nil {
		return nil, err
	}
	if contextLimit <= 0 {
		contextLimit = a.cfg.Chat.ContextLimit
	}
	hist := a.History(client)
	return chat.NewSession(client, a.Embedder(), idx, hist, useRAG, contextLimit), nil
}
