// Package embed wraps the sentence-embedding model behind the asymmetric
// prefixing protocol.
//
// The model in use (nomic-embed-text) maps queries and documents into a
// jointly comparable space only when each side carries its literal prefix:
// "search_document: " at indexing time and "search_query: " at query time.
// Swapping or omitting the prefixes degrades relevance silently, so the raw
// encode path is unexported and only reachable through EmbedForIndexing and
// EmbedForQuery.
package embed

import (
	"context"
	"log/slog"
	"sync"
)

const (
	documentPrefix = "search_document: "
	queryPrefix    = "search_query: "
)

// Embedder is the capability consumed by ingestion, chat, and the retrieval
// server.
type Embedder interface {
	// EmbedForIndexing encodes document-side texts in one batched call.
	EmbedForIndexing(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedForQuery encodes a single query-side text.
	EmbedForQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider implements Embedder over an encoding backend constructed lazily
// on first use and reused for the lifetime of the process.
type Provider struct {
	model string

	once    sync.Once
	enc     func(ctx context.Context, texts []string) ([][]float32, error)
	initErr error

	// newEncoder builds the backend; swapped in tests.
	newEncoder func() (func(ctx context.Context, texts []string) ([][]float32, error), error)
}

// NewProvider returns a Provider backed by the Ollama embeddings API at
// host. Nothing is dialed until the first embed call.
func NewProvider(host, model string) *Provider {
	p := &Provider{model: model}
	p.newEncoder = func() (func(ctx context.Context, texts []string) ([][]float32, error), error) {
		c := newOllamaEncoder(host, model)
		return c.encode, nil
	}
	return p
}

func (p *Provider) init() error {
	p.once.Do(func() {
		slog.Info("loading embedding backend", slog.String("model", p.model))
		p.enc, p.initErr = p.newEncoder()
	})
	return p.initErr
}

// EmbedForIndexing encodes texts for storage. Every text is submitted to the
// model with the document prefix; returned vectors align positionally with
// the input.
func (p *Provider) EmbedForIndexing(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.init(); err != nil {
		return nil, err
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = documentPrefix + t
	}
	return p.enc(ctx, prefixed)
}

// EmbedForQuery encodes one query text with the query prefix.
func (p *Provider) EmbedForQuery(ctx context.Context, text string) ([]float32, error) {
	if err := p.init(); err != nil {
		return nil, err
	}
	vecs, err := p.enc(ctx, []string{queryPrefix + text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, errEmptyResponse
	}
	return vecs[0], nil
}

// Verify *Provider satisfies Embedder at compile time.
var _ Embedder = (*Provider)(nil)
