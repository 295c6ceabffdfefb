// Package testutil provides shared test helpers for setting up vaults,
// databases and stub model clients.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/vault"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a vault.Provider.
func TestVault(t *testing.T) (string, vault.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	v, err := vault.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, v
}

// WriteNote writes a note file directly into the vault directory.
func WriteNote(t *testing.T, vaultDir, relPath, content string) {
	t.Helper()
	full := filepath.Join(vaultDir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// StubEmbedder returns fixed-size vectors and records every text it was
// asked to embed. Safe for concurrent use.
type StubEmbedder struct {
	Dim int

	mu           sync.Mutex
	IndexedTexts []string
	Queries      []string
}

// EmbedForIndexing records the batch and returns one constant vector per text.
func (s *StubEmbedder) EmbedForIndexing(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	s.IndexedTexts = append(s.IndexedTexts, texts...)
	s.mu.Unlock()
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector()
	}
	return out, nil
}

// EmbedForQuery records the query and returns a constant vector.
func (s *StubEmbedder) EmbedForQuery(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.Queries = append(s.Queries, text)
	s.mu.Unlock()
	return s.vector(), nil
}

// IndexedCount returns how many document texts have been embedded so far.
func (s *StubEmbedder) IndexedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.IndexedTexts)
}

func (s *StubEmbedder) vector() []float32 {
	dim := s.Dim
	if dim == 0 {
		dim = 4
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = 1
	}
	return v
}

// StubLLM answers every chat call with a fixed reply and records the
// messages it saw.
type StubLLM struct {
	Reply string
	Calls [][]llm.Message
	Err   error
}

// Chat records the call and returns the configured reply.
func (s *StubLLM) Chat(_ context.Context, messages []llm.Message, _ string) (string, error) {
	s.Calls = append(s.Calls, messages)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}
