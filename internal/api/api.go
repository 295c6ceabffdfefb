// Package api implements the HTTP retrieval API using chi. It mirrors the
// MCP tools for clients that speak plain HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/embed"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/vault"
)

const defaultSearchLimit = 5

// Handler holds API route handlers.
type Handler struct {
	vault    vault.Provider
	index    store.Index
	embedder embed.Embedder
}

// NewHandler creates a new Handler. index may be nil when no database has
// been built yet; endpoints then answer 503.
func NewHandler(v vault.Provider, idx store.Index, emb embed.Embedder) *Handler {
	return &Handler{vault: v, index: idx, embedder: emb}
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Get("/notes/{filename}", h.GetNote)
	})

	return r
}

// SearchResult is one hit in a search response.
type SearchResult struct {
	Title       string  `json:"title"`
	Filename    string  `json:"filename"`
	Path        string  `json:"path"`
	NoteType    string  `json:"note_type"`
	CreatedDate string  `json:"created_date"`
	Content     string  `json:"content"`
	Score       float64 `json:"score"`
}

// Search handles GET /api/search?q=...&limit=N.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	if h.index == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index not built yet"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	vector, err := h.embedder.EmbedForQuery(r.Context(), query)
	if err != nil {
		slog.Error("query embedding failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("embedding failed"))
		return
	}

	hits, err := h.index.Search(vector, limit, nil)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, SearchResult{
			Title:       hit.Title,
			Filename:    hit.Filename,
			Path:        hit.RelativePath,
			NoteType:    hit.NoteType,
			CreatedDate: hit.CreatedDate,
			Content:     hit.Content,
			Score:       hit.Score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": results,
	})
}

// GetNote handles GET /api/notes/{filename}. The filename is reduced to its
// base name and resolved through the index to its vault path.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(chi.URLParam(r, "filename"))
	if filename == "" || filename == "." {
		writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
		return
	}
	if h.index == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("index not built yet"))
		return
	}

	chunk, err := h.index.LookupByFilename(filename)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("note lookup failed", slog.String("filename", filename), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	data, err := h.vault.Read(chunk.RelativePath)
	if err != nil {
		slog.Error("note read failed", slog.String("path", chunk.RelativePath), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": filename,
		"path":     chunk.RelativePath,
		"content":  string(data),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
