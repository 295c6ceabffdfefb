// Package ingest walks the vault and indexes markdown notes: frontmatter
// repair, status filtering, chunking, batched embedding, and upsert-by-path
// into the vector store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/chunk"
	"github.com/starford/ansuz/internal/embed"
	"github.com/starford/ansuz/internal/extract"
	"github.com/starford/ansuz/internal/frontmatter"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/vault"
)

// Status is the terminal state of processing one file.
type Status int

const (
	// StatusIndexed means the file was chunked, embedded, and upserted.
	StatusIndexed Status = iota
	// StatusRepaired means missing frontmatter was filled in and written
	// back before indexing.
	StatusRepaired
	// StatusSkipped means the file's status keeps it out of the index.
	StatusSkipped
	// StatusFailed means an error was logged and the file left alone.
	StatusFailed
)

// Config tunes pipeline behavior.
type Config struct {
	// AutoRepair fills in missing required frontmatter fields and writes
	// the repaired block back to the source file.
	AutoRepair bool
	// AutoExtract additionally asks the metadata extractor to supply
	// title/summary/tags/authors during repair.
	AutoExtract bool
}

// Pipeline indexes vault files. Files are processed independently: one bad
// file never aborts a run.
type Pipeline struct {
	vault     vault.Provider
	index     store.Index
	embedder  embed.Embedder
	extractor extract.Extractor
	splitter  *chunk.Splitter
	cfg       Config
}

// New assembles a pipeline.
func New(v vault.Provider, idx store.Index, emb embed.Embedder, ext extract.Extractor, splitter *chunk.Splitter, cfg Config) *Pipeline {
	if ext == nil {
		ext = extract.NoOp{}
	}
	return &Pipeline{vault: v, index: idx, embedder: emb, extractor: ext, splitter: splitter, cfg: cfg}
}

// Run walks the whole vault and processes every markdown file. It returns
// the number of files visited and the number that ended up indexed.
func (p *Pipeline) Run(ctx context.Context) (visited, indexed int, err error) {
	metas, err := p.vault.List("")
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: list vault: %w", err)
	}

	slog.Info("scanning vault", slog.String("root", p.vault.Root()), slog.Int("files", len(metas)))

	for _, m := range metas {
		if ctx.Err() != nil {
			return visited, indexed, ctx.Err()
		}
		visited++
		switch p.ProcessFile(ctx, m.Path) {
		case StatusIndexed, StatusRepaired:
			indexed++
		}
		if visited%10 == 0 {
			slog.Debug("ingest progress", slog.Int("visited", visited))
		}
	}

	slog.Info("ingest done", slog.Int("visited", visited), slog.Int("indexed", indexed))
	return visited, indexed, nil
}

// ProcessFile runs one file through the pipeline state machine.
func (p *Pipeline) ProcessFile(ctx context.Context, relPath string) Status {
	data, err := p.vault.Read(relPath)
	if err != nil {
		slog.Warn("skipping unreadable file", slog.String("path", relPath), slog.String("error", err.Error()))
		return StatusFailed
	}

	fm, body := frontmatter.Parse(string(data))

	repaired := false
	if p.cfg.AutoRepair && !fm.IsComplete() {
		slog.Debug("repairing incomplete frontmatter", slog.String("path", relPath))
		fm = p.repair(ctx, relPath, fm, body)
		content := frontmatter.Compose(frontmatter.Render(fm), body)
		if err := p.vault.Write(relPath, []byte(content)); err != nil {
			slog.Warn("frontmatter write-back failed", slog.String("path", relPath), slog.String("error", err.Error()))
		} else {
			repaired = true
		}
	}

	// A note with no status field at all is indexable; only an explicit
	// non-active status keeps it out.
	status := fm.Status
	if status == "" {
		status = frontmatter.StatusActive
	}
	if status != frontmatter.StatusActive {
		slog.Debug("skipping by status", slog.String("path", relPath), slog.String("status", status))
		return StatusSkipped
	}

	meta, err := p.vault.Stat(relPath)
	if err != nil {
		slog.Warn("stat failed", slog.String("path", relPath), slog.String("error", err.Error()))
		return StatusFailed
	}

	records, err := p.buildRecords(ctx, relPath, fm, body, status, meta.ModTime)
	if err != nil {
		slog.Warn("indexing failed", slog.String("path", relPath), slog.String("error", err.Error()))
		return StatusFailed
	}

	if err := p.index.UpsertForPath(relPath, records); err != nil {
		slog.Warn("upsert failed", slog.String("path", relPath), slog.String("error", err.Error()))
		return StatusFailed
	}

	if repaired {
		return StatusRepaired
	}
	return StatusIndexed
}

// buildRecords chunks the body, embeds all chunk texts in one batched call,
// and assembles the full record set for the path. An empty body yields an
// empty set, which clears the path from the index.
func (p *Pipeline) buildRecords(ctx context.Context, relPath string, fm frontmatter.Frontmatter, body, status string, modTime time.Time) ([]store.NoteChunk, error) {
	chunks := p.splitter.Split(body)
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedForIndexing(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	filename := filepath.Base(relPath)
	title := fm.Title
	if title == "" {
		title = strings.TrimSuffix(filename, ".md")
	}
	noteType := fm.Type
	if noteType == "" {
		noteType = "general"
	}
	created := fm.Created
	if created == "" {
		created = modTime.Format("2006-01-02")
	}

	records := make([]store.NoteChunk, len(chunks))
	for i, c := range chunks {
		records[i] = store.NoteChunk{
			ID:            fmt.Sprintf("%s#%d", relPath, i),
			Filename:      filename,
			RelativePath:  relPath,
			Title:         title,
			Content:       c.Text,
			Vector:        vectors[i],
			NoteType:      noteType,
			CreatedDate:   created,
			Status:        status,
			Tags:          strings.Join(fm.Tags, ","),
			LastModified:  modTime.Unix(),
			SchemaVersion: store.SchemaVersion,
		}
	}
	return records, nil
}

// repair synthesizes missing required frontmatter fields, optionally
// consulting the extractor for richer metadata. Present fields are never
// overwritten.
func (p *Pipeline) repair(ctx context.Context, relPath string, fm frontmatter.Frontmatter, body string) frontmatter.Frontmatter {
	var meta extract.Metadata
	if p.cfg.AutoExtract {
		slog.Info("auto-extracting metadata", slog.String("path", relPath))
		meta = p.extractor.Extract(ctx, body)
	}

	if fm.ID == "" {
		fm.ID = uuid.NewString()
	}
	if fm.Title == "" {
		if meta.Title != "" {
			fm.Title = meta.Title
		} else {
			base := filepath.Base(relPath)
			fm.Title = strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
	if fm.Status == "" {
		fm.Status = frontmatter.StatusActive
	}
	if fm.Created == "" {
		fm.Created = time.Now().Format("2006-01-02")
	}
	if fm.Type == "" {
		fm.Type = "general"
	}
	if fm.Summary == "" && meta.Summary != "" {
		fm.Summary = meta.Summary
	}
	if len(fm.Tags) == 0 && len(meta.Tags) > 0 {
		fm.Tags = meta.Tags
	}
	if len(fm.Authors) == 0 && len(meta.Authors) > 0 {
		fm.Authors = meta.Authors
	}
	return fm
}
