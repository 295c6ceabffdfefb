package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/starford/ansuz/internal/frontmatter"
)

// ExtractFile runs metadata extraction over a single markdown file.
//
// With update false the file is left untouched and the result is only
// returned for display. With update true the frontmatter block is rewritten
// in place: extracted fields fill gaps, existing id and extra keys survive,
// and a missing id gets a fresh one. activate forces status to active,
// otherwise the current status (or pending) is kept.
func ExtractFile(ctx context.Context, ex Extractor, path string, update, activate bool) (Metadata, error) {
	if !strings.HasSuffix(path, ".md") {
		return Metadata{}, fmt.Errorf("extract: not a markdown file: %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("extract: read %s: %w", path, err)
	}

	fm, body := frontmatter.Parse(string(raw))
	meta := ex.Extract(ctx, body)

	if !update {
		return meta, nil
	}

	merged := mergeMetadata(fm, meta, filepath.Base(path), activate)
	out := frontmatter.Compose(frontmatter.Render(merged), body)
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return meta, fmt.Errorf("extract: write %s: %w", path, err)
	}
	return meta, nil
}

// mergeMetadata folds extracted fields into an existing frontmatter block.
// Existing values win over extracted ones; only the status transition is
// caller-controlled.
func mergeMetadata(fm frontmatter.Frontmatter, meta Metadata, filename string, activate bool) frontmatter.Frontmatter {
	if fm.ID == "" {
		fm.ID = uuid.NewString()
	}
	if fm.Title == "" {
		if meta.Title != "" {
			fm.Title = meta.Title
		} else {
			fm.Title = strings.TrimSuffix(filename, ".md")
		}
	}
	if len(fm.Authors) == 0 {
		fm.Authors = meta.Authors
	}
	if fm.Summary == "" {
		fm.Summary = meta.Summary
	}
	if len(fm.Tags) == 0 {
		fm.Tags = meta.Tags
	}
	if fm.Type == "" {
		fm.Type = "general"
	}
	if fm.Created == "" {
		fm.Created = time.Now().Format("2006-01-02")
	}
	switch {
	case activate:
		fm.Status = frontmatter.StatusActive
	case fm.Status == "":
		fm.Status = frontmatter.StatusPending
	}
	return fm
}
