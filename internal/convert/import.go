package convert

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/starford/ansuz/internal/extract"
	"github.com/starford/ansuz/internal/frontmatter"
)

// Importer converts documents and files them into the vault as frontmatter
// notes. A nil extractor (or extract=false per call) leaves imported notes
// in pending status for later triage.
type Importer struct {
	extractor extract.Extractor
	outputDir string
}

// NewImporter returns an Importer writing converted notes into outputDir.
func NewImporter(ex extract.Extractor, outputDir string) *Importer {
	if ex == nil {
		ex = extract.NoOp{}
	}
	return &Importer{extractor: ex, outputDir: outputDir}
}

// ImportFile converts a single document into a markdown note and saves it.
// With runExtract true, metadata extraction fills in authors, summary and
// tags, and the note starts out active instead of pending.
func (im *Importer) ImportFile(ctx context.Context, source string, runExtract bool) (string, error) {
	slog.Info("importing document", slog.String("source", source))

	markdown, err := ToMarkdown(source)
	if err != nil {
		return "", err
	}

	tags := []string{"imported-doc"}
	if strings.EqualFold(filepath.Ext(source), ".pdf") {
		tags = append(tags, "document")
	}

	var authors []string
	var summary string
	status := frontmatter.StatusPending

	if runExtract {
		meta := im.extractor.Extract(ctx, markdown)
		if len(meta.Authors) > 0 {
			authors = meta.Authors
		}
		if meta.Summary != "" {
			summary = meta.Summary
		}
		if len(meta.Tags) > 0 {
			tags = mergeTags(tags, meta.Tags)
		}
		if !meta.IsZero() {
			status = frontmatter.StatusActive
		}
	}

	block, title := frontmatter.Generate("", source, "resource", status, tags, authors, summary)
	content := frontmatter.Compose(block, markdown)

	if err := os.MkdirAll(im.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("convert: create output dir: %w", err)
	}
	outPath := filepath.Join(im.outputDir, sanitizeFilename(title)+".md")
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("convert: write %s: %w", outPath, err)
	}

	slog.Info("document imported", slog.String("path", outPath))
	return outPath, nil
}

// ImportDir converts every supported document under inputDir. Failures are
// logged per file and do not stop the run. Returns how many files were
// imported out of how many were found.
func (im *Importer) ImportDir(ctx context.Context, inputDir string, runExtract bool) (imported, found int, err error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return 0, 0, fmt.Errorf("convert: input dir: %w", err)
	}
	if !info.IsDir() {
		return 0, 0, fmt.Errorf("convert: %s is not a directory", inputDir)
	}

	var files []string
	walkErr := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if SupportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return 0, 0, fmt.Errorf("convert: scan %s: %w", inputDir, walkErr)
	}
	sort.Strings(files)

	if len(files) == 0 {
		slog.Warn("no supported files found", slog.String("dir", inputDir))
		return 0, 0, nil
	}
	slog.Info("importing documents", slog.Int("count", len(files)))

	for _, f := range files {
		if _, impErr := im.ImportFile(ctx, f, runExtract); impErr != nil {
			slog.Error("import failed", slog.String("source", f), slog.String("error", impErr.Error()))
			continue
		}
		imported++
	}
	return imported, len(files), nil
}

// sanitizeFilename strips characters that are unsafe in note filenames,
// keeping letters, digits, spaces, dots, underscores and hyphens.
func sanitizeFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" ._-", r) {
			b.WriteRune(r)
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		return "untitled-import"
	}
	return name
}

// mergeTags unions two tag lists, keeping first-seen order.
func mergeTags(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	var out []string
	for _, t := range append(append([]string{}, base...), extra...) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
