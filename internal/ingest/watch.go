package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the vault root and re-ingests files
// as they change, until ctx is cancelled. Deletes and renames drop the
// path's chunks from the index.
//
// The pipeline's own repair write-backs also surface as write events; a
// per-path checksum memo keeps those (and editor double-saves) from
// triggering a second embed pass for identical content.
func (p *Pipeline) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, p.vault.Root()); err != nil {
		return err
	}

	slog.Info("watcher started", slog.String("root", p.vault.Root()))

	seen := make(map[string]string) // rel path -> checksum of last processed content

	process := func(rel string) {
		meta, err := p.vault.Stat(rel)
		if err != nil {
			slog.Warn("watcher stat failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		if seen[rel] == meta.Checksum {
			return
		}
		status := p.ProcessFile(ctx, rel)
		if status == StatusFailed {
			return
		}
		// Re-stat: repair may have rewritten the file.
		if after, err := p.vault.Stat(rel); err == nil {
			seen[rel] = after.Checksum
		}
		slog.Debug("watcher indexed", slog.String("path", rel))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			// New directories join the watch list; any notes already
			// inside them get indexed.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if strings.HasPrefix(filepath.Base(absPath), ".") {
						continue
					}
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						slog.Warn("watcher add dir failed", slog.String("path", absPath), slog.String("error", addErr.Error()))
						continue
					}
					p.ingestDir(ctx, absPath, process)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(p.vault.Root(), absPath)
			if relErr != nil {
				continue
			}
			if isHidden(rel) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				process(rel)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the old path; the new path
				// arrives as a separate Create event.
				delete(seen, rel)
				if delErr := p.index.UpsertForPath(rel, nil); delErr != nil {
					slog.Warn("watcher delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					slog.Debug("watcher removed", slog.String("path", rel))
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// ingestDir indexes any .md files found in a newly created directory.
func (p *Pipeline) ingestDir(ctx context.Context, dirPath string, process func(rel string)) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		if rel, relErr := filepath.Rel(p.vault.Root(), path); relErr == nil && !isHidden(rel) {
			process(rel)
		}
		return nil
	})
}

// isHidden reports whether any path element is dot-prefixed.
func isHidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
