// Package frontmatter parses and writes the YAML metadata block prefixed to
// every vault note.
package frontmatter

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Note statuses.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusDeleted  = "deleted"
)

// Frontmatter is the structured metadata block of a note. Known fields are
// named; anything else a user put in the block survives round-trips in Extra.
type Frontmatter struct {
	ID      string
	Title   string
	Authors []string
	Summary string
	Type    string
	Status  string
	Created string
	Tags    []string
	Source  string
	Extra   map[string]any
}

// IsComplete reports whether all required fields carry non-empty values.
func (f Frontmatter) IsComplete() bool {
	return f.ID != "" && f.Title != "" && f.Status != "" && f.Created != "" && f.Type != ""
}

// IsZero reports whether no field was parsed at all.
func (f Frontmatter) IsZero() bool {
	return f.ID == "" && f.Title == "" && f.Status == "" && f.Created == "" &&
		f.Type == "" && f.Summary == "" && f.Source == "" &&
		len(f.Authors) == 0 && len(f.Tags) == 0 && len(f.Extra) == 0
}

// Parse splits a note into its frontmatter and body. If the text does not
// begin with the delimiter, or the YAML block is malformed, it returns an
// empty Frontmatter and the text unchanged — bad metadata never aborts
// processing.
func Parse(text string) (Frontmatter, string) {
	if !strings.HasPrefix(text, delimiter) {
		return Frontmatter{}, text
	}

	parts := strings.SplitN(text, delimiter, 3)
	if len(parts) < 3 {
		return Frontmatter{}, text
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &raw); err != nil || raw == nil {
		return Frontmatter{}, text
	}

	return fromMap(raw), strings.TrimSpace(parts[2])
}

// fromMap lifts known keys out of a raw YAML mapping and stows the rest in
// Extra.
func fromMap(raw map[string]any) Frontmatter {
	fm := Frontmatter{
		ID:      str(raw["id"]),
		Title:   str(raw["title"]),
		Authors: strList(raw["authors"]),
		Summary: str(raw["summary"]),
		Type:    str(raw["type"]),
		Status:  str(raw["status"]),
		Created: str(raw["created"]),
		Tags:    strList(raw["tags"]),
		Source:  str(raw["source"]),
	}
	known := map[string]struct{}{
		"id": {}, "title": {}, "authors": {}, "summary": {}, "type": {},
		"status": {}, "created": {}, "tags": {}, "source": {},
	}
	for k, v := range raw {
		if _, ok := known[k]; ok {
			continue
		}
		if fm.Extra == nil {
			fm.Extra = make(map[string]any)
		}
		fm.Extra[k] = v
	}
	return fm
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case time.Time:
		// Unquoted dates resolve to timestamps in YAML.
		return s.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func strList(v any) []string {
	switch vv := v.(type) {
	case []any:
		var out []string
		for _, item := range vv {
			if s := strings.TrimSpace(str(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(vv); s != "" {
			return []string{s}
		}
	}
	return nil
}

// generated mirrors the canonical field order of a freshly written block.
type generated struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Authors []string `yaml:"authors"`
	Summary string   `yaml:"summary"`
	Type    string   `yaml:"type"`
	Status  string   `yaml:"status"`
	Created string   `yaml:"created"`
	Tags    []string `yaml:"tags"`
	Source  string   `yaml:"source"`
}

// Generate builds a frontmatter block for a newly created note and returns it
// together with the resolved title. A fresh id is issued every call — this is
// the creation path; use Render to rewrite an existing block without losing
// its identity.
func Generate(title, sourcePath, noteType, status string, tags, authors []string, summary string) (string, string) {
	if title == "" {
		base := filepath.Base(sourcePath)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	fm := Frontmatter{
		ID:      uuid.NewString(),
		Title:   title,
		Authors: authors,
		Summary: summary,
		Type:    noteType,
		Status:  status,
		Created: time.Now().Format("2006-01-02"),
		Tags:    tags,
		Source:  sourcePath,
	}
	return Render(fm), title
}

// Render writes fm back out as a delimited YAML block. Known fields keep a
// fixed order; Extra fields follow sorted by key. The id is preserved as-is
// (callers updating a note in place must carry the original id through).
func Render(fm Frontmatter) string {
	known, err := yaml.Marshal(generated{
		ID:      fm.ID,
		Title:   fm.Title,
		Authors: emptyIfNil(fm.Authors),
		Summary: fm.Summary,
		Type:    fm.Type,
		Status:  fm.Status,
		Created: fm.Created,
		Tags:    emptyIfNil(fm.Tags),
		Source:  fm.Source,
	})
	if err != nil {
		// Marshal of a plain struct cannot realistically fail; keep the
		// note writable regardless.
		known = nil
	}

	var b strings.Builder
	b.WriteString(delimiter + "\n")
	b.Write(known)
	if len(fm.Extra) > 0 {
		keys := make([]string, 0, len(fm.Extra))
		for k := range fm.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			extra, err := yaml.Marshal(map[string]any{k: fm.Extra[k]})
			if err != nil {
				continue
			}
			b.Write(extra)
		}
	}
	b.WriteString(delimiter + "\n\n")
	return b.String()
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Compose joins a frontmatter block and a body into full file content.
func Compose(block, body string) string {
	body = strings.TrimLeft(body, "\n")
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return block + body
}
