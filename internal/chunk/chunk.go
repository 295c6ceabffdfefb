// Package chunk splits markdown documents into retrieval-sized passages
// while preserving the enclosing header context.
package chunk

import (
	"regexp"
	"strings"
)

var headingRe = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)

// Chunk is one retrieval passage of a document.
type Chunk struct {
	// Text is the display/embedding text: "headerPath\nbody", trimmed.
	Text string
	// HeaderPath is the enclosing heading lineage, e.g. "Intro > Background".
	HeaderPath string
}

// Splitter produces chunks with a target size and overlap (both in bytes of
// UTF-8 text, matching how sizes are configured).
type Splitter struct {
	Size    int
	Overlap int
}

// NewSplitter returns a Splitter with sane fallbacks for non-positive values.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 2000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 10
	}
	return &Splitter{Size: size, Overlap: overlap}
}

// Split chunks a markdown document. Sections are delimited by level 1-3
// headings (fenced code blocks are opaque); any section at or above the
// chunk size is further divided by a recursive character split that keeps
// the section's header path on every piece. Empty or whitespace-only input
// yields no chunks.
func (s *Splitter) Split(markdown string) []Chunk {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}

	var out []Chunk
	for _, sec := range splitSections(markdown) {
		body := strings.TrimSpace(sec.body)
		if body == "" && sec.headerPath == "" {
			continue
		}
		if len(body) < s.Size {
			if text := joinHeader(sec.headerPath, body); text != "" {
				out = append(out, Chunk{Text: text, HeaderPath: sec.headerPath})
			}
			continue
		}
		for _, piece := range s.splitText(body, []string{"\n\n", "\n", " ", ""}) {
			if text := joinHeader(sec.headerPath, piece); text != "" {
				out = append(out, Chunk{Text: text, HeaderPath: sec.headerPath})
			}
		}
	}
	return out
}

func joinHeader(headerPath, body string) string {
	return strings.TrimSpace(headerPath + "\n" + body)
}

type section struct {
	headerPath string
	body       string
}

// splitSections walks the document line by line, tracking the active heading
// at each of the three levels. A heading at level N clears levels deeper
// than N. Content before the first heading forms a section with an empty
// header path.
func splitSections(markdown string) []section {
	var (
		sections []section
		buf      []string
		headers  [3]string
		inFence  bool
	)

	currentPath := func() string {
		var parts []string
		for _, h := range headers {
			if h != "" {
				parts = append(parts, h)
			}
		}
		return strings.Join(parts, " > ")
	}

	flush := func(path string) {
		body := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if body == "" {
			return
		}
		sections = append(sections, section{headerPath: path, body: body})
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			buf = append(buf, line)
			continue
		}
		if !inFence {
			if m := headingRe.FindStringSubmatch(line); m != nil {
				flush(currentPath())
				level := len(m[1])
				headers[level-1] = strings.TrimSpace(m[2])
				for i := level; i < len(headers); i++ {
					headers[i] = ""
				}
				continue
			}
		}
		buf = append(buf, line)
	}
	flush(currentPath())

	// A document that is nothing but headings still yields its deepest
	// heading as a section so the title line is retrievable.
	if len(sections) == 0 {
		if path := currentPath(); path != "" {
			sections = append(sections, section{headerPath: path})
		}
	}
	return sections
}

// splitText recursively divides text using the first separator present,
// falling back through the list down to a hard character cut.
func (s *Splitter) splitText(text string, separators []string) []string {
	sep := ""
	rest := []string{}
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return s.hardCut(text)
	}

	var final []string
	var pending []string
	flush := func() {
		if len(pending) > 0 {
			final = append(final, s.mergePieces(pending, sep)...)
			pending = nil
		}
	}
	for _, piece := range strings.Split(text, sep) {
		if len(piece) < s.Size {
			pending = append(pending, piece)
			continue
		}
		flush()
		final = append(final, s.splitText(piece, rest)...)
	}
	flush()
	return final
}

// mergePieces greedily packs pieces into windows up to Size, carrying an
// Overlap-sized tail of pieces into the next window.
func (s *Splitter) mergePieces(pieces []string, sep string) []string {
	sepLen := len(sep)
	var docs []string
	var window []string
	total := 0

	emit := func() {
		doc := strings.TrimSpace(strings.Join(window, sep))
		if doc != "" {
			docs = append(docs, doc)
		}
	}

	for _, p := range pieces {
		extra := len(p)
		if len(window) > 0 {
			extra += sepLen
		}
		if total+extra > s.Size && len(window) > 0 {
			emit()
			for total > s.Overlap && len(window) > 0 {
				drop := len(window[0])
				if len(window) > 1 {
					drop += sepLen
				}
				total -= drop
				window = window[1:]
			}
		}
		window = append(window, p)
		total += len(p)
		if len(window) > 1 {
			total += sepLen
		}
	}
	emit()
	return docs
}

// hardCut slices text into Size-byte windows stepping by Size-Overlap,
// against rune boundaries.
func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	step := s.Size - s.Overlap
	if step <= 0 {
		step = s.Size
	}
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.Size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
