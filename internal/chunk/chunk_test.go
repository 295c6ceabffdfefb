package chunk

import (
	"strings"
	"testing"
)

func TestSplitEmptyInput(t *testing.T) {
	s := NewSplitter(100, 10)
	if got := s.Split(""); got != nil {
		t.Errorf("expected no chunks, got %d", len(got))
	}
	if got := s.Split("   \n\n  "); got != nil {
		t.Errorf("expected no chunks for blank input, got %d", len(got))
	}
}

func TestSplitSmallDocumentSingleChunk(t *testing.T) {
	s := NewSplitter(2000, 200)
	body := "Just a short note with no headers."
	chunks := s.Split(body)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != body {
		t.Errorf("chunk text = %q, want %q", chunks[0].Text, body)
	}
	if chunks[0].HeaderPath != "" {
		t.Errorf("header path = %q, want empty", chunks[0].HeaderPath)
	}
}

func TestSplitHeaderLineage(t *testing.T) {
	s := NewSplitter(2000, 200)
	md := "# Projects\n\nintro text\n\n## Gardening\n\nplant tomatoes\n"
	chunks := s.Split(md)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].HeaderPath != "Projects" {
		t.Errorf("first header path = %q", chunks[0].HeaderPath)
	}
	if chunks[1].HeaderPath != "Projects > Gardening" {
		t.Errorf("second header path = %q", chunks[1].HeaderPath)
	}
	if !strings.HasPrefix(chunks[1].Text, "Projects > Gardening\n") {
		t.Errorf("chunk text should start with header path, got %q", chunks[1].Text)
	}
	if !strings.Contains(chunks[1].Text, "plant tomatoes") {
		t.Errorf("chunk text missing body, got %q", chunks[1].Text)
	}
}

func TestSplitSiblingHeaderReplacesLevel(t *testing.T) {
	s := NewSplitter(2000, 200)
	md := "# Top\n\n## First\n\naaa\n\n## Second\n\nbbb\n"
	chunks := s.Split(md)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].HeaderPath != "Top > Second" {
		t.Errorf("sibling header path = %q, want %q", chunks[1].HeaderPath, "Top > Second")
	}
}

func TestSplitDeeperHeadingClearsLowerLevels(t *testing.T) {
	s := NewSplitter(2000, 200)
	md := "# A\n\n## B\n\n### C\n\ndeep\n\n## D\n\nshallow\n"
	chunks := s.Split(md)
	var paths []string
	for _, c := range chunks {
		paths = append(paths, c.HeaderPath)
	}
	want := []string{"A > B > C", "A > D"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestSplitCodeFenceIsOpaque(t *testing.T) {
	s := NewSplitter(2000, 200)
	md := "# Notes\n\n```\n# not a header\n## also not\n```\n\ntail\n"
	chunks := s.Split(md)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "# not a header") {
		t.Errorf("fenced content should be preserved verbatim: %q", chunks[0].Text)
	}
}

func TestSplitHeadersAboveLevelThreeIgnored(t *testing.T) {
	s := NewSplitter(2000, 200)
	md := "# A\n\n#### too deep\n\nbody\n"
	chunks := s.Split(md)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].HeaderPath != "A" {
		t.Errorf("header path = %q, want %q", chunks[0].HeaderPath, "A")
	}
	if !strings.Contains(chunks[0].Text, "#### too deep") {
		t.Errorf("level-4 heading should stay in the body: %q", chunks[0].Text)
	}
}

func TestSplitLongSectionProducesOverlap(t *testing.T) {
	s := NewSplitter(100, 20)
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("sentence number here ")
	}
	chunks := s.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) > 100 {
			t.Errorf("chunk %d exceeds size: %d chars", i, len(c.Text))
		}
	}
	// Consecutive chunks share trailing/leading text.
	first := chunks[0].Text
	second := chunks[1].Text
	tail := first[len(first)-10:]
	if !strings.Contains(second, strings.TrimSpace(tail)) {
		t.Errorf("no overlap between %q and %q", first, second)
	}
}

func TestSplitHardCutWithoutSeparators(t *testing.T) {
	s := NewSplitter(50, 10)
	chunks := s.Split(strings.Repeat("x", 200))
	if len(chunks) < 4 {
		t.Fatalf("expected at least 4 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) > 50 {
			t.Errorf("chunk %d exceeds size: %d", i, len(c.Text))
		}
	}
}

func TestNewSplitterDefaults(t *testing.T) {
	s := NewSplitter(0, 0)
	if s.Size != 2000 {
		t.Errorf("default size = %d", s.Size)
	}
	s = NewSplitter(100, 100)
	if s.Overlap >= s.Size {
		t.Errorf("overlap %d should be clamped below size %d", s.Overlap, s.Size)
	}
}
