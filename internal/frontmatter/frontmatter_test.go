package frontmatter

import (
	"strings"
	"testing"
)

const sampleNote = `---
id: abc-123
title: Test Note
authors:
  - Ada
summary: a short note
type: general
status: active
created: "2024-01-15"
tags:
  - go
  - notes
source: manual
rating: 5
---

Body text here.
`

func TestParseKnownFields(t *testing.T) {
	fm, body := Parse(sampleNote)
	if fm.ID != "abc-123" {
		t.Errorf("ID = %q", fm.ID)
	}
	if fm.Title != "Test Note" {
		t.Errorf("Title = %q", fm.Title)
	}
	if fm.Status != StatusActive {
		t.Errorf("Status = %q", fm.Status)
	}
	if len(fm.Tags) != 2 || fm.Tags[0] != "go" {
		t.Errorf("Tags = %v", fm.Tags)
	}
	if len(fm.Authors) != 1 || fm.Authors[0] != "Ada" {
		t.Errorf("Authors = %v", fm.Authors)
	}
	if body != "Body text here." {
		t.Errorf("body = %q", body)
	}
}

func TestParseExtraFieldsPreserved(t *testing.T) {
	fm, _ := Parse(sampleNote)
	if fm.Extra["rating"] != 5 {
		t.Errorf("Extra[rating] = %v", fm.Extra["rating"])
	}
}

func TestParseNoFrontmatter(t *testing.T) {
	text := "# Just a note\n\nNo metadata at all.\n"
	fm, body := Parse(text)
	if !fm.IsZero() {
		t.Errorf("expected zero frontmatter, got %+v", fm)
	}
	if body != text {
		t.Errorf("body should be unchanged, got %q", body)
	}
}

func TestParseMalformedYAML(t *testing.T) {
	text := "---\n{unclosed: [\n---\nbody\n"
	fm, body := Parse(text)
	if !fm.IsZero() {
		t.Errorf("expected zero frontmatter for malformed yaml, got %+v", fm)
	}
	if body != text {
		t.Errorf("malformed yaml should leave text unchanged, got %q", body)
	}
}

func TestParseUnterminatedBlock(t *testing.T) {
	text := "---\nid: abc\n"
	fm, body := Parse(text)
	if !fm.IsZero() {
		t.Errorf("expected zero frontmatter, got %+v", fm)
	}
	if body != text {
		t.Errorf("body = %q", body)
	}
}

func TestRoundTripPreservesID(t *testing.T) {
	fm, body := Parse(sampleNote)
	rendered := Compose(Render(fm), body)

	fm2, body2 := Parse(rendered)
	if fm2.ID != "abc-123" {
		t.Errorf("ID not preserved through round trip: %q", fm2.ID)
	}
	if fm2.Title != fm.Title || fm2.Status != fm.Status || fm2.Created != fm.Created {
		t.Errorf("fields drifted: %+v vs %+v", fm2, fm)
	}
	if fm2.Extra["rating"] != 5 {
		t.Errorf("extra field lost in round trip: %v", fm2.Extra)
	}
	if body2 != body {
		t.Errorf("body drifted: %q vs %q", body2, body)
	}
}

func TestGenerateIssuesNewID(t *testing.T) {
	block1, title := Generate("", "/tmp/My Paper.pdf", "resource", StatusPending, nil, nil, "")
	block2, _ := Generate("", "/tmp/My Paper.pdf", "resource", StatusPending, nil, nil, "")

	if title != "My Paper" {
		t.Errorf("derived title = %q", title)
	}
	fm1, _ := Parse(block1 + "x")
	fm2, _ := Parse(block2 + "x")
	if fm1.ID == "" || fm1.ID == fm2.ID {
		t.Errorf("each Generate call must issue a fresh id: %q vs %q", fm1.ID, fm2.ID)
	}
	if fm1.Status != StatusPending {
		t.Errorf("status = %q", fm1.Status)
	}
	if fm1.Created == "" {
		t.Error("created date missing")
	}
}

func TestIsComplete(t *testing.T) {
	fm := Frontmatter{ID: "x", Title: "t", Status: StatusActive, Created: "2024-01-01", Type: "general"}
	if !fm.IsComplete() {
		t.Error("expected complete")
	}
	fm.Created = ""
	if fm.IsComplete() {
		t.Error("expected incomplete without created")
	}
}

func TestComposeEndsWithNewline(t *testing.T) {
	out := Compose("---\nid: x\n---\n\n", "body")
	if !strings.HasSuffix(out, "body\n") {
		t.Errorf("composed output = %q", out)
	}
}
