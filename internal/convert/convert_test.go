package convert

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/extract"
	"github.com/starford/ansuz/internal/frontmatter"
)

func TestToMarkdownPassthrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("# Title\n\nbody\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ToMarkdown(path)
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if got != "# Title\n\nbody\n" {
		t.Errorf("content = %q", got)
	}
}

func TestToMarkdownUnsupportedType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.xlsx")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ToMarkdown(path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestToMarkdownMissingFile(t *testing.T) {
	if _, err := ToMarkdown(filepath.Join(t.TempDir(), "absent.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

// writeDOCX builds a minimal Word document on disk.
func writeDOCX(t *testing.T, path, xmlBody string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(xmlBody)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestToMarkdownDOCX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.docx")
	writeDOCX(t, path, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:tab/><w:t>Second paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	got, err := ToMarkdown(path)
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if !strings.Contains(got, "First paragraph.") || !strings.Contains(got, "Second paragraph.") {
		t.Errorf("extracted text = %q", got)
	}
	if !strings.Contains(got, "\t") {
		t.Errorf("tab element lost: %q", got)
	}
}

func TestToMarkdownDOCXMissingDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("word/other.xml")
	_, _ = w.Write([]byte("<x/>"))
	_ = zw.Close()
	_ = f.Close()

	if _, err := ToMarkdown(path); err == nil {
		t.Error("expected error for docx without word/document.xml")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My Paper (v2): Final?", "My Paper v2 Final"},
		{"simple", "simple"},
		{"///", "untitled-import"},
		{"  spaced  ", "spaced"},
	}
	for _, c := range cases {
		if got := sanitizeFilename(c.in); got != c.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMergeTags(t *testing.T) {
	got := mergeTags([]string{"imported-doc", "document"}, []string{"document", "ml"})
	want := []string{"imported-doc", "document", "ml"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q", i, got[i])
		}
	}
}

func TestImportFileCreatesPendingNote(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := filepath.Join(srcDir, "Reading List.txt")
	if err := os.WriteFile(src, []byte("books to read\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	im := NewImporter(nil, outDir)
	outPath, err := im.ImportFile(context.Background(), src, false)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if filepath.Base(outPath) != "Reading List.md" {
		t.Errorf("output filename = %q", filepath.Base(outPath))
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	fm, body := frontmatter.Parse(string(raw))
	if fm.Status != frontmatter.StatusPending {
		t.Errorf("Status = %q", fm.Status)
	}
	if fm.Type != "resource" {
		t.Errorf("Type = %q", fm.Type)
	}
	if fm.ID == "" {
		t.Error("missing id")
	}
	if len(fm.Tags) == 0 || fm.Tags[0] != "imported-doc" {
		t.Errorf("Tags = %v", fm.Tags)
	}
	if fm.Source != src {
		t.Errorf("Source = %q", fm.Source)
	}
	if !strings.Contains(body, "books to read") {
		t.Errorf("body = %q", body)
	}
}

type fixedExtractor struct{ meta extract.Metadata }

func (f fixedExtractor) Extract(context.Context, string) extract.Metadata { return f.meta }

func TestImportFileWithExtractionActivates(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	src := filepath.Join(srcDir, "paper.txt")
	if err := os.WriteFile(src, []byte("an important paper\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	im := NewImporter(fixedExtractor{meta: extract.Metadata{
		Authors: []string{"Ada"},
		Summary: "about things",
		Tags:    []string{"research"},
	}}, outDir)
	outPath, err := im.ImportFile(context.Background(), src, true)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}

	raw, _ := os.ReadFile(outPath)
	fm, _ := frontmatter.Parse(string(raw))
	if fm.Status != frontmatter.StatusActive {
		t.Errorf("Status = %q, want active after extraction", fm.Status)
	}
	if fm.Summary != "about things" {
		t.Errorf("Summary = %q", fm.Summary)
	}
	found := false
	for _, tag := range fm.Tags {
		if tag == "research" {
			found = true
		}
	}
	if !found {
		t.Errorf("extracted tag missing: %v", fm.Tags)
	}
}

func TestImportDirSkipsUnsupportedAndIsolatesFailures(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	_ = os.WriteFile(filepath.Join(srcDir, "good.txt"), []byte("fine"), 0o644)
	_ = os.WriteFile(filepath.Join(srcDir, "skip.xlsx"), []byte("nope"), 0o644)
	// Corrupt docx: counted as found, fails conversion, run continues.
	_ = os.WriteFile(filepath.Join(srcDir, "broken.docx"), []byte("not a zip"), 0o644)

	im := NewImporter(nil, outDir)
	imported, found, err := im.ImportDir(context.Background(), srcDir, false)
	if err != nil {
		t.Fatalf("ImportDir: %v", err)
	}
	if found != 2 {
		t.Errorf("found = %d", found)
	}
	if imported != 1 {
		t.Errorf("imported = %d", imported)
	}
}

func TestImportDirMissing(t *testing.T) {
	im := NewImporter(nil, t.TempDir())
	if _, _, err := im.ImportDir(context.Background(), filepath.Join(t.TempDir(), "missing"), false); err == nil {
		t.Error("expected error for missing input dir")
	}
}
