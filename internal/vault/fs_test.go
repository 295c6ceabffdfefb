package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	v, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return v
}

func TestWriteAndRead(t *testing.T) {
	v := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := v.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := v.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	v := tempVault(t)
	if err := v.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := v.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("del.md", []byte("bye"))
	if err := v.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := v.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestListReturnsOnlyMarkdown(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("a.md", []byte("a"))
	_ = v.Write("sub/b.md", []byte("b"))
	if err := os.WriteFile(filepath.Join(v.Root(), "image.png"), []byte{1, 2}, 0o644); err != nil {
		t.Fatal(err)
	}

	metas, err := v.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(metas))
	}
	for _, m := range metas {
		if m.Checksum == "" {
			t.Errorf("missing checksum for %s", m.Path)
		}
		if m.ModTime.IsZero() {
			t.Errorf("missing mtime for %s", m.Path)
		}
	}
}

func TestListSkipsHiddenDirs(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("visible.md", []byte("v"))
	hidden := filepath.Join(v.Root(), ".obsidian")
	if err := os.MkdirAll(hidden, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(hidden, "workspace.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	metas, err := v.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 1 || metas[0].Path != "visible.md" {
		t.Errorf("metas = %+v", metas)
	}
}

func TestStat(t *testing.T) {
	v := tempVault(t)
	_ = v.Write("s.md", []byte("data"))
	meta, err := v.Stat("s.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if meta.Path != "s.md" || meta.Checksum == "" {
		t.Errorf("meta = %+v", meta)
	}
}

func TestPathTraversalRejected(t *testing.T) {
	v := tempVault(t)
	for _, p := range []string{"../escape.md", "a/../../escape.md", "/etc/passwd"} {
		if _, err := v.Read(p); err == nil {
			t.Errorf("Read(%q) should be rejected", p)
		}
		if err := v.Write(p, []byte("x")); err == nil {
			t.Errorf("Write(%q) should be rejected", p)
		}
	}
}

func TestNewFSRequiresExistingDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}
