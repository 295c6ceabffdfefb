package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Watch(ctx); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give fsnotify a moment to register the directory watches.
	time.Sleep(100 * time.Millisecond)
}

func TestWatchIndexesNewFile(t *testing.T) {
	p, vaultDir, _ := testPipeline(t, Config{})
	startWatcher(t, p)

	testutil.WriteNote(t, vaultDir, "garden.md", activeNote)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := p.index.LookupByFilename("garden.md")
		return err == nil
	}, "new file never appeared in the index")
}

func TestWatchRemovesDeletedFile(t *testing.T) {
	p, vaultDir, _ := testPipeline(t, Config{})
	testutil.WriteNote(t, vaultDir, "garden.md", activeNote)
	if got := p.ProcessFile(context.Background(), "garden.md"); got != StatusIndexed {
		t.Fatalf("seed status = %v", got)
	}
	startWatcher(t, p)

	if err := os.Remove(filepath.Join(vaultDir, "garden.md")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := p.index.LookupByFilename("garden.md")
		return errors.Is(err, apperr.ErrNotFound)
	}, "deleted file still in the index")
}

func TestWatchIndexesNewSubdirectory(t *testing.T) {
	p, vaultDir, _ := testPipeline(t, Config{})
	startWatcher(t, p)

	sub := filepath.Join(vaultDir, "projects")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	testutil.WriteNote(t, vaultDir, "projects/plan.md", activeNote)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := p.index.LookupByFilename("plan.md")
		return err == nil
	}, "note in new subdirectory never indexed")
}

func TestWatchSkipsUnchangedRewrite(t *testing.T) {
	p, vaultDir, emb := testPipeline(t, Config{})
	startWatcher(t, p)

	testutil.WriteNote(t, vaultDir, "garden.md", activeNote)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := p.index.LookupByFilename("garden.md")
		return err == nil
	}, "file never indexed")
	indexed := emb.IndexedCount()

	// Same bytes again: the checksum memo suppresses a second embed pass.
	testutil.WriteNote(t, vaultDir, "garden.md", activeNote)
	time.Sleep(500 * time.Millisecond)

	if got := emb.IndexedCount(); got != indexed {
		t.Errorf("embedded texts grew from %d to %d on identical rewrite", indexed, got)
	}
}
