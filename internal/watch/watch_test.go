package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
)

func newTestWatcher(t *testing.T, catalogPath string) (*Watcher, <-chan struct{}) {
	t.Helper()
	w, err := New(Config{CatalogPath: catalogPath, Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	reload, err := w.Start()
	if err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	return w, reload
}

func TestWatcherDebouncesBursts(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	assert.NoError(os.WriteFile(catalogPath, []byte("[]"), 0644))

	_, reload := newTestWatcher(t, catalogPath)

	// Rapid writes coalesce into a single reload signal.
	for i := 0; i < 10; i++ {
		assert.NoError(os.WriteFile(catalogPath, []byte(fmt.Sprintf("[%d]", i)), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-reload:
	case <-time.After(time.Second):
		t.Fatal("expected reload signal but got timeout")
	}

	select {
	case <-reload:
		t.Fatal("unexpected second reload signal")
	case <-time.After(100 * time.Millisecond):
	}

	// A later write is a new burst with its own signal.
	assert.NoError(os.WriteFile(catalogPath, []byte("[10]"), 0644))
	select {
	case <-reload:
	case <-time.After(time.Second):
		t.Fatal("expected reload signal for second burst")
	}
}

func TestWatcherSeesRenameReplace(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	assert.NoError(os.WriteFile(catalogPath, []byte("[]"), 0644))

	_, reload := newTestWatcher(t, catalogPath)

	// Stage a new document and rename it into place, as a catalog build does.
	staged := filepath.Join(dir, ".catalog.json.tmp")
	assert.NoError(os.WriteFile(staged, []byte(`["new"]`), 0644))
	assert.NoError(os.Rename(staged, catalogPath))

	select {
	case <-reload:
	case <-time.After(time.Second):
		t.Fatal("expected reload signal after rename replace")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	otherPath := filepath.Join(dir, "notes.txt")
	assert.NoError(os.WriteFile(catalogPath, []byte("[]"), 0644))
	assert.NoError(os.WriteFile(otherPath, []byte("initial"), 0644))

	_, reload := newTestWatcher(t, catalogPath)

	assert.NoError(os.WriteFile(otherPath, []byte("changed"), 0644))

	select {
	case <-reload:
		t.Fatal("should not signal for unrelated files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherStop(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	assert.NoError(os.WriteFile(catalogPath, []byte("[]"), 0644))

	w, err := New(Config{CatalogPath: catalogPath, Debounce: 50 * time.Millisecond})
	assert.NoError(err)
	_, err = w.Start()
	assert.NoError(err)

	done := make(chan struct{})
	go func() {
		assert.NoError(w.Stop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop timed out")
	}
}

func TestDefaultConfig(t *testing.T) {
	assert := assert_.New(t)
	cfg := DefaultConfig("/srv/pngnest/catalog.json")
	assert.Equal("/srv/pngnest/catalog.json", cfg.CatalogPath)
	assert.Equal(DefaultDebounce, cfg.Debounce)
}
