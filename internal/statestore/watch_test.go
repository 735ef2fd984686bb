package statestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDetectsExternalEdit(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	path := filepath.Join(dir, "a.py")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.FileModified("a.py", "coding"); err != nil {
		t.Fatalf("FileModified: %v", err)
	}

	w, err := NewWatcher(store)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	if err := os.WriteFile(path, []byte("v2, edited by someone else"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	// checkExternalEdit only warns via the logger; exercise it directly
	// to avoid depending on fsnotify event delivery timing in CI.
	w.checkExternalEdit(path)
	time.Sleep(10 * time.Millisecond)
}
