package statestore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"codenerd/internal/logging"
)

// Watcher watches the project directory for filesystem edits that did
// not come through FileModified, i.e. a human or another process
// touching a file the pipeline is also tracking (spec.md §5 "Shared
// resources"). It only warns; it never mutates state itself, since
// attributing an external edit to a phase would be a lie.
type Watcher struct {
	fsw   *fsnotify.Watcher
	store *Store
	done  chan struct{}
}

// NewWatcher starts watching every directory under store's project
// root, skipping the state directory itself (state.json/patterns.db
// churn is the pipeline's own writes, not an external edit).
func NewWatcher(store *Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	skip := filepath.Join(store.projectDir, "state")
	if err := addDirs(fsw, store.projectDir, skip); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, store: store, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func addDirs(fsw *fsnotify.Watcher, root, skip string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path == skip || strings.HasPrefix(path, skip+string(filepath.Separator)) {
			return filepath.SkipDir
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.checkExternalEdit(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.State("watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

// checkExternalEdit compares path's on-disk hash against the last hash
// the state store recorded for it, logging a warning on mismatch
// without touching the tracked FileState (spec.md: warnings only).
func (w *Watcher) checkExternalEdit(path string) {
	rel, err := filepath.Rel(w.store.projectDir, path)
	if err != nil {
		return
	}
	snap := w.store.Snapshot()
	fs, tracked := snap.Files[rel]
	if !tracked {
		return
	}
	hash, err := hashFile(path)
	if err != nil {
		return
	}
	if fs.Hash != "" && fs.Hash != hash {
		logging.State("external edit detected outside any phase: %s", rel)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
