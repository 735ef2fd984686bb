package statestore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"codenerd/internal/logging"
	"codenerd/internal/model"
	"codenerd/internal/pipelineerr"
)

const (
	stateFileName   = "state.json"
	tmpFileName     = "state.json.tmp"
	backupPrefix    = "state.json.bak."
	maxBackupsKept  = 10
	backupTimestamp = "20060102T150405.000000000"
)

// Save atomically persists the current in-memory state to state.json:
// write to a temp file in the same directory, fsync it, then rename it
// onto the real path (atomic on POSIX). A rotating backup of the
// previous file is kept first so Load can recover from a corrupt write.
func (s *Store) Save() error {
	s.mu.RLock()
	snap := cloneState(s.state)
	s.mu.RUnlock()

	timer := logging.StartTimer(logging.CategoryState, "save")
	defer timer.Stop()

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return pipelineerr.FatalStateError("store", fmt.Sprintf("marshal state: %v", err), "store.save.marshal")
	}

	statePath := filepath.Join(s.stateDir, stateFileName)
	if err := backupIfExists(statePath, s.stateDir); err != nil {
		logging.Get(logging.CategoryState).Error("backup before save failed: %v", err)
	}

	tmpPath := filepath.Join(s.stateDir, tmpFileName)
	if err := writeAndSync(tmpPath, data); err != nil {
		return pipelineerr.FatalStateError("store", fmt.Sprintf("write temp state: %v", err), "store.save.write_tmp")
	}
	if err := os.Rename(tmpPath, statePath); err != nil {
		return pipelineerr.FatalStateError("store", fmt.Sprintf("rename temp state onto state.json: %v", err), "store.save.rename")
	}
	if dir, err := os.Open(s.stateDir); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}

func writeAndSync(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// backupIfExists copies the existing state.json to a timestamped
// state.json.bak.<ts> before it is overwritten, and prunes old backups
// beyond maxBackupsKept. A no-op (R3) when state.json does not yet exist.
func backupIfExists(statePath, stateDir string) error {
	src, err := os.Open(statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	backupName := backupPrefix + time.Now().UTC().Format(backupTimestamp)
	dst, err := os.Create(filepath.Join(stateDir, backupName))
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	if err := dst.Sync(); err != nil {
		return err
	}
	return pruneBackups(stateDir)
}

func pruneBackups(stateDir string) error {
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		return err
	}
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && len(e.Name()) > len(backupPrefix) && e.Name()[:len(backupPrefix)] == backupPrefix {
			backups = append(backups, e.Name())
		}
	}
	if len(backups) <= maxBackupsKept {
		return nil
	}
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-maxBackupsKept] {
		_ = os.Remove(filepath.Join(stateDir, name))
	}
	return nil
}

// load reads state.json, falling back to the most recent backup on parse
// failure, and raises FatalStateError only once every recovery path is
// exhausted (spec.md §4.4).
func load(stateDir string) (*model.PipelineState, error) {
	statePath := filepath.Join(stateDir, stateFileName)

	state, primaryErr := readState(statePath)
	if primaryErr == nil {
		return state, nil
	}
	if os.IsNotExist(primaryErr) {
		logging.State("no existing state.json; initializing a fresh pipeline state")
		return model.NewPipelineState(), nil
	}
	logging.Get(logging.CategoryState).Error("state.json unreadable (%v); attempting backup recovery", primaryErr)

	backups, err := listBackupsNewestFirst(stateDir)
	if err != nil || len(backups) == 0 {
		return nil, pipelineerr.FatalStateError("store", fmt.Sprintf("state.json corrupt and no backups available: %v", primaryErr), "store.load.no_backup")
	}
	for _, name := range backups {
		state, err := readState(filepath.Join(stateDir, name))
		if err == nil {
			logging.State("recovered state from backup %s", name)
			return state, nil
		}
	}
	return nil, pipelineerr.FatalStateError("store", fmt.Sprintf("state.json and all backups are corrupt: %v", primaryErr), "store.load.all_backups_failed")
}

func readState(path string) (*model.PipelineState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state model.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if state.Tasks == nil {
		state.Tasks = make(map[string]model.TaskState)
	}
	if state.Files == nil {
		state.Files = make(map[string]model.FileState)
	}
	if state.Phases == nil {
		state.Phases = make(map[string]model.PhaseState)
	}
	return &state, nil
}

// listBackupsNewestFirst returns backup file names sorted lexically
// descending; the timestamp format sorts newest-first as strings.
func listBackupsNewestFirst(stateDir string) ([]string, error) {
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		return nil, err
	}
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && len(e.Name()) > len(backupPrefix) && e.Name()[:len(backupPrefix)] == backupPrefix {
			backups = append(backups, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}
