package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"pomosync"
)

// SnapshotStore persists the durable subset of the timer state between
// reloads: durations, repetitions and attribution. Live status and elapsed
// are session-transient and never written.
type SnapshotStore struct {
	path string
	l    *log.Logger
}

func NewSnapshotStore(path string, logger *log.Logger) *SnapshotStore {
	if logger == nil {
		logger = log.Default()
	}
	return &SnapshotStore{path: path, l: logger}
}

func (st *SnapshotStore) Save(rec pomosync.TimerSettingsRecord) error {
	rec.UserID = "" // identity never belongs in the local file
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if dir := filepath.Dir(st.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot dir: %w", err)
		}
	}

	// write-then-rename so a crash never leaves a torn file
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	st.l.Debug("saved local snapshot", "path", st.path)
	return nil
}

func (st *SnapshotStore) Load() (pomosync.TimerSettingsRecord, bool, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pomosync.TimerSettingsRecord{}, false, nil
		}
		return pomosync.TimerSettingsRecord{}, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var rec pomosync.TimerSettingsRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return pomosync.TimerSettingsRecord{}, false, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return rec, true, nil
}
