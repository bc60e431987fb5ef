package client

import (
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomosync"
)

func TestSnapshotStore(t *testing.T) {
	t.Parallel()

	record := pomosync.TimerSettingsRecord{
		WorkMinutes:  50,
		BreakMinutes: 10,
		Repetitions:  3,
		ProjectID:    "proj-1",
		TaskID:       "task-2",
		Notes:        "writing",
		Tags:         []pomosync.TagID{"deep"},
	}

	t.Run("round-trip", func(t *testing.T) {
		t.Parallel()
		st := NewSnapshotStore(filepath.Join(t.TempDir(), "snapshot.yaml"), log.Default())

		require.NoError(t, st.Save(record))
		got, ok, err := st.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, record, got)
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		t.Parallel()
		st := NewSnapshotStore(filepath.Join(t.TempDir(), "none.yaml"), log.Default())

		_, ok, err := st.Load()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("identity is stripped", func(t *testing.T) {
		t.Parallel()
		st := NewSnapshotStore(filepath.Join(t.TempDir(), "snapshot.yaml"), log.Default())

		withUser := record
		withUser.UserID = "user-1"
		require.NoError(t, st.Save(withUser))
		got, ok, err := st.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Empty(t, got.UserID)
	})

	t.Run("seeds a fresh session", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "snapshot.yaml")
		st := NewSnapshotStore(path, log.Default())
		require.NoError(t, st.Save(record))

		s := NewSession(Config{SnapshotPath: path, Logger: log.Default()})
		snap := s.Snapshot()
		assert.Equal(t, 50, snap.WorkMinutes)
		assert.Equal(t, pomosync.ProjectID("proj-1"), snap.ProjectID)
		assert.Equal(t, pomosync.TimerIdle, snap.Status, "live state never restores from disk")
	})
}
