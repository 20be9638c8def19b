package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCopiesDataFile(t *testing.T) {
	tmp := t.TempDir()
	dataFile := filepath.Join(tmp, "events.json")
	require.NoError(t, os.WriteFile(dataFile, []byte(`{"events":[]}`), 0o600))

	dir := filepath.Join(tmp, "backups")
	j := NewJob(dataFile, dir, 3)
	require.NoError(t, j.Snapshot())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"events":[]}`, string(data))
}

func TestSnapshotMissingDataFileIsNotAnError(t *testing.T) {
	tmp := t.TempDir()
	j := NewJob(filepath.Join(tmp, "nope.json"), filepath.Join(tmp, "backups"), 3)
	require.NoError(t, j.Snapshot())

	_, err := os.Stat(filepath.Join(tmp, "backups"))
	assert.True(t, os.IsNotExist(err), "no backup directory should be created")
}

func TestPruneKeepsNewestSnapshots(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"events-20250101T000000Z.json",
		"events-20250102T000000Z.json",
		"events-20250103T000000Z.json",
		"events-20250104T000000Z.json",
		"unrelated.txt",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("{}"), 0o600))
	}

	j := NewJob("ignored", dir, 2)
	require.NoError(t, j.prune())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var kept []string
	for _, e := range entries {
		kept = append(kept, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"events-20250103T000000Z.json",
		"events-20250104T000000Z.json",
		"unrelated.txt",
	}, kept)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	j := NewJob("ignored", t.TempDir(), 1)
	assert.Error(t, j.Start("not a cron spec"))
}
