package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}

func TestKey(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-06-01_2026-08-01_us-east-1", Key(start, &end, "us-east-1"))
	// An open-ended window contributes the literal "now".
	assert.Equal(t, "2026-06-01_now_eu-west-1", Key(start, nil, "eu-west-1"))
}

func TestGetPutRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), false, discardLogger())

	_, ok := store.Get("k", DatasetEvents)
	assert.False(t, ok)

	require.NoError(t, store.Put("k", DatasetEvents, []byte(`[{"a":1}]`)))
	content, ok := store.Get("k", DatasetEvents)
	require.True(t, ok)
	assert.Equal(t, []byte(`[{"a":1}]`), content)
}

func TestJSONRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), false, discardLogger())

	type record struct {
		SnapshotID string
		VolumeID   string
	}
	in := []record{{SnapshotID: "snap-1", VolumeID: "vol-1"}}
	require.NoError(t, store.PutJSON("k", DatasetVolumes, in))

	var out []record
	hit, err := store.GetJSON("k", DatasetVolumes, &out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, in, out)
}

func TestCorruptEntryIsAnError(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, false, discardLogger())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "k_events.json"), []byte("{not json"), 0o644))

	var out []string
	_, err := store.GetJSON("k", DatasetEvents, &out)
	assert.Error(t, err)
}

func TestDisabledStoreMissesButStillWrites(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, true, discardLogger())

	require.NoError(t, store.Put("k", DatasetInstances, []byte("[]")))
	_, ok := store.Get("k", DatasetInstances)
	assert.False(t, ok, "disabled store must never hit")

	// A fresh store over the same directory sees the write.
	fresh := NewStore(dir, false, discardLogger())
	content, ok := fresh.Get("k", DatasetInstances)
	require.True(t, ok)
	assert.Equal(t, []byte("[]"), content)
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, false, discardLogger())

	require.NoError(t, store.WriteReport("2026-06-01_now_us-east-1", []byte("report body\n")))
	path := store.ReportPath("2026-06-01_now_us-east-1")
	assert.Equal(t, filepath.Join(dir, "2026-06-01_now_us-east-1_report.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report body\n", string(content))
}
