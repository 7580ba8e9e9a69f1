package dedup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCachePersists(t *testing.T) {
	dir := t.TempDir()

	c := NewJobCache(dir, 0, nil)
	assert.False(t, c.IsSeen("go intern|acme|remote"))
	c.Add("go intern|acme|remote", "", "go intern|acme|remote")
	assert.True(t, c.IsSeen("go intern|acme|remote"))
	assert.Equal(t, 1, c.Len())

	reopened := NewJobCache(dir, 0, nil)
	assert.True(t, reopened.IsSeen("go intern|acme|remote"))
}

func TestJobCacheDropsExpired(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	entries := []seenEntry{
		{Key: "fresh", Timestamp: now.Add(-time.Hour).UnixMilli()},
		{Key: "stale", Timestamp: now.Add(-48 * time.Hour).UnixMilli()},
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seen_jobs.json"), data, 0644))

	c := NewJobCache(dir, 24*time.Hour, nil)
	assert.True(t, c.IsSeen("fresh"))
	assert.False(t, c.IsSeen("stale"))
}

func TestJobCacheCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seen_jobs.json"), []byte("{not json"), 0644))

	c := NewJobCache(dir, 0, nil)
	assert.Equal(t, 0, c.Len())
}
