// Package dedup remembers settled listings across runs so the same posting
// is not attempted twice within the retention window.
package dedup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultRetention = 30 * 24 * time.Hour

type seenEntry struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"`
}

type JobCache struct {
	mu        sync.Mutex
	filePath  string
	seen      map[string]int64
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewJobCache loads or creates the cache file in cacheDir. An unreadable
// file starts an empty cache.
func NewJobCache(cacheDir string, retention time.Duration, logger *zap.Logger) *JobCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		logger.Warn("⚠️ failed to create cache directory", zap.Error(err))
	}
	cache := &JobCache{
		filePath:  filepath.Join(cacheDir, "seen_jobs.json"),
		seen:      make(map[string]int64),
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
	cache.load()
	return cache
}

func (jc *JobCache) IsSeen(key string) bool {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	_, exists := jc.seen[key]
	return exists
}

func (jc *JobCache) Add(keys ...string) {
	jc.mu.Lock()
	defer jc.mu.Unlock()

	now := jc.now().UnixMilli()
	changed := false
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, exists := jc.seen[key]; !exists {
			jc.seen[key] = now
			changed = true
		}
	}
	if changed {
		jc.save()
	}
}

func (jc *JobCache) Len() int {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	return len(jc.seen)
}

func (jc *JobCache) load() {
	data, err := os.ReadFile(jc.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			jc.logger.Warn("⚠️ failed to read seen jobs", zap.String("path", jc.filePath), zap.Error(err))
		}
		return
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		jc.logger.Warn("⚠️ failed to parse seen jobs", zap.String("path", jc.filePath), zap.Error(err))
		return
	}

	cutoff := jc.now().Add(-jc.retention).UnixMilli()
	loaded := 0
	for _, e := range entries {
		if e.Timestamp > cutoff {
			jc.seen[e.Key] = e.Timestamp
			loaded++
		}
	}
	jc.logger.Info("📋 loaded previously seen jobs", zap.Int("loaded", loaded), zap.Int("expired", len(entries)-loaded))
}

func (jc *JobCache) save() {
	entries := make([]seenEntry, 0, len(jc.seen))
	for key, ts := range jc.seen {
		entries = append(entries, seenEntry{Key: key, Timestamp: ts})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		jc.logger.Warn("⚠️ failed to marshal seen jobs", zap.Error(err))
		return
	}
	// write-then-rename so a crash mid-save keeps the previous file
	tmp := jc.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		jc.logger.Warn("⚠️ failed to write seen jobs", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, jc.filePath); err != nil {
		jc.logger.Warn("⚠️ failed to replace seen jobs", zap.Error(err))
		return
	}
	jc.logger.Debug("💾 saved seen jobs", zap.Int("count", len(entries)))
}
