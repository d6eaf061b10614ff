package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/pkg/filesystem"
	"github.com/doeshing/askai-go/internal/pkg/logger"
	"github.com/doeshing/askai-go/internal/ports"
)

// FileCache persists the whole key→entry mapping to a single JSON file,
// rewritten atomically on every mutation. The file is read lazily on first use;
// a missing, empty or corrupt file is an empty cache.
type FileCache struct {
	path   string
	mem    *MemoryCache
	logger ports.Logger

	loadOnce sync.Once
	// persistMu serializes mutate+write so an older snapshot never overwrites a newer one.
	persistMu sync.Mutex
}

// NewFileCache returns a cache stored at path (default ~/.askai/cache.json).
func NewFileCache(path string, log ports.Logger, opts ...Option) *FileCache {
	if log == nil {
		log = logger.NewNop()
	}
	return &FileCache{
		path:   filesystem.ExpandPath(path, filesystem.StatePath("cache.json")),
		mem:    NewMemoryCache(opts...),
		logger: log,
	}
}

// Path exposes the cache file path.
func (c *FileCache) Path() string {
	return c.path
}

// Get implements ports.ResponseCache.
func (c *FileCache) Get(prompt, provider string) (string, bool) {
	c.ensureLoaded()
	return c.mem.Get(prompt, provider)
}

// Put stores the entry and persists. A write failure leaves the in-process
// entry in place and returns an error wrapping domain.ErrCacheIO.
func (c *FileCache) Put(prompt, provider, command string) error {
	c.ensureLoaded()
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mem.mu.Lock()
	c.mem.putLocked(prompt, provider, command)
	snapshot := c.mem.snapshotLocked()
	c.mem.mu.Unlock()

	return c.write(snapshot)
}

// Clear removes every entry and the backing file.
func (c *FileCache) Clear() error {
	c.ensureLoaded()
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	_ = c.mem.Clear()
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %v", domain.ErrCacheIO, c.path, err)
	}
	return nil
}

// Prewarm inserts curated pairs and persists once.
func (c *FileCache) Prewarm(entries []domain.PrewarmEntry) (int, error) {
	c.ensureLoaded()
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mem.mu.Lock()
	inserted := c.mem.prewarmLocked(entries)
	snapshot := c.mem.snapshotLocked()
	c.mem.mu.Unlock()

	if inserted == 0 {
		return 0, nil
	}
	return inserted, c.write(snapshot)
}

// Sweep drops expired entries from disk.
func (c *FileCache) Sweep() (int, error) {
	c.ensureLoaded()
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mem.mu.Lock()
	removed := c.mem.sweepLocked(c.mem.now())
	snapshot := c.mem.snapshotLocked()
	c.mem.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}
	return removed, c.write(snapshot)
}

// Stats implements ports.ResponseCache.
func (c *FileCache) Stats() domain.CacheStats {
	c.ensureLoaded()
	stats := c.mem.Stats()
	stats.Path = c.path
	return stats
}

// Size returns the cache file size in bytes (0 when missing).
func (c *FileCache) Size() int64 {
	info, err := os.Stat(c.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (c *FileCache) ensureLoaded() {
	c.loadOnce.Do(func() {
		entries, err := c.read()
		if err != nil {
			c.logger.Warn("discarding unreadable cache file", map[string]interface{}{
				"path":  c.path,
				"error": err.Error(),
			})
			return
		}
		c.mem.mu.Lock()
		for key, entry := range entries {
			entry.Key = key
			c.mem.entries[key] = entry
		}
		c.mem.mu.Unlock()
	})
}

func (c *FileCache) read() (map[string]domain.CacheEntry, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries map[string]domain.CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *FileCache) write(entries map[string]domain.CacheEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrCacheIO, err)
	}
	if err := filesystem.WriteFileAtomic(c.path, data, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheIO, err)
	}
	return nil
}

var _ ports.ResponseCache = (*FileCache)(nil)
