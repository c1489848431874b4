package geocode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
)

// FileCache persists geocode results as a JSON map keyed by normalized place
// name. Non-matches are cached too so known-bad names skip the network.
type FileCache struct {
	mu      sync.Mutex
	path    string
	entries map[string]Result
}

// NewFileCache loads the cache at path, creating an empty one if the file
// does not exist.
func NewFileCache(path string) (*FileCache, error) {
	c := &FileCache{path: path, entries: map[string]Result{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read cache")
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, eris.Wrap(err, "geocode: parse cache")
	}
	return c, nil
}

// Get returns the cached result for a place, if any.
func (c *FileCache) Get(place string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[cacheKey(place)]
	return r, ok
}

// Put stores a result and flushes the cache to disk.
func (c *FileCache) Put(place string, r Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(place)] = r
	return c.flushLocked()
}

// Len reports the number of cached entries.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *FileCache) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return eris.Wrap(err, "geocode: create cache dir")
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "geocode: encode cache")
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "geocode: write cache")
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return eris.Wrap(err, "geocode: replace cache")
	}
	return nil
}
