// Package assets locates, caches, and decodes model files.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when no search path holds the requested file.
var ErrNotFound = errors.New("asset not found")

// Manager resolves asset names against a list of directories.
type Manager struct {
	paths []string
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddSearchPath adds a directory to the manager.
// Directories are searched in reverse order (last added = highest priority).
func (m *Manager) AddSearchPath(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding search path %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding search path %s: not a directory", dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("adding search path %s: %w", dir, err)
	}

	m.mu.Lock()
	m.paths = append(m.paths, abs)
	m.mu.Unlock()
	return nil
}

// Resolve returns the full path of name. Absolute names and names relative
// to the working directory are accepted as they are when they exist.
func (m *Manager) Resolve(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.paths) - 1; i >= 0; i-- {
		p := filepath.Join(m.paths[i], name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if _, err := os.Stat(name); err == nil {
		return filepath.Abs(name)
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Load reads a file, serving repeated reads from the cache.
func (m *Manager) Load(name string) ([]byte, error) {
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m.cache.Set(name, data)
	return data, nil
}

// LoadSource reads and decodes a glTF or GLB file. External buffers and
// images are read relative to the file's directory.
func (m *Manager) LoadSource(name string) (*Source, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := m.Load(name)
	if err != nil {
		return nil, err
	}
	src, err := Decode(bytes.NewReader(data), os.DirFS(filepath.Dir(path)))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return src, nil
}

// Invalidate drops name from the cache so the next Load rereads it.
func (m *Manager) Invalidate(name string) {
	m.cache.Delete(name)
}

// Close forgets search paths and cached data.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Delete removes an item from cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
