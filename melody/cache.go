package melody

import "sync"

// Cache keeps parsed MIDI files by path. Safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	files map[string]*File
	load  func(string) (*File, error)
}

// NewCache returns a cache that loads files from disk.
func NewCache() *Cache {
	return &Cache{files: make(map[string]*File), load: Load}
}

// Preload parses a file ahead of time.
func (c *Cache) Preload(path string) error {
	_, err := c.Get(path)
	return err
}

// Put stores an already parsed file.
func (c *Cache) Put(path string, f *File) {
	c.mu.Lock()
	c.files[path] = f
	c.mu.Unlock()
}

// Get returns the cached file, parsing it on first use.
func (c *Cache) Get(path string) (*File, error) {
	c.mu.RLock()
	f, ok := c.files[path]
	c.mu.RUnlock()
	if ok {
		return f, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.files[path]; ok {
		return f, nil
	}
	f, err := c.load(path)
	if err != nil {
		return nil, err
	}
	c.files[path] = f
	return f, nil
}

// Has reports whether a path is cached.
func (c *Cache) Has(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.files[path]
	return ok
}
