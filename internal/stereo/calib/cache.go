package calib

import "sync"

// Loader produces a Projector for a calibration source path.
type Loader func(path string) (Projector, error)

// LoadProjector is the default Loader backed by Load.
func LoadProjector(path string) (Projector, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Cache keeps the projector for the most recently requested path. A request
// for a different path replaces the entry; a failed load clears it.
type Cache struct {
	mu    sync.Mutex
	load  Loader
	path  string
	proj  Projector
	loads int
}

// NewCache creates a Cache. A nil loader uses LoadProjector.
func NewCache(load Loader) *Cache {
	if load == nil {
		load = LoadProjector
	}
	return &Cache{load: load}
}

// Get returns the projector for path, loading it if path differs from the
// cached entry.
func (c *Cache) Get(path string) (Projector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proj != nil && c.path == path {
		return c.proj, nil
	}

	c.loads++
	proj, err := c.load(path)
	if err != nil {
		c.path, c.proj = "", nil
		return nil, err
	}
	c.path, c.proj = path, proj
	return proj, nil
}

// Path returns the currently cached path, or "" when empty.
func (c *Cache) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Loads reports how many times the loader has been invoked.
func (c *Cache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// Invalidate drops the cached entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path, c.proj = "", nil
}
