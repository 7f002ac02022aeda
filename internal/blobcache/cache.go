// Package blobcache keeps an ordered in-memory registry of editor assets
// (uploaded or pasted images) until they are persisted.
package blobcache

import (
	"log/slog"
	"sync"

	"blobcache/internal/models"
	"blobcache/internal/objecturl"
)

// Predicate matches a cached record.
type Predicate func(*models.BlobInfo) bool

// Cache maps record ids to blob metadata in insertion order. Records added
// to the cache are owned by it: their object handles are revoked on
// RemoveByURI and Destroy.
type Cache struct {
	registry objecturl.Registry
	logger   *slog.Logger
	newID    func() (string, error)

	mu      sync.RWMutex
	records []*models.BlobInfo
}

// Option configures a Cache.
type Option func(*Cache)

// WithRegistry sets the allocator for object handles.
func WithRegistry(registry objecturl.Registry) Option {
	return func(c *Cache) {
		c.registry = registry
	}
}

// WithLogger sets the logger for cache events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithIDGenerator overrides how ids are generated for records created
// without one.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(c *Cache) {
		c.newID = fn
	}
}

// New returns an empty cache. Without WithRegistry it allocates handles
// from a private objecturl.Memory.
func New(opts ...Option) *Cache {
	c := &Cache{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.registry == nil {
		c.registry = objecturl.NewMemory(objecturl.DefaultOrigin, c.logger)
	}
	if c.newID == nil {
		c.newID = func() (string, error) {
			return GenerateID(IDPrefix, func(id string) bool {
				_, ok := c.Get(id)
				return ok
			})
		}
	}
	return c
}

// NewID returns a fresh record id that is not currently cached.
func (c *Cache) NewID() (string, error) {
	return c.newID()
}

// Create builds a record from in without adding it to the cache.
func (c *Cache) Create(in models.CreateInput) (*models.BlobInfo, error) {
	data, err := models.ResolveCreateInput(in)
	if err != nil {
		return nil, err
	}
	return models.NewBlobInfo(data, c.newID, c.registry.Create)
}

// Add appends info unless a record with the same id is already cached.
func (c *Cache) Add(info *models.BlobInfo) {
	if info == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.records {
		if existing.ID() == info.ID() {
			c.logger.Debug("blob already cached", "id", info.ID())
			return
		}
	}
	c.records = append(c.records, info)
	c.logger.Debug("blob cached", "id", info.ID(), "uri", info.BlobURI(), "size", info.Size())
}

// FindFirst returns the first record in insertion order matching pred.
// pred runs outside the cache lock and may call back into the cache.
func (c *Cache) FindFirst(pred Predicate) (*models.BlobInfo, bool) {
	if pred == nil {
		return nil, false
	}
	for _, info := range c.snapshot() {
		if pred(info) {
			return info, true
		}
	}
	return nil, false
}

// Get returns the first record with the given id.
func (c *Cache) Get(id string) (*models.BlobInfo, bool) {
	return c.FindFirst(func(info *models.BlobInfo) bool {
		return info.ID() == id
	})
}

// GetByURI returns the first record holding the given object handle.
func (c *Cache) GetByURI(blobURI string) (*models.BlobInfo, bool) {
	return c.FindFirst(func(info *models.BlobInfo) bool {
		return info.BlobURI() == blobURI
	})
}

// GetByData finds a record whose base64 payload and declared MIME type both match.
func (c *Cache) GetByData(base64, mimeType string) (*models.BlobInfo, bool) {
	return c.FindFirst(func(info *models.BlobInfo) bool {
		return info.Base64() == base64 && info.MediaType() == mimeType
	})
}

// RemoveByURI drops every record with the given object handle, revokes it
// and returns how many records were removed.
func (c *Cache) RemoveByURI(blobURI string) int {
	c.mu.Lock()
	kept := c.records[:0]
	var removed []*models.BlobInfo
	for _, info := range c.records {
		if info.BlobURI() == blobURI {
			removed = append(removed, info)
			continue
		}
		kept = append(kept, info)
	}
	for i := len(kept); i < len(c.records); i++ {
		c.records[i] = nil
	}
	c.records = kept
	c.mu.Unlock()

	for _, info := range removed {
		c.registry.Revoke(info.BlobURI())
		c.logger.Debug("blob removed", "id", info.ID(), "uri", info.BlobURI())
	}
	return len(removed)
}

// Destroy revokes every cached handle and empties the cache. The cache
// remains usable afterwards.
func (c *Cache) Destroy() {
	c.mu.Lock()
	records := c.records
	c.records = nil
	c.mu.Unlock()

	for _, info := range records {
		c.registry.Revoke(info.BlobURI())
	}
	if len(records) > 0 {
		c.logger.Debug("blob cache destroyed", "released", len(records))
	}
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// List returns the cached records in insertion order.
func (c *Cache) List() []*models.BlobInfo {
	return c.snapshot()
}

func (c *Cache) snapshot() []*models.BlobInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.BlobInfo, len(c.records))
	copy(out, c.records)
	return out
}
