// Package objecturl allocates and releases dereferenceable handles for
// in-memory binary payloads.
package objecturl

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"blobcache/internal/models"
)

const (
	scheme        = "blob:"
	DefaultOrigin = "blobcache"
)

// Registry is the allocator the blob cache obtains object handles from.
type Registry interface {
	Create(blob models.Blob) string
	Revoke(uri string)
}

// Stats reports handle counters.
type Stats struct {
	Live           int   `json:"live"`
	Allocated      int64 `json:"allocated"`
	Revoked        int64 `json:"revoked"`
	DoubleReleases int64 `json:"double_releases"`
	LiveBytes      int64 `json:"live_bytes"`
}

// Memory is an in-process Registry that keeps payloads addressable by handle.
type Memory struct {
	origin string
	logger *slog.Logger

	mu        sync.RWMutex
	live      map[string]models.Blob
	liveBytes int64
	allocated int64
	released  int64
	doubles   int64
}

// NewMemory returns an empty registry whose handles use origin.
func NewMemory(origin string, logger *slog.Logger) *Memory {
	origin = strings.Trim(strings.TrimSpace(origin), "/")
	if origin == "" {
		origin = DefaultOrigin
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		origin: origin,
		logger: logger,
		live:   map[string]models.Blob{},
	}
}

// Create allocates a new handle for blob.
func (m *Memory) Create(blob models.Blob) string {
	uri := scheme + m.origin + "/" + uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[uri] = blob
	m.liveBytes += int64(blob.Size())
	m.allocated++
	return uri
}

// Resolve returns the payload behind a live handle.
func (m *Memory) Resolve(uri string) (models.Blob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.live[uri]
	if !ok {
		return models.Blob{}, false
	}
	return blob.Clone(), true
}

// Revoke releases a handle. Releasing a handle twice, or one this registry
// never issued, is counted and logged but otherwise ignored.
func (m *Memory) Revoke(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob, ok := m.live[uri]
	if !ok {
		m.doubles++
		m.logger.Warn("object url released without live handle", "uri", uri, "double_releases", m.doubles)
		return
	}
	delete(m.live, uri)
	m.liveBytes -= int64(blob.Size())
	m.released++
}

// Live reports whether uri is an outstanding handle.
func (m *Memory) Live(uri string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.live[uri]
	return ok
}

// DoubleReleases returns how many Revoke calls found no live handle.
func (m *Memory) DoubleReleases() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doubles
}

// Stats returns a snapshot of the handle counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Live:           len(m.live),
		Allocated:      m.allocated,
		Revoked:        m.released,
		DoubleReleases: m.doubles,
		LiveBytes:      m.liveBytes,
	}
}

var _ Registry = (*Memory)(nil)
