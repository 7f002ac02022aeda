package server

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"blobcache/internal/blobcache"
	"blobcache/internal/models"
	"blobcache/internal/objecturl"
)

const fallbackMediaType = "application/octet-stream"

// objectResolver dereferences object handles handed out by the cache.
type objectResolver interface {
	Resolve(uri string) (models.Blob, bool)
}

// BlobService validates incoming payloads and drives the blob cache.
type BlobService struct {
	cache    *blobcache.Cache
	registry objecturl.Registry
	resolver objectResolver

	allowedMediaTypes map[string]struct{}
	maxBlobBytes      int64
}

// MaxBlobBytes returns the configured payload limit, or 0 when unlimited.
func (s *BlobService) MaxBlobBytes() int64 {
	return s.maxBlobBytes
}

// CreateBlobInput describes one payload to cache. Exactly one of Data or
// Base64 is expected; the other is derived.
type CreateBlobInput struct {
	ID        string
	Name      string
	Filename  string
	MediaType string
	URI       string
	Path      string
	Data      []byte
	Base64    string

	// Dedupe returns an existing record with the same payload and media
	// type instead of caching a second copy.
	Dedupe bool
}

// NewBlobService constructs a BlobService over cache. registry must be the
// allocator the cache was built with.
func NewBlobService(cache *blobcache.Cache, registry *objecturl.Memory) *BlobService {
	return &BlobService{cache: cache, registry: registry, resolver: registry}
}

// ConfigurePolicy sets the media type allow-list and payload size limit.
func (s *BlobService) ConfigurePolicy(allowedMediaTypes []string, maxBlobBytes int64) {
	if s == nil {
		return
	}
	normalized := map[string]struct{}{}
	for _, raw := range allowedMediaTypes {
		mediaType, err := normalizeMediaType(raw)
		if err != nil || mediaType == "" {
			continue
		}
		normalized[mediaType] = struct{}{}
	}
	s.allowedMediaTypes = normalized
	s.maxBlobBytes = maxBlobBytes
}

// Create caches a payload. The returned bool reports whether this call
// added the record; false means an existing record was returned.
func (s *BlobService) Create(in CreateBlobInput) (*models.BlobInfo, bool, error) {
	data, encoded, err := s.payload(in)
	if err != nil {
		return nil, false, err
	}

	mediaType, err := normalizeMediaType(in.MediaType)
	if err != nil {
		return nil, false, err
	}
	if mediaType == "" && len(data) > 0 {
		mediaType, _ = normalizeMediaType(http.DetectContentType(data))
	}
	if err := s.validateAllowedMediaType(mediaType); err != nil {
		return nil, false, err
	}

	if in.Dedupe && encoded != "" {
		if existing, ok := s.cache.GetByData(encoded, mediaType); ok {
			return existing, false, nil
		}
	}
	id := strings.TrimSpace(in.ID)
	if id != "" {
		if !validateRecordID(id) {
			return nil, false, badRequestCode(fmt.Errorf("invalid id"), ErrCodeInvalidID)
		}
		if existing, ok := s.cache.Get(id); ok {
			return existing, false, nil
		}
	}

	blob := models.Blob{Data: data, Type: mediaType}
	info, err := s.cache.Create(createInput(id, blob, encoded, in))
	if err != nil {
		return nil, false, cacheError(err)
	}

	s.cache.Add(info)
	if stored, ok := s.cache.Get(info.ID()); ok && stored != info {
		// A concurrent request cached the same id first.
		s.registry.Revoke(info.BlobURI())
		return stored, false, nil
	}
	return info, true, nil
}

// NewID returns an id that is not currently cached. The id is not reserved.
func (s *BlobService) NewID() (string, error) {
	id, err := s.cache.NewID()
	if err != nil {
		return "", internalError(err)
	}
	return id, nil
}

func (s *BlobService) Get(id string) (*models.BlobInfo, error) {
	id = strings.TrimSpace(id)
	if !validateRecordID(id) {
		return nil, badRequestCode(fmt.Errorf("invalid id"), ErrCodeInvalidID)
	}
	info, ok := s.cache.Get(id)
	if !ok {
		return nil, notFound(fmt.Errorf("blob not found"))
	}
	return info, nil
}

func (s *BlobService) LookupByURI(blobURI string) (*models.BlobInfo, error) {
	info, ok := s.cache.GetByURI(blobURI)
	if !ok {
		return nil, notFound(fmt.Errorf("blob not found"))
	}
	return info, nil
}

// LookupByData finds the first record with an identical base64 payload and
// media type.
func (s *BlobService) LookupByData(encoded, mediaType string) (*models.BlobInfo, error) {
	normalized, err := normalizeMediaType(mediaType)
	if err != nil {
		return nil, err
	}
	info, ok := s.cache.GetByData(encoded, normalized)
	if !ok {
		return nil, notFound(fmt.Errorf("blob not found"))
	}
	return info, nil
}

func (s *BlobService) List() []*models.BlobInfo {
	return s.cache.List()
}

// Remove drops the records owning blobURI and returns how many were removed.
func (s *BlobService) Remove(blobURI string) int {
	return s.cache.RemoveByURI(blobURI)
}

// Destroy empties the cache and returns how many records were released.
func (s *BlobService) Destroy() int {
	released := s.cache.Len()
	s.cache.Destroy()
	return released
}

// ResolveObject returns the payload behind a live object handle.
func (s *BlobService) ResolveObject(blobURI string) (models.Blob, error) {
	if s.resolver == nil {
		return models.Blob{}, notImplemented(fmt.Errorf("object handles are not dereferenceable"))
	}
	blob, ok := s.resolver.Resolve(blobURI)
	if !ok {
		return models.Blob{}, notFoundCode(fmt.Errorf("object not found"), ErrCodeObjectNotFound)
	}
	return blob, nil
}

func (s *BlobService) payload(in CreateBlobInput) ([]byte, string, error) {
	data := in.Data
	encoded := strings.TrimSpace(in.Base64)
	switch {
	case len(data) > 0:
		encoded = base64.StdEncoding.EncodeToString(data)
	case encoded != "":
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", badRequestCode(fmt.Errorf("invalid base64 payload"), ErrCodeInvalidPayload)
		}
		data = decoded
	}
	if s.maxBlobBytes > 0 && int64(len(data)) > s.maxBlobBytes {
		return nil, "", tooLarge(fmt.Errorf("blob exceeds %d bytes", s.maxBlobBytes))
	}
	return data, encoded, nil
}

func (s *BlobService) validateAllowedMediaType(mediaType string) error {
	if len(s.allowedMediaTypes) == 0 {
		return nil
	}
	if _, ok := s.allowedMediaTypes[mediaType]; ok {
		return nil
	}
	return badRequestCode(fmt.Errorf("media_type %q is not allowed", mediaType), ErrCodeMediaTypeNotAllowed)
}

// createInput picks the shorthand form when only an id and filename are
// known, and the full record form otherwise.
func createInput(id string, blob models.Blob, encoded string, in CreateBlobInput) models.CreateInput {
	name := strings.TrimSpace(in.Name)
	filename := strings.TrimSpace(in.Filename)
	path := strings.TrimSpace(in.Path)
	uri := strings.TrimSpace(in.URI)

	if id != "" && name == "" && path == "" && uri == "" {
		return models.ByID{ID: id, Blob: blob, Base64: encoded, Filename: filename}
	}
	if name == "" {
		name = filename
	}
	return models.ByRecord{BlobInfoData: models.BlobInfoData{
		ID:     id,
		Name:   name,
		Blob:   blob,
		Base64: encoded,
		URI:    uri,
		Path:   path,
	}}
}
