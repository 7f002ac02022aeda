package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"blobcache/internal/blobcache"
	"blobcache/internal/blobstore"
	"blobcache/internal/models"
	"blobcache/internal/store"
)

const defaultPersistConcurrency = 4

// PersistService copies cached records into the content-addressed store and
// keeps their metadata in the asset store.
type PersistService struct {
	cache       *blobcache.Cache
	assetStore  store.AssetStore
	blobStore   blobstore.BlobStore
	concurrency int
	logger      *slog.Logger

	// refsMu orders stored-byte releases against persists. A persist holds
	// it shared from Put until its asset row exists; a release holds it
	// exclusively while it counts references and deletes.
	refsMu sync.RWMutex
}

// AssetContent describes a persisted payload stream.
type AssetContent struct {
	Reader    io.ReadCloser
	SizeBytes int64
	MediaType string
	Filename  string
}

// NewPersistService constructs a PersistService. Either store may be nil, in
// which case every operation reports that persistence is not configured.
func NewPersistService(cache *blobcache.Cache, assetStore store.AssetStore, blobStore blobstore.BlobStore, concurrency int, logger *slog.Logger) *PersistService {
	if concurrency <= 0 {
		concurrency = defaultPersistConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistService{
		cache:       cache,
		assetStore:  assetStore,
		blobStore:   blobStore,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Enabled reports whether both backing stores are configured.
func (p *PersistService) Enabled() bool {
	return p != nil && p.assetStore != nil && p.blobStore != nil
}

// Persist stores the cached record with the given id. The returned bool is
// false when the asset already existed.
func (p *PersistService) Persist(ctx context.Context, id string) (models.Asset, bool, error) {
	var zero models.Asset
	if !p.Enabled() {
		return zero, false, errPersistenceDisabled()
	}
	id = strings.TrimSpace(id)
	if !validateRecordID(id) {
		return zero, false, badRequestCode(fmt.Errorf("invalid id"), ErrCodeInvalidID)
	}
	info, ok := p.cache.Get(id)
	if !ok {
		return zero, false, notFound(fmt.Errorf("blob not found"))
	}
	return p.persistRecord(ctx, info)
}

// PersistAll stores every cached record, at most p.concurrency at a time.
// Assets are returned in cache order.
func (p *PersistService) PersistAll(ctx context.Context) ([]models.Asset, int, error) {
	if !p.Enabled() {
		return nil, 0, errPersistenceDisabled()
	}

	records := p.cache.List()
	assets := make([]models.Asset, len(records))
	created := make([]bool, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, info := range records {
		g.Go(func() error {
			asset, isNew, err := p.persistRecord(gctx, info)
			if err != nil {
				return err
			}
			assets[i] = asset
			created[i] = isNew
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	count := 0
	for _, isNew := range created {
		if isNew {
			count++
		}
	}
	p.logger.Info("persisted cache", "records", len(records), "created", count)
	return assets, count, nil
}

func (p *PersistService) persistRecord(ctx context.Context, info *models.BlobInfo) (models.Asset, bool, error) {
	var zero models.Asset
	existing, err := p.assetStore.GetAsset(ctx, info.ID())
	if err != nil {
		return zero, false, storeFailure(err)
	}
	if existing != nil {
		return *existing, false, nil
	}

	blob := info.Blob()
	p.refsMu.RLock()
	putResult, err := p.blobStore.Put(ctx, bytes.NewReader(blob.Data))
	if err != nil {
		p.refsMu.RUnlock()
		return zero, false, storeFailure(fmt.Errorf("store blob %s: %w", info.ID(), err))
	}

	asset := &models.Asset{
		ID:          info.ID(),
		Name:        info.Name(),
		Filename:    info.Filename(),
		MediaType:   blob.Type,
		Digest:      putResult.Digest,
		SizeBytes:   putResult.SizeBytes,
		BlobKey:     putResult.BlobKey,
		Compression: putResult.Compression,
		SourceURI:   info.URI(),
		PathPrefix:  info.Path(),
		CreatedAt:   time.Now().UTC(),
	}
	err = p.assetStore.CreateAsset(ctx, asset)
	p.refsMu.RUnlock()
	if err != nil {
		if !errors.Is(err, store.ErrAssetExists) {
			return zero, false, storeFailure(err)
		}
		// Lost a race with another persist of the same id.
		p.releaseOrphan(ctx, putResult.BlobKey)
		existing, err := p.assetStore.GetAsset(ctx, info.ID())
		if err != nil || existing == nil {
			return zero, false, storeFailure(fmt.Errorf("asset %s vanished after conflict", info.ID()))
		}
		return *existing, false, nil
	}

	assetsPersistedMetric.Inc()
	p.logger.Debug("asset persisted", "id", asset.ID, "digest", asset.Digest, "size", asset.SizeBytes, "compression", asset.Compression)
	return *asset, true, nil
}

// Totals reports how many assets are stored and their combined payload size.
func (p *PersistService) Totals(ctx context.Context) (int, int64, error) {
	if !p.Enabled() {
		return 0, 0, nil
	}
	count, size, err := p.assetStore.AssetTotals(ctx)
	if err != nil {
		return 0, 0, storeFailure(err)
	}
	return count, size, nil
}

func (p *PersistService) ListAssets(ctx context.Context, limit, offset int) ([]models.Asset, error) {
	if !p.Enabled() {
		return nil, errPersistenceDisabled()
	}
	assets, err := p.assetStore.ListAssets(ctx, limit, offset)
	if err != nil {
		return nil, storeFailure(err)
	}
	return assets, nil
}

func (p *PersistService) GetAsset(ctx context.Context, id string) (models.Asset, error) {
	var zero models.Asset
	if !p.Enabled() {
		return zero, errPersistenceDisabled()
	}
	asset, err := p.lookupAsset(ctx, id)
	if err != nil {
		return zero, err
	}
	return *asset, nil
}

// LookupAsset returns the oldest asset whose payload has the given digest
// and media type.
func (p *PersistService) LookupAsset(ctx context.Context, rawDigest, mediaType string) (models.Asset, error) {
	var zero models.Asset
	if !p.Enabled() {
		return zero, errPersistenceDisabled()
	}
	dgst, err := digest.Parse(strings.TrimSpace(rawDigest))
	if err != nil {
		return zero, badRequestCode(fmt.Errorf("invalid digest: %w", err), ErrCodeInvalidQuery)
	}
	normalized, err := normalizeMediaType(mediaType)
	if err != nil {
		return zero, err
	}
	asset, err := p.assetStore.GetAssetByDigest(ctx, dgst.String(), normalized)
	if err != nil {
		return zero, storeFailure(err)
	}
	if asset == nil {
		return zero, notFoundCode(fmt.Errorf("asset not found"), ErrCodeAssetNotFound)
	}
	return *asset, nil
}

// OpenAssetContent opens the stored payload of an asset.
func (p *PersistService) OpenAssetContent(ctx context.Context, id string) (*AssetContent, error) {
	if !p.Enabled() {
		return nil, errPersistenceDisabled()
	}
	asset, err := p.lookupAsset(ctx, id)
	if err != nil {
		return nil, err
	}

	rc, err := p.blobStore.Open(ctx, asset.BlobKey)
	if err != nil {
		return nil, notFoundCode(fmt.Errorf("asset content not found"), ErrCodeAssetNotFound)
	}

	mediaType := strings.TrimSpace(asset.MediaType)
	if mediaType == "" {
		mediaType = fallbackMediaType
	}
	filename := strings.TrimSpace(asset.Filename)
	if filename == "" {
		filename = asset.ID + "." + models.MimeToExt(mediaType)
	}
	return &AssetContent{
		Reader:    rc,
		SizeBytes: asset.SizeBytes,
		MediaType: mediaType,
		Filename:  filename,
	}, nil
}

// DeleteAsset removes an asset and, when no other asset shares its
// payload, the stored bytes. It reports whether the bytes were removed.
func (p *PersistService) DeleteAsset(ctx context.Context, id string) (bool, error) {
	if !p.Enabled() {
		return false, errPersistenceDisabled()
	}
	asset, err := p.lookupAsset(ctx, id)
	if err != nil {
		return false, err
	}
	if err := p.assetStore.DeleteAsset(ctx, asset.ID); err != nil {
		return false, storeFailure(err)
	}
	return p.releaseOrphan(ctx, asset.BlobKey), nil
}

func (p *PersistService) lookupAsset(ctx context.Context, id string) (*models.Asset, error) {
	id = strings.TrimSpace(id)
	if !validateRecordID(id) {
		return nil, badRequestCode(fmt.Errorf("invalid id"), ErrCodeInvalidID)
	}
	asset, err := p.assetStore.GetAsset(ctx, id)
	if err != nil {
		return nil, storeFailure(err)
	}
	if asset == nil {
		return nil, notFoundCode(fmt.Errorf("asset not found"), ErrCodeAssetNotFound)
	}
	return asset, nil
}

// releaseOrphan deletes stored bytes that no asset references any more.
// It must not be called while holding refsMu.
func (p *PersistService) releaseOrphan(ctx context.Context, blobKey string) bool {
	p.refsMu.Lock()
	defer p.refsMu.Unlock()

	refs, err := p.assetStore.CountAssetsByBlobKey(ctx, blobKey)
	if err != nil {
		p.logger.Warn("count blob references", "blob_key", blobKey, "error", err)
		return false
	}
	if refs > 0 {
		return false
	}
	if err := p.blobStore.Delete(ctx, blobKey); err != nil {
		p.logger.Warn("delete orphaned blob", "blob_key", blobKey, "error", err)
		return false
	}
	return true
}

func errPersistenceDisabled() error {
	return notImplemented(fmt.Errorf("persistence is not configured"))
}
