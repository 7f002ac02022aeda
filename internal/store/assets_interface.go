package store

import (
	"context"

	"blobcache/internal/models"
)

// AssetStore is the metadata persistence surface for persisted cache assets.
type AssetStore interface {
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	GetAssetByDigest(ctx context.Context, digest, mediaType string) (*models.Asset, error)
	ListAssets(ctx context.Context, limit, offset int) ([]models.Asset, error)
	DeleteAsset(ctx context.Context, id string) error
	CountAssetsByBlobKey(ctx context.Context, blobKey string) (int, error)
	AssetTotals(ctx context.Context) (int, int64, error)
}

var _ AssetStore = (*Store)(nil)
