package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"blobcache/internal/models"
)

const assetColumns = "id, name, filename, media_type, digest, size_bytes, blob_key, compression, source_uri, path_prefix, created_at"

const defaultListLimit = 100

// ErrAssetExists reports an insert whose id is already taken.
var ErrAssetExists = errors.New("asset already exists")

// CreateAsset inserts one asset row.
func (s *Store) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset == nil {
		return fmt.Errorf("asset is required")
	}
	if strings.TrimSpace(asset.ID) == "" {
		return fmt.Errorf("asset id is required")
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	if strings.TrimSpace(asset.Compression) == "" {
		asset.Compression = string(models.CompressionNone)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assets (`+assetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ID,
		asset.Name,
		asset.Filename,
		asset.MediaType,
		asset.Digest,
		asset.SizeBytes,
		asset.BlobKey,
		asset.Compression,
		nullString(asset.SourceURI),
		nullString(asset.PathPrefix),
		formatTime(asset.CreatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: assets.id") {
		return fmt.Errorf("%w: %s", ErrAssetExists, asset.ID)
	}
	return err
}

// GetAsset returns one asset, or nil when it does not exist.
func (s *Store) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	return scanAsset(row)
}

// GetAssetByDigest returns the oldest asset with the given content digest and media type.
func (s *Store) GetAssetByDigest(ctx context.Context, digest, mediaType string) (*models.Asset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE digest = ? AND media_type = ? ORDER BY created_at ASC LIMIT 1`,
		digest, mediaType)
	return scanAsset(row)
}

// AssetTotals returns the number of assets and the sum of their payload sizes.
func (s *Store) AssetTotals(ctx context.Context) (int, int64, error) {
	var (
		count int
		bytes int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM assets`).Scan(&count, &bytes)
	if err != nil {
		return 0, 0, err
	}
	return count, bytes, nil
}

// ListAssets lists assets ordered by created_at descending.
func (s *Store) ListAssets(ctx context.Context, limit, offset int) ([]models.Asset, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			continue
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

// DeleteAsset deletes one asset row.
func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	return err
}

// CountAssetsByBlobKey counts assets sharing one stored object.
func (s *Store) CountAssetsByBlobKey(ctx context.Context, blobKey string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets WHERE blob_key = ?", blobKey).Scan(&count)
	return count, err
}

func scanAsset(scanner interface {
	Scan(dest ...any) error
}) (*models.Asset, error) {
	asset := models.Asset{}
	var sourceURI, pathPrefix sql.NullString
	var createdAt string

	err := scanner.Scan(
		&asset.ID,
		&asset.Name,
		&asset.Filename,
		&asset.MediaType,
		&asset.Digest,
		&asset.SizeBytes,
		&asset.BlobKey,
		&asset.Compression,
		&sourceURI,
		&pathPrefix,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	asset.SourceURI = sourceURI.String
	asset.PathPrefix = pathPrefix.String
	asset.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for asset %s: %w", asset.ID, err)
	}
	return &asset, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
