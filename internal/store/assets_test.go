package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"blobcache/internal/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testAsset(id, digest string, createdAt time.Time) *models.Asset {
	return &models.Asset{
		ID:          id,
		Name:        "images/" + id + ".png",
		Filename:    id + ".png",
		MediaType:   "image/png",
		Digest:      digest,
		SizeBytes:   42,
		BlobKey:     "sha256/ab/cd/" + digest,
		Compression: "zstd",
		SourceURI:   "https://example.com/" + id,
		PathPrefix:  "images/",
		CreatedAt:   createdAt,
	}
}

func TestCreateAndGetAsset(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := st.CreateAsset(ctx, testAsset("img1", "abcd", now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetAsset(ctx, "img1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected asset, got nil")
	}
	if got.Filename != "img1.png" || got.PathPrefix != "images/" || got.SourceURI != "https://example.com/img1" {
		t.Fatalf("unexpected asset %#v", got)
	}
	if got.Compression != "zstd" || got.SizeBytes != 42 {
		t.Fatalf("unexpected compression/size %#v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %v, got %v", now, got.CreatedAt)
	}

	missing, err := st.GetAsset(ctx, "missing")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing asset, got %#v %v", missing, err)
	}
}

func TestCreateAssetDuplicateID(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	if err := st.CreateAsset(ctx, testAsset("dup", "d1", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := st.CreateAsset(ctx, testAsset("dup", "d2", time.Now()))
	if !errors.Is(err, ErrAssetExists) {
		t.Fatalf("expected ErrAssetExists, got %v", err)
	}
}

func TestCreateAssetDefaults(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	asset := &models.Asset{ID: "bare", Name: "bare", Filename: "bare", MediaType: "image/gif", Digest: "d", BlobKey: "k"}
	if err := st.CreateAsset(ctx, asset); err != nil {
		t.Fatalf("create: %v", err)
	}
	if asset.CreatedAt.IsZero() || asset.Compression != "none" {
		t.Fatalf("expected defaults to be filled, got %#v", asset)
	}

	got, err := st.GetAsset(ctx, "bare")
	if err != nil || got == nil {
		t.Fatalf("get: %#v %v", got, err)
	}
	if got.SourceURI != "" || got.PathPrefix != "" {
		t.Fatalf("expected empty optional fields, got %#v", got)
	}

	if err := st.CreateAsset(ctx, nil); err == nil {
		t.Fatal("expected error for nil asset")
	}
	if err := st.CreateAsset(ctx, &models.Asset{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestGetAssetByDigest(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	if err := st.CreateAsset(ctx, testAsset("older", "same", base)); err != nil {
		t.Fatalf("create older: %v", err)
	}
	if err := st.CreateAsset(ctx, testAsset("newer", "same", base.Add(time.Second))); err != nil {
		t.Fatalf("create newer: %v", err)
	}

	got, err := st.GetAssetByDigest(ctx, "same", "image/png")
	if err != nil {
		t.Fatalf("get by digest: %v", err)
	}
	if got == nil || got.ID != "older" {
		t.Fatalf("expected oldest asset, got %#v", got)
	}

	got, err = st.GetAssetByDigest(ctx, "same", "image/jpeg")
	if err != nil || got != nil {
		t.Fatalf("expected no match for other media type, got %#v %v", got, err)
	}

	count, err := st.CountAssetsByBlobKey(ctx, "sha256/ab/cd/same")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 assets sharing blob key, got %d %v", count, err)
	}

	total, size, err := st.AssetTotals(ctx)
	if err != nil || total != 2 || size != 84 {
		t.Fatalf("expected 2 assets totalling 84 bytes, got %d %d %v", total, size, err)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "blobcache.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	if st.Path() != path {
		t.Fatalf("expected path %q, got %q", path, st.Path())
	}
	total, size, err := st.AssetTotals(context.Background())
	if err != nil || total != 0 || size != 0 {
		t.Fatalf("expected empty totals, got %d %d %v", total, size, err)
	}
}

func TestListAndDeleteAssets(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, id := range []string{"a", "b", "c"} {
		if err := st.CreateAsset(ctx, testAsset(id, id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	list, err := st.ListAssets(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Fatalf("unexpected first page %#v", list)
	}

	list, err = st.ListAssets(ctx, 0, 2)
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(list) != 1 || list[0].ID != "a" {
		t.Fatalf("unexpected second page %#v", list)
	}

	if err := st.DeleteAsset(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	deleted, err := st.GetAsset(ctx, "b")
	if err != nil || deleted != nil {
		t.Fatalf("expected b to be deleted, got %#v %v", deleted, err)
	}
}
