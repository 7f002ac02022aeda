package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	digest "github.com/opencontainers/go-digest"

	"blobcache/internal/models"
)

func TestLocalCASPutOpenDelete(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	first, err := cas.Put(context.Background(), bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	if first.Digest != digest.FromString("hello").String() || first.BlobKey == "" {
		t.Fatalf("unexpected put result: %#v", first)
	}
	if !strings.HasPrefix(first.BlobKey, "sha256/") {
		t.Fatalf("unexpected blob key %q", first.BlobKey)
	}

	second, err := cas.Put(context.Background(), bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("put second: %v", err)
	}
	if first.BlobKey != second.BlobKey || first.Digest != second.Digest {
		t.Fatalf("expected dedupe keys/digests to match: first=%#v second=%#v", first, second)
	}

	assertContent(t, cas, first.BlobKey, "hello")

	if err := cas.Delete(context.Background(), first.BlobKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cas.Delete(context.Background(), first.BlobKey); err != nil {
		t.Fatalf("delete missing should be noop: %v", err)
	}
}

func TestLocalCASZstdRoundTrip(t *testing.T) {
	cas, err := NewLocalCAS(t.TempDir(), WithCompression(models.CompressionZstd))
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}

	payload := strings.Repeat("compressible ", 512)
	res, err := cas.Put(context.Background(), strings.NewReader(payload))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if res.Compression != string(models.CompressionZstd) || !strings.HasSuffix(res.BlobKey, ".zst") {
		t.Fatalf("unexpected put result: %#v", res)
	}
	if res.SizeBytes != int64(len(payload)) {
		t.Fatalf("expected uncompressed size %d, got %d", len(payload), res.SizeBytes)
	}
	if res.Digest != digest.FromString(payload).String() {
		t.Fatalf("expected digest of uncompressed payload, got %s", res.Digest)
	}

	assertContent(t, cas, res.BlobKey, payload)
}

func TestLocalCASRejectsBadInput(t *testing.T) {
	if _, err := NewLocalCAS("  "); err == nil {
		t.Fatal("expected error for empty root")
	}
	if _, err := NewLocalCAS(t.TempDir(), WithCompression("lz4")); err == nil {
		t.Fatal("expected error for unsupported compression")
	}

	cas, err := NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	for _, key := range []string{"", "/etc/passwd", "../escape", "sha256/../../escape"} {
		if _, err := cas.Open(context.Background(), key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cas.Put(ctx, strings.NewReader("x")); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func assertContent(t *testing.T, cas *LocalCAS, key, want string) {
	t.Helper()
	rc, err := cas.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != want {
		t.Fatalf("expected %q, got %q", want, string(data))
	}
}
