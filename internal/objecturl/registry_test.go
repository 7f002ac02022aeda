package objecturl

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"blobcache/internal/models"
)

func testRegistry(t *testing.T) *Memory {
	t.Helper()
	return NewMemory("editor.test", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMemoryCreateResolveRevoke(t *testing.T) {
	reg := testRegistry(t)

	uri := reg.Create(models.Blob{Data: []byte("png"), Type: "image/png"})
	if !strings.HasPrefix(uri, "blob:editor.test/") {
		t.Fatalf("unexpected uri %q", uri)
	}

	blob, ok := reg.Resolve(uri)
	if !ok {
		t.Fatal("expected live handle")
	}
	if string(blob.Data) != "png" || blob.Type != "image/png" {
		t.Fatalf("unexpected blob %#v", blob)
	}

	reg.Revoke(uri)
	if reg.Live(uri) {
		t.Fatal("expected handle to be released")
	}
	if _, ok := reg.Resolve(uri); ok {
		t.Fatal("expected revoked handle to be unresolvable")
	}

	stats := reg.Stats()
	if stats.Allocated != 1 || stats.Revoked != 1 || stats.Live != 0 || stats.LiveBytes != 0 {
		t.Fatalf("unexpected stats %#v", stats)
	}
}

func TestMemoryDoubleReleaseIsCounted(t *testing.T) {
	reg := testRegistry(t)
	uri := reg.Create(models.Blob{Data: []byte("x")})

	reg.Revoke(uri)
	reg.Revoke(uri)
	reg.Revoke("blob:editor.test/unknown")

	if got := reg.DoubleReleases(); got != 2 {
		t.Fatalf("expected 2 double releases, got %d", got)
	}
	if got := reg.Stats().Revoked; got != 1 {
		t.Fatalf("expected 1 revoke, got %d", got)
	}
}

func TestMemoryForgetsReleasedHandles(t *testing.T) {
	reg := testRegistry(t)
	const n = 500
	for i := 0; i < n; i++ {
		reg.Revoke(reg.Create(models.Blob{Data: []byte("payload")}))
	}

	reg.mu.RLock()
	live := len(reg.live)
	reg.mu.RUnlock()
	if live != 0 {
		t.Fatalf("expected no retained handles, got %d", live)
	}
	stats := reg.Stats()
	if stats.Allocated != n || stats.Revoked != n || stats.LiveBytes != 0 || stats.DoubleReleases != 0 {
		t.Fatalf("unexpected stats %#v", stats)
	}
}

func TestMemoryDefaultOrigin(t *testing.T) {
	reg := NewMemory("  /", nil)
	uri := reg.Create(models.Blob{Data: []byte("x")})
	if !strings.HasPrefix(uri, "blob:"+DefaultOrigin+"/") {
		t.Fatalf("unexpected uri %q", uri)
	}
}

func TestMemoryResolveReturnsCopy(t *testing.T) {
	reg := testRegistry(t)
	uri := reg.Create(models.Blob{Data: []byte("abc")})

	blob, _ := reg.Resolve(uri)
	blob.Data[0] = 'z'

	again, _ := reg.Resolve(uri)
	if string(again.Data) != "abc" {
		t.Fatalf("expected stored payload to be unchanged, got %q", again.Data)
	}
}
