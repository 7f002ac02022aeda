package models

import (
	"errors"
	"testing"
)

func TestMimeToExt(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":    "jpg",
		"IMAGE/JPG":     "jpg",
		"image/svg+xml": "svg",
		"image/webp":    "webp",
		" image/png ":   "png",
		"text/plain":    "dat",
		"":              "dat",
	}
	for mime, want := range tests {
		if got := MimeToExt(mime); got != want {
			t.Fatalf("MimeToExt(%q): expected %q, got %q", mime, want, got)
		}
	}
}

func TestNewBlobInfoPathPrefix(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "", want: ""},
		{path: "photo.png", want: ""},
		{path: "a/b/photo.png", want: "a/b/"},
		{path: "a/b/", want: "a/b/"},
		{path: "/root.png", want: "/"},
	}

	for _, tt := range tests {
		info, err := NewBlobInfo(BlobInfoData{
			ID:      "id",
			Blob:    Blob{Data: []byte("x")},
			Base64:  "eA==",
			BlobURI: "blob:test/1",
			Path:    tt.path,
		}, nil, nil)
		if err != nil {
			t.Fatalf("new blob info: %v", err)
		}
		if info.Path() != tt.want {
			t.Fatalf("path %q: expected %q, got %q", tt.path, tt.want, info.Path())
		}
	}
}

func TestNewBlobInfoRequiresCollaboratorsWhenDefaulting(t *testing.T) {
	data := BlobInfoData{Blob: Blob{Data: []byte("x")}, Base64: "eA=="}
	if _, err := NewBlobInfo(data, nil, func(Blob) string { return "blob:x" }); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument without id generator, got %v", err)
	}

	data.ID = "id"
	if _, err := NewBlobInfo(data, nil, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument without allocator, got %v", err)
	}
}

func TestResolveCreateInput(t *testing.T) {
	data, err := ResolveCreateInput(&ByRecord{BlobInfoData: BlobInfoData{ID: "r"}})
	if err != nil || data.ID != "r" {
		t.Fatalf("expected pointer record to resolve, got %#v %v", data, err)
	}

	data, err = ResolveCreateInput(ByID{ID: "i", Filename: "dir/f.png", Name: "other"})
	if err != nil {
		t.Fatalf("resolve by id: %v", err)
	}
	if data.Name != "dir/f.png" || data.Path != "dir/f.png" {
		t.Fatalf("expected name and path from filename, got %#v", data)
	}

	if _, err := ResolveCreateInput((*ByRecord)(nil)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestParseCompression(t *testing.T) {
	if got, err := ParseCompression(""); err != nil || got != CompressionNone {
		t.Fatalf("expected default none, got %q %v", got, err)
	}
	if got, err := ParseCompression(" ZSTD "); err != nil || got != CompressionZstd {
		t.Fatalf("expected zstd, got %q %v", got, err)
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Fatal("expected error for unsupported compression")
	}
}
