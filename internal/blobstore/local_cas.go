package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	digest "github.com/opencontainers/go-digest"

	"blobcache/internal/models"
)

// LocalCAS stores blob bytes in a local content-addressed tree.
type LocalCAS struct {
	root        string
	compression models.Compression
}

// Option configures a LocalCAS.
type Option func(*LocalCAS)

// WithCompression sets the at-rest encoding for newly written objects.
func WithCompression(c models.Compression) Option {
	return func(cas *LocalCAS) {
		cas.compression = c
	}
}

// NewLocalCAS creates a local CAS rooted at root.
func NewLocalCAS(root string, opts ...Option) (*LocalCAS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local cas root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	cas := &LocalCAS{root: abs, compression: models.CompressionNone}
	for _, opt := range opts {
		opt(cas)
	}
	if _, err := models.ParseCompression(string(cas.compression)); err != nil {
		return nil, err
	}
	return cas, nil
}

// Put streams bytes, computes the SHA-256 digest of the uncompressed
// content, and stores it by digest.
func (c *LocalCAS) Put(ctx context.Context, r io.Reader) (BlobPutResult, error) {
	var zero BlobPutResult
	if c == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(c.root, "tmp"), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	digester := digest.SHA256.Digester()
	var sink io.Writer = tmp
	var enc *zstd.Encoder
	if c.compression == models.CompressionZstd {
		enc, err = zstd.NewWriter(tmp, zstd.WithEncoderConcurrency(1))
		if err != nil {
			cleanup()
			return zero, err
		}
		sink = enc
	}

	n, err := io.Copy(io.MultiWriter(sink, digester.Hash()), r)
	if err != nil {
		if enc != nil {
			_ = enc.Close()
		}
		cleanup()
		return zero, err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			cleanup()
			return zero, err
		}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}

	dgst := digester.Digest()
	key := casKey(dgst, c.compression)
	result := BlobPutResult{Digest: dgst.String(), SizeBytes: n, BlobKey: key, Compression: string(c.compression)}
	dst := filepath.Join(c.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return zero, err
	}

	if _, err := os.Stat(dst); err == nil {
		_ = os.Remove(tmpPath)
		return result, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		cleanup()
		return zero, err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(tmpPath)
			return result, nil
		}
		cleanup()
		return zero, err
	}

	return result, nil
}

// Open returns a reader for blob key content, decompressing if needed.
func (c *LocalCAS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if c == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := c.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(key, zstdKeySuffix) {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &zstdReadCloser{dec: dec, f: f}, nil
}

// Delete removes a blob object. Missing files are ignored.
func (c *LocalCAS) Delete(ctx context.Context, key string) error {
	if c == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

const zstdKeySuffix = ".zst"

func casKey(dgst digest.Digest, compression models.Compression) string {
	hex := dgst.Encoded()
	key := fmt.Sprintf("%s/%s/%s/%s", dgst.Algorithm(), hex[0:2], hex[2:4], hex)
	if compression == models.CompressionZstd {
		key += zstdKeySuffix
	}
	return key
}

func (c *LocalCAS) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || strings.Contains(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key")
	}
	return filepath.Join(c.root, clean), nil
}

type zstdReadCloser struct {
	dec *zstd.Decoder
	f   *os.File
}

func (z *zstdReadCloser) Read(p []byte) (int, error) {
	return z.dec.Read(p)
}

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.f.Close()
}

var _ BlobStore = (*LocalCAS)(nil)
