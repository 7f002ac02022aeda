package models

import (
	"fmt"
	"strings"
	"time"
)

// Compression names the at-rest encoding of a persisted payload.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

var validCompressions = map[Compression]struct{}{
	CompressionNone: {},
	CompressionZstd: {},
}

// Asset is a cached blob that has been persisted server-side.
type Asset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Filename    string    `json:"filename"`
	MediaType   string    `json:"media_type"`
	Digest      string    `json:"digest"`
	SizeBytes   int64     `json:"size_bytes"`
	BlobKey     string    `json:"blob_key"`
	Compression string    `json:"compression"`
	SourceURI   string    `json:"source_uri,omitempty"`
	PathPrefix  string    `json:"path_prefix,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func ParseCompression(raw string) (Compression, error) {
	value := Compression(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return CompressionNone, nil
	}
	if _, ok := validCompressions[value]; !ok {
		return "", fmt.Errorf("invalid compression: %s", value)
	}
	return value, nil
}
