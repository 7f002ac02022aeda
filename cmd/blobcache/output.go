package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"blobcache/internal/api"
	"blobcache/internal/format"
	"blobcache/internal/models"
)

var (
	outputFormatter format.Formatter = format.JSONFormatter{}
	detailFormatter format.Formatter = format.PlainFormatter{}
)

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeBlobList(blobs []api.BlobResponse) error {
	for _, blob := range blobs {
		if err := writePlain("%s\n", formatBlobLine(blob)); err != nil {
			return err
		}
	}
	return nil
}

func writeBlobDetail(blob api.BlobResponse) error {
	return detailFormatter.Write(os.Stdout, []format.Field{
		{Key: "id", Value: blob.ID},
		{Key: "name", Value: blob.Name},
		{Key: "filename", Value: blob.Filename},
		{Key: "media_type", Value: blob.MediaType},
		{Key: "size_bytes", Value: strconv.Itoa(blob.SizeBytes)},
		{Key: "blob_uri", Value: blob.BlobURI},
		{Key: "uri", Value: blob.URI},
		{Key: "path", Value: blob.Path},
	})
}

func formatBlobLine(blob api.BlobResponse) string {
	return fmt.Sprintf("%s [%s] %d %s", blob.ID, blob.MediaType, blob.SizeBytes, blob.BlobURI)
}

func writeAssetList(assets []models.Asset) error {
	for _, asset := range assets {
		if err := writePlain("%s [%s] %d %s\n", asset.ID, asset.MediaType, asset.SizeBytes, asset.Digest); err != nil {
			return err
		}
	}
	return nil
}

func writeAssetDetail(asset models.Asset) error {
	return detailFormatter.Write(os.Stdout, []format.Field{
		{Key: "id", Value: asset.ID},
		{Key: "name", Value: asset.Name},
		{Key: "filename", Value: asset.Filename},
		{Key: "media_type", Value: asset.MediaType},
		{Key: "size_bytes", Value: strconv.FormatInt(asset.SizeBytes, 10)},
		{Key: "digest", Value: asset.Digest},
		{Key: "compression", Value: asset.Compression},
		{Key: "source_uri", Value: asset.SourceURI},
		{Key: "path_prefix", Value: asset.PathPrefix},
		{Key: "created_at", Value: formatTime(asset.CreatedAt)},
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
