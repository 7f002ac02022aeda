package models

import "strings"

const defaultExtension = "dat"

var mimeExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/gif":     "gif",
	"image/png":     "png",
	"image/apng":    "apng",
	"image/avif":    "avif",
	"image/svg+xml": "svg",
	"image/webp":    "webp",
	"image/bmp":     "bmp",
	"image/tiff":    "tiff",
}

// MimeToExt maps an image MIME type to a file extension, "dat" if unknown.
func MimeToExt(mime string) string {
	if ext, ok := mimeExtensions[strings.ToLower(strings.TrimSpace(mime))]; ok {
		return ext
	}
	return defaultExtension
}
