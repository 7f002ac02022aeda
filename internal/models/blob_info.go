package models

import (
	"fmt"
	"strings"
)

// BlobInfoData is the full attribute set a BlobInfo can be built from.
type BlobInfoData struct {
	ID       string
	Name     string
	Filename string
	Blob     Blob
	Base64   string
	BlobURI  string
	URI      string
	Path     string
}

// BlobInfo describes one cached binary asset. It is immutable once built.
type BlobInfo struct {
	id       string
	name     string
	filename string
	blob     Blob
	base64   string
	blobURI  string
	uri      string
	path     string
}

func (b *BlobInfo) ID() string       { return b.id }
func (b *BlobInfo) Name() string     { return b.name }
func (b *BlobInfo) Filename() string { return b.filename }
func (b *BlobInfo) Base64() string   { return b.base64 }
func (b *BlobInfo) BlobURI() string  { return b.blobURI }

// URI returns the source URI the payload was fetched from, if any.
func (b *BlobInfo) URI() string { return b.uri }

// Path returns the directory prefix of the asset path, including the trailing slash.
func (b *BlobInfo) Path() string { return b.path }

// Blob returns a copy of the payload.
func (b *BlobInfo) Blob() Blob { return b.blob.Clone() }

// MediaType returns the declared MIME type of the payload.
func (b *BlobInfo) MediaType() string { return b.blob.Type }

// Size returns the payload length in bytes.
func (b *BlobInfo) Size() int { return b.blob.Size() }

// NewBlobInfo validates data and builds a BlobInfo. newID is consulted when
// data carries no id; allocate is consulted when data carries no blob URI.
func NewBlobInfo(data BlobInfoData, newID func() (string, error), allocate func(Blob) string) (*BlobInfo, error) {
	if data.Blob.Size() == 0 || data.Base64 == "" {
		return nil, fmt.Errorf("%w: blob and base64 representations of the image are required for BlobInfo to be created", ErrMissingField)
	}

	id := data.ID
	if id == "" {
		if newID == nil {
			return nil, fmt.Errorf("%w: id generator is required", ErrInvalidArgument)
		}
		generated, err := newID()
		if err != nil {
			return nil, err
		}
		id = generated
	}

	name := data.Name
	if name == "" {
		name = id
	}

	blob := data.Blob.Clone()
	blobURI := data.BlobURI
	if blobURI == "" {
		if allocate == nil {
			return nil, fmt.Errorf("%w: object url allocator is required", ErrInvalidArgument)
		}
		blobURI = allocate(blob)
	}

	return &BlobInfo{
		id:       id,
		name:     name,
		filename: name[strings.LastIndex(name, "/")+1:],
		blob:     blob,
		base64:   data.Base64,
		blobURI:  blobURI,
		uri:      data.URI,
		path:     data.Path[:strings.LastIndex(data.Path, "/")+1],
	}, nil
}
