package models

import "fmt"

// CreateInput is one of the accepted shapes for creating a BlobInfo:
// ByID or ByRecord.
type CreateInput interface {
	blobInfoData() BlobInfoData
}

// ByID creates a record from an id and positional payload fields.
// Name is accepted for call-site symmetry but the record name and path
// are both taken from Filename.
type ByID struct {
	ID       string
	Blob     Blob
	Base64   string
	Name     string
	Filename string
}

func (in ByID) blobInfoData() BlobInfoData {
	return BlobInfoData{
		ID:     in.ID,
		Name:   in.Filename,
		Blob:   in.Blob,
		Base64: in.Base64,
		Path:   in.Filename,
	}
}

// ByRecord creates a record from a full attribute set.
type ByRecord struct {
	BlobInfoData
}

func (in ByRecord) blobInfoData() BlobInfoData {
	return in.BlobInfoData
}

// ResolveCreateInput returns the attribute set carried by in.
func ResolveCreateInput(in CreateInput) (BlobInfoData, error) {
	switch v := in.(type) {
	case ByID:
		return v.blobInfoData(), nil
	case *ByID:
		if v != nil {
			return v.blobInfoData(), nil
		}
	case ByRecord:
		return v.blobInfoData(), nil
	case *ByRecord:
		if v != nil {
			return v.blobInfoData(), nil
		}
	}
	return BlobInfoData{}, fmt.Errorf("%w: unknown input type", ErrInvalidArgument)
}
