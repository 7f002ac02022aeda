package api

import "blobcache/internal/models"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// BlobCreateRequest is the payload for POST /v1/blobs. When only id and
// filename are supplied the record is built in shorthand form, taking its
// name and path from the filename.
type BlobCreateRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Base64    string `json:"base64"`
	MediaType string `json:"media_type"`
	URI       string `json:"uri,omitempty"`
	Path      string `json:"path,omitempty"`
}

// BlobUploadRequest carries the optional form fields of a multipart upload.
type BlobUploadRequest struct {
	ID        string
	Filename  string
	MediaType string
	URI       string
	Path      string
}

// BlobResponse describes one cached record.
type BlobResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	SizeBytes int    `json:"size_bytes"`
	BlobURI   string `json:"blob_uri"`
	URI       string `json:"uri,omitempty"`
	Path      string `json:"path,omitempty"`
	Base64    string `json:"base64,omitempty"`
}

// BlobCreateResponse reports the cached record and whether this request added it.
type BlobCreateResponse struct {
	Blob  BlobResponse `json:"blob"`
	Added bool         `json:"added"`
}

// BlobRemoveResponse is the response from DELETE /v1/blobs.
type BlobRemoveResponse struct {
	URI     string `json:"uri"`
	Removed bool   `json:"removed"`
}

// DestroyResponse is the response from POST /v1/blobs/destroy.
type DestroyResponse struct {
	Released int `json:"released"`
}

// PersistResponse reports one persisted record.
type PersistResponse struct {
	Asset   models.Asset `json:"asset"`
	Created bool         `json:"created"`
}

// PersistAllResponse reports a bulk persist run.
type PersistAllResponse struct {
	Assets  []models.Asset `json:"assets"`
	Created int            `json:"created"`
}

// AssetDeleteResponse is the response from DELETE /v1/assets/{id}.
type AssetDeleteResponse struct {
	ID          string `json:"id"`
	BlobDeleted bool   `json:"blob_deleted"`
}

// HandleStats mirrors the object handle counters.
type HandleStats struct {
	Live           int   `json:"live"`
	Allocated      int64 `json:"allocated"`
	Revoked        int64 `json:"revoked"`
	DoubleReleases int64 `json:"double_releases"`
	LiveBytes      int64 `json:"live_bytes"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	Records     int         `json:"records"`
	Handles     HandleStats `json:"handles"`
	Persistence bool        `json:"persistence"`
	Assets      int         `json:"assets"`
	AssetBytes  int64       `json:"asset_bytes"`
	DBPath      string      `json:"db_path,omitempty"`
	BlobRoot    string      `json:"blob_root,omitempty"`
	AuthEnabled bool        `json:"auth_enabled"`
}
