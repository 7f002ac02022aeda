package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"blobcache/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "BLOBCACHE_HTTP_TIMEOUT"
	apiTokenEnvKey     = "BLOBCACHE_API_TOKEN"
)

// Client is a simple HTTP client for the blobcache API.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

// CreateBlob creates a record from a JSON payload and adds it to the cache.
func (c *Client) CreateBlob(ctx context.Context, req BlobCreateRequest) (BlobCreateResponse, error) {
	var resp BlobCreateResponse
	err := c.do(ctx, http.MethodPost, "/v1/blobs", nil, req, &resp)
	return resp, err
}

// UploadBlob streams raw content as a multipart upload.
func (c *Client) UploadBlob(ctx context.Context, req BlobUploadRequest, content io.Reader) (BlobCreateResponse, error) {
	var resp BlobCreateResponse
	if content == nil {
		return resp, fmt.Errorf("content is required")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := []struct{ key, value string }{
		{"id", req.ID},
		{"filename", req.Filename},
		{"media_type", req.MediaType},
		{"uri", req.URI},
		{"path", req.Path},
	}
	for _, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		if err := writer.WriteField(field.key, field.value); err != nil {
			return resp, err
		}
	}
	filename := req.Filename
	if filename == "" {
		filename = "blob"
	}
	part, err := writer.CreateFormFile("content", filename)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return resp, err
	}
	if err := writer.Close(); err != nil {
		return resp, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/blobs/upload", body)
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuthHeader(httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func (c *Client) ListBlobs(ctx context.Context, includeData bool) ([]BlobResponse, error) {
	var resp []BlobResponse
	query := url.Values{}
	if includeData {
		query.Set("include_data", "true")
	}
	err := c.do(ctx, http.MethodGet, "/v1/blobs", query, nil, &resp)
	return resp, err
}

func (c *Client) GetBlob(ctx context.Context, id string) (BlobResponse, error) {
	var resp BlobResponse
	err := c.do(ctx, http.MethodGet, "/v1/blobs/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

// LookupByURI finds the cached record that owns an object handle.
func (c *Client) LookupByURI(ctx context.Context, blobURI string) (BlobResponse, error) {
	var resp BlobResponse
	query := url.Values{}
	query.Set("uri", blobURI)
	err := c.do(ctx, http.MethodGet, "/v1/blobs/lookup", query, nil, &resp)
	return resp, err
}

// LookupByData finds the first cached record with the same payload and media type.
func (c *Client) LookupByData(ctx context.Context, base64Data, mediaType string) (BlobResponse, error) {
	var resp BlobResponse
	query := url.Values{}
	query.Set("base64", base64Data)
	query.Set("media_type", mediaType)
	err := c.do(ctx, http.MethodGet, "/v1/blobs/lookup", query, nil, &resp)
	return resp, err
}

// OpenObject dereferences an object handle. The caller closes the returned body.
func (c *Client) OpenObject(ctx context.Context, blobURI string) (io.ReadCloser, string, error) {
	query := url.Values{}
	query.Set("uri", blobURI)
	return c.openRaw(ctx, "/v1/objects", query)
}

func (c *Client) RemoveBlob(ctx context.Context, blobURI string) (BlobRemoveResponse, error) {
	var resp BlobRemoveResponse
	query := url.Values{}
	query.Set("uri", blobURI)
	err := c.do(ctx, http.MethodDelete, "/v1/blobs", query, nil, &resp)
	return resp, err
}

func (c *Client) Destroy(ctx context.Context) (DestroyResponse, error) {
	var resp DestroyResponse
	err := c.do(ctx, http.MethodPost, "/v1/blobs/destroy", nil, nil, &resp)
	return resp, err
}

func (c *Client) PersistBlob(ctx context.Context, id string) (PersistResponse, error) {
	var resp PersistResponse
	err := c.do(ctx, http.MethodPost, "/v1/blobs/"+url.PathEscape(id)+"/persist", nil, nil, &resp)
	return resp, err
}

func (c *Client) PersistAll(ctx context.Context) (PersistAllResponse, error) {
	var resp PersistAllResponse
	err := c.do(ctx, http.MethodPost, "/v1/blobs/persist", nil, nil, &resp)
	return resp, err
}

func (c *Client) ListAssets(ctx context.Context, limit, offset int) ([]models.Asset, error) {
	var resp []models.Asset
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	err := c.do(ctx, http.MethodGet, "/v1/assets", query, nil, &resp)
	return resp, err
}

func (c *Client) GetAsset(ctx context.Context, id string) (models.Asset, error) {
	var resp models.Asset
	err := c.do(ctx, http.MethodGet, "/v1/assets/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

// LookupAsset finds a persisted asset by payload digest and media type.
func (c *Client) LookupAsset(ctx context.Context, digest, mediaType string) (models.Asset, error) {
	var resp models.Asset
	query := url.Values{}
	query.Set("digest", digest)
	if mediaType != "" {
		query.Set("media_type", mediaType)
	}
	err := c.do(ctx, http.MethodGet, "/v1/assets/lookup", query, nil, &resp)
	return resp, err
}

// OpenAssetContent streams persisted asset bytes. The caller closes the returned body.
func (c *Client) OpenAssetContent(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return c.openRaw(ctx, "/v1/assets/"+url.PathEscape(id)+"/content", nil)
}

func (c *Client) DeleteAsset(ctx context.Context, id string) (AssetDeleteResponse, error) {
	var resp AssetDeleteResponse
	err := c.do(ctx, http.MethodDelete, "/v1/assets/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) openRaw(ctx context.Context, path string, query url.Values) (io.ReadCloser, string, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	c.setAuthHeader(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, "", decodeError(resp)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
