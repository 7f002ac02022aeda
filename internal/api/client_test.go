package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPTimeoutFromEnv(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})

	t.Run("duration format", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "45s")
		if got := httpTimeoutFromEnv(); got != 45*time.Second {
			t.Fatalf("expected 45s timeout, got %v", got)
		}
	})

	t.Run("integer seconds", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "25")
		if got := httpTimeoutFromEnv(); got != 25*time.Second {
			t.Fatalf("expected 25s timeout, got %v", got)
		}
	})

	t.Run("invalid falls back", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "invalid")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})
}

func TestDecodeErrorReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "blob not found", Code: "not_found", ErrorCode: 2001})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.GetBlob(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T (%v)", err, err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.ErrorCode != 2001 || apiErr.Code != "not_found" {
		t.Fatalf("unexpected api error %#v", apiErr)
	}
	if apiErr.Error() != "not_found (2001): blob not found" {
		t.Fatalf("unexpected message %q", apiErr.Error())
	}
	if !IsNotFound(err) || !HasErrorCode(err, 2001) || HasErrorCode(err, 2002) {
		t.Fatalf("unexpected classification for %v", err)
	}
}

func TestDecodeErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Ping(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502 api error, got %v", err)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	t.Setenv(apiTokenEnvKey, "  secret-token-value  ")
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(DestroyResponse{Released: 2})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL + "/").Destroy(context.Background())
	if err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if resp.Released != 2 {
		t.Fatalf("expected released=2, got %d", resp.Released)
	}
	if gotAuth != "Bearer secret-token-value" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
}

func TestUploadBlobSendsMultipart(t *testing.T) {
	t.Setenv(apiTokenEnvKey, "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/blobs/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		file, header, err := r.FormFile("content")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		_ = json.NewEncoder(w).Encode(BlobCreateResponse{
			Blob: BlobResponse{
				ID:        r.FormValue("id"),
				Filename:  header.Filename,
				MediaType: r.FormValue("media_type"),
				SizeBytes: len(data),
			},
			Added: true,
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).UploadBlob(context.Background(), BlobUploadRequest{
		ID:        "img1",
		Filename:  "photo.png",
		MediaType: "image/png",
	}, strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !resp.Added || resp.Blob.ID != "img1" || resp.Blob.Filename != "photo.png" || resp.Blob.SizeBytes != 7 {
		t.Fatalf("unexpected response %#v", resp)
	}
	if resp.Blob.MediaType != "image/png" {
		t.Fatalf("expected declared media type, got %q", resp.Blob.MediaType)
	}
}

func TestLookupByDataEncodesQuery(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(BlobResponse{ID: "img1"})
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).LookupByData(context.Background(), "ab+/cd==", "image/png"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := gotQuery["base64"]; len(got) != 1 || got[0] != "ab+/cd==" {
		t.Fatalf("unexpected base64 query %#v", got)
	}
	if got := gotQuery["media_type"]; len(got) != 1 || got[0] != "image/png" {
		t.Fatalf("unexpected media_type query %#v", got)
	}
}
