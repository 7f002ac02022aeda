package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check, info and metrics.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Cache collection.
	mux.HandleFunc("POST /v1/blobs", s.handleCreateBlob)
	mux.HandleFunc("GET /v1/blobs", s.handleListBlobs)
	mux.HandleFunc("DELETE /v1/blobs", s.handleRemoveBlob)
	mux.HandleFunc("POST /v1/blobs/upload", s.handleUploadBlob)
	mux.HandleFunc("POST /v1/blobs/destroy", s.handleDestroy)
	mux.HandleFunc("POST /v1/blobs/persist", s.handlePersistAll)

	// Cache lookups.
	mux.HandleFunc("GET /v1/blobs/lookup", s.handleLookupBlob)
	mux.HandleFunc("GET /v1/objects", s.handleGetObject)

	// Single record.
	mux.HandleFunc("GET /v1/blobs/{id}", s.handleGetBlob)
	mux.HandleFunc("POST /v1/blobs/{id}/persist", s.handlePersistBlob)

	// Persisted assets.
	mux.HandleFunc("GET /v1/assets", s.handleListAssets)
	mux.HandleFunc("GET /v1/assets/lookup", s.handleLookupAsset)
	mux.HandleFunc("GET /v1/assets/{id}", s.handleGetAsset)
	mux.HandleFunc("GET /v1/assets/{id}/content", s.handleGetAssetContent)
	mux.HandleFunc("DELETE /v1/assets/{id}", s.handleDeleteAsset)

	return s.withRequestLogging(s.withAuth(mux))
}
