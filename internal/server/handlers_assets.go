package server

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"blobcache/internal/api"
	"blobcache/internal/models"
)

const defaultAssetPageSize = 100

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	limit, err := queryIntDefault(r, "limit", defaultAssetPageSize)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	offset, err := queryIntDefault(r, "offset", 0)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	assets, err := s.persist.ListAssets(r.Context(), limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if assets == nil {
		assets = []models.Asset{}
	}
	s.writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	asset, err := s.persist.GetAsset(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleLookupAsset(w http.ResponseWriter, r *http.Request) {
	dgst, err := requireQuery(r, "digest")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	asset, err := s.persist.LookupAsset(r.Context(), dgst, r.URL.Query().Get("media_type"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleGetAssetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	content, err := s.persist.OpenAssetContent(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer content.Reader.Close()

	w.Header().Set("Content-Type", content.MediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(content.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": content.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content.Reader); err != nil {
		s.log().Warn("stream asset content", "id", id, "error", err)
	}
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	blobDeleted, err := s.persist.DeleteAsset(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AssetDeleteResponse{ID: id, BlobDeleted: blobDeleted})
}
