package server

import (
	"net/http"

	"blobcache/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	assets, assetBytes, err := s.persist.Totals(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	stats := s.handles.Stats()
	resp := api.InfoResponse{
		Records: s.cache.Len(),
		Handles: api.HandleStats{
			Live:           stats.Live,
			Allocated:      stats.Allocated,
			Revoked:        stats.Revoked,
			DoubleReleases: stats.DoubleReleases,
			LiveBytes:      stats.LiveBytes,
		},
		Persistence: s.persist.Enabled(),
		Assets:      assets,
		AssetBytes:  assetBytes,
		DBPath:      s.dbPath,
		BlobRoot:    s.blobRoot,
		AuthEnabled: s.tokenHash != "",
	}

	s.writeJSON(w, http.StatusOK, resp)
}
