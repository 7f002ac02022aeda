package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"blobcache/internal/api"
	"blobcache/internal/models"
)

const (
	defaultUploadMaxBody  = 100 << 20 // 100 MiB
	uploadMultipartMemory = 8 << 20   // 8 MiB
	uploadFormOverhead    = 64 << 10
)

func (s *Server) handleCreateBlob(w http.ResponseWriter, r *http.Request) {
	maxBody := int64(defaultUploadMaxBody)
	if limit := s.blobs.MaxBlobBytes(); limit > 0 {
		maxBody = limit/3*4 + 4 + blobJSONOverhead
	}

	var req api.BlobCreateRequest
	if !s.decodeJSONReq(w, r, maxBody, &req) {
		return
	}

	info, added, err := s.blobs.Create(CreateBlobInput{
		ID:        req.ID,
		Name:      req.Name,
		Filename:  req.Filename,
		MediaType: req.MediaType,
		URI:       req.URI,
		Path:      req.Path,
		Base64:    req.Base64,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeCreated(w, info, added, "json")
}

func (s *Server) handleUploadBlob(w http.ResponseWriter, r *http.Request) {
	maxBody := int64(defaultUploadMaxBody)
	if limit := s.blobs.MaxBlobBytes(); limit > 0 {
		maxBody = limit + uploadFormOverhead
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(uploadMultipartMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}

	file, header, err := r.FormFile("content")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	buffered := bufio.NewReader(file)
	peek, _ := buffered.Peek(512)
	mediaType := strings.TrimSpace(r.FormValue("media_type"))
	if mediaType == "" {
		mediaType = http.DetectContentType(peek)
	}
	data, err := io.ReadAll(buffered)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("read content: %w", err), ErrCodeInvalidPayload))
		return
	}

	id := strings.TrimSpace(r.FormValue("id"))
	filename := uploadFilename(r.FormValue("filename"), header.Filename)
	if filename == "" {
		if id == "" {
			if id, err = s.blobs.NewID(); err != nil {
				s.writeServiceError(w, r, err)
				return
			}
		}
		normalized, _ := normalizeMediaType(mediaType)
		filename = id + "." + models.MimeToExt(normalized)
	}

	info, added, err := s.blobs.Create(CreateBlobInput{
		ID:        id,
		Filename:  filename,
		MediaType: mediaType,
		URI:       r.FormValue("uri"),
		Path:      r.FormValue("path"),
		Data:      data,
		Dedupe:    true,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeCreated(w, info, added, "upload")
}

func (s *Server) handleListBlobs(w http.ResponseWriter, r *http.Request) {
	includeData, err := queryBool(r, "include_data")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	records := s.blobs.List()
	resp := make([]api.BlobResponse, 0, len(records))
	for _, info := range records {
		resp = append(resp, toBlobResponse(info, includeData))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	info, err := s.blobs.Get(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toBlobResponse(info, true))
}

func (s *Server) handleLookupBlob(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	blobURI := strings.TrimSpace(query.Get("uri"))
	encoded := strings.TrimSpace(query.Get("base64"))

	var (
		info *models.BlobInfo
		err  error
	)
	switch {
	case blobURI != "" && encoded != "":
		err = badRequestCode(fmt.Errorf("uri and base64 are mutually exclusive"), ErrCodeInvalidQuery)
	case blobURI != "":
		info, err = s.blobs.LookupByURI(blobURI)
	case encoded != "":
		info, err = s.blobs.LookupByData(encoded, query.Get("media_type"))
	default:
		err = badRequestCode(fmt.Errorf("uri or base64 is required"), ErrCodeMissingRequired)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toBlobResponse(info, false))
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	blobURI, err := requireQuery(r, "uri")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	blob, err := s.blobs.ResolveObject(blobURI)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	mediaType := blob.Type
	if mediaType == "" {
		mediaType = fallbackMediaType
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(blob.Size()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Data); err != nil {
		s.log().Debug("write object", "uri", blobURI, "error", err)
	}
}

func (s *Server) handleRemoveBlob(w http.ResponseWriter, r *http.Request) {
	blobURI, err := requireQuery(r, "uri")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	removed := s.blobs.Remove(blobURI)
	blobsReleasedMetric.Add(float64(removed))
	s.observeCache()
	s.writeJSON(w, http.StatusOK, api.BlobRemoveResponse{URI: blobURI, Removed: removed > 0})
}

func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	released := s.blobs.Destroy()
	blobsReleasedMetric.Add(float64(released))
	s.observeCache()
	s.writeJSON(w, http.StatusOK, api.DestroyResponse{Released: released})
}

func (s *Server) handlePersistBlob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathIDOrBadRequest(w, r)
	if !ok {
		return
	}
	asset, created, err := s.persist.Persist(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, api.PersistResponse{Asset: asset, Created: created})
}

func (s *Server) handlePersistAll(w http.ResponseWriter, r *http.Request) {
	s.withLimiter(w, r, s.persistLimiter, "persist", func() {
		assets, created, err := s.persist.PersistAll(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if assets == nil {
			assets = []models.Asset{}
		}
		s.writeJSON(w, http.StatusOK, api.PersistAllResponse{Assets: assets, Created: created})
	})
}

func (s *Server) writeCreated(w http.ResponseWriter, info *models.BlobInfo, added bool, source string) {
	status := http.StatusOK
	if added {
		status = http.StatusCreated
		blobsAddedMetric.WithLabelValues(source).Inc()
	}
	s.observeCache()
	s.writeJSON(w, status, api.BlobCreateResponse{Blob: toBlobResponse(info, false), Added: added})
}

func toBlobResponse(info *models.BlobInfo, includeData bool) api.BlobResponse {
	resp := api.BlobResponse{
		ID:        info.ID(),
		Name:      info.Name(),
		Filename:  info.Filename(),
		MediaType: info.MediaType(),
		SizeBytes: info.Size(),
		BlobURI:   info.BlobURI(),
		URI:       info.URI(),
		Path:      info.Path(),
	}
	if includeData {
		resp.Base64 = info.Base64()
	}
	return resp
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return tooLarge(fmt.Errorf("request body too large"))
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}

// uploadFilename prefers the declared filename. A part filename without an
// extension (browsers name pasted images "blob") is treated as absent.
func uploadFilename(declared, part string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	part = strings.TrimSpace(part)
	if path.Ext(part) == "" {
		return ""
	}
	return part
}
