package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/imagefile"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/storage"
)

// handleAddImage accepts a multipart upload with an "image" file part
// and an optional "description" field. The upload is spooled to a temp
// file and handed to the ingest pipeline.
func (s *Server) handleAddImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()
	description := r.FormValue("description")

	tmp, err := os.CreateTemp("", "miru-upload-*")
	if err != nil {
		s.logger.Error("temp file creation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to receive upload")
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		s.logger.Error("upload spool failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to receive upload")
		return
	}
	if err := tmp.Close(); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to receive upload")
		return
	}

	s.logger.Debug("add image request",
		zap.String("original_filename", header.Filename),
		zap.Int64("size", header.Size),
	)
	res := s.pipeline.AddImage(r.Context(), tmpPath, header.Filename, description)
	if !res.Success {
		status := http.StatusInternalServerError
		if errors.Is(res.Cause(), imagefile.ErrInvalidImage) {
			status = http.StatusBadRequest
		}
		s.respondJSON(w, status, res)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListAll(r.Context())
	if err != nil {
		s.logger.Error("list images failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summaries := make([]*models.ImageSummary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, &models.ImageSummary{
			ID:               rec.ID,
			StoredFilename:   rec.StoredFilename,
			OriginalFilename: rec.OriginalFilename,
			UploadedAt:       rec.UploadedAt,
			Description:      rec.Description,
			Path:             s.files.Path(rec.StoredFilename),
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"images": summaries,
		"total":  len(summaries),
	})
}

// handleSearch validates query parameters before any model work: a
// missing query or malformed top_k is rejected without touching the
// embedder.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	queryText := r.URL.Query().Get("query")
	if strings.TrimSpace(queryText) == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	topK := 0
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "top_k must be a positive integer")
			return
		}
		topK = n
	}

	query := &models.SearchQuery{
		Query: queryText,
		TopK:  topK,
		Mode:  models.SearchMode(r.URL.Query().Get("mode")),
	}
	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.Int("top_k", query.TopK),
		zap.String("mode", string(query.Mode)),
	)
	response, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

// handleDownloadImage serves the stored file as an attachment under its
// original filename. Unknown ids and rows whose file is gone are 404s.
func (s *Server) handleDownloadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid image id")
		return
	}
	rec, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "image not found")
			return
		}
		s.logger.Error("get image failed", zap.Int64("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	path := s.files.Path(rec.StoredFilename)
	if _, err := os.Stat(path); err != nil {
		s.logger.Warn("stored file missing", zap.Int64("id", id), zap.String("path", path))
		s.respondError(w, http.StatusNotFound, "image file not found")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+rec.OriginalFilename+`"`)
	http.ServeFile(w, r, path)
}

// handleThumbnail serves the JPEG thumbnail for an image, generating it
// on first request if the stored file still exists.
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid image id")
		return
	}
	rec, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "image not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	thumbPath := s.files.ThumbnailPath(rec.ID)
	if _, err := os.Stat(thumbPath); err != nil {
		generated, err := s.files.CreateThumbnail(s.files.Path(rec.StoredFilename), rec.ID)
		if err != nil {
			s.respondError(w, http.StatusNotFound, "thumbnail not available")
			return
		}
		thumbPath = generated
	}
	http.ServeFile(w, r, thumbPath)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	imageCount, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Error("status: count images failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"images": imageCount,
	}
	if s.kwIndex != nil {
		if n, err := s.kwIndex.DocCount(); err == nil {
			resp["keyword_documents"] = n
		}
	}

	configInfo := map[string]interface{}{
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"default_top_k":        s.config.Search.DefaultTopK,
		"database_path":        s.config.Storage.DatabasePath,
		"images_dir":           s.config.Storage.ImagesDir,
		"bleve_index_path":     s.config.Storage.BleveIndexPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.ImagesDir,
		s.config.Storage.ThumbnailsDir,
		s.config.Storage.BleveIndexPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	dirs := s.watch.Directories()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": dirs})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	s.config.Watch.Directories = s.watch.Directories()
	err := config.Save(s.configPath, s.config)
	s.configMu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
