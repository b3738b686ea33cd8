package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

// maxUploadBytes bounds a single multipart upload.
const maxUploadBytes = 16 << 20

func (s *Server) handleUploadHint(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Use POST with a multipart form field named \"file\" to upload a document.",
		"formats": ".txt, .md, .pdf",
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !extract.Supported(header.Filename) {
		s.respondError(w, http.StatusBadRequest, "unsupported file format, expected .txt, .md, or .pdf")
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int("bytes", len(content)))

	res, err := s.pipeline.Ingest(r.Context(), header.Filename, content)
	if err != nil {
		s.respondPipelineError(w, "upload failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var query models.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	results, err := s.pipeline.Retrieve(r.Context(), &query)
	if err != nil {
		s.respondPipelineError(w, "query failed", err)
		return
	}
	if results == nil {
		results = []models.RetrievalResult{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var query models.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("answer request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	pkg, err := s.pipeline.Answer(r.Context(), &query)
	if err != nil {
		s.respondPipelineError(w, "answer failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, pkg)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.pipeline.Stats(r.Context())
	if err != nil {
		s.respondPipelineError(w, "stats failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"chunk_count": count,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", vectorstore.DefaultListLimit)
	offset := queryInt(r, "offset", 0)
	chunks, total, err := s.pipeline.List(r.Context(), limit, offset)
	if err != nil {
		s.respondPipelineError(w, "list documents failed", err)
		return
	}
	if chunks == nil {
		chunks = []*models.Chunk{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"documents":   chunks,
		"count":       len(chunks),
		"total_count": total,
	})
}

type collectionRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleUseCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.pipeline.UseCollection(r.Context(), req.Name); err != nil {
		s.respondPipelineError(w, "switch collection failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "collection": req.Name})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Reset(r.Context()); err != nil {
		s.respondPipelineError(w, "reset failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "collection reset"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.pipeline.Health(r.Context())
	status := http.StatusOK
	if !h.StoreOK || !h.EmbeddingProviderOK {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, h)
}

// respondPipelineError maps pipeline errors to HTTP statuses: validation and
// format errors are the client's fault, an unreachable store is a 503, and
// everything else is a 500.
func (s *Server) respondPipelineError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, extract.ErrUnsupportedFormat):
		s.logger.Debug(msg, zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, vectorstore.ErrUnavailable):
		s.logger.Error(msg, zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error(msg, zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
