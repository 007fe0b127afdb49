package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"

	_ "image/jpeg"
	_ "image/png"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
)

// maxImageUpload bounds multipart uploads for image search
const maxImageUpload = 10 << 20 // 10 MiB

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health endpoints

// handleHealth reports service health including search index status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	esStatus := "connected"

	if err := s.searchIndex.HealthCheck(r.Context()); err != nil {
		status = "degraded"
		esStatus = "disconnected"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":        status,
		"elasticsearch": esStatus,
	})
}

// handleReady reports whether backing stores are reachable
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database not ready")
			return
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis not ready")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Search endpoints

// handleSearch executes a text query against the cross-modal index.
// Responses are cached by query and top_k; the cache lives here so the
// search facade stays side-effect free.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	topK, ok := parseTopK(w, r.URL.Query().Get("top_k"))
	if !ok {
		return
	}

	cacheKey := searchCacheKey(query, topK)
	if s.resultCache != nil {
		if cached, err := s.resultCache.Get(r.Context(), cacheKey); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	resp, err := s.searchService.SearchByText(r.Context(), query, topK)
	if err != nil {
		writeSearchError(w, err)
		return
	}

	if s.resultCache != nil {
		// Best effort; a failed cache write never fails the request
		_ = s.resultCache.Set(r.Context(), cacheKey, resp, s.cacheTTL)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleImageSearch executes an uploaded-image query against the index.
// Image results are never cached: uploads are rarely byte-identical.
func (s *Server) handleImageSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload)

	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	topK, ok := parseTopK(w, r.FormValue("top_k"))
	if !ok {
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not decode image")
		return
	}

	resp, err := s.searchService.SearchByImage(r.Context(), img, topK)
	if err != nil {
		writeSearchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Stats endpoint

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.searchService.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get index stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Admin endpoints

// handleReindex enqueues a full index rebuild and returns immediately
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}

	task := domain.NewReindexTask()
	if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue reindex")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": task.ID,
		"status":  string(task.Status),
	})
}

// Helpers

// parseTopK parses an optional top_k value; 0 lets the service apply its
// default. Writes the error response itself and reports ok=false on failure.
func parseTopK(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}

	topK, err := strconv.Atoi(raw)
	if err != nil || topK <= 0 {
		writeError(w, http.StatusBadRequest, "top_k must be a positive integer")
		return 0, false
	}

	return topK, true
}

func searchCacheKey(query string, topK int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("text:%s:%d", query, topK)))
	return hex.EncodeToString(sum[:])
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid search input")
	case errors.Is(err, domain.ErrIndexUnavailable):
		writeError(w, http.StatusServiceUnavailable, "search index unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "search failed")
	}
}
