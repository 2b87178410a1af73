// Package httpapi registers the download/media HTTP surface. It is
// intentionally thin: request decoding, response shaping, and
// Kind-to-status mapping only; every use case's actual behavior lives in
// internal/queue.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trackforge/internal/constants"
	apperr "trackforge/internal/errors"
	"trackforge/internal/queue"
	"trackforge/internal/storage"
)

// Server wires the chi router in front of a queue.Service.
type Server struct {
	svc *queue.Service
}

// NewServer builds an httpapi Server delegating to svc.
func NewServer(svc *queue.Service) *Server {
	return &Server{svc: svc}
}

// Router builds the chi.Mux exposing /api/downloads and /health.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/downloads", func(r chi.Router) {
		r.Post("/", s.handleEnqueue)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Get("/{id}/logs", s.handleLogs)
		r.Post("/{id}/cancel", s.handleCancel)
		r.Post("/{id}/retry", s.handleRetry)
		r.Post("/{id}/move", s.handleMove)
		r.Get("/media/{id}", s.handleGetMedia)
		r.Patch("/media/{id}", s.handleUpdateMedia)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type enqueueRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.NewWithKind("httpapi.handleEnqueue", err, apperr.KindInvalidURL, "invalid request body"))
		return
	}

	result, err := s.svc.Enqueue(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"downloadId": result.DownloadID,
		"mediaId":    result.MediaID,
		"url":        result.URL,
		"status":     result.Status,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := s.svc.GetDownloadStatus(id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"download": detail.Download}
	if detail.Media != nil {
		resp["media"] = detail.Media
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 20)

	var status *constants.DownloadStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := constants.DownloadStatus(v)
		status = &st
	}

	downloads, total, err := s.svc.ListDownloads(status, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"downloads": downloads,
		"total":     total,
		"page":      page,
		"pageSize":  pageSize,
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	logs, err := s.svc.GetDownloadLogs(id, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs": logs,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
		},
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.CancelDownload(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.RetryDownload(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	destPath, err := s.svc.MoveToDestination(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "destPath": destPath})
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.svc.GetMediaDetails(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": m})
}

type updateMediaRequest struct {
	Title       *string `json:"title"`
	Artist      *string `json:"artist"`
	Album       *string `json:"album"`
	AlbumArtist *string `json:"albumArtist"`
	Year        *int    `json:"year"`
}

func (s *Server) handleUpdateMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apperr.Wrap("httpapi.handleUpdateMedia", err))
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, apperr.NewWithKind("httpapi.handleUpdateMedia", err, apperr.KindImmutableField, "invalid request body"))
		return
	}
	for _, field := range []string{"provider", "providerId"} {
		if _, ok := raw[field]; ok {
			writeError(w, apperr.NewWithKind("httpapi.handleUpdateMedia", apperr.ErrImmutableField, apperr.KindImmutableField, field+" cannot be changed"))
			return
		}
	}

	var req updateMediaRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, apperr.Wrap("httpapi.handleUpdateMedia", err))
		return
	}

	fields := storage.MediaFields{
		Title:       req.Title,
		Artist:      req.Artist,
		Album:       req.Album,
		AlbumArtist: req.AlbumArtist,
		Year:        req.Year,
	}
	if err := s.svc.UpdateMediaMetadata(id, fields); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a use case error's Kind to its HTTP status code.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalidState, apperr.KindInvalidURL, apperr.KindDuplicateActive,
		apperr.KindQueueFull, apperr.KindBadPagination, apperr.KindImmutableField:
		status = http.StatusBadRequest
	case apperr.KindInsufficientStorage:
		status = http.StatusInsufficientStorage
	}

	var appErr *apperr.AppError
	message := err.Error()
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}

	writeJSON(w, status, map[string]any{"error": string(kind), "message": message})
}
