// Package httpapi is the REST control plane: create/list/get/remove
// stream sessions and serve their HLS output as static files.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"dash2hls/internal/manager"
	"dash2hls/internal/platform/metrics"
	"dash2hls/internal/session"
)

// Handler exposes the gateway's control plane and file server over chi.
type Handler struct {
	mgr     *manager.Manager
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler backed by mgr. metrics may be nil to
// disable metric recording (e.g. in tests).
func NewHandler(mgr *manager.Manager, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{mgr: mgr, log: log, metrics: m}
}

type createStreamRequest struct {
	MPDURL           string            `json:"mpd_url"`
	Key              string            `json:"key"`
	KID              string            `json:"kid"`
	KeyMap           map[string]string `json:"key_map"`
	Mp4decryptPath   string            `json:"mp4decrypt_path"`
	RepresentationID string            `json:"representation_id"`
	Label            string            `json:"label"`
	PollIntervalSec float64           `json:"poll_interval"`
	WindowSize      int               `json:"window_size"`
	HistorySize     int               `json:"history_size"`
	Headers         map[string]string `json:"headers"`
}

type createStreamResponse struct {
	StreamID string `json:"stream_id"`
	HLSURL   string `json:"hls_url"`
	Status   string `json:"status"`
}

// CreateStream handles POST /streams.
func (h *Handler) CreateStream(w http.ResponseWriter, r *http.Request) {
	var req createStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MPDURL == "" {
		writeError(w, http.StatusBadRequest, "mpd_url is required")
		return
	}

	cfg := session.Config{
		MPDURL:           req.MPDURL,
		Key:              req.Key,
		KID:              req.KID,
		KeyMap:           req.KeyMap,
		Mp4decryptPath:   req.Mp4decryptPath,
		RepresentationID: req.RepresentationID,
		Label:            req.Label,
		WindowSize:       req.WindowSize,
		HistorySize:      req.HistorySize,
		Headers:          req.Headers,
	}
	if req.PollIntervalSec > 0 {
		cfg.PollInterval = time.Duration(req.PollIntervalSec * float64(time.Second))
	}

	id, err := h.mgr.Create(cfg)
	if err != nil {
		h.log.Error("failed to create stream", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info("stream created", "stream_id", id, "mpd_url", req.MPDURL)
	if h.metrics != nil {
		h.metrics.IncStreamsCreated()
	}
	writeJSON(w, http.StatusCreated, createStreamResponse{
		StreamID: id,
		HLSURL:   "/hls/" + id + "/master.m3u8",
		Status:   "starting",
	})
}

// ListStreams handles GET /streams.
func (h *Handler) ListStreams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"streams": toResponses(h.mgr.List())})
}

// GetStream handles GET /streams/{stream_id}.
func (h *Handler) GetStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "stream_id")
	s, err := h.mgr.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "stream not found")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(s.Info()))
}

// RemoveStream handles DELETE /streams/{stream_id}.
func (h *Handler) RemoveStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "stream_id")
	if err := h.mgr.Remove(id); err != nil {
		if errors.Is(err, manager.ErrNotFound) {
			writeError(w, http.StatusNotFound, "stream not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.log.Info("stream removed", "stream_id", id)
	if h.metrics != nil {
		h.metrics.IncStreamsEnded()
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "stream removed"})
}

var mimeByExt = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".mp4":  "video/mp4",
	".m4s":  "video/mp4",
}

// ServeHLSFile handles GET /hls/{stream_id}/{path...}, serving files from
// the stream's output directory. It refuses any path that would escape
// that directory once resolved.
func (h *Handler) ServeHLSFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "stream_id")
	rest := chi.URLParam(r, "*")

	root := h.mgr.OutputDir(id)
	if root == "" {
		writeError(w, http.StatusNotFound, "stream not found")
		return
	}

	root, err := filepath.Abs(root)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "resolving output directory")
		return
	}
	requested := filepath.Join(root, filepath.FromSlash(rest))
	requested, err = filepath.Abs(requested)
	if err != nil || !withinRoot(root, requested) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	info, err := os.Stat(requested)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	if ct, ok := mimeByExt[strings.ToLower(filepath.Ext(requested))]; ok {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	http.ServeFile(w, r, requested)
}

func withinRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
