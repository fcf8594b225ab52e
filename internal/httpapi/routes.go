package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dash2hls/internal/platform/metrics"
)

// Routes mounts the control plane and file server onto r.
func Routes(r chi.Router, h *Handler, met *metrics.Metrics, activeCount func() int) {
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() {
			if activeCount != nil {
				met.SetActiveStreams(activeCount())
			}
		}).ServeHTTP(w, req)
	})

	r.Route("/streams", func(r chi.Router) {
		r.Post("/", h.CreateStream)
		r.Get("/", h.ListStreams)
		r.Get("/{stream_id}", h.GetStream)
		r.Delete("/{stream_id}", h.RemoveStream)
	})

	r.Get("/hls/{stream_id}/*", h.ServeHLSFile)
}
