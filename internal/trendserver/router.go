package trendserver

import (
	"net/http"

	"github.com/lschmelzeisen/nasty-analysis/pkg/health"
)

// NewRouter wires the API routes plus liveness and readiness endpoints.
func NewRouter(h *Handler, readiness *health.Checker) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/meta", h.Meta)
	mux.HandleFunc("GET /api/freqs", h.Freqs)
	mux.HandleFunc("GET /api/freqs/files", h.FileFreqs)
	mux.HandleFunc("GET /api/trends", h.Trends)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /readyz", readiness.Handler())
	return mux
}
