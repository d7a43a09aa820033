package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/trail-data-etl/internal/preview"
)

// maxPreviewSide bounds the w and h query parameters of a preview.
const maxPreviewSide = 2000

var errBadSize = errors.New("w and h must be integers between 1 and 2000")

// Server exposes health, readiness, metrics and trail preview endpoints.
type Server struct {
	httpServer *http.Server
	previews   *PreviewService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and,
// when previews is non-nil, /tracks/{id}/preview.svg routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, previews *PreviewService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		previews: previews,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if previews != nil {
		mux.HandleFunc("GET /tracks/{id}/preview.svg", s.handlePreview)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "track not found"})
		return
	}

	width, height, err := previewSize(r)
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	svg, found, err := s.previews.Preview(r.Context(), id.String(), width, height)
	if err != nil {
		s.logger.Error("preview failed", "track_id", id, "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "preview unavailable"})
		return
	}
	if !found {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "track not found"})
		return
	}

	w.Header().Set("Content-Type", preview.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

// previewSize reads the optional w and h query parameters.
func previewSize(r *http.Request) (width, height int, err error) {
	parse := func(key string, def int) (int, error) {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			return def, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < preview.MinSide || v > maxPreviewSide {
			return 0, errBadSize
		}
		return v, nil
	}

	if width, err = parse("w", preview.DefaultWidth); err != nil {
		return 0, 0, err
	}
	if height, err = parse("h", preview.DefaultHeight); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

