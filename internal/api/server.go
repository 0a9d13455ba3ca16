// Package api exposes the operational HTTP interface: health, metrics,
// and read-only progress lookups.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/harvest"
	progressstore "github.com/newsroomlab/harvester/internal/store/progress"
)

// ProgressOpener yields a progress store for a named source.
type ProgressOpener func(source string) (*progressstore.Store, error)

// Server wires the ops routes. It is read-only: harvesting is driven by
// the CLI, the listener only answers questions about it.
type Server struct {
	router   chi.Router
	progress ProgressOpener
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(progress ProgressOpener, logger *zap.Logger) *Server {
	s := &Server{
		progress: progress,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/progress/{source}/{date}", s.getProgress)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the listener until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("ops listener started", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type progressResponse struct {
	Source      string         `json:"source"`
	Date        string         `json:"date"`
	Scraped     int            `json:"scraped"`
	Failed      int            `json:"failed"`
	RetryCounts map[string]int `json:"retry_counts"`
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	day, err := harvest.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("bad date: %v", err))
		return
	}

	store, err := s.progress(source)
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown source: %v", err))
		return
	}
	state, err := store.Load(day)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "progress load failed")
		s.logger.Error("progress load failed",
			zap.String("source", source),
			zap.String("date", day.String()),
			zap.Error(err),
		)
		return
	}

	scraped, failed := state.Counts()
	_, _, retryCounts := state.Snapshot()
	s.writeJSON(w, http.StatusOK, progressResponse{
		Source:      source,
		Date:        day.String(),
		Scraped:     scraped,
		Failed:      failed,
		RetryCounts: retryCounts,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
