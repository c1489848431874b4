// Package api exposes the trained models over HTTP: hotspot GeoJSON, risk
// classification, risk index lookups, and anomaly flagging.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/anomaly"
	"github.com/geocrime/geocrime-cli/internal/classifier"
	"github.com/geocrime/geocrime-cli/internal/cluster"
	"github.com/geocrime/geocrime-cli/internal/riskindex"
)

// Server holds the models loaded at startup. Models are read-only after
// construction, so handlers need no locking around them.
type Server struct {
	router     chi.Router
	hotspots   *cluster.Model
	classifier *classifier.Forest
	anomalyCfg anomaly.Config
	risk       *riskindex.Engine
}

// Options configures a Server. Hotspots and Classifier may be nil when the
// corresponding model artifact has not been trained yet; affected endpoints
// then degrade or report unavailability.
type Options struct {
	Hotspots   *cluster.Model
	Classifier *classifier.Forest
	AnomalyCfg anomaly.Config
	Risk       *riskindex.Engine
}

// NewServer builds the router with middleware and routes.
func NewServer(opts Options) *Server {
	if opts.Risk == nil {
		opts.Risk = riskindex.New()
	}
	if opts.AnomalyCfg.Trees == 0 {
		opts.AnomalyCfg = anomaly.DefaultConfig()
	}

	s := &Server{
		hotspots:   opts.Hotspots,
		classifier: opts.Classifier,
		anomalyCfg: opts.AnomalyCfg,
		risk:       opts.Risk,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/hotspots", s.handleHotspots)
		r.Post("/predict", s.handlePredict)
		r.Get("/risk-index", s.handleRiskIndex)
		r.Post("/anomalies", s.handleAnomalies)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler, used by tests and the serve command.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "api: server listen")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
