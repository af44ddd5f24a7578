// Package http serves the scan-and-play page: static assets, the link
// classification API, preview audio lookup and the Spotify token endpoints.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"flexster/internal/core"
	"flexster/internal/store"
)

// PreviewSource resolves an Apple Music track ID to its catalog entry,
// including the 30 second preview audio URL.
type PreviewSource interface {
	LookupPreview(ctx context.Context, trackID string) (previewURL, title, artist string, err error)
}

// TokenSource hands out Spotify access tokens for the Web Playback SDK and
// drives the one-time OAuth dance.
type TokenSource interface {
	Configured() bool
	AuthURL(state string) string
	HandleCallback(ctx context.Context, state string, r *http.Request) error
	AccessToken(ctx context.Context) (string, error)
}

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics

	previews PreviewSource
	tokens   TokenSource
	history  *store.HistoryStore
}

type Metrics struct {
	registry *prometheus.Registry

	ClassificationsTotal *prometheus.CounterVec
	PreviewLookupsTotal  *prometheus.CounterVec
	TokenRequestsTotal   *prometheus.CounterVec
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ClassificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexster_classifications_total",
				Help: "Total number of scanned URLs classified",
			},
			[]string{"platform", "outcome"},
		),
		PreviewLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexster_preview_lookups_total",
				Help: "Total number of preview audio lookups",
			},
			[]string{"status"},
		),
		TokenRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flexster_token_requests_total",
				Help: "Total number of Spotify token requests",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		m.ClassificationsTotal,
		m.PreviewLookupsTotal,
		m.TokenRequestsTotal,
	)
	return m
}

func NewServer(
	config *core.ServerConfig,
	previews PreviewSource,
	tokens TokenSource,
	history *store.HistoryStore,
	logger *zap.Logger,
) *Server {
	s := &Server{
		config:   config,
		logger:   logger,
		metrics:  newMetrics(),
		previews: previews,
		tokens:   tokens,
		history:  history,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/classify", s.handleClassify)
	mux.HandleFunc("GET /api/preview", s.handlePreview)
	mux.HandleFunc("GET /api/token", s.handleToken)
	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET /callback", s.handleCallback)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"flexster"}`))
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	mux.Handle("/", http.FileServer(http.Dir(s.config.WebDir)))

	return mux
}

// Start serves HTTPS with a self-signed certificate until ctx is canceled.
// Phone cameras hand scanned links only to pages in a secure context, so
// plain HTTP would break the scan flow on every mobile browser.
func (s *Server) Start(ctx context.Context) error {
	certPath, keyPath, err := ensureCert(s.config.CertDir, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to prepare TLS certificate: %w", err)
	}

	s.logger.Info("Starting HTTPS server",
		zap.String("addr", s.server.Addr),
		zap.String("cert", certPath))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTPS server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTPS server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServeTLS(certPath, keyPath); err != http.ErrServerClosed {
		return fmt.Errorf("HTTPS server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

func (s *Server) RecordClassification(platform, outcome string) {
	s.metrics.ClassificationsTotal.WithLabelValues(platform, outcome).Inc()
}

func (s *Server) RecordPreviewLookup(status string) {
	s.metrics.PreviewLookupsTotal.WithLabelValues(status).Inc()
}

func (s *Server) RecordTokenRequest(status string) {
	s.metrics.TokenRequestsTotal.WithLabelValues(status).Inc()
}
