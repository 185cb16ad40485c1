package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dropDatabas3/tenauth/internal/observability/logger"
)

// Server expone /metrics y /healthz. Es el único listener HTTP del
// núcleo: la API de identidad se sirve desde capas externas.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

// NewServer arma el listener de observabilidad en addr.
func NewServer(addr string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: logger.Named("metrics"),
	}
}

// Handler expone el router, para tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start bloquea sirviendo hasta Shutdown.
func (s *Server) Start() error {
	s.log.Info("metrics listener up", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown apaga el listener con gracia.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
