package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/patricesweeney/analysis-jobs/internal/auth"
	"github.com/patricesweeney/analysis-jobs/internal/config"
	handlers "github.com/patricesweeney/analysis-jobs/internal/handlers/v1"
	"github.com/patricesweeney/analysis-jobs/internal/service"
	"github.com/patricesweeney/analysis-jobs/internal/store"
	"github.com/patricesweeney/analysis-jobs/pkg/metrics"
	"github.com/patricesweeney/analysis-jobs/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	spawner  service.Spawner
	listener net.Listener
}

// New returns the HTTP server exposing the trigger webhook and job status.
func New(
	cfg *config.Config,
	store store.Store,
	spawner service.Spawner,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		spawner:  spawner,
		listener: listener,
	}
}

// Router builds the handler tree. The request metrics collectors are
// registered on reg.
func (s *Server) Router(authenticator auth.Authenticator, reg prometheus.Registerer) http.Handler {
	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegister(reg)

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Service.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	h := handlers.NewServiceHandler(s.spawner, service.NewJobService(s.store))
	h.Routes(router, authenticator.Authenticator)

	return router
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	authenticator, err := auth.NewAuthenticator(s.cfg.Service.Auth)
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	srv := http.Server{
		Addr:              s.cfg.Service.Address,
		Handler:           s.Router(authenticator, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
