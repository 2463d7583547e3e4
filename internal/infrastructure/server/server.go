package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lernkarten/internal/infrastructure/config"
	"github.com/eslsoft/lernkarten/internal/repository"
)

// Server is the thin remote collaborator: a snapshot document store with
// change notifications, plus static serving of the vocabulary content
// files. It carries no scheduling or merge logic; reconciliation happens
// client-side.
type Server struct {
	config     *config.Config
	httpServer *http.Server
	logger     *logrus.Logger
	docs       *docStore
}

// NewServer assembles the router over the given snapshot repository.
func NewServer(cfg *config.Config, logger *logrus.Logger, snapshots repository.LocalStore) *Server {
	docs := newDocStore(snapshots, logger)

	router := mux.NewRouter()
	router.Use(requestLogger(logger))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	router.HandleFunc("/v1/snapshots/{userID}", docs.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/v1/snapshots/{userID}", docs.handlePut).Methods(http.MethodPut)
	router.HandleFunc("/v1/snapshots/{userID}/watch", docs.handleWatch).Methods(http.MethodGet)
	router.PathPrefix("/content/").Handler(
		http.StripPrefix("/content/", cacheHeaders(http.FileServer(http.Dir(cfg.Content.Dir)))))

	return &Server{
		config: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
		docs:   docs,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Infof("snapshot server listening on %s", s.config.Server.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.docs.closeWatchers()
	return s.httpServer.Shutdown(shutdownCtx)
}

func requestLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("request completed")
		})
	}
}

// cacheHeaders applies the static-asset cache policy: lesson content is
// cached for an hour, directory listings are not cached.
func cacheHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path == "/" {
			w.Header().Set("Cache-Control", "no-cache")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		next.ServeHTTP(w, r)
	})
}
