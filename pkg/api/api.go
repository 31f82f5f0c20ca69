package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/classify"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/config"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/store"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log            logrus.FieldLogger
	cfg            *config.APIConfig
	ds             *dataset.Dataset
	reg            *classify.Registry
	defaultProfile string
	store          store.Store
	httpServer     *http.Server
	wg             sync.WaitGroup
	done           chan struct{}
}

// NewServer creates a new API server over an already-loaded dataset.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.APIConfig,
	ds *dataset.Dataset,
	reg *classify.Registry,
	defaultProfile string,
) Server {
	return &server{
		log:            log.WithField("component", "api"),
		cfg:            cfg,
		ds:             ds,
		reg:            reg,
		defaultProfile: defaultProfile,
		done:           make(chan struct{}),
	}
}

// Start initializes the store and starts the HTTP server.
func (s *server) Start(ctx context.Context) error {
	s.store = store.NewStore(s.log, &s.cfg.Database)
	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Server.Listen).
			Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server and closes the store.
func (s *server) Stop() error {
	close(s.done)

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			return fmt.Errorf("stopping store: %w", err)
		}
	}

	s.log.Info("API server stopped")

	return nil
}
