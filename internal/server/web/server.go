// Package web is the HTTP boundary: routing, token authentication,
// parse-or-fail request decoding and the mapping from the core's error
// taxonomy to status codes. No transfer semantics live here.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ava-vs/chunkvault/internal/logging"
	"github.com/ava-vs/chunkvault/internal/server/transfer"
)

// Server wraps the chi router in an http.Server with graceful shutdown.
type Server struct {
	address string
	logger  logging.Logger
	service *transfer.Service

	jwtSecret []byte
	// maxChunkBytes is the absolute request-body ceiling for chunk
	// uploads, enforced here as boundary policy.
	maxChunkBytes int64
}

func NewServer(address string, logger logging.Logger, service *transfer.Service, secretKey string, maxChunkBytes int64) *Server {
	return &Server{
		address:       address,
		logger:        logger.With("module", "http_server"),
		service:       service,
		jwtSecret:     []byte(secretKey),
		maxChunkBytes: maxChunkBytes,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
