package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server owns the HTTP listener lifecycle: main starts it on a goroutine
// and stops it from the signal handler.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{httpServer: s, logger: logger}
}

// Start blocks until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("Starting care-session HTTP server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping care-session HTTP server")
	return s.httpServer.Shutdown(ctx)
}
