package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server is the HTTP front of the service.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, readHeaderTimeout time.Duration, logger *zap.Logger) *Server {
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 5 * time.Second
	}
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return &Server{httpServer: s, logger: logger}
}

// Listen binds the address. Start calls it when it was not called before.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Start serves until Stop. A clean shutdown returns nil.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.logger.Info("Starting wisefido-rppg HTTP server", zap.String("addr", s.Addr()))
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping wisefido-rppg HTTP server")
	return s.httpServer.Shutdown(ctx)
}
