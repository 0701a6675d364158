package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"txmon/config"
)

// Server serves the HTTP API, over TLS when a certificate and key are configured.
type Server struct {
	cfg    config.ServerConfig
	http   *http.Server
	logger *zap.Logger
}

func New(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		http:   &http.Server{Addr: ":" + cfg.Port, Handler: handler},
		logger: logger,
	}
}

func (s *Server) TLS() bool {
	return s.cfg.SSLCert != "" && s.cfg.SSLKey != ""
}

// Start binds the listener and serves in the background. Bind errors are
// returned; errors after that are logged.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln in the background.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server", zap.String("addr", ln.Addr().String()), zap.Bool("tls", s.TLS()))
	go func() {
		var err error
		if s.TLS() {
			err = s.http.ServeTLS(ln, s.cfg.SSLCert, s.cfg.SSLKey)
		} else {
			err = s.http.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.http.Shutdown(ctx)
}
