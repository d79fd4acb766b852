package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
)

// Start listens on port and serves until Stop is called.
func (s *Server) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.WithHintf(errors.Wrapf(err, "listen on port %d", port),
			"set server.port in am.toml or TAXA_SERVER_PORT")
	}
	return s.Serve(ln)
}

// Serve serves on ln until Stop is called. A clean shutdown returns nil.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
	s.mu.Lock()
	if s.getState() != ServerStateRunning {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server is stopped")
	}
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Infow("Server ready",
		logger.FieldAddress, ln.Addr().String(),
		"service", s.service,
		"methods", len(s.methods),
	)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}

// Stop drains in-flight requests, stops the config watcher and closes the
// backends the server owns. Calling Stop more than once is harmless.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		err = s.stop()
	})
	return err
}

func (s *Server) stop() error {
	s.logger.Infow("Initiating server shutdown")

	s.mu.Lock()
	s.setState(ServerStateDraining)
	srv, watcher := s.httpServer, s.configWatcher
	s.mu.Unlock()

	var errs error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warnw("HTTP shutdown timed out, closing connections",
				"timeout", ShutdownTimeout,
				logger.FieldError, err,
			)
			errs = errors.CombineErrors(errs, srv.Close())
		}
	}

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			s.logger.Warnw("Failed to stop config watcher", logger.FieldError, err)
		} else {
			s.logger.Infow("Config watcher stopped")
		}
	}

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrap(err, "close backend"))
		}
	}
	s.closers = nil

	s.setState(ServerStateStopped)
	s.logger.Infow("Server shutdown complete")
	return errs
}
