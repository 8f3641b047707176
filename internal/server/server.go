// Package server constructs and starts the LAN Share HTTP service.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// CreateServer creates an HTTP server for the given port and handler. Global
// read/write timeouts are deliberately unset: uploads and upgraded WebSocket
// connections are long-lived, so only the handshake is bounded.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer begins listening for connections and blocks until the server
// stops. A graceful shutdown is reported as a nil error.
func StartServer(server *http.Server, log *zap.SugaredLogger) error {
	log.Infow("server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration, log *zap.SugaredLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warnw("http server shutdown error", "error", err)
		return err
	}
	log.Info("http server shutdown completed")
	return nil
}
