// Package server constructs and starts the roomchat HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Tyrowin/roomchat/internal/logger"
)

// Shared instances wired together at package load: the presence registry, the
// hub carrying the transport capabilities, and the gateway driving both.
var (
	registry    = NewRegistry()
	hub         = NewHub()
	chatGateway = NewGateway(registry, hub, NewWordListFilter(nil))
)

func init() {
	hub.SetConnectionHandler(chatGateway)
}

// CreateServer creates and configures an HTTP server with the specified
// address and handler. It sets reasonable timeout values for production use.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartHub applies the configured profanity word list and starts the global
// hub in a separate goroutine. This should be called before starting the
// HTTP server.
func StartHub() {
	chatGateway.SetFilter(NewWordListFilter(currentConfig().BlockedWords))
	go hub.Run()
	logger.Log.Infow("hub started and ready to manage websocket connections")
}

// StartServer starts the HTTP server and begins listening for connections.
// It returns an error if the server fails to start.
func StartServer(server *http.Server) error {
	logger.Log.Infow("server listening", "addr", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting
// active connections. It waits for active connections to close or until the
// timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	logger.Log.Infow("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Errorw("http server shutdown error", "error", err)
		return err
	}

	logger.Log.Infow("http server shutdown completed")
	return nil
}

// GetHub returns the global hub instance for shutdown coordination.
func GetHub() *Hub {
	return hub
}
