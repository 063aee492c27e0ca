// Package server wires HTTP handlers into a chi router for the roomchat
// application.
package server

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures and returns the application router with handlers for
// the health check, WebSocket endpoint, and chat test page.
func SetupRoutes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", HealthHandler)
	router.Get("/ws", WebSocketHandler)
	router.Get("/chat", TestPageHandler)
	return router
}
