// Package server implements the core HTTP and WebSocket functionality for the
// roomchat relay: the presence registry, the per-connection gateway state
// machine, the room-aware hub that fans events out to connected peers, and
// the HTTP surface that upgrades connections.
//
// The implementation is organized into specialized files for configuration,
// the registry, the gateway, hub management, clients, routing, and HTTP
// handlers to keep the codebase maintainable and testable as the project
// grows.
package server
