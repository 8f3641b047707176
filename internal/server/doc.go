// Package server implements the HTTP and WebSocket core of LAN Share.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, wire messages, routing, and HTTP handlers to keep
// the codebase maintainable and testable as the project grows.
package server
