// Package main is the entry point for the namespace server.
//
// The server federates storage backends under one virtual path tree and
// exposes it over JSON-RPC on /api/nfs/{method}.
//
// The server provides:
//   - File, directory and search methods over every active mount
//   - Saved mount configurations in memory, DuckDB or Postgres
//   - Invalidation events over a WebSocket on /api/nfs/events
//   - Prometheus metrics on /metrics and a JSON summary on /metrics/json
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - A mounts file (YAML, TOML or JSON) loaded at startup
//
// Usage:
//
//	# Production mode
//	STORE_DRIVER=postgres STORE_DSN=postgres://... ./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev -mounts mounts.yaml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
