// Package http serves the federated namespace over JSON-RPC 2.0.
//
// Every method is a POST to /api/nfs/{method} carrying a JSON-RPC request.
// Namespace failures are returned in the response's error member with a
// 200 status; only rejected credentials change the status (401).
//
// Endpoints:
//   - Health: / and /health
//   - RPC: /api/nfs/{method}
//   - Metrics summary: /metrics/json
//
// Methods:
//   - Files: list, stat, read, write, delete, exists, is_directory, mkdir,
//     rmdir, rename, glob, grep
//   - Mounts: list_mounts, list_saved_mounts, save_mount,
//     delete_saved_mount, load_mount, remove_mount, sync_mount
//
// The *_connector names are accepted as aliases of the mount methods.
//
// Example Usage:
//
//	handlers := http.NewHandlers(ns, logger, http.NewHandlerMetrics(metrics, registry))
//	router.POST("/api/nfs/:method", handlers.RPC)
package http
