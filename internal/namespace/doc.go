// Package namespace is the client side of the federated filesystem: the
// operation façade over a namespace server plus the pieces around it.
//
//   - Client: list/read/write/delete/mkdir/rmdir/exists/glob/grep/rename
//   - Registry: fresh snapshots of the active mounts
//   - MountStore: saved mount configurations and their activation
//   - SyncEngine: per-mount reconciliation with an in-flight guard
//   - Enrich: mount provenance on listing entries, exact mount points only
//   - Watcher: invalidation events from the server
//
// Nothing here caches mounts or retries calls. Errors are *types.Error values.
package namespace
