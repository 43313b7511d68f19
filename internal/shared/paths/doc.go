// Package paths provides the namespace path algebra shared by the client and the server.
//
// Every namespace path is absolute and slash-delimited. Normalize collapses repeated
// separators and drops a trailing separator (except for the root), so normalized paths
// can be compared with plain string equality.
//
// Two mount lookups exist and they are deliberately different:
//   - FindMountForPath matches a path only when it IS a mount point. Listing
//     enrichment uses it, so provenance is attached to mount roots only.
//   - ResolveMount picks the mount owning a path by longest prefix. The server
//     uses it to route operations to a backend.
package paths
