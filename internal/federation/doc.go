// Package federation serves one path namespace over a root backend and a set
// of mounted backends. Mounts are activated from saved configurations; each
// active mount keeps a metadata cache of its backend that Sync reconciles
// against external changes.
package federation
