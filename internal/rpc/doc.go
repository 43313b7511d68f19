// Package rpc is the wire layer between the namespace client and a namespace
// server: JSON-RPC 2.0 envelopes posted to /api/nfs/{method}.
//
// Transport adds the client stack around each call (rate limiter, circuit
// breaker, bearer credentials, request id propagation) and converts wire
// errors into *types.Error so callers can branch on the kind. It never retries.
//
// Binary payloads travel as Blob: a tagged {"__type__":"bytes","data":<base64>}
// envelope when sent, and either that envelope or a bare base64 string when
// received.
package rpc
