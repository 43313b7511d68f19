// Package tracing propagates request ids between the namespace client and
// server and records one span per handled call.
//
// The client stamps every RPC with X-Request-ID; the server middleware adopts
// it (or mints one), echoes it on the response and logs the finished span.
package tracing
