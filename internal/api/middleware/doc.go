// Package middleware provides the HTTP middleware in front of the namespace
// RPC endpoint.
//
//   - CORS: cross-origin access for browser clients
//   - RateLimit: per-IP token buckets with idle eviction
//   - Auth: bearer API keys or HS256 JWTs
//
// Rejections are written as JSON-RPC error envelopes so RPC clients decode
// them like any other failure.
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
//	router.Use(middleware.Auth(middleware.NewAuthenticator(cfg)))
package middleware
