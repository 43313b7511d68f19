// Package ws streams namespace invalidation events to websocket subscribers.
//
// Each event is one JSON text frame carrying op, path, mount_point and time.
// Clients send nothing; the server pings to detect dead peers and drops
// subscribers that fall behind.
//
// Example Usage:
//
//	hub := ws.NewHub(logger, metrics)
//	router.GET("/api/nfs/events", hub.HandleConnection)
package ws
