// Package server assembles the namespace server: storage, the federated
// namespace, middleware, RPC handlers, the event stream and metrics.
//
// Example Usage:
//
//	srv, err := server.NewServer(ctx, config.LoadOrDefault(), server.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer srv.Close()
//	go srv.Run()
package server
