/*
Package monitoring provides Prometheus metrics for the namespace server and
client.

Metrics are registered against an injected prometheus.Registerer so that each
server, client or test owns its own registry:

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

A nil registerer creates working but unregistered collectors.
*/
package monitoring
