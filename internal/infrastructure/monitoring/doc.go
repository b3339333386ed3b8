/*
Package monitoring provides Prometheus metrics for the webdesk backend.

# Overview

Tracks HTTP requests, desktop sessions, window manager operations,
external API calls and desktop stream connections.

# Usage

	metrics := monitoring.NewMetrics()
	go metrics.Run(stop)

	router.Use(monitoring.Middleware(metrics))
	sessions.WithMetrics(metrics)

HTTP metrics are labelled with the gin route template, never the raw path,
so per-session URLs do not blow up label cardinality.

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
