// Package server provides the HTTP server for inventoryd.
//
// The server uses the Gin web framework and supports two modes of
// operation: development (Gin debug mode) and production (Gin release
// mode). Both serve plain HTTP; TLS termination belongs to whatever sits
// in front of the service.
//
// # Architecture Overview
//
//	┌───────────────────────────────────────────────────────────────┐
//	│                         HTTP Server                           │
//	├───────────────────────────────────────────────────────────────┤
//	│                       Middleware Stack                        │
//	│  ┌─────────────────────────────────────────────────────────┐  │
//	│  │  Logger (request/response logging, zap "http")          │  │
//	│  │  Recovery (panic recovery with zap logging)             │  │
//	│  └─────────────────────────────────────────────────────────┘  │
//	├───────────────────────────────────────────────────────────────┤
//	│  /healthz          liveness probe                             │
//	│  /metrics          Prometheus exposition                      │
//	│  /api/v1/*         Handlers (registered via callback)         │
//	└───────────────────────────────────────────────────────────────┘
//
// # Server Lifecycle
//
// Creation:
//
//	srv, err := server.NewServer(cfg, func(router *gin.RouterGroup) {
//	    router.GET("/devices", handler.GetDevices)
//	    ...
//	})
//
// The registerHandlerFn callback receives a RouterGroup prefixed with
// /api/v1.
//
// Starting:
//
//	// Blocks until error or shutdown
//	err := srv.Start(ctx)
//
// Stopping:
//
//	srv.Stop(ctx)
//
// Performs graceful shutdown, waiting for in-flight requests to complete.
package server
