package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/homefleet/inventoryd/internal/config"
)

type RegisterHandlerFn func(router *gin.RouterGroup)

type Server struct {
	httpServer *http.Server
	log        *zap.SugaredLogger
}

// NewRouter assembles the gin engine with the middleware stack, the
// operational endpoints, and the /api/v1 route group.
func NewRouter(cfg *config.Configuration, registerHandlerFn RegisterHandlerFn) *gin.Engine {
	if cfg.Service.Mode == config.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(Logger())
	engine.Use(ginzap.RecoveryWithZap(zap.L().Named("http"), true))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := engine.Group("/api/v1")
	registerHandlerFn(apiGroup)

	return engine
}

func NewServer(cfg *config.Configuration, registerHandlerFn RegisterHandlerFn) (*Server, error) {
	engine := NewRouter(cfg, registerHandlerFn)

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Service.HTTPPort),
			Handler: engine,
		},
		log: zap.S().Named("server"),
	}, nil
}

// Start blocks until the listener fails or Stop is called. A clean
// shutdown returns http.ErrServerClosed.
func (s *Server) Start(ctx context.Context) error {
	s.log.Infow("starting HTTP server", "addr", s.httpServer.Addr)
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }
	return s.httpServer.ListenAndServe()
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}
