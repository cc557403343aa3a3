package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homefleet/inventoryd/internal/handlers"
	"github.com/homefleet/inventoryd/internal/server"
	"github.com/homefleet/inventoryd/internal/services"
	"github.com/homefleet/inventoryd/pkg/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inventory HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	log := zap.S().Named("serve")

	adapter, err := newAdapter(cfg)
	if err != nil {
		return err
	}
	if err := adapter.Connect(ctx); err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer adapter.Close()

	if err := adapter.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	pool := scheduler.NewPool(cfg.Service.NumWorkers)
	defer pool.Close()

	inventorySrv := services.NewInventory(adapter, pool)
	handler := handlers.New(inventorySrv)

	srv, err := server.NewServer(cfg, func(router *gin.RouterGroup) {
		router.GET("/devices", handler.GetDevices)
		router.GET("/devices/:id/history", handler.GetDeviceHistory)
		router.POST("/devices/:id/decommission", handler.DecommissionDevice)
		router.POST("/devices/:id/reactivate", handler.ReactivateDevice)
		router.POST("/discoveries", handler.PostDiscoveries)
		router.GET("/topology", handler.GetTopology)
		router.GET("/recommendations", handler.GetRecommendations)
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(runCtx)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-runCtx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
