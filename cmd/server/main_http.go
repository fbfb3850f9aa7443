//go:build !stdio

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/api"
	"github.com/aeroperk/mcp-server/internal/config"
	"github.com/aeroperk/mcp-server/internal/services"
)

const stdioMode = false

func main() {
	c := initializeServices()
	cfg := c.cfg

	if cfg.GinMode == gin.DebugMode || cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	connections := services.NewWebSocketManager()
	router := api.NewRouter(c.dispatcher, connections)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * cfg.APITimeout,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logrus.WithField("addr", cfg.Addr()).Info("AeroPerk MCP HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("HTTP server failed")
		}
	}()

	waitForShutdown(srv, connections, cfg)
}

func waitForShutdown(srv *http.Server, connections *services.WebSocketManager, cfg *config.Config) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logrus.WithField("signal", sig.String()).Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	connections.CloseAll()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Forced shutdown")
		return
	}
	logrus.Info("HTTP server stopped")
}
