//go:build stdio

package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/api"
)

const stdioMode = true

func main() {
	c := initializeServices()
	cfg := c.cfg

	authHeader := ""
	if cfg.AccessToken != "" {
		authHeader = "Bearer " + cfg.AccessToken
	} else {
		logrus.Warn("AEROPERK_ACCESS_TOKEN is not set, tools run anonymously")
	}

	s := api.NewStdioServer(c.registry, c.auth, authHeader, c.dispatcher.Info(), cfg.Debug)

	logrus.Info("AeroPerk MCP stdio server started, waiting for a client")
	if err := server.ServeStdio(s); err != nil {
		logrus.WithError(err).Fatal("MCP stdio server failed")
	}
}
