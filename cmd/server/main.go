package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/api"
	"github.com/aeroperk/mcp-server/internal/config"
	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/internal/services"
	"github.com/aeroperk/mcp-server/internal/tools"
	"github.com/aeroperk/mcp-server/internal/utils"
	"github.com/aeroperk/mcp-server/pkg/aeroperk"
)

// components are shared by every transport
type components struct {
	cfg        *config.Config
	client     *aeroperk.Client
	auth       *services.AuthService
	registry   *tools.Registry
	dispatcher *api.Dispatcher
}

// initializeServices loads the config and wires the gateway, the auth
// resolver, the tool registry and the dispatcher
func initializeServices() *components {
	cfg := config.Load()

	// stdout carries the protocol in stdio mode
	out := os.Stdout
	if stdioMode {
		out = os.Stderr
	}
	utils.InitLogging(cfg.LogLevel, cfg.LogFormat, out)
	logrus.Infof("Loaded config: %s", cfg.String())

	client := aeroperk.NewClient(cfg.APIURL, aeroperk.WithTimeout(cfg.APITimeout))
	auth := services.NewAuthService(client)
	registry := tools.NewDefaultRegistry(client, tools.Options{
		AppURL:             cfg.AppURL,
		SupportEmail:       cfg.SupportEmail,
		SearchRequiresAuth: cfg.SearchRequiresAuth,
	})
	dispatcher := api.NewDispatcher(registry, auth, models.ServerInfo{
		Name:    cfg.ServiceName,
		Version: cfg.ServiceVersion,
	})

	logrus.WithField("tools", registry.Names()).Info("Registered MCP tools")
	return &components{
		cfg:        cfg,
		client:     client,
		auth:       auth,
		registry:   registry,
		dispatcher: dispatcher,
	}
}
