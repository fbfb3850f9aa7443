package api

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/internal/services"
	"github.com/aeroperk/mcp-server/internal/tools"
	"github.com/aeroperk/mcp-server/internal/utils"
)

// NewStdioServer exposes the registry through mcp-go's server for local
// clients that spawn the binary. A stdio session has no HTTP headers, so
// authHeader is fixed for the whole session (usually built from an env token).
// Widgets are dropped here; stdio clients only render text.
func NewStdioServer(registry *tools.Registry, auth *services.AuthService, authHeader string, info models.ServerInfo, debug bool) *server.MCPServer {
	var opts []server.ServerOption
	if debug {
		opts = append(opts, server.WithLogging())
	}
	s := server.NewMCPServer(info.Name, info.Version, opts...)

	for _, tool := range registry.Tools() {
		s.AddTool(tool.Definition(), stdioToolHandler(tool, auth, authHeader))
	}
	return s
}

func stdioToolHandler(tool tools.Tool, auth *services.AuthService, authHeader string) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = utils.WithTraceID(ctx, utils.GenerateTraceID())
		start := time.Now()

		args := request.Params.Arguments
		if args == nil {
			args = map[string]interface{}{}
		}
		result, err := execute(ctx, tool, args, services.NewRequestAuth(ctx, auth, authHeader))

		log := logrus.WithContext(ctx).WithFields(logrus.Fields{
			"tool":     tool.Name(),
			"duration": time.Since(start).String(),
		})
		if err != nil {
			log.WithError(err).Error("Tool execution failed")
			return nil, err
		}
		log.WithField("error", result.Error).Info("Tool call completed")

		out := mcp.NewToolResultText(result.Content)
		out.IsError = result.Failed()
		return out, nil
	}
}
