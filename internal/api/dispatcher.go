// Package api holds the MCP dispatcher and the transports that feed it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/internal/services"
	"github.com/aeroperk/mcp-server/internal/tools"
)

// ProtocolVersion is the MCP revision announced in initialize
const ProtocolVersion = "2024-11-05"

// JSON-RPC error codes
const (
	CodeParseError     = mcp.PARSE_ERROR
	CodeMethodNotFound = mcp.METHOD_NOT_FOUND
	CodeInvalidParams  = mcp.INVALID_PARAMS
	CodeInternalError  = mcp.INTERNAL_ERROR
)

// MCP methods
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPing        = "ping"
)

// Dispatcher routes one JSON-RPC request to its handler. It keeps no state
// between calls and is safe for concurrent use.
type Dispatcher struct {
	registry *tools.Registry
	auth     *services.AuthService
	info     models.ServerInfo
	now      func() time.Time
}

// NewDispatcher creates a dispatcher over registry. auth may be nil, in which
// case every call is anonymous.
func NewDispatcher(registry *tools.Registry, auth *services.AuthService, info models.ServerInfo) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		auth:     auth,
		info:     info,
		now:      time.Now,
	}
}

// Info returns the server identity announced on initialize
func (d *Dispatcher) Info() models.ServerInfo {
	return d.info
}

// Registry returns the tools served by d
func (d *Dispatcher) Registry() *tools.Registry {
	return d.registry
}

// Decode parses a request body. On failure it returns the parse-error
// response to send instead; no handler must run in that case.
func Decode(body []byte) (*models.MCPRequest, *models.MCPResponse) {
	body = bytes.TrimSpace(body)
	var req models.MCPRequest
	if len(body) == 0 || body[0] != '{' {
		return nil, models.NewErrorResponse(nil, CodeParseError, "Parse error")
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, models.NewErrorResponse(nil, CodeParseError, "Parse error")
	}
	return &req, nil
}

// Serve decodes body and handles it
func (d *Dispatcher) Serve(ctx context.Context, body []byte, authHeader string) *models.MCPResponse {
	req, parseErr := Decode(body)
	if parseErr != nil {
		logrus.WithContext(ctx).Warn("Rejected unparseable JSON-RPC body")
		return parseErr
	}
	return d.Handle(ctx, req, authHeader)
}

// Handle answers one request. It always returns a response; a panic in any
// handler becomes an internal error.
func (d *Dispatcher) Handle(ctx context.Context, req *models.MCPRequest, authHeader string) (resp *models.MCPResponse) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithContext(ctx).WithFields(logrus.Fields{
				"method": req.Method,
				"panic":  r,
			}).Error("Recovered from panic while handling request")
			resp = models.NewErrorResponse(req.ID, CodeInternalError, fmt.Sprintf("Internal error: %v", r))
		}
	}()

	log := logrus.WithContext(ctx).WithField("method", req.Method)
	log.WithField("has_auth", authHeader != "").Debug("Handling JSON-RPC request")

	switch req.Method {
	case MethodInitialize:
		return models.NewResultResponse(req.ID, models.InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]interface{}{"tools": map[string]interface{}{}},
			ServerInfo:      d.info,
		})
	case MethodInitialized:
		return models.NewResultResponse(req.ID, struct{}{})
	case MethodPing:
		return models.NewResultResponse(req.ID, models.PingResult{
			Status:    "ok",
			Timestamp: d.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		})
	case MethodToolsList:
		return models.NewResultResponse(req.ID, models.ListToolsResult{Tools: d.registry.Descriptors()})
	case MethodToolsCall:
		return d.handleToolsCall(ctx, req, authHeader)
	}

	log.Warn("Unknown method")
	return models.NewErrorResponse(req.ID, CodeMethodNotFound, "Method not found: "+req.Method)
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req *models.MCPRequest, authHeader string) *models.MCPResponse {
	var params models.MCPToolCallParams
	if len(req.Params) > 0 && !bytes.Equal(bytes.TrimSpace(req.Params), []byte("null")) {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return models.NewErrorResponse(req.ID, CodeInvalidParams, "Invalid params: "+err.Error())
		}
	}
	if params.Name == "" {
		return models.NewErrorResponse(req.ID, CodeInvalidParams, "Missing tool name")
	}

	tool, ok := d.registry.Lookup(params.Name)
	if !ok {
		return models.NewErrorResponse(req.ID, CodeInvalidParams, fmt.Sprintf("Tool not found: %s. Available tools: %s",
			params.Name, strings.Join(d.registry.Names(), ", ")))
	}

	auth := services.NewRequestAuth(ctx, d.auth, authHeader)
	args := params.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	start := time.Now()
	result, err := execute(ctx, tool, args, auth)
	log := logrus.WithContext(ctx).WithFields(logrus.Fields{
		"tool":     params.Name,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		log.WithError(err).Error("Tool execution failed")
		return models.NewErrorResponse(req.ID, CodeInternalError, "Tool execution failed: "+err.Error())
	}
	if result.Failed() {
		log.WithField("error", result.Error).Info("Tool returned an error result")
	} else {
		log.Info("Tool call completed")
	}
	return models.NewResultResponse(req.ID, models.NewToolCallResponse(result))
}

// execute runs the tool and turns a panic or a missing result into an error
func execute(ctx context.Context, tool tools.Tool, args map[string]interface{}, auth services.AuthContext) (result *models.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	result, err = tool.Execute(ctx, args, auth)
	if err == nil && result == nil {
		err = fmt.Errorf("tool %s returned no result", tool.Name())
	}
	return result, err
}
