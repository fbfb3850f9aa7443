package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/models"
)

// maxBodyBytes caps one JSON-RPC request body
const maxBodyBytes = 1 << 20

// StreamableHTTPHandler serves the dispatcher over plain HTTP POST
type StreamableHTTPHandler struct {
	dispatcher *Dispatcher
}

// NewStreamableHTTPHandler creates the HTTP transport
func NewStreamableHTTPHandler(dispatcher *Dispatcher) *StreamableHTTPHandler {
	return &StreamableHTTPHandler{dispatcher: dispatcher}
}

// RegisterRoutes mounts every MCP endpoint on router
func (sh *StreamableHTTPHandler) RegisterRoutes(router gin.IRoutes) {
	// clients are configured with any of these three URLs
	router.POST("/mcp", sh.HandleStreamableHTTP)
	router.POST("/", sh.HandleStreamableHTTP)
	router.POST("/api/mcp", sh.HandleStreamableHTTP)

	router.GET("/", sh.HandleDescriptor)
	router.GET("/api/mcp", sh.HandleDescriptor)
	router.GET("/health", sh.HandleHealth)
	router.GET("/mcp/capabilities", sh.HandleCapabilities)
}

// HandleStreamableHTTP answers one JSON-RPC request. Parse errors get HTTP 400,
// every other outcome (including JSON-RPC errors) HTTP 200.
func (sh *StreamableHTTPHandler) HandleStreamableHTTP(c *gin.Context) {
	ctx := c.Request.Context()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		logrus.WithContext(ctx).WithError(err).Warn("Failed to read request body")
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(nil, CodeParseError, "Parse error"))
		return
	}

	req, parseErr := Decode(body)
	if parseErr != nil {
		logrus.WithContext(ctx).WithField("bytes", len(body)).Warn("Rejected unparseable JSON-RPC body")
		c.JSON(http.StatusBadRequest, parseErr)
		return
	}

	resp := sh.dispatcher.Handle(ctx, req, c.GetHeader("Authorization"))
	c.JSON(http.StatusOK, resp)
}

// HandleDescriptor is the discovery document served on GET /
func (sh *StreamableHTTPHandler) HandleDescriptor(c *gin.Context) {
	info := sh.dispatcher.Info()
	c.JSON(http.StatusOK, gin.H{
		"name":    info.Name,
		"version": info.Version,
		"status":  "active",
		"tools":   sh.dispatcher.Registry().Summaries(),
	})
}

// HandleHealth is the liveness probe
func (sh *StreamableHTTPHandler) HandleHealth(c *gin.Context) {
	info := sh.dispatcher.Info()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   info.Name,
		"version":   info.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleCapabilities returns the initialize payload plus the full tool list
func (sh *StreamableHTTPHandler) HandleCapabilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"protocolVersion": ProtocolVersion,
		"capabilities": gin.H{
			"tools": gin.H{},
		},
		"serverInfo": sh.dispatcher.Info(),
		"tools":      sh.dispatcher.Registry().Descriptors(),
		"transports": []string{"streamable-http", "websocket"},
	})
}
