package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/aeroperk/mcp-server/internal/services"
	"github.com/aeroperk/mcp-server/internal/utils"
)

// NewRouter builds the gin engine serving every HTTP and WebSocket endpoint.
// WebSocket connections are tracked in connections.
func NewRouter(dispatcher *Dispatcher, connections *services.WebSocketManager) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.TraceIDMiddleware())
	router.Use(utils.RequestLogger())
	router.Use(cors.New(CORSConfig()))

	NewStreamableHTTPHandler(dispatcher).RegisterRoutes(router)
	NewWebSocketHandler(dispatcher, connections).RegisterRoutes(router)
	return router
}

// CORSConfig allows any origin; assistants call the server from their own domains
func CORSConfig() cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "Accept", utils.TraceIDHeader}
	corsCfg.ExposeHeaders = []string{"Content-Length", utils.TraceIDHeader}
	corsCfg.MaxAge = 12 * time.Hour
	return corsCfg
}
