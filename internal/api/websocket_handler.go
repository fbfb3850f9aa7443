package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/services"
	"github.com/aeroperk/mcp-server/internal/utils"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
)

// WebSocket upgrader. Browsers connect from the AeroPerk app and from
// assistant front-ends on other origins.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler serves the dispatcher over a WebSocket: every text frame is
// one JSON-RPC request and gets exactly one response frame.
type WebSocketHandler struct {
	dispatcher  *Dispatcher
	connections *services.WebSocketManager
}

// NewWebSocketHandler creates the WebSocket transport. Live connections are
// registered with connections.
func NewWebSocketHandler(dispatcher *Dispatcher, connections *services.WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{dispatcher: dispatcher, connections: connections}
}

// RegisterRoutes mounts GET /ws
func (wh *WebSocketHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/ws", wh.HandleWebSocket)
}

// HandleWebSocket upgrades the connection and serves requests until the client
// goes away. The credential is fixed for the lifetime of the connection:
// the Authorization header, or ?token= for browser clients that cannot set headers.
func (wh *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			authHeader = "Bearer " + token
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithContext(c.Request.Context()).WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	connectionID := wh.connections.Register(conn)
	defer wh.connections.Unregister(connectionID)

	connLog := logrus.WithContext(c.Request.Context()).WithFields(logrus.Fields{
		"remote":        conn.RemoteAddr().String(),
		"connection_id": connectionID,
	})
	connLog.Info("WebSocket connected")

	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				connLog.WithError(err).Warn("WebSocket closed unexpectedly")
			} else {
				connLog.Debug("WebSocket closed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		// each message gets its own trace id so tool logs can be told apart
		ctx := utils.WithTraceID(c.Request.Context(), utils.GenerateTraceID())
		resp := wh.dispatcher.Serve(ctx, data, authHeader)

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			connLog.WithError(err).Warn("WebSocket write failed")
			return
		}
	}
}
