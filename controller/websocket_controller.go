package controller

import (
	"net/http"
	"time"

	"roadrescue-backend/middelware"
	"roadrescue-backend/socket"
	"roadrescue-backend/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// pongWait is the read deadline; a client that stops pinging is dropped.
const pongWait = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketController struct {
	hub        *socket.Hub
	jwtManager *middelware.JWTManager
	logger     logger.Logger
}

func NewWebSocketController(hub *socket.Hub, jwtManager *middelware.JWTManager, log logger.Logger) *WebSocketController {
	return &WebSocketController{
		hub:        hub,
		jwtManager: jwtManager,
		logger:     log,
	}
}

// ServeWs handles GET /ws. Browsers cannot set an Authorization header on a
// WebSocket handshake, so the token rides in a query parameter.
func (h *WebSocketController) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return
	}

	claims, err := h.jwtManager.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	h.hub.Register(userID, conn)
	defer func() {
		h.hub.Unregister(userID, conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warnf("Unexpected close from %s: %v", userID, err)
			}
			break
		}
	}
}
