package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"proximity-sync/internal/identity"
	"proximity-sync/internal/observability"
)

// SyncWebSocketHandler upgrades presentation clients onto the bridge.
type SyncWebSocketHandler struct {
	hub      *Hub
	verifier identity.Verifier
}

// NewSyncWebSocketHandler constructs a SyncWebSocketHandler.
func NewSyncWebSocketHandler(hub *Hub, verifier identity.Verifier) *SyncWebSocketHandler {
	return &SyncWebSocketHandler{hub: hub, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client under its uid.
func (h *SyncWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("proximity-sync/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	uid, err := h.verifier.Verify(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UID:         uid,
		IP:          c.ClientIP(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(uid, conn, info)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")

	// Keep connection alive and clean up on close.
	go func() {
		defer func() {
			h.hub.RemoveClient(uid, conn)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
				}
				return
			}
		}
	}()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return c.Query("token")
	}
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return parts[1]
	}
	return header
}
