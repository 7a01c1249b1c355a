package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"proximity-sync/internal/logging"
	"proximity-sync/internal/models"
	"proximity-sync/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BridgeEvent is the wire frame pushed to presentation clients. Every
// frame carries a full snapshot, never a diff.
type BridgeEvent struct {
	Type    string             `json:"type"`
	Entries []models.ListEntry `json:"entries,omitempty"`
	Payload any                `json:"payload,omitempty"`
}

// Hub maintains active bridge connections keyed by uid.
type Hub struct {
	rooms    map[string]map[*websocket.Conn]bool
	connInfo map[string]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]bool),
		connInfo: make(map[string]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a websocket connection for a user.
func (h *Hub) AddClient(uid string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[uid]; !ok {
		h.rooms[uid] = make(map[*websocket.Conn]bool)
	}
	h.rooms[uid][conn] = true
	if _, ok := h.connInfo[uid]; !ok {
		h.connInfo[uid] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[uid][conn] = info
}

// RemoveClient removes a user's websocket connection.
func (h *Hub) RemoveClient(uid string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[uid]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, uid)
		}
	}
	if infos, ok := h.connInfo[uid]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, uid)
		}
	}
}

// BroadcastList pushes a merged list snapshot to all of the user's
// connections.
func (h *Hub) BroadcastList(uid string, entries []models.ListEntry) {
	h.broadcast(uid, BridgeEvent{Type: "list_snapshot", Entries: entries})
}

// BroadcastFeed pushes an activity feed refresh to all of the user's
// connections.
func (h *Hub) BroadcastFeed(uid string, payload any) {
	h.broadcast(uid, BridgeEvent{Type: "feed_refresh", Payload: payload})
}

func (h *Hub) broadcast(uid string, event BridgeEvent) {
	h.mu.RLock()
	conns := h.rooms[uid]
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logging.L().Warnw("websocket write error", "uid", uid, "error", err)
			conn.Close()
			h.RemoveClient(uid, conn)
			observability.IncWSEvent("ws_error")
		}
	}
}
