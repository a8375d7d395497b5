package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub channels. Ratings go to every connected client; producer events only
// to the producer dashboard connections.
const (
	ChannelRatings  = "ratings"
	ChannelProducer = "producer"
)

type WSClient struct {
	Conn *websocket.Conn
}

// RealtimeHub is the connection registry behind the live-update channels.
// Registration and broadcast are safe for concurrent use.
type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]struct{}
}

func NewRealtimeHub() *RealtimeHub {
	return &RealtimeHub{clients: make(map[string]map[*WSClient]struct{})}
}

func (h *RealtimeHub) Register(channel string, c *WSClient) {
	h.mu.Lock()
	if h.clients[channel] == nil {
		h.clients[channel] = make(map[*WSClient]struct{})
	}
	h.clients[channel][c] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Unregister(channel string, c *WSClient) {
	h.mu.Lock()
	if set := h.clients[channel]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, channel)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

func (h *RealtimeHub) Broadcast(channel string, payload any) {
	msg, _ := json.Marshal(payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[channel] {
		_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (h *RealtimeHub) BroadcastRating(mealName string, avgRating float64, totalRatings int) {
	h.Broadcast(ChannelRatings, map[string]any{
		"mealName":     mealName,
		"avgRating":    avgRating,
		"totalRatings": totalRatings,
	})
}
