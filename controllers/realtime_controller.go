package controllers

import (
	"net/http"
	"time"

	"messmate/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type RealtimeController struct {
	Hub *services.RealtimeHub
}

func NewRealtimeController(hub *services.RealtimeHub) *RealtimeController {
	return &RealtimeController{Hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // tighten behind a proxy if needed
}

// RatingsWS streams live rating updates to any connected dashboard.
func (rc *RealtimeController) RatingsWS(c *gin.Context) {
	rc.serve(c, services.ChannelRatings)
}

// ProducerWS streams producer-side events (reminders sent, etc.).
func (rc *RealtimeController) ProducerWS(c *gin.Context) {
	rc.serve(c, services.ChannelProducer)
}

func (rc *RealtimeController) serve(c *gin.Context, channel string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := &services.WSClient{Conn: conn}
	rc.Hub.Register(channel, cl)

	// ping to keep connections alive through some proxies
	go func() {
		t := time.NewTicker(25 * time.Second)
		defer t.Stop()
		for range t.C {
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				rc.Hub.Unregister(channel, cl)
				return
			}
		}
	}()

	// read loop ends on client close/error → unregister
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			rc.Hub.Unregister(channel, cl)
			return
		}
	}
}
