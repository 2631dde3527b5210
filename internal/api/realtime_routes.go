package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/bharatverse/bharatverse/internal/realtime"
)

const (
	realtimeWriteWait  = 10 * time.Second
	realtimePingPeriod = 30 * time.Second
)

var realtimeUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleRealtime streams change events for one collection over a websocket.
func (h *Handler) handleRealtime(c *gin.Context) {
	collection := c.Param("collection")
	if !realtime.ValidCollection(collection) {
		writeError(c, http.StatusNotFound, "unknown collection", realtime.ErrUnknownCollection)
		return
	}

	sub, err := h.hub.Subscribe(collection)
	if err != nil {
		writeError(c, http.StatusNotFound, "unknown collection", err)
		return
	}
	defer sub.Close()

	conn, err := realtimeUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("realtime websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// The client never sends data; reading only surfaces the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debugf("realtime websocket closed: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(realtimePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					h.logger.Debugf("realtime websocket write failed: %v", err)
				}
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(realtimeWriteWait)); err != nil {
				return
			}
		}
	}
}
