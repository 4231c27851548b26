package handler

import (
	"net/http"

	"reunite/backend/internal/livefeed"
	"reunite/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeFeed upgrades an admin connection to WebSocket and subscribes it to
// the live match event feed. The token travels in the query string because
// browsers cannot set headers on WebSocket requests.
func (h *Handler) ServeFeed(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
		return
	}
	p, err := h.parseToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	if !p.CanModerate() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}

	client := &livefeed.WebSocketClient{
		SubscriberID: p.ID,
		Conn:         conn,
		Hub:          h.Hub,
		Log:          h.Log,
		Send:         make(chan models.MatchEvent, 256),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
