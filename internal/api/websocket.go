package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tracker-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocket streams account status changes and recorded trades to the UI.
// Auth uses a token query parameter because browsers cannot set headers on
// websocket upgrades.
func (s *Server) websocket(c *gin.Context) {
	token := c.Query("token")
	userID, err := parseToken(token, s.JWTSecret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":  "INVALID_TOKEN",
			"error": "invalid or expired token",
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	statusCh, unsubStatus := s.Bus.Subscribe(events.TopicAccountStatusChanged, 100)
	defer unsubStatus()
	tradeCh, unsubTrades := s.Bus.Subscribe(events.TopicTradeRecorded, 100)
	defer unsubTrades()

	type frame struct {
		Topic   string `json:"topic"`
		Payload any    `json:"payload"`
	}

	for {
		select {
		case msg, ok := <-statusCh:
			if !ok {
				return
			}
			if ch, isChange := msg.(events.StatusChange); isChange && ch.UserID != userID {
				continue
			}
			if err := conn.WriteJSON(frame{Topic: string(events.TopicAccountStatusChanged), Payload: msg}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case msg, ok := <-tradeCh:
			if !ok {
				return
			}
			if tr, isTrade := msg.(events.TradeRecorded); isTrade && tr.UserID != userID {
				continue
			}
			if err := conn.WriteJSON(frame{Topic: string(events.TopicTradeRecorded), Payload: msg}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}
}
