package server

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"

	"fruitwheel/internal/wheel"
)

// gameWebSocketHandler serves the realtime stream: lifecycle broadcasts go
// out through the hub; the read loop accepts bets and state queries. Replies
// go through the registered client so they serialize with hub broadcasts
// instead of racing them on the connection.
func (s *FiberServer) gameWebSocketHandler(conn *websocket.Conn) {
	userID := conn.Query("user_id", "anonymous")

	log.Printf("[WS] new connection from user: %s", userID)

	client := s.hub.RegisterClient(conn, userID)
	client.SendState(s.room.Scheduler.State())

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] read error for user %s: %v", userID, err)
			s.hub.UnregisterClient(conn)
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var clientMsg struct {
			Type    string             `json:"type"`
			Amounts map[string]float64 `json:"amounts"`
		}
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			continue
		}

		switch clientMsg.Type {
		case "place_bet":
			amounts := make(map[wheel.Category]float64, len(clientMsg.Amounts))
			bad := false
			for name, amount := range clientMsg.Amounts {
				category, err := wheel.ParseCategory(name)
				if err != nil {
					client.Send(map[string]string{"type": "error", "error": err.Error()})
					bad = true
					break
				}
				amounts[category] = amount
			}
			if bad {
				continue
			}
			bet, err := s.room.Desk.PlaceBet(context.Background(), userID, amounts)
			if err != nil {
				client.Send(map[string]string{"type": "error", "error": err.Error()})
				continue
			}
			client.Send(wheel.WSMessage{Type: "bet_accepted", Data: bet})

		case "state":
			client.Send(wheel.WSMessage{Type: "state", Data: s.room.Scheduler.State()})

		case "ping":
			client.Send(map[string]string{"type": "pong"})
		}
	}
}
