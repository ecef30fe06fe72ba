package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one panel notification pushed over the websocket stream.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// EventHub fans events out to every connected panel client. A slow
// client is dropped rather than allowed to stall the broadcast.
type EventHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

var GlobalEvents *EventHub

func InitEvents() {
	GlobalEvents = &EventHub{
		clients: make(map[*websocket.Conn]chan []byte),
	}
	log.Println("Event hub initialized")
}

// Register adds a connection and starts its writer. The returned
// function detaches the client.
func (h *EventHub) Register(conn *websocket.Conn) func() {
	send := make(chan []byte, 16)

	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	go func() {
		for msg := range send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	return func() {
		h.mu.Lock()
		if ch, ok := h.clients[conn]; ok {
			delete(h.clients, conn)
			close(ch)
		}
		h.mu.Unlock()
		conn.Close()
	}
}

func (h *EventHub) Broadcast(eventType string, payload interface{}) {
	msg, err := json.Marshal(Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		log.Printf("event hub: failed to encode %s event: %v", eventType, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			delete(h.clients, conn)
			close(send)
			conn.Close()
		}
	}
}
