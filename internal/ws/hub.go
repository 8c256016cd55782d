// Package ws pushes feed events (new answers, reaction scores, hour
// rollover) to connected browsers. Polling remains the fallback; the hub
// only saves clients a poll cycle, so it holds nothing back for slow ones.
package ws

import (
	"encoding/json"
	"log"
)

// Event is the wire envelope for every push.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans incoming messages out to every registered client.
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run owns the client set; all membership changes and broadcasts funnel
// through here, so no lock is needed.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.Broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: drop it rather than block the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Notify marshals and broadcasts one event. Implements hour.Notifier.
func (h *Hub) Notify(event string, data any) {
	b, err := json.Marshal(Event{Type: event, Data: data})
	if err != nil {
		log.Printf("ws: marshal %s event: %v", event, err)
		return
	}
	select {
	case h.Broadcast <- b:
	default:
		// Feed full: the event is a hint, not a delivery guarantee.
	}
}
