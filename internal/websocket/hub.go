// Package websocket fans out entity change events to connected clients.
package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"taskboard/pkg/logger"
)

// Event describes a committed change. Clients refetch the entity they care
// about; the payload never carries entity fields.
type Event struct {
	Type    string `json:"type"`
	Entity  string `json:"entity"`
	ID      int    `json:"id"`
	Project int    `json:"project,omitempty"`
}

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents one websocket subscriber.
type Client struct {
	Conn Conn
	Mu   sync.Mutex
}

func (c *Client) write(msg []byte) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub manages websocket subscribers and broadcasts events to all of them.
type Hub struct {
	clients    map[*Client]bool
	count      atomic.Int32
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run owns the client set until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.count.Store(int32(len(h.clients)))
		case client := <-h.Unregister:
			h.remove(client)
		case message := <-h.Broadcast:
			for client := range h.clients {
				if err := client.write(message); err != nil {
					logger.SystemLogger.Debug("Dropping websocket client", zap.Error(err))
					h.remove(client)
				}
			}
		case <-h.quit:
			for client := range h.clients {
				h.remove(client)
			}
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.Conn.Close()
		h.count.Store(int32(len(h.clients)))
	}
}

// Join registers client. It returns false once the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.quit:
	}
}

// Publish queues ev for broadcast without blocking. Events are dropped
// when the queue is full.
func (h *Hub) Publish(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		logger.ErrorLogger.Error("Failed to encode event", zap.Error(err))
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		logger.SystemLogger.Warn("Event queue full, dropping event",
			zap.String("type", ev.Type),
			zap.String("entity", ev.Entity),
			zap.Int("id", ev.ID),
		)
	}
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}
