package handlers

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"taskboard/internal/websocket"
)

// RequireUpgrade lets only websocket handshakes through.
func RequireUpgrade(c *fiber.Ctx) error {
	if fiberws.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Events streams change events from hub to the connection. Inbound frames
// are read and discarded so that closes and pings are noticed.
func Events(hub *websocket.Hub) fiber.Handler {
	return fiberws.New(func(conn *fiberws.Conn) {
		client := &websocket.Client{Conn: conn}
		if !hub.Join(client) {
			conn.Close()
			return
		}
		defer hub.Leave(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
