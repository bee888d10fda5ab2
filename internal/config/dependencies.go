package config

import (
	"taskboard/internal/api/v1/handlers"
	"taskboard/internal/auth"
	"taskboard/internal/websocket"
)

// Dependencies holds the services shared by every route.
type Dependencies struct {
	Store  handlers.Store
	Issuer *auth.Issuer
	Hub    *websocket.Hub
}
