package ws

import (
	"encoding/json"

	"party-games/internal/room"
)

// Module is one game mounted on the hub. Handle and Disconnect must return
// quickly; modules queue the work on their own loop.
type Module interface {
	Name() string
	// Prefix is the action namespace, e.g. "bomberman:". The module with an
	// empty prefix receives every action no other module claims.
	Prefix() string
	Handle(req room.Request, action string, data json.RawMessage)
	Disconnect(userID string)
	Rooms() int
}
