package room

import (
	"party-games/internal/shared"
)

// Broadcaster is the outbound side of the transport. Connections are
// addressed by connection id, players by their stable user id, and rooms by
// group name.
type Broadcaster interface {
	Reply(connID, action string, data any)
	SendUser(userID, action string, data any)
	Broadcast(group, action string, data any)
	BroadcastExcept(group, exceptConnID, action string, data any)
	BroadcastAll(action string, data any)
	Subscribe(connID, group string)
	Unsubscribe(userID, group string)
	CloseGroup(group string)
}

// Request identifies who sent an intent.
type Request struct {
	ConnID string
	UserID string
}

// H is a JSON object payload.
type H map[string]any

// Emitter scopes a Broadcaster to one game: actions get the game prefix and
// room groups get the game name.
type Emitter struct {
	b      Broadcaster
	game   string
	prefix string
}

func NewEmitter(b Broadcaster, game, prefix string) Emitter {
	return Emitter{b: b, game: game, prefix: prefix}
}

func (e Emitter) Group(roomID string) string { return e.game + "/" + roomID }

func (e Emitter) Reply(req Request, action string, data any) {
	e.b.Reply(req.ConnID, e.prefix+action, data)
}

// Fail reports err to the originating connection only.
func (e Emitter) Fail(req Request, action string, err error) {
	e.b.Reply(req.ConnID, e.prefix+action, H{
		"success": false,
		"error":   err.Error(),
		"message": err.Error(),
		"kind":    shared.KindOf(err).String(),
	})
}

func (e Emitter) ToUser(userID, action string, data any) {
	e.b.SendUser(userID, e.prefix+action, data)
}

func (e Emitter) ToRoom(roomID, action string, data any) {
	e.b.Broadcast(e.Group(roomID), e.prefix+action, data)
}

func (e Emitter) ToRoomExcept(roomID string, req Request, action string, data any) {
	e.b.BroadcastExcept(e.Group(roomID), req.ConnID, e.prefix+action, data)
}

func (e Emitter) ToAll(action string, data any) {
	e.b.BroadcastAll(e.prefix+action, data)
}

func (e Emitter) Join(req Request, roomID string) {
	e.b.Subscribe(req.ConnID, e.Group(roomID))
}

func (e Emitter) Leave(userID, roomID string) {
	e.b.Unsubscribe(userID, e.Group(roomID))
}

func (e Emitter) Close(roomID string) {
	e.b.CloseGroup(e.Group(roomID))
}
