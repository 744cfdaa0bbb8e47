package qigui523

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"party-games/internal/room"
	"party-games/internal/room/roomtest"
	"party-games/internal/work"
)

func newModule(t *testing.T) (*Module, *roomtest.Recorder) {
	t.Helper()
	rec := roomtest.NewRecorder()
	return NewModule(newManager(t), rec, work.Inline{}, zaptest.NewLogger(t)), rec
}

func send(mod *Module, rec *roomtest.Recorder, user, action, data string) {
	rec.Connect("conn-"+user, user)
	mod.Handle(room.Request{ConnID: "conn-" + user, UserID: user}, action, json.RawMessage(data))
}

func TestModuleFlow(t *testing.T) {
	mod, rec := newModule(t)

	send(mod, rec, "a", "room:create", `{"hostName":"Ann","name":"T","rules":{"playerCount":2}}`)
	msg, ok := rec.Last(Prefix + "room:joined")
	require.True(t, ok)
	view := msg.Data.(room.H)["room"].(RoomView)
	assert.Equal(t, Rules{PlayerCount: 2, HandSize: 5}, view.Rules)

	send(mod, rec, "b", "room:join", `{"userName":"Bob","roomId":"`+view.ID+`"}`)
	joined, ok := rec.Last(Prefix + "room:player_joined")
	require.True(t, ok)
	assert.Equal(t, "a", joined.Target)

	send(mod, rec, "b", "game:ready", `{"ready":true}`)
	rec.Reset()
	send(mod, rec, "a", "game:start", `{}`)
	starts := rec.Find(Prefix + "game:started")
	require.Len(t, starts, 2)
	for _, m := range starts {
		rv := m.Data.(room.H)["room"].(RoomView)
		for _, p := range rv.Players {
			if p.ID == m.Target {
				assert.Len(t, p.Hand, 5)
			} else {
				assert.Empty(t, p.Hand)
			}
		}
	}
	assert.Empty(t, mod.Lobby())

	// a game error goes back to the sender only
	r, _ := mod.m.Get(view.ID)
	notTurn := "a"
	if r.Turn == "a" {
		notTurn = "b"
	}
	send(mod, rec, notTurn, "game:pass", `{}`)
	fail, ok := rec.Last(Prefix + "game:error")
	require.True(t, ok)
	assert.Equal(t, "conn-"+notTurn, fail.Target)
	assert.Equal(t, "forbidden", fail.Data.(room.H)["kind"])
}

func TestModuleQuickJoinFails(t *testing.T) {
	mod, rec := newModule(t)
	send(mod, rec, "a", "room:quick_join", `{"userName":"Ann"}`)
	fail, ok := rec.Last(Prefix + "room:error")
	require.True(t, ok)
	assert.Equal(t, ErrNoRoom.Error(), fail.Data.(room.H)["message"])
}

func TestModuleDisconnectDisbands(t *testing.T) {
	mod, rec := newModule(t)
	send(mod, rec, "a", "room:create", `{"hostName":"Ann","rules":{"playerCount":2}}`)
	msg, _ := rec.Last(Prefix + "room:joined")
	id := msg.Data.(room.H)["room"].(RoomView).ID
	send(mod, rec, "b", "room:join", `{"userName":"Bob","roomId":"`+id+`"}`)
	send(mod, rec, "b", "game:ready", `{"ready":true}`)
	send(mod, rec, "a", "game:start", `{}`)

	mod.Disconnect("a")
	off, ok := rec.Last(Prefix + "room:player_offline")
	require.True(t, ok)
	assert.Equal(t, "a", off.Data.(room.H)["playerId"])

	mod.Disconnect("b")
	_, ok = rec.Last(Prefix + "room:disbanded")
	assert.True(t, ok)
	assert.Zero(t, mod.Rooms())
}
