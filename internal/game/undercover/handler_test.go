package undercover

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"party-games/internal/config"
	"party-games/internal/room"
	"party-games/internal/room/roomtest"
	"party-games/internal/store"
	"party-games/internal/work"
)

func newModule(t *testing.T) (*Module, *roomtest.Recorder, *work.ManualScheduler) {
	t.Helper()
	sched := work.NewManualScheduler(time.Unix(1_700_000_000, 0))
	m := NewManager(store.NewRegistry[*Room](), rand.New(rand.NewSource(11)), config.Default().Undercover, sched, work.Inline{}, zaptest.NewLogger(t))
	rec := roomtest.NewRecorder()
	return NewModule(m, rec, work.Inline{}, zaptest.NewLogger(t)), rec, sched
}

func send(mod *Module, rec *roomtest.Recorder, user, action, data string) {
	rec.Connect("conn-"+user, user)
	mod.Handle(room.Request{ConnID: "conn-" + user, UserID: user}, action, json.RawMessage(data))
}

// lobbyOfFour seats a, b, c and d in one room and starts the game.
func lobbyOfFour(t *testing.T, mod *Module, rec *roomtest.Recorder) string {
	t.Helper()
	send(mod, rec, "a", "room:create", `{"userName":"Ann","settings":{"describeTime":20}}`)
	msg, ok := rec.Last(Prefix + "room:joined")
	require.True(t, ok)
	id := msg.Data.(room.H)["room"].(RoomView).ID
	for _, u := range []string{"b", "c", "d"} {
		send(mod, rec, u, "room:join", `{"userName":"`+u+`","roomId":"`+id+`"}`)
		send(mod, rec, u, "game:ready", `{"isReady":true}`)
	}
	rec.Reset()
	send(mod, rec, "a", "game:start", `{}`)
	return id
}

func TestModuleStartSendsPrivateWords(t *testing.T) {
	mod, rec, _ := newModule(t)
	id := lobbyOfFour(t, mod, rec)
	r, ok := mod.m.Get(id)
	require.True(t, ok)

	words := rec.Find(Prefix + "game:word_assigned")
	require.Len(t, words, 4)
	for _, w := range words {
		priv := w.Data.(*Private)
		assert.Equal(t, r.Player(w.Target).Word, priv.Word)
	}
	phase, ok := rec.Last(Prefix + "phase:describe")
	require.True(t, ok)
	assert.Equal(t, "a", phase.Data.(room.H)["currentDescriber"])
	assert.Equal(t, r.PhaseEndsAt.UnixMilli(), phase.Data.(room.H)["endTime"])
	assert.Equal(t, 20, r.Settings.DescribeTime)
	assert.Empty(t, mod.Lobby())
}

func TestModuleTimersDriveVote(t *testing.T) {
	mod, rec, sched := newModule(t)
	lobbyOfFour(t, mod, rec)

	sched.Advance(20 * time.Second)
	vote, ok := rec.Last(Prefix + "phase:vote")
	require.True(t, ok)
	assert.Empty(t, vote.Data.(room.H)["descriptions"])

	sched.Advance(20 * time.Second)
	res, ok := rec.Last(Prefix + "vote:result")
	require.True(t, ok)
	assert.True(t, res.Data.(VoteRecord).Tie)
	_, ok = rec.Last(Prefix + "phase:result")
	assert.True(t, ok)
}

func TestModuleDescribeErrors(t *testing.T) {
	mod, rec, _ := newModule(t)
	id := lobbyOfFour(t, mod, rec)
	r, _ := mod.m.Get(id)
	word := []rune(r.Player("b").Word)

	send(mod, rec, "b", "game:describe", `{"description":"`+string(word[0])+`!"}`)
	fail, ok := rec.Last(Prefix + "game:describe_error")
	require.True(t, ok)
	assert.Equal(t, "conn-b", fail.Target)
	assert.Equal(t, "invalid_move", fail.Data.(room.H)["kind"])

	send(mod, rec, "b", "game:vote", `{"targetId":"a"}`)
	fail, ok = rec.Last(Prefix + "game:vote_error")
	require.True(t, ok)
	assert.Equal(t, ErrWrongPhase.Error(), fail.Data.(room.H)["message"])
}

func TestModuleLeaveEndsGame(t *testing.T) {
	mod, rec, _ := newModule(t)
	lobbyOfFour(t, mod, rec)

	send(mod, rec, "c", "room:leave", `{}`)
	ended, ok := rec.Last(Prefix + "game:ended")
	require.True(t, ok)
	assert.Equal(t, WinnerDraw, ended.Data.(room.H)["winner"])
	players := ended.Data.(room.H)["players"].([]PlayerView)
	require.Len(t, players, 4)
	for _, p := range players {
		assert.NotEmpty(t, p.Role)
	}
	_, ok = rec.Last(Prefix + "player:left")
	assert.True(t, ok)
}

func TestModuleGraceRemoval(t *testing.T) {
	mod, rec, sched := newModule(t)
	send(mod, rec, "a", "room:create", `{"userName":"Ann"}`)
	msg, _ := rec.Last(Prefix + "room:joined")
	id := msg.Data.(room.H)["room"].(RoomView).ID
	send(mod, rec, "b", "room:join", `{"userName":"Bob","roomId":"`+id+`"}`)

	mod.Disconnect("b")
	_, ok := rec.Last(Prefix + "player:left")
	assert.False(t, ok)

	sched.Advance(5 * time.Second)
	left, ok := rec.Last(Prefix + "player:left")
	require.True(t, ok)
	assert.Equal(t, "b", left.Data.(room.H)["playerId"])
	assert.Equal(t, 1, mod.Rooms())
}
