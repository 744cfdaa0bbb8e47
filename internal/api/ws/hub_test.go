package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"party-games/internal/config"
	"party-games/internal/room"
)

type fakeModule struct {
	name   string
	prefix string
	hub    *Hub

	mu           sync.Mutex
	actions      []string
	reqs         []room.Request
	disconnected []string
}

func (f *fakeModule) Name() string   { return f.name }
func (f *fakeModule) Prefix() string { return f.prefix }
func (f *fakeModule) Rooms() int     { return 0 }

func (f *fakeModule) Handle(req room.Request, action string, _ json.RawMessage) {
	f.mu.Lock()
	f.actions = append(f.actions, action)
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if action == "join" {
		f.hub.Subscribe(req.ConnID, "g")
		f.hub.Reply(req.ConnID, "joined", nil)
	}
}

func (f *fakeModule) Disconnect(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, userID)
}

func (f *fakeModule) seen() ([]string, []room.Request, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...), append([]room.Request(nil), f.reqs...), append([]string(nil), f.disconnected...)
}

func setup(t *testing.T) (*Hub, *fakeModule, *fakeModule, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHub(config.Default().WS, zaptest.NewLogger(t))
	base := &fakeModule{name: "doudizhu", hub: h}
	arena := &fakeModule{name: "bomberman", prefix: "bomberman:", hub: h}
	h.Mount(base, arena)

	r := gin.New()
	r.GET("/ws", h.HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return h, base, arena, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, action, data string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"`+action+`","data":`+data+`}`)))
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func register(t *testing.T, conn *websocket.Conn, user string) {
	t.Helper()
	write(t, conn, "user:register", `{"userId":"`+user+`"}`)
	env := read(t, conn)
	require.Equal(t, "user:registered", env.Action)
}

func TestRegisterAndPing(t *testing.T) {
	_, _, _, url := setup(t)
	conn := dial(t, url)

	write(t, conn, "user:register", `{}`)
	env := read(t, conn)
	assert.Equal(t, "error", env.Action)

	register(t, conn, "u1")
	write(t, conn, "ping", `{}`)
	assert.Equal(t, "pong", read(t, conn).Action)
}

func TestRoutesByPrefix(t *testing.T) {
	_, base, arena, url := setup(t)
	conn := dial(t, url)
	register(t, conn, "u1")

	write(t, conn, "bomberman:game:move", `{"direction":"up"}`)
	write(t, conn, "room:list", `{}`)

	require.Eventually(t, func() bool {
		a, _, _ := arena.seen()
		b, _, _ := base.seen()
		return len(a) == 1 && len(b) == 1
	}, 2*time.Second, 10*time.Millisecond)

	actions, reqs, _ := arena.seen()
	assert.Equal(t, "game:move", actions[0])
	assert.Equal(t, "u1", reqs[0].UserID)
	actions, _, _ = base.seen()
	assert.Equal(t, "room:list", actions[0])
}

func TestUnregisteredConnection(t *testing.T) {
	_, base, _, url := setup(t)
	conn := dial(t, url)

	write(t, conn, "room:list", `{}`)
	env := read(t, conn)
	assert.Equal(t, "error", env.Action)
	assert.Contains(t, string(env.Data), "not registered")

	write(t, conn, "room:list", `{"userId":"u9"}`)
	require.Eventually(t, func() bool {
		_, reqs, _ := base.seen()
		return len(reqs) == 1 && reqs[0].UserID == "u9"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDisconnectAfterLastConnection(t *testing.T) {
	h, base, arena, url := setup(t)
	first := dial(t, url)
	second := dial(t, url)
	register(t, first, "u1")
	register(t, second, "u1")
	require.Equal(t, 1, h.Stats().Users)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return h.Stats().Clients == 1 }, 2*time.Second, 10*time.Millisecond)
	_, _, gone := base.seen()
	assert.Empty(t, gone)

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool {
		_, _, a := arena.seen()
		_, _, b := base.seen()
		return len(a) == 1 && len(b) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, h.Stats().Users)
}

func TestGroupBroadcast(t *testing.T) {
	h, _, _, url := setup(t)
	member := dial(t, url)
	other := dial(t, url)
	register(t, member, "u1")
	register(t, other, "u2")

	write(t, member, "join", `{}`)
	assert.Equal(t, "joined", read(t, member).Action)
	assert.Equal(t, 1, h.Stats().Groups)

	h.Broadcast("g", "hello", map[string]int{"n": 1})
	env := read(t, member)
	assert.Equal(t, "hello", env.Action)
	assert.JSONEq(t, `{"n":1}`, string(env.Data))

	h.BroadcastAll("lobby", []string{})
	assert.Equal(t, "lobby", read(t, other).Action)

	h.Unsubscribe("u1", "g")
	assert.Zero(t, h.Stats().Groups)
}
