package ws

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"party-games/internal/config"
	"party-games/internal/room"
)

// Hub owns every connection, the user id each one registered, and the
// broadcast groups. It implements room.Broadcaster for the game modules.
type Hub struct {
	cfg config.WSConfig
	log *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	users   map[string]map[string]*Client
	groups  map[string]map[string]*Client

	modules  []Module
	fallback Module
}

var _ room.Broadcaster = (*Hub)(nil)

func NewHub(cfg config.WSConfig, log *zap.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		log:     log,
		clients: make(map[string]*Client),
		users:   make(map[string]map[string]*Client),
		groups:  make(map[string]map[string]*Client),
	}
}

// Mount registers game modules. Call before serving.
func (h *Hub) Mount(mods ...Module) {
	for _, m := range mods {
		if m.Prefix() == "" {
			h.fallback = m
			continue
		}
		h.modules = append(h.modules, m)
	}
	sort.Slice(h.modules, func(i, j int) bool { return len(h.modules[i].Prefix()) > len(h.modules[j].Prefix()) })
}

func (h *Hub) Modules() []Module {
	if h.fallback == nil {
		return h.modules
	}
	return append([]Module{h.fallback}, h.modules...)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	cl := &Client{
		id:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.RateLimit), h.cfg.RateBurst),
	}
	cl.log = h.log.With(zap.String("conn", cl.id))

	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	cl.log.Debug("connected", zap.String("remote", c.ClientIP()))

	go cl.writePump()
	cl.readPump()
}

func (h *Hub) dispatch(c *Client, env envelope) {
	switch env.Action {
	case "user:register":
		var p struct {
			UserID string `json:"userId"`
		}
		if len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, &p)
		}
		if p.UserID == "" {
			h.reply(c, "error", map[string]string{"message": "userId required"})
			return
		}
		h.register(c, p.UserID)
		h.reply(c, "user:registered", map[string]string{"userId": p.UserID})
		return
	case "ping":
		h.reply(c, "pong", map[string]int64{"time": time.Now().UnixMilli()})
		return
	}

	userID := h.userOf(c)
	if userID == "" {
		var p struct {
			UserID string `json:"userId"`
		}
		if len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, &p)
		}
		if p.UserID == "" {
			h.reply(c, "error", map[string]string{"message": "not registered"})
			return
		}
		h.register(c, p.UserID)
		userID = p.UserID
	}

	mod, action := h.route(env.Action)
	if mod == nil {
		h.reply(c, "error", map[string]string{"message": "unknown action " + env.Action})
		return
	}
	mod.Handle(room.Request{ConnID: c.id, UserID: userID}, action, env.Data)
}

// route picks the module whose prefix matches action and strips the prefix.
func (h *Hub) route(action string) (Module, string) {
	for _, m := range h.modules {
		if rest, ok := strings.CutPrefix(action, m.Prefix()); ok {
			return m, rest
		}
	}
	return h.fallback, action
}

func (h *Hub) userOf(c *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.userID
}

// register binds c to userID. A connection that switches identity drops
// its previous one.
func (h *Hub) register(c *Client, userID string) {
	h.mu.Lock()
	prev := c.userID
	if prev == userID {
		h.mu.Unlock()
		return
	}
	orphaned := prev != "" && h.detachUser(c, prev)
	c.userID = userID
	if h.users[userID] == nil {
		h.users[userID] = make(map[string]*Client)
	}
	h.users[userID][c.id] = c
	h.mu.Unlock()

	c.log.Info("user registered", zap.String("user", userID))
	if orphaned {
		h.disconnectUser(prev)
	}
}

// detachUser removes c from userID's connection set and reports whether it
// was the last one. Caller holds h.mu.
func (h *Hub) detachUser(c *Client, userID string) bool {
	conns := h.users[userID]
	delete(conns, c.id)
	for _, g := range h.groups {
		delete(g, c.id)
	}
	if len(conns) == 0 {
		delete(h.users, userID)
		return true
	}
	return false
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for _, g := range h.groups {
		delete(g, c.id)
	}
	userID := c.userID
	last := userID != "" && h.detachUser(c, userID)
	close(c.send)
	h.mu.Unlock()

	c.log.Debug("disconnected", zap.String("user", userID))
	if last {
		h.disconnectUser(userID)
	}
}

func (h *Hub) disconnectUser(userID string) {
	for _, m := range h.Modules() {
		m.Disconnect(userID)
	}
}

func (h *Hub) encode(action string, data any) []byte {
	msg, err := json.Marshal(outbound{Action: action, Data: data})
	if err != nil {
		h.log.Error("encode failed", zap.String("action", action), zap.Error(err))
		return nil
	}
	return msg
}

// enqueue never blocks. A client whose buffer is full is too slow to keep
// and gets closed. Caller holds h.mu.
func (h *Hub) enqueue(c *Client, msg []byte) {
	if msg == nil {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.log.Warn("send buffer full, closing")
		_ = c.conn.Close()
	}
}

func (h *Hub) reply(c *Client, action string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; ok {
		h.enqueue(c, h.encode(action, data))
	}
}

func (h *Hub) Reply(connID, action string, data any) {
	msg := h.encode(action, data)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.enqueue(c, msg)
	}
}

func (h *Hub) SendUser(userID, action string, data any) {
	msg := h.encode(action, data)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.users[userID] {
		h.enqueue(c, msg)
	}
}

func (h *Hub) Broadcast(group, action string, data any) {
	h.BroadcastExcept(group, "", action, data)
}

func (h *Hub) BroadcastExcept(group, exceptConnID, action string, data any) {
	msg := h.encode(action, data)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.groups[group] {
		if id != exceptConnID {
			h.enqueue(c, msg)
		}
	}
}

func (h *Hub) BroadcastAll(action string, data any) {
	msg := h.encode(action, data)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.enqueue(c, msg)
	}
}

func (h *Hub) Subscribe(connID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]*Client)
	}
	h.groups[group][connID] = c
}

// Unsubscribe removes every connection of userID from group.
func (h *Hub) Unsubscribe(userID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g := h.groups[group]
	for id := range h.users[userID] {
		delete(g, id)
	}
	if len(g) == 0 {
		delete(h.groups, group)
	}
}

func (h *Hub) CloseGroup(group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups, group)
}

type Stats struct {
	Clients int `json:"clients"`
	Users   int `json:"users"`
	Groups  int `json:"groups"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{Clients: len(h.clients), Users: len(h.users), Groups: len(h.groups)}
}
