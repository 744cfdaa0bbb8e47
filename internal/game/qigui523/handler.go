package qigui523

import (
	"encoding/json"

	"go.uber.org/zap"

	"party-games/internal/room"
	"party-games/internal/shared"
	"party-games/internal/work"
)

// Prefix namespaces every 7523 action on the wire.
const Prefix = "qigui523:"

// Action is a client intent name without the prefix.
type Action string

const (
	ActRoomList      Action = "room:list"
	ActRoomCreate    Action = "room:create"
	ActRoomJoin      Action = "room:join"
	ActRoomQuickJoin Action = "room:quick_join"
	ActRoomLeave     Action = "room:leave"
	ActRoomRejoin    Action = "room:rejoin"
	ActReady         Action = "game:ready"
	ActStart         Action = "game:start"
	ActPlay          Action = "game:play"
	ActPass          Action = "game:pass"
	ActRestart       Action = "game:restart"
)

// ErrUnknownAction answers an action missing from the route table.
var ErrUnknownAction = shared.InvalidMove("unknown action")

type payload struct {
	UserName string   `json:"userName"`
	HostName string   `json:"hostName"`
	RoomID   string   `json:"roomId"`
	Name     string   `json:"name"`
	Password string   `json:"password"`
	Rules    Rules    `json:"rules"`
	Ready    bool     `json:"ready"`
	CardIDs  []string `json:"cardIds"`
}

func (p payload) displayName() string {
	if p.UserName != "" {
		return p.UserName
	}
	return p.HostName
}

type route struct {
	fn func(req room.Request, p payload) error
	// errAction is where failures are reported.
	errAction string
}

// Module routes 7523 intents into the manager on its loop.
type Module struct {
	m      *Manager
	out    room.Emitter
	exec   work.Executor
	log    *zap.Logger
	routes map[Action]route
}

// NewModule wires the manager to the broadcaster and builds the route table.
func NewModule(m *Manager, b room.Broadcaster, exec work.Executor, log *zap.Logger) *Module {
	mod := &Module{m: m, out: room.NewEmitter(b, "qigui523", Prefix), exec: exec, log: log}
	roomRoute := func(fn func(room.Request, payload) error) route { return route{fn, "room:error"} }
	gameRoute := func(fn func(room.Request, payload) error) route { return route{fn, "game:error"} }
	mod.routes = map[Action]route{
		ActRoomList:      roomRoute(mod.list),
		ActRoomCreate:    roomRoute(mod.create),
		ActRoomJoin:      roomRoute(mod.join),
		ActRoomQuickJoin: roomRoute(mod.quickJoin),
		ActRoomLeave:     roomRoute(mod.leave),
		ActRoomRejoin:    roomRoute(mod.rejoin),
		ActReady:         roomRoute(mod.ready),
		ActStart:         roomRoute(mod.start),
		ActPlay:          gameRoute(mod.play),
		ActPass:          gameRoute(mod.pass),
		ActRestart:       roomRoute(mod.restart),
	}
	return mod
}

// Name is the group namespace and the key of the HTTP room list.
func (mod *Module) Name() string { return "qigui523" }

// Prefix returns the namespace the hub routes on.
func (mod *Module) Prefix() string { return Prefix }

// Handle queues one intent. Failures go back to the sender only.
func (mod *Module) Handle(req room.Request, action string, data json.RawMessage) {
	mod.exec.Post(func() {
		rt, ok := mod.routes[Action(action)]
		if !ok {
			mod.out.Fail(req, "room:error", ErrUnknownAction)
			return
		}
		p, err := room.Decode[payload](data)
		if err == nil {
			err = rt.fn(req, p)
		}
		if err != nil {
			mod.log.Debug("intent rejected", zap.String("action", action), zap.String("user", req.UserID), zap.Error(err))
			mod.out.Fail(req, rt.errAction, err)
		}
	})
}

// Disconnect keeps the seat. A game with nobody left online is disbanded.
func (mod *Module) Disconnect(userID string) {
	mod.exec.Post(func() {
		r, disbanded := mod.m.Disconnect(userID)
		if r == nil {
			return
		}
		if disbanded {
			mod.out.ToRoom(r.ID, "room:disbanded", nil)
			mod.out.Close(r.ID)
			mod.refreshLobby()
			return
		}
		mod.out.ToRoom(r.ID, "room:player_offline", room.H{"playerId": userID, "playerName": r.Player(userID).Name})
	})
}

// Lobby lists the rooms still waiting for players.
func (mod *Module) Lobby() []Summary {
	var out []Summary
	mod.exec.Do(func() { out = mod.lobby() })
	return out
}

// Rooms counts live rooms.
func (mod *Module) Rooms() int {
	n := 0
	mod.exec.Do(func() { n = len(mod.m.Rooms()) })
	return n
}

func (mod *Module) lobby() []Summary {
	out := []Summary{}
	for _, r := range mod.m.Rooms() {
		if r.Phase == PhaseWaiting {
			out = append(out, SummaryOf(r))
		}
	}
	return out
}

func (mod *Module) refreshLobby() { mod.out.ToAll("room:list", mod.lobby()) }

// pushRoom sends each seated player their own view, optionally skipping one.
func (mod *Module) pushRoom(r *Room, action, skip string, extra room.H) {
	for _, p := range r.Players {
		if p.ID == skip {
			continue
		}
		data := room.H{"room": ViewFor(r, p.ID)}
		for k, v := range extra {
			data[k] = v
		}
		mod.out.ToUser(p.ID, action, data)
	}
}

func (mod *Module) list(req room.Request, _ payload) error {
	mod.out.Reply(req, "room:list", mod.lobby())
	return nil
}

func (mod *Module) create(req room.Request, p payload) error {
	r, err := mod.m.CreateRoom(req.UserID, p.displayName(), p.Name, p.Rules, p.Password)
	if err != nil {
		return err
	}
	mod.out.Join(req, r.ID)
	mod.out.Reply(req, "room:joined", room.H{"room": ViewFor(r, req.UserID)})
	mod.refreshLobby()
	return nil
}

func (mod *Module) join(req room.Request, p payload) error {
	res, err := mod.m.JoinRoom(p.RoomID, req.UserID, p.displayName(), p.Password)
	if err != nil {
		return err
	}
	mod.joined(req, res)
	return nil
}

func (mod *Module) quickJoin(req room.Request, p payload) error {
	res, err := mod.m.QuickJoin(req.UserID, p.displayName())
	if err != nil {
		return err
	}
	mod.joined(req, res)
	return nil
}

func (mod *Module) joined(req room.Request, res JoinResult) {
	r := res.Room
	mod.out.Join(req, r.ID)
	mod.out.Reply(req, "room:joined", room.H{"room": ViewFor(r, req.UserID), "isReconnect": res.Reconnect})
	if res.Reconnect {
		mod.pushRoom(r, "room:player_reconnected", req.UserID, room.H{"playerId": req.UserID})
		return
	}
	mod.pushRoom(r, "room:player_joined", req.UserID, nil)
	mod.refreshLobby()
}

func (mod *Module) leave(req room.Request, _ payload) error {
	r, disbanded, err := mod.m.LeaveRoom(req.UserID)
	if err != nil {
		return err
	}
	mod.out.Leave(req.UserID, r.ID)
	if disbanded {
		mod.out.ToRoom(r.ID, "room:disbanded", nil)
		mod.out.Close(r.ID)
	} else {
		mod.pushRoom(r, "room:player_left", req.UserID, room.H{"playerId": req.UserID})
	}
	mod.out.Reply(req, "room:left", room.H{"success": true})
	mod.refreshLobby()
	return nil
}

func (mod *Module) rejoin(req room.Request, p payload) error {
	r, err := mod.m.Rejoin(p.RoomID, req.UserID)
	if err != nil {
		return err
	}
	mod.out.Join(req, r.ID)
	mod.out.Reply(req, "room:joined", room.H{"room": ViewFor(r, req.UserID), "isReconnect": true})
	mod.pushRoom(r, "room:player_reconnected", req.UserID, room.H{"playerId": req.UserID})
	return nil
}

func (mod *Module) ready(req room.Request, p payload) error {
	r, err := mod.m.SetReady(req.UserID, p.Ready)
	if err != nil {
		return err
	}
	mod.pushRoom(r, "room:updated", "", nil)
	return nil
}

func (mod *Module) start(req room.Request, _ payload) error {
	r, err := mod.m.Start(req.UserID)
	if err != nil {
		return err
	}
	mod.pushRoom(r, "game:started", "", nil)
	mod.refreshLobby()
	return nil
}

func (mod *Module) play(req room.Request, p payload) error {
	out, err := mod.m.PlayCards(req.UserID, p.CardIDs)
	if err != nil {
		return err
	}
	mod.afterTurn(out)
	return nil
}

func (mod *Module) pass(req room.Request, _ payload) error {
	out, err := mod.m.Pass(req.UserID)
	if err != nil {
		return err
	}
	mod.afterTurn(out)
	return nil
}

func (mod *Module) afterTurn(out Outcome) {
	r := out.Room
	mod.pushRoom(r, "game:updated", "", nil)
	if out.Trick != nil {
		mod.out.ToRoom(r.ID, "game:round_end", room.H{"winnerId": out.Trick.WinnerID, "points": out.Trick.Points})
	}
	if out.Finished {
		winner := ""
		if len(r.FinishOrder) > 0 {
			winner = r.FinishOrder[0]
		}
		mod.out.ToRoom(r.ID, "game:finished", room.H{
			"winnerId":    winner,
			"finishOrder": r.FinishOrder,
			"scores":      Scores(r),
		})
	}
}

func (mod *Module) restart(req room.Request, _ payload) error {
	r, err := mod.m.Restart(req.UserID)
	if err != nil {
		return err
	}
	mod.pushRoom(r, "game:reset", "", nil)
	mod.refreshLobby()
	return nil
}
