package undercover

import (
	"encoding/json"

	"go.uber.org/zap"

	"party-games/internal/room"
	"party-games/internal/shared"
	"party-games/internal/work"
)

// Prefix namespaces every undercover action on the wire.
const Prefix = "undercover:"

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
	ActSettings      Action = "settings:update"
	ActStart         Action = "game:start"
	ActDescribe      Action = "game:describe"
	ActVote          Action = "game:vote"
	ActNextRound     Action = "game:next_round"
	ActRestart       Action = "game:restart"
	ActReset         Action = "game:reset"
)

// ErrUnknownAction answers an action missing from the route table.
var ErrUnknownAction = shared.InvalidMove("unknown action")

type payload struct {
	UserName    string        `json:"userName"`
	RoomID      string        `json:"roomId"`
	RoomName    string        `json:"roomName"`
	Password    string        `json:"password"`
	Settings    SettingsPatch `json:"settings"`
	Ready       bool          `json:"isReady"`
	Description string        `json:"description"`
	TargetID    string        `json:"targetId"`
}

type route struct {
	fn        func(req room.Request, p payload) error
	errAction string
}

// Module routes undercover intents into the manager on its loop.
type Module struct {
	m      *Manager
	out    room.Emitter
	exec   work.Executor
	log    *zap.Logger
	routes map[Action]route
}

// NewModule wires the manager to the broadcaster and builds the route table.
func NewModule(m *Manager, b room.Broadcaster, exec work.Executor, log *zap.Logger) *Module {
	mod := &Module{m: m, out: room.NewEmitter(b, "undercover", Prefix), exec: exec, log: log}
	m.SetListener(mod)
	on := func(fn func(room.Request, payload) error) route { return route{fn, "room:error"} }
	mod.routes = map[Action]route{
		ActRoomList:      on(mod.list),
		ActRoomCreate:    on(mod.create),
		ActRoomJoin:      on(mod.join),
		ActRoomQuickJoin: on(mod.quickJoin),
		ActRoomLeave:     on(mod.leave),
		ActRoomRejoin:    on(mod.rejoin),
		ActReady:         on(mod.ready),
		ActSettings:      on(mod.settings),
		ActStart:         on(mod.start),
		ActDescribe:      {mod.describe, "game:describe_error"},
		ActVote:          {mod.vote, "game:vote_error"},
		ActNextRound:     on(mod.nextRound),
		ActRestart:       on(mod.restart),
		ActReset:         on(mod.restart),
	}
	return mod
}

// Name is the group namespace and the key of the HTTP room list.
func (mod *Module) Name() string { return "undercover" }

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

// Disconnect leaves at once mid-round, or holds the seat for the grace window.
func (mod *Module) Disconnect(userID string) {
	mod.exec.Post(func() {
		if res, left := mod.m.Disconnect(userID); left {
			mod.afterLeave(userID, res)
			return
		}
		if r, ok := mod.m.RoomOf(userID); ok {
			mod.pushRoom(r, "room:updated")
		}
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

func (mod *Module) pushRoom(r *Room, action string) {
	for _, p := range r.seated() {
		mod.out.ToUser(p.ID, action, room.H{"room": ViewFor(r, p.ID)})
	}
}

// VoteOpened, VoteClosed and GraceExpired are called from room timers.

// VoteOpened, VoteClosed and GraceExpired implement Listener.
func (mod *Module) VoteOpened(r *Room) { mod.announceVote(r) }

func (mod *Module) VoteClosed(r *Room, rec VoteRecord) { mod.announceResult(r, rec) }

func (mod *Module) GraceExpired(userID string, res LeaveResult) { mod.afterLeave(userID, res) }

func (mod *Module) list(req room.Request, _ payload) error {
	mod.out.Reply(req, "room:list", mod.lobby())
	return nil
}

func (mod *Module) create(req room.Request, p payload) error {
	r, err := mod.m.CreateRoom(req.UserID, p.UserName, p.RoomName, p.Password, p.Settings)
	if err != nil {
		return err
	}
	mod.out.Join(req, r.ID)
	mod.out.Reply(req, "room:joined", room.H{"room": ViewFor(r, req.UserID), "playerId": req.UserID})
	mod.refreshLobby()
	return nil
}

func (mod *Module) join(req room.Request, p payload) error {
	res, err := mod.m.JoinRoom(p.RoomID, req.UserID, p.UserName, p.Password)
	if err != nil {
		return err
	}
	mod.joined(req, res)
	return nil
}

func (mod *Module) quickJoin(req room.Request, p payload) error {
	res, err := mod.m.QuickJoin(req.UserID, p.UserName)
	if err != nil {
		return err
	}
	mod.joined(req, res)
	return nil
}

func (mod *Module) joined(req room.Request, res JoinResult) {
	r := res.Room
	mod.out.Join(req, r.ID)
	mod.out.Reply(req, "room:joined", room.H{
		"room":        ViewFor(r, req.UserID),
		"playerId":    req.UserID,
		"isReconnect": res.Reconnect,
		"privateData": PrivateFor(r, req.UserID),
	})
	mod.pushRoom(r, "room:updated")
	if !res.Reconnect {
		mod.refreshLobby()
	}
}

func (mod *Module) rejoin(req room.Request, p payload) error {
	r, err := mod.m.Rejoin(p.RoomID, req.UserID)
	if err != nil {
		return err
	}
	mod.out.Join(req, r.ID)
	mod.out.Reply(req, "room:rejoined", room.H{
		"room":        ViewFor(r, req.UserID),
		"playerId":    req.UserID,
		"privateData": PrivateFor(r, req.UserID),
	})
	mod.pushRoom(r, "room:updated")
	return nil
}

func (mod *Module) leave(req room.Request, _ payload) error {
	res, err := mod.m.LeaveRoom(req.UserID)
	if err != nil {
		return err
	}
	mod.out.Reply(req, "room:left", room.H{"success": true})
	mod.afterLeave(req.UserID, res)
	return nil
}

func (mod *Module) afterLeave(userID string, res LeaveResult) {
	r := res.Room
	mod.out.Leave(userID, r.ID)
	if res.Disbanded {
		mod.out.ToRoom(r.ID, "room:deleted", room.H{"roomId": r.ID})
		mod.out.Close(r.ID)
		mod.refreshLobby()
		return
	}
	mod.out.ToRoom(r.ID, "player:left", room.H{"playerId": userID, "playerName": res.Player.Name})
	if res.EndedGame {
		mod.announceEnd(r)
	}
	mod.pushRoom(r, "room:updated")
	mod.refreshLobby()
}

func (mod *Module) ready(req room.Request, p payload) error {
	r, err := mod.m.SetReady(req.UserID, p.Ready)
	if err != nil {
		return err
	}
	mod.out.ToRoom(r.ID, "player:ready", room.H{"playerId": req.UserID, "isReady": p.Ready})
	mod.pushRoom(r, "room:updated")
	return nil
}

func (mod *Module) settings(req room.Request, p payload) error {
	r, err := mod.m.UpdateSettings(req.UserID, p.Settings)
	if err != nil {
		return err
	}
	mod.pushRoom(r, "room:updated")
	mod.refreshLobby()
	return nil
}

func (mod *Module) start(req room.Request, _ payload) error {
	r, err := mod.m.Start(req.UserID)
	if err != nil {
		return err
	}
	mod.pushRoom(r, "game:started")
	for _, p := range r.Players {
		mod.out.ToUser(p.ID, "game:word_assigned", PrivateFor(r, p.ID))
	}
	mod.announceDescribe(r)
	mod.refreshLobby()
	return nil
}

func (mod *Module) announceDescribe(r *Room) {
	mod.out.ToRoom(r.ID, "phase:describe", room.H{
		"round":            r.Round,
		"currentDescriber": r.Describer,
		"endTime":          r.PhaseEndsAt.UnixMilli(),
	})
	mod.pushRoom(r, "room:updated")
}

func (mod *Module) describe(req room.Request, p payload) error {
	res, err := mod.m.Describe(req.UserID, p.Description)
	if err != nil {
		return err
	}
	r := res.Room
	mod.out.Reply(req, "game:describe_submitted", room.H{"success": true})
	mod.out.ToRoom(r.ID, "player:described", room.H{"playerId": req.UserID, "currentDescriber": r.Describer})
	if res.VoteOpened {
		mod.announceVote(r)
		return nil
	}
	mod.pushRoom(r, "room:updated")
	return nil
}

func (mod *Module) announceVote(r *Room) {
	mod.out.ToRoom(r.ID, "phase:vote", room.H{
		"descriptions": Descriptions(r),
		"endTime":      r.PhaseEndsAt.UnixMilli(),
	})
	mod.pushRoom(r, "room:updated")
}

func (mod *Module) vote(req room.Request, p payload) error {
	out, err := mod.m.Vote(req.UserID, p.TargetID)
	if err != nil {
		return err
	}
	mod.out.Reply(req, "game:vote_submitted", room.H{"success": true, "targetId": p.TargetID})
	mod.out.ToRoom(out.Room.ID, "vote:progress", room.H{"voted": out.Voted, "total": out.Total})
	if out.Record != nil {
		mod.announceResult(out.Room, *out.Record)
	}
	return nil
}

func (mod *Module) announceResult(r *Room, rec VoteRecord) {
	mod.out.ToRoom(r.ID, "vote:result", rec)
	if r.Phase == PhaseEnded {
		mod.announceEnd(r)
	} else {
		mod.out.ToRoom(r.ID, "phase:result", room.H{"round": r.Round, "staleRounds": r.StaleRounds})
	}
	mod.pushRoom(r, "room:updated")
}

func (mod *Module) announceEnd(r *Room) {
	mod.out.ToRoom(r.ID, "game:ended", room.H{
		"winner":  r.Winner,
		"players": Reveal(r),
		"words":   r.Pair,
	})
}

func (mod *Module) nextRound(req room.Request, _ payload) error {
	r, err := mod.m.NextRound(req.UserID)
	if err != nil {
		return err
	}
	mod.announceDescribe(r)
	return nil
}

func (mod *Module) restart(req room.Request, _ payload) error {
	r, err := mod.m.Restart(req.UserID)
	if err != nil {
		return err
	}
	mod.pushRoom(r, "game:reset")
	mod.refreshLobby()
	return nil
}
