package bomberman

import (
	"encoding/json"

	"go.uber.org/zap"

	"party-games/internal/room"
	"party-games/internal/shared"
	"party-games/internal/work"
)

// Prefix namespaces every bomberman action on the wire.
const Prefix = "bomberman:"

// Action is a client intent name without the prefix.
type Action string

const (
	ActRoomList      Action = "room:list"
	ActRoomCreate    Action = "room:create"
	ActRoomJoin      Action = "room:join"
	ActRoomQuickJoin Action = "room:quick_join"
	ActRoomLeave     Action = "room:leave"
	ActRoomRejoin    Action = "room:rejoin"
	ActMaps          Action = "map:list"
	ActReady         Action = "game:ready"
	ActAddBot        Action = "game:add_bot"
	ActRemoveBot     Action = "game:remove_bot"
	ActStart         Action = "game:start"
	ActMove          Action = "game:move"
	ActBomb          Action = "game:bomb"
	ActNeedle        Action = "game:needle"
	ActRestart       Action = "game:restart"
)

// ErrUnknownAction answers an action missing from the route table.
var ErrUnknownAction = shared.InvalidMove("unknown action")

type payload struct {
	UserName   string     `json:"userName"`
	RoomID     string     `json:"roomId"`
	RoomName   string     `json:"roomName"`
	Password   string     `json:"password"`
	Settings   Rules      `json:"settings"`
	Ready      bool       `json:"isReady"`
	Difficulty Difficulty `json:"difficulty"`
	BotID      string     `json:"botId"`
	Direction  string     `json:"direction"`
}

// Module routes bomberman intents into the manager on its loop.
type Module struct {
	m      *Manager
	out    room.Emitter
	exec   work.Executor
	log    *zap.Logger
	routes map[Action]func(room.Request, payload) error
}

// NewModule wires the manager to the broadcaster and builds the route table.
func NewModule(m *Manager, b room.Broadcaster, exec work.Executor, log *zap.Logger) *Module {
	mod := &Module{m: m, out: room.NewEmitter(b, "bomberman", Prefix), exec: exec, log: log}
	m.SetListener(mod)
	mod.routes = map[Action]func(room.Request, payload) error{
		ActRoomList:      mod.list,
		ActRoomCreate:    mod.create,
		ActRoomJoin:      mod.join,
		ActRoomQuickJoin: mod.quickJoin,
		ActRoomLeave:     mod.leave,
		ActRoomRejoin:    mod.rejoin,
		ActMaps:          mod.maps,
		ActReady:         mod.ready,
		ActAddBot:        mod.addBot,
		ActRemoveBot:     mod.removeBot,
		ActStart:         mod.start,
		ActMove:          mod.move,
		ActBomb:          mod.bomb,
		ActNeedle:        mod.needle,
		ActRestart:       mod.restart,
	}
	return mod
}

// Name is the group namespace and the key of the HTTP room list.
func (mod *Module) Name() string { return "bomberman" }

// Prefix returns the namespace the hub routes on.
func (mod *Module) Prefix() string { return Prefix }

// Handle queues one intent. Failures go back to the sender only.
func (mod *Module) Handle(req room.Request, action string, data json.RawMessage) {
	mod.exec.Post(func() {
		fn, ok := mod.routes[Action(action)]
		if !ok {
			mod.out.Fail(req, "room:error", ErrUnknownAction)
			return
		}
		p, err := room.Decode[payload](data)
		if err == nil {
			err = fn(req, p)
		}
		if err != nil {
			mod.log.Debug("intent rejected", zap.String("action", action), zap.String("user", req.UserID), zap.Error(err))
			mod.out.Fail(req, "room:error", err)
		}
	})
}

// Disconnect kills a dropped player mid-game and otherwise marks them offline.
func (mod *Module) Disconnect(userID string) {
	mod.exec.Post(func() {
		if res, ok := mod.m.Disconnect(userID); ok {
			mod.afterLeave(userID, res)
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
	mod.out.ToRoom(r.ID, action, room.H{"room": View(r)})
}

func (mod *Module) finished(r *Room) {
	data := room.H{"winnerId": r.Winner, "winnerTeam": r.WinnerTeam}
	if p := r.Player(r.Winner); p != nil {
		data["winnerName"] = p.Name
	}
	mod.out.ToRoom(r.ID, "game:finished", data)
	mod.pushRoom(r, "room:updated")
}

func (mod *Module) announceHit(r *Room, h Hit) {
	for _, id := range h.Killed {
		mod.out.ToRoom(r.ID, "game:player_died", room.H{"playerId": id})
	}
	for _, id := range h.Dying {
		mod.out.ToRoom(r.ID, "game:player_dying", room.H{"playerId": id, "dyingUntil": r.Player(id).DyingUntil.UnixMilli()})
	}
	for _, id := range h.Shielded {
		mod.out.ToRoom(r.ID, "game:shield_used", room.H{"playerId": id, "shield": r.Player(id).Shield})
	}
}

// The listener methods run from room timers.

// Exploded and the methods after it implement Listener.
func (mod *Module) Exploded(r *Room, b Blast) { mod.announceBlast(r, b) }

func (mod *Module) ExplosionCleared(r *Room) {
	mod.out.ToRoom(r.ID, "game:explosion_end", room.H{"explosions": View(r).Explosions})
}

func (mod *Module) Kicked(r *Room, k Kick) {
	mod.out.ToRoom(r.ID, "game:bomb_kicked", k)
	if k.Blast != nil {
		mod.announceBlast(r, *k.Blast)
	}
}

func (mod *Module) DyingExpired(r *Room, playerID string) {
	mod.out.ToRoom(r.ID, "game:player_died", room.H{"playerId": playerID})
	if r.Phase == PhaseFinished {
		mod.finished(r)
		return
	}
	mod.pushRoom(r, "game:state")
}

func (mod *Module) BotActed(r *Room, botID string, out Outcome) {
	if out.Bomb != nil {
		mod.out.ToRoom(r.ID, "game:bomb_placed", *out.Bomb)
		return
	}
	mod.announceMove(r, r.Player(botID), out)
}

func (mod *Module) announceBlast(r *Room, b Blast) {
	mod.out.ToRoom(r.ID, "game:explosion", b)
	mod.announceHit(r, b.Hit)
	if b.Finished {
		mod.finished(r)
		return
	}
	mod.pushRoom(r, "game:state")
}

func (mod *Module) announceMove(r *Room, p *Player, out Outcome) {
	if out.Pushing {
		return
	}
	mod.out.ToRoom(r.ID, "game:player_moved", room.H{"playerId": p.ID, "position": p.Pos})
	if out.Picked != nil {
		mod.out.ToRoom(r.ID, "game:powerup_collected", room.H{"playerId": p.ID, "powerUp": out.Picked})
	}
	for _, id := range out.Revived {
		mod.out.ToRoom(r.ID, "game:player_revived", room.H{"playerId": id, "by": p.ID})
	}
	if out.Hit != nil {
		mod.announceHit(r, *out.Hit)
	}
	if out.Finished {
		mod.finished(r)
	}
}

func (mod *Module) list(req room.Request, _ payload) error {
	mod.out.Reply(req, "room:list", mod.lobby())
	return nil
}

func (mod *Module) maps(req room.Request, _ payload) error {
	mod.out.Reply(req, "map:list", Maps())
	return nil
}

func (mod *Module) create(req room.Request, p payload) error {
	r, err := mod.m.CreateRoom(req.UserID, p.UserName, p.RoomName, p.Settings, p.Password)
	if err != nil {
		return err
	}
	mod.out.Join(req, r.ID)
	mod.out.Reply(req, "room:joined", room.H{"room": View(r), "playerId": req.UserID})
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
	mod.out.Reply(req, "room:joined", room.H{"room": View(r), "playerId": req.UserID, "isReconnect": res.Reconnect})
	mod.out.ToRoomExcept(r.ID, req, "room:updated", room.H{"room": View(r)})
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
	mod.out.Reply(req, "room:rejoined", room.H{"room": View(r), "playerId": req.UserID})
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
	mod.out.ToRoom(r.ID, "player:left", room.H{"playerId": userID})
	if res.Finished {
		mod.finished(r)
	} else {
		mod.pushRoom(r, "room:updated")
	}
	mod.refreshLobby()
}

func (mod *Module) ready(req room.Request, p payload) error {
	r, err := mod.m.SetReady(req.UserID, p.Ready)
	if err != nil {
		return err
	}
	mod.pushRoom(r, "room:updated")
	return nil
}

func (mod *Module) addBot(req room.Request, p payload) error {
	r, bot, err := mod.m.AddBot(req.UserID, p.Difficulty)
	if err != nil {
		return err
	}
	mod.out.ToRoom(r.ID, "game:bot_added", room.H{"botId": bot.ID, "name": bot.Name})
	mod.pushRoom(r, "room:updated")
	mod.refreshLobby()
	return nil
}

func (mod *Module) removeBot(req room.Request, p payload) error {
	r, err := mod.m.RemoveBot(req.UserID, p.BotID)
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
	mod.refreshLobby()
	return nil
}

func (mod *Module) move(req room.Request, p payload) error {
	r, out, err := mod.m.Move(req.UserID, p.Direction)
	if err != nil {
		return err
	}
	mod.announceMove(r, r.Player(req.UserID), out)
	return nil
}

func (mod *Module) bomb(req room.Request, _ payload) error {
	r, b, err := mod.m.PlaceBomb(req.UserID)
	if err != nil {
		return err
	}
	mod.out.ToRoom(r.ID, "game:bomb_placed", *b)
	return nil
}

func (mod *Module) needle(req room.Request, p payload) error {
	r, b, err := mod.m.UseNeedle(req.UserID, p.Direction)
	if err != nil {
		return err
	}
	mod.out.ToRoom(r.ID, "game:needle_used", room.H{"playerId": req.UserID, "bombId": b.BombID})
	mod.announceBlast(r, b)
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
