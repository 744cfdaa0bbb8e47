package doudizhu

import (
	"encoding/json"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"party-games/internal/room"
	"party-games/internal/shared"
	"party-games/internal/work"
)

// Action is a client intent name. Dou Dizhu actions carry no prefix.
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
	ActBid           Action = "game:bid"
	ActPlay          Action = "game:play"
	ActPass          Action = "game:pass"
	ActRestart       Action = "game:restart"
)

// ErrUnknownAction answers an action missing from the route table.
var ErrUnknownAction = shared.InvalidMove("unknown action")

type payload struct {
	UserName  string   `json:"userName"`
	RoomID    string   `json:"roomId"`
	RoomName  string   `json:"roomName"`
	Password  string   `json:"password"`
	BaseScore int      `json:"baseScore"`
	IsReady   bool     `json:"isReady"`
	Bid       int      `json:"bid"`
	CardIDs   []string `json:"cardIds"`
	Cards     []struct {
		ID string `json:"id"`
	} `json:"cards"`
}

func (p payload) cardIDs() []string {
	if len(p.CardIDs) > 0 {
		return p.CardIDs
	}
	return lo.Map(p.Cards, func(c struct {
		ID string `json:"id"`
	}, _ int) string {
		return c.ID
	})
}

type handlerFunc func(req room.Request, p payload) error

// Module is the Dou Dizhu slice of the dispatch layer. Its actions are not
// prefixed.
type Module struct {
	m      *Manager
	out    room.Emitter
	exec   work.Executor
	log    *zap.Logger
	routes map[Action]handlerFunc
}

// NewModule wires the manager to the broadcaster and builds the route table.
func NewModule(m *Manager, b room.Broadcaster, exec work.Executor, log *zap.Logger) *Module {
	mod := &Module{m: m, out: room.NewEmitter(b, "doudizhu", ""), exec: exec, log: log}
	mod.routes = map[Action]handlerFunc{
		ActRoomList:      mod.list,
		ActRoomCreate:    mod.create,
		ActRoomJoin:      mod.join,
		ActRoomQuickJoin: mod.quickJoin,
		ActRoomLeave:     mod.leave,
		ActRoomRejoin:    mod.rejoin,
		ActReady:         mod.ready,
		ActStart:         mod.start,
		ActBid:           mod.bid,
		ActPlay:          mod.play,
		ActPass:          mod.pass,
		ActRestart:       mod.restart,
	}
	return mod
}

// Name is the group namespace and the key of the HTTP room list.
func (mod *Module) Name() string { return "doudizhu" }

// Prefix returns the namespace the hub routes on.
func (mod *Module) Prefix() string { return "" }

// Handle queues one intent. Failures go back to the sender only.
func (mod *Module) Handle(req room.Request, action string, data json.RawMessage) {
	mod.exec.Post(func() {
		h, ok := mod.routes[Action(action)]
		if !ok {
			mod.out.Fail(req, "room:error", ErrUnknownAction)
			return
		}
		p, err := room.Decode[payload](data)
		if err == nil {
			err = h(req, p)
		}
		if err != nil {
			mod.log.Debug("intent rejected", zap.String("action", action), zap.String("user", req.UserID), zap.Error(err))
			mod.out.Fail(req, "room:error", err)
		}
	})
}

// Disconnect holds the seat of a player dropped mid-game so they can rejoin.
// Outside a game the drop counts as leaving.
func (mod *Module) Disconnect(userID string) {
	mod.exec.Post(func() {
		r, ok := mod.m.RoomOf(userID)
		if !ok {
			return
		}
		if r.Phase != PhaseBidding && r.Phase != PhasePlaying {
			mod.afterLeave(userID)
			return
		}
		r, disbanded, _ := mod.m.Disconnect(userID)
		if disbanded {
			mod.out.Close(r.ID)
			mod.out.ToAll("room:deleted", r.ID)
			mod.refreshLobby()
			return
		}
		mod.out.ToRoom(r.ID, "room:player_offline", room.H{"playerId": userID, "playerName": r.Player(userID).Name})
		mod.pushRoom(r, "room:updated")
	})
}

// Lobby lists the rooms still waiting for players.
func (mod *Module) Lobby() []RoomView {
	var out []RoomView
	mod.exec.Do(func() { out = mod.lobby() })
	return out
}

// Rooms counts live rooms.
func (mod *Module) Rooms() int {
	n := 0
	mod.exec.Do(func() { n = len(mod.m.Rooms()) })
	return n
}

func (mod *Module) lobby() []RoomView {
	out := []RoomView{}
	for _, r := range mod.m.Rooms() {
		if r.Phase == PhaseWaiting {
			out = append(out, ViewFor(r, ""))
		}
	}
	return out
}

func (mod *Module) refreshLobby() { mod.out.ToAll("room:list", mod.lobby()) }

// pushRoom sends every seated player their own redacted view.
func (mod *Module) pushRoom(r *Room, action string) {
	for _, p := range r.Players {
		mod.out.ToUser(p.ID, action, room.H{"room": ViewFor(r, p.ID)})
	}
}

func (mod *Module) ack(req room.Request, action Action, r *Room) {
	mod.out.Reply(req, "ack", room.H{"action": action, "success": true, "room": ViewFor(r, req.UserID)})
}

func (mod *Module) list(req room.Request, _ payload) error {
	mod.out.Reply(req, "room:list", mod.lobby())
	return nil
}

func (mod *Module) create(req room.Request, p payload) error {
	r, err := mod.m.CreateRoom(req.UserID, p.UserName, p.RoomName, p.BaseScore, p.Password)
	if err != nil {
		return err
	}
	mod.out.Join(req, r.ID)
	mod.out.Reply(req, "room:joined", room.H{"success": true, "room": ViewFor(r, req.UserID), "playerId": req.UserID})
	mod.refreshLobby()
	return nil
}

func (mod *Module) join(req room.Request, p payload) error {
	r, err := mod.m.JoinRoom(p.RoomID, req.UserID, p.UserName, p.Password)
	if err != nil {
		return err
	}
	mod.joined(req, r)
	return nil
}

func (mod *Module) quickJoin(req room.Request, p payload) error {
	r, err := mod.m.QuickJoin(req.UserID, p.UserName)
	if err != nil {
		return err
	}
	mod.joined(req, r)
	return nil
}

func (mod *Module) joined(req room.Request, r *Room) {
	mod.out.Join(req, r.ID)
	mod.out.Reply(req, "room:joined", room.H{"success": true, "room": ViewFor(r, req.UserID), "playerId": req.UserID})
	mod.pushRoom(r, "room:updated")
	mod.refreshLobby()
}

func (mod *Module) leave(req room.Request, _ payload) error {
	if _, ok := mod.m.RoomOf(req.UserID); !ok {
		return ErrNotInRoom
	}
	mod.afterLeave(req.UserID)
	mod.out.Reply(req, "room:left", room.H{"success": true})
	return nil
}

func (mod *Module) afterLeave(userID string) {
	wasPlaying := false
	if r, ok := mod.m.RoomOf(userID); ok {
		wasPlaying = r.Phase != PhaseWaiting
	}
	r, disbanded, err := mod.m.LeaveRoom(userID)
	if err != nil {
		return
	}
	mod.out.Leave(userID, r.ID)
	if disbanded {
		mod.out.Close(r.ID)
		mod.out.ToAll("room:deleted", r.ID)
	} else {
		mod.out.ToRoom(r.ID, "player:left", room.H{"playerId": userID, "room": ViewFor(r, "")})
		if wasPlaying {
			mod.out.ToRoom(r.ID, "game:reset", nil)
		}
		mod.pushRoom(r, "room:updated")
	}
	mod.refreshLobby()
}

func (mod *Module) rejoin(req room.Request, p payload) error {
	r, err := mod.m.Rejoin(p.RoomID, req.UserID)
	if err != nil {
		return err
	}
	mod.out.Join(req, r.ID)
	mod.out.Reply(req, "room:rejoined", SnapshotFor(r, req.UserID))
	return nil
}

func (mod *Module) ready(req room.Request, p payload) error {
	r, err := mod.m.SetReady(req.UserID, p.IsReady)
	if err != nil {
		return err
	}
	mod.out.ToRoom(r.ID, "player:ready", room.H{"playerId": req.UserID, "isReady": p.IsReady})
	mod.pushRoom(r, "room:updated")
	return nil
}

func (mod *Module) start(req room.Request, _ payload) error {
	r, err := mod.m.Start(req.UserID)
	if err != nil {
		return err
	}
	mod.out.ToRoom(r.ID, "game:started", room.H{"room": ViewFor(r, "")})
	for _, pl := range r.Players {
		mod.out.ToUser(pl.ID, "game:cards_dealt", room.H{"cards": pl.Hand})
	}
	mod.out.ToRoom(r.ID, "game:bidding_turn", room.H{"playerId": r.CurrentTurn(), "currentBid": r.CurrentBid})
	mod.pushRoom(r, "room:updated")
	mod.refreshLobby()
	mod.ack(req, ActStart, r)
	return nil
}

func (mod *Module) bid(req room.Request, p payload) error {
	res, err := mod.m.Bid(req.UserID, p.Bid)
	if err != nil {
		return err
	}
	r := res.Room
	mod.out.ToRoom(r.ID, "game:bid_made", room.H{"playerId": req.UserID, "bid": res.Bid})
	switch {
	case res.LandlordID != "":
		mod.out.ToRoom(r.ID, "game:landlord_selected", room.H{
			"landlordId":    res.LandlordID,
			"landlordCards": r.Bottom,
			"currentBid":    r.CurrentBid,
		})
		mod.out.ToUser(res.LandlordID, "game:cards_dealt", room.H{"cards": r.Player(res.LandlordID).Hand})
		mod.out.ToRoom(r.ID, "game:turn_changed", room.H{"currentTurn": r.CurrentTurn()})
	case res.Reset:
		mod.out.ToRoom(r.ID, "game:reset", nil)
		mod.refreshLobby()
	default:
		mod.out.ToRoom(r.ID, "game:bidding_turn", room.H{"playerId": r.CurrentTurn(), "currentBid": r.CurrentBid})
	}
	mod.pushRoom(r, "room:updated")
	mod.ack(req, ActBid, r)
	return nil
}

func (mod *Module) play(req room.Request, p payload) error {
	res, err := mod.m.PlayCards(req.UserID, p.cardIDs())
	if err != nil {
		return err
	}
	r := res.Room
	mod.out.ToRoom(r.ID, "game:cards_played", room.H{
		"playerId": req.UserID,
		"cards":    res.Play.Cards,
		"pattern":  res.Play.Pattern.Type,
	})
	mod.out.ToRoom(r.ID, "player:card_count", room.H{"playerId": req.UserID, "count": len(r.Player(req.UserID).Hand)})
	if res.Finished {
		mod.out.ToRoom(r.ID, "game:ended", room.H{
			"winnerId":      r.WinnerID,
			"isLandlordWin": r.WinnerID == r.LandlordID,
			"scores":        r.Scores,
		})
	} else {
		mod.out.ToRoom(r.ID, "game:turn_changed", room.H{"currentTurn": r.CurrentTurn()})
	}
	mod.pushRoom(r, "room:updated")
	mod.ack(req, ActPlay, r)
	return nil
}

func (mod *Module) pass(req room.Request, _ payload) error {
	r, err := mod.m.Pass(req.UserID)
	if err != nil {
		return err
	}
	mod.out.ToRoom(r.ID, "game:player_passed", room.H{"playerId": req.UserID})
	mod.out.ToRoom(r.ID, "game:turn_changed", room.H{"currentTurn": r.CurrentTurn(), "newRound": r.LastPlay == nil})
	mod.pushRoom(r, "room:updated")
	mod.ack(req, ActPass, r)
	return nil
}

func (mod *Module) restart(req room.Request, _ payload) error {
	r, err := mod.m.Restart(req.UserID)
	if err != nil {
		return err
	}
	mod.out.ToRoom(r.ID, "game:reset", nil)
	mod.pushRoom(r, "room:updated")
	mod.refreshLobby()
	return nil
}
