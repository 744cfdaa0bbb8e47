package qigui523

import (
	"math/rand"
	"sort"
	"time"

	"github.com/jinzhu/copier"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"party-games/internal/config"
	"party-games/internal/room"
	"party-games/internal/shared"
	"party-games/internal/store"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

var (
	ErrRoomNotFound  = shared.NotFound("room not found")
	ErrNotInRoom     = shared.NotFound("you are not in this room")
	ErrNoRoom        = shared.NotFound("no room available")
	ErrRoomFull      = shared.Capacity("room is full")
	ErrGameStarted   = shared.InvalidState("game already started")
	ErrBadPassword   = shared.AuthFailure("wrong password")
	ErrAlreadyInRoom = shared.InvalidState("already in another room")
	ErrNotHost       = shared.Forbidden("only the host can do that")
	ErrNotReady      = shared.InvalidState("the room must be full and everyone ready")
	ErrNotPlaying    = shared.InvalidState("game is not in progress")
	ErrNotFinished   = shared.InvalidState("game has not finished")
	ErrNotYourTurn   = shared.Forbidden("not your turn")
	ErrMustPlay      = shared.InvalidMove("you must play")
)

// Rules are chosen by the host at creation. Zero fields fall back to
// DefaultRules.
type Rules struct {
	PlayerCount int `json:"playerCount"`
	HandSize    int `json:"handSize"`
}

func DefaultRules() Rules { return Rules{PlayerCount: 4, HandSize: 5} }

// MergeRules lays the non-zero fields of partial over the defaults and clamps
// the result.
func MergeRules(partial Rules) Rules {
	r := DefaultRules()
	_ = copier.CopyWithOption(&r, &partial, copier.Option{IgnoreEmpty: true})
	r.PlayerCount = room.Clamp(r.PlayerCount, 2, 5)
	r.HandSize = room.Clamp(r.HandSize, 3, 7)
	return r
}

type Player struct {
	ID       string
	Name     string
	Hand     []Card
	Ready    bool
	Online   bool
	Score    int
	Position int
}

type Play struct {
	PlayerID string  `json:"playerId"`
	Cards    []Card  `json:"cards"`
	Pattern  Pattern `json:"pattern"`
}

type Room struct {
	ID             string
	Name           string
	PasswordDigest string
	HostID         string
	HostName       string
	Rules          Rules
	Players        []*Player
	Phase          Phase
	CreatedAt      time.Time

	Deck         []Card
	TurnOrder    []string
	Turn         string
	LastPlay     *Play // last non-pass play of the current trick
	RoundStarter string
	TrickCards   []Card
	History      []Play
	PassCount    int
	FirstPlay    bool
	FinishOrder  []string
}

func (r *Room) Player(id string) *Player {
	p, _ := lo.Find(r.Players, func(p *Player) bool { return p.ID == id })
	return p
}

func (r *Room) active() []*Player {
	return lo.Filter(r.Players, func(p *Player, _ int) bool { return len(p.Hand) > 0 })
}

func (r *Room) open() bool {
	return r.Phase == PhaseWaiting && r.PasswordDigest == "" && len(r.Players) < r.Rules.PlayerCount
}

// nextActive returns the first player after from in turn order who still
// holds cards, or "" when nobody does.
func (r *Room) nextActive(from string) string {
	idx := lo.IndexOf(r.TurnOrder, from)
	i := room.NextSeat(len(r.TurnOrder), idx, func(i int) bool {
		p := r.Player(r.TurnOrder[i])
		return p != nil && len(p.Hand) > 0
	})
	if i < 0 {
		return ""
	}
	return r.TurnOrder[i]
}

// Manager owns every 7523 room. Its methods must run on the module loop.
type Manager struct {
	rooms *store.Registry[*Room]
	rng   *rand.Rand
	cfg   config.Qigui523Config
	log   *zap.Logger
	now   func() time.Time
}

func NewManager(rooms *store.Registry[*Room], rng *rand.Rand, cfg config.Qigui523Config, log *zap.Logger) *Manager {
	return &Manager{rooms: rooms, rng: rng, cfg: cfg, log: log, now: time.Now}
}

func (m *Manager) Get(roomID string) (*Room, bool) { return m.rooms.Get(roomID) }

func (m *Manager) RoomOf(userID string) (*Room, bool) { return m.rooms.ForUser(userID) }

func (m *Manager) Rooms() []*Room { return m.rooms.All() }

func (m *Manager) CreateRoom(hostID, hostName, name string, rules Rules, password string) (*Room, error) {
	if _, busy := m.rooms.RoomOf(hostID); busy {
		return nil, ErrAlreadyInRoom
	}
	code, err := m.rooms.NewCode()
	if err != nil {
		return nil, err
	}
	r := &Room{
		ID:             code,
		Name:           room.DisplayName(name, hostName),
		PasswordDigest: room.Digest(password),
		HostID:         hostID,
		HostName:       hostName,
		Rules:          MergeRules(rules),
		Phase:          PhaseWaiting,
		CreatedAt:      m.now(),
		FirstPlay:      true,
		Players:        []*Player{{ID: hostID, Name: hostName, Ready: true, Online: true, Position: 1}},
	}
	m.rooms.Add(r.ID, r)
	m.rooms.Bind(hostID, r.ID)
	m.log.Info("room created", zap.String("room", r.ID), zap.String("host", hostID), zap.Int("players", r.Rules.PlayerCount))
	return r, nil
}

// JoinResult reports whether the join was a reconnect of an existing seat.
type JoinResult struct {
	Room       *Room
	Reconnect  bool
	WasOffline bool
}

func (m *Manager) JoinRoom(roomID, userID, name, password string) (JoinResult, error) {
	r, ok := m.rooms.Get(roomID)
	if !ok {
		return JoinResult{}, ErrRoomNotFound
	}
	if p := r.Player(userID); p != nil {
		if !m.rooms.Claim(userID, r.ID) {
			return JoinResult{}, ErrAlreadyInRoom
		}
		was := !p.Online
		p.Online = true
		return JoinResult{Room: r, Reconnect: true, WasOffline: was}, nil
	}
	if other, busy := m.rooms.RoomOf(userID); busy && other != roomID {
		return JoinResult{}, ErrAlreadyInRoom
	}
	if r.Phase != PhaseWaiting {
		return JoinResult{}, ErrGameStarted
	}
	if len(r.Players) >= r.Rules.PlayerCount {
		return JoinResult{}, ErrRoomFull
	}
	if !room.PasswordOK(r.PasswordDigest, password) {
		return JoinResult{}, ErrBadPassword
	}
	pos := 1
	for lo.ContainsBy(r.Players, func(p *Player) bool { return p.Position == pos }) {
		pos++
	}
	r.Players = append(r.Players, &Player{ID: userID, Name: name, Online: true, Position: pos})
	m.rooms.Bind(userID, r.ID)
	m.log.Info("player joined", zap.String("room", r.ID), zap.String("user", userID))
	return JoinResult{Room: r}, nil
}

func (m *Manager) QuickJoin(userID, name string) (JoinResult, error) {
	if r, ok := lo.Find(m.rooms.All(), (*Room).open); ok {
		return m.JoinRoom(r.ID, userID, name, "")
	}
	if !m.cfg.QuickJoinCreates {
		return JoinResult{}, ErrNoRoom
	}
	r, err := m.CreateRoom(userID, name, "", Rules{}, "")
	return JoinResult{Room: r}, err
}

// LeaveRoom removes a waiting player outright. During a game the seat is kept
// and marked offline so turn order and scores stay intact; once every seat is
// offline the room is disbanded.
func (m *Manager) LeaveRoom(userID string) (r *Room, disbanded bool, err error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, false, ErrNotInRoom
	}
	m.rooms.Unbind(userID)
	if r.Phase != PhaseWaiting {
		r.Player(userID).Online = false
		if m.allOffline(r) {
			m.disband(r)
			return r, true, nil
		}
		return r, false, nil
	}
	r.Players = lo.Reject(r.Players, func(p *Player, _ int) bool { return p.ID == userID })
	if len(r.Players) == 0 {
		m.disband(r)
		return r, true, nil
	}
	if r.HostID == userID {
		r.HostID, r.HostName = r.Players[0].ID, r.Players[0].Name
		r.Players[0].Ready = true
	}
	return r, false, nil
}

// Disconnect marks the user offline without giving up the seat. It reports
// whether the room was disbanded because nobody is left online mid-game.
func (m *Manager) Disconnect(userID string) (r *Room, disbanded bool) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, false
	}
	p := r.Player(userID)
	p.Online = false
	if r.Phase != PhaseWaiting && m.allOffline(r) {
		m.disband(r)
		return r, true
	}
	return r, false
}

func (m *Manager) allOffline(r *Room) bool {
	return lo.NoneBy(r.Players, func(p *Player) bool { return p.Online })
}

func (m *Manager) disband(r *Room) {
	m.rooms.Delete(r.ID)
	m.log.Info("room disbanded", zap.String("room", r.ID))
}

func (m *Manager) SetReady(userID string, ready bool) (*Room, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, ErrNotInRoom
	}
	if r.Phase != PhaseWaiting {
		return nil, ErrGameStarted
	}
	r.Player(userID).Ready = ready
	return r, nil
}

// Start deals the hands and gives the lead to whoever holds the lowest card
// at the table.
func (m *Manager) Start(userID string) (*Room, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, ErrNotInRoom
	}
	if r.HostID != userID {
		return nil, ErrNotHost
	}
	if r.Phase != PhaseWaiting {
		return nil, ErrGameStarted
	}
	if len(r.Players) != r.Rules.PlayerCount || !lo.EveryBy(r.Players, func(p *Player) bool { return p.Ready }) {
		return nil, ErrNotReady
	}
	r.Deck = Shuffle(m.rng, NewDeck())
	for _, p := range r.Players {
		p.Hand = nil
		p.Score = 0
		m.draw(r, p)
	}
	sort.SliceStable(r.Players, func(i, j int) bool { return r.Players[i].Position < r.Players[j].Position })
	r.TurnOrder = lo.Map(r.Players, func(p *Player, _ int) string { return p.ID })

	leader := r.Players[0]
	low, _ := Smallest(leader.Hand)
	for _, p := range r.Players[1:] {
		if c, ok := Smallest(p.Hand); ok && Compare(c, low) < 0 {
			leader, low = p, c
		}
	}
	r.Turn = leader.ID
	r.RoundStarter = leader.ID
	r.Phase = PhasePlaying
	r.LastPlay = nil
	r.PassCount = 0
	r.TrickCards = nil
	r.History = nil
	r.FirstPlay = true
	r.FinishOrder = nil
	m.log.Info("game started", zap.String("room", r.ID), zap.String("leader", leader.ID), zap.Int("deck", len(r.Deck)))
	return r, nil
}

// draw tops the hand up to the rule size from the end of the deck.
func (m *Manager) draw(r *Room, p *Player) {
	for len(p.Hand) < r.Rules.HandSize && len(r.Deck) > 0 {
		last := len(r.Deck) - 1
		p.Hand = append(p.Hand, r.Deck[last])
		r.Deck = r.Deck[:last]
	}
	SortCards(p.Hand)
}

// TrickResult describes a finished trick.
type TrickResult struct {
	WinnerID string
	Points   int
}

type Outcome struct {
	Room     *Room
	Play     *Play
	Trick    *TrickResult
	Finished bool
}

func (m *Manager) turnOf(userID string) (*Room, *Player, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, nil, ErrNotInRoom
	}
	if r.Phase != PhasePlaying {
		return nil, nil, ErrNotPlaying
	}
	if r.Turn != userID {
		return nil, nil, ErrNotYourTurn
	}
	return r, r.Player(userID), nil
}

func (m *Manager) PlayCards(userID string, cardIDs []string) (Outcome, error) {
	r, p, err := m.turnOf(userID)
	if err != nil {
		return Outcome{}, err
	}
	picked, rest, ok := take(p.Hand, cardIDs)
	if !ok {
		return Outcome{}, ErrCardsNotInHand
	}
	lowest := ""
	if r.FirstPlay && r.RoundStarter == userID {
		if c, ok := Smallest(p.Hand); ok {
			lowest = c.ID
		}
	}
	pat, err := Check(picked, r.LastPlay, lowest)
	if err != nil {
		return Outcome{}, err
	}

	p.Hand = rest
	play := Play{PlayerID: userID, Cards: SortCards(picked), Pattern: pat}
	r.LastPlay = &play
	r.History = append(r.History, play)
	r.TrickCards = append(r.TrickCards, picked...)
	r.PassCount = 0
	r.FirstPlay = false
	out := Outcome{Room: r, Play: &play}

	if len(p.Hand) == 0 {
		if !lo.Contains(r.FinishOrder, userID) {
			r.FinishOrder = append(r.FinishOrder, userID)
		}
		if len(r.active()) == 0 || len(r.Deck) == 0 {
			out.Trick = m.endTrick(r)
			if len(r.Deck) == 0 {
				m.settle(r)
			}
			if r.Phase != PhaseFinished {
				m.finish(r)
			}
			out.Finished = true
			return out, nil
		}
	}

	next := r.nextActive(userID)
	if next == userID || next == "" {
		// nobody else can answer
		out.Trick = m.endTrick(r)
		out.Finished = r.Phase == PhaseFinished
		return out, nil
	}
	r.Turn = next
	return out, nil
}

// Pass is refused to the trick leader. The trick ends once every other
// player still holding cards has passed on the last play.
func (m *Manager) Pass(userID string) (Outcome, error) {
	r, _, err := m.turnOf(userID)
	if err != nil {
		return Outcome{}, err
	}
	if r.LastPlay == nil {
		return Outcome{}, ErrMustPlay
	}
	r.PassCount++
	answering := lo.CountBy(r.active(), func(p *Player) bool { return p.ID != r.LastPlay.PlayerID })
	if r.PassCount >= answering {
		t := m.endTrick(r)
		return Outcome{Room: r, Trick: t, Finished: r.Phase == PhaseFinished}, nil
	}
	r.Turn = r.nextActive(userID)
	return Outcome{Room: r}, nil
}

// endTrick awards the trick's point cards, refills hands starting with the
// winner and hands the lead to the winner. The winner is the last player who
// actually played, falling back to the trick's opener.
func (m *Manager) endTrick(r *Room) *TrickResult {
	winnerID := r.RoundStarter
	if r.LastPlay != nil {
		winnerID = r.LastPlay.PlayerID
	}
	res := &TrickResult{WinnerID: winnerID, Points: Points(r.TrickCards)}
	if w := r.Player(winnerID); w != nil {
		w.Score += res.Points
	}
	if start := lo.IndexOf(r.TurnOrder, winnerID); start >= 0 {
		for i := range r.TurnOrder {
			p := r.Player(r.TurnOrder[(start+i)%len(r.TurnOrder)])
			if p != nil && len(p.Hand) > 0 {
				m.draw(r, p)
			}
		}
	}
	r.TrickCards = nil
	r.History = nil
	r.LastPlay = nil
	r.PassCount = 0
	r.RoundStarter = winnerID

	if w := r.Player(winnerID); w != nil && len(w.Hand) > 0 {
		r.Turn = winnerID
	} else {
		r.Turn = r.nextActive(winnerID)
		r.RoundStarter = r.Turn
	}
	if len(r.Deck) == 0 && len(r.active()) == 0 {
		m.finish(r)
	}
	m.log.Debug("trick won", zap.String("room", r.ID), zap.String("winner", winnerID), zap.Int("points", res.Points))
	return res
}

// settle runs once, when the deck is exhausted and a player goes out: every
// player still holding point cards loses their value.
func (m *Manager) settle(r *Room) {
	for _, p := range r.Players {
		p.Score -= Points(p.Hand)
	}
}

func (m *Manager) finish(r *Room) {
	r.Phase = PhaseFinished
	r.Turn = ""
	m.log.Info("game finished", zap.String("room", r.ID), zap.Strings("finishOrder", r.FinishOrder))
}

// Restart returns a finished room to the lobby. Host only.
func (m *Manager) Restart(userID string) (*Room, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, ErrNotInRoom
	}
	if r.HostID != userID {
		return nil, ErrNotHost
	}
	if r.Phase != PhaseFinished {
		return nil, ErrNotFinished
	}
	r.Phase = PhaseWaiting
	r.Deck = nil
	r.Turn = ""
	r.LastPlay = nil
	r.RoundStarter = ""
	r.TrickCards = nil
	r.History = nil
	r.PassCount = 0
	r.TurnOrder = nil
	r.FirstPlay = true
	r.FinishOrder = nil
	for _, p := range r.Players {
		p.Hand = nil
		p.Score = 0
		p.Ready = p.ID == r.HostID
	}
	return r, nil
}

func (m *Manager) Rejoin(roomID, userID string) (*Room, error) {
	r, ok := m.rooms.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	p := r.Player(userID)
	if p == nil {
		return nil, ErrNotInRoom
	}
	if !m.rooms.Claim(userID, r.ID) {
		return nil, ErrAlreadyInRoom
	}
	p.Online = true
	return r, nil
}
