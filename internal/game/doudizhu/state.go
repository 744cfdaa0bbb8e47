package doudizhu

import (
	"math/rand"
	"time"

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
	PhaseBidding  Phase = "bidding"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

const MaxBid = 3

var (
	ErrRoomNotFound   = shared.NotFound("room not found")
	ErrNotInRoom      = shared.NotFound("you are not in this room")
	ErrNoRoom         = shared.NotFound("no room available")
	ErrRoomFull       = shared.Capacity("room is full")
	ErrGameStarted    = shared.InvalidState("game already started")
	ErrBadPassword    = shared.AuthFailure("wrong password")
	ErrAlreadyInRoom  = shared.InvalidState("already in another room")
	ErrNotHost        = shared.Forbidden("only the host can start the game")
	ErrNeedPlayers    = shared.InvalidState("three players are needed")
	ErrNotReady       = shared.InvalidState("all players must be ready")
	ErrNotBidding     = shared.InvalidState("not in the bidding phase")
	ErrNotPlaying     = shared.InvalidState("game has not started")
	ErrNotYourTurn    = shared.Forbidden("not your turn")
	ErrBadBid         = shared.InvalidMove("bid must be 0 or above the current bid, at most 3")
	ErrCardsNotInHand = shared.InvalidMove("cards not in hand")
	ErrInvalidPattern = shared.InvalidMove("invalid card pattern")
	ErrTooSmall       = shared.InvalidMove("cards do not beat the last play")
	ErrMustPlay       = shared.InvalidMove("you must play")
)

// seats in the order they are handed out; the host takes the first
var seats = []string{"bottom", "left", "right"}

type Player struct {
	ID       string
	Name     string
	Seat     string
	Ready    bool
	Landlord bool
	Online   bool
	Hand     []Card
}

type Play struct {
	PlayerID string
	Cards    []Card
	Pattern  Pattern
}

type Room struct {
	ID             string
	Name           string
	PasswordDigest string
	HostID         string
	HostName       string
	BaseScore      int
	Phase          Phase
	Players        []*Player
	CreatedAt      time.Time

	Bottom     []Card
	LandlordID string
	CurrentBid int
	BidTurn    int
	passed     map[int]bool
	Turn       int
	LastPlay   *Play
	PassCount  int
	Discarded  []Card
	WinnerID   string
	Scores     map[string]int
}

func (r *Room) player(id string) (*Player, int) {
	for i, p := range r.Players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

func (r *Room) Player(id string) *Player {
	p, _ := r.player(id)
	return p
}

// CurrentTurn is the id of the player expected to act, or "".
func (r *Room) CurrentTurn() string {
	switch r.Phase {
	case PhaseBidding:
		return r.Players[r.BidTurn].ID
	case PhasePlaying:
		return r.Players[r.Turn].ID
	}
	return ""
}

func (r *Room) Multiplier() int {
	if r.CurrentBid > 0 {
		return r.CurrentBid
	}
	return 1
}

func (r *Room) open() bool {
	return r.Phase == PhaseWaiting && r.PasswordDigest == "" && len(r.Players) < PlayersCount
}

// Manager owns every Dou Dizhu room. Its methods must run on the module loop.
type Manager struct {
	rooms *store.Registry[*Room]
	rng   *rand.Rand
	cfg   config.DoudizhuConfig
	log   *zap.Logger
	now   func() time.Time
}

func NewManager(rooms *store.Registry[*Room], rng *rand.Rand, cfg config.DoudizhuConfig, log *zap.Logger) *Manager {
	return &Manager{rooms: rooms, rng: rng, cfg: cfg, log: log, now: time.Now}
}

func (m *Manager) Get(roomID string) (*Room, bool) { return m.rooms.Get(roomID) }

func (m *Manager) RoomOf(userID string) (*Room, bool) { return m.rooms.ForUser(userID) }

// Rooms returns every room in creation order.
func (m *Manager) Rooms() []*Room { return m.rooms.All() }

func (m *Manager) CreateRoom(hostID, hostName, name string, baseScore int, password string) (*Room, error) {
	if _, busy := m.rooms.RoomOf(hostID); busy {
		return nil, ErrAlreadyInRoom
	}
	code, err := m.rooms.NewCode()
	if err != nil {
		return nil, err
	}
	if baseScore <= 0 {
		baseScore = m.cfg.DefaultBaseScore
	}
	r := &Room{
		ID:             code,
		Name:           room.DisplayName(name, hostName),
		PasswordDigest: room.Digest(password),
		HostID:         hostID,
		HostName:       hostName,
		BaseScore:      baseScore,
		Phase:          PhaseWaiting,
		CreatedAt:      m.now(),
		Players: []*Player{{
			ID: hostID, Name: hostName, Seat: seats[0], Ready: true, Online: true,
		}},
	}
	m.rooms.Add(r.ID, r)
	m.rooms.Bind(hostID, r.ID)
	m.log.Info("room created", zap.String("room", r.ID), zap.String("host", hostID))
	return r, nil
}

// JoinRoom seats the user. Joining a room the user already sits in succeeds
// without changes.
func (m *Manager) JoinRoom(roomID, userID, name, password string) (*Room, error) {
	r, ok := m.rooms.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if p := r.Player(userID); p != nil {
		if !m.rooms.Claim(userID, r.ID) {
			return nil, ErrAlreadyInRoom
		}
		p.Online = true
		return r, nil
	}
	if other, busy := m.rooms.RoomOf(userID); busy && other != roomID {
		return nil, ErrAlreadyInRoom
	}
	if len(r.Players) >= PlayersCount {
		return nil, ErrRoomFull
	}
	if r.Phase != PhaseWaiting {
		return nil, ErrGameStarted
	}
	if !room.PasswordOK(r.PasswordDigest, password) {
		return nil, ErrBadPassword
	}
	used := lo.Map(r.Players, func(p *Player, _ int) string { return p.Seat })
	seat, _ := lo.Find(seats, func(s string) bool { return !lo.Contains(used, s) })
	r.Players = append(r.Players, &Player{ID: userID, Name: name, Seat: seat, Online: true})
	m.rooms.Bind(userID, r.ID)
	m.log.Info("player joined", zap.String("room", r.ID), zap.String("user", userID))
	return r, nil
}

// QuickJoin seats the user in the first open room, or creates one when the
// policy allows.
func (m *Manager) QuickJoin(userID, name string) (*Room, error) {
	if r, ok := m.rooms.ForUser(userID); ok {
		return r, nil
	}
	if r, ok := lo.Find(m.rooms.All(), (*Room).open); ok {
		return m.JoinRoom(r.ID, userID, name, "")
	}
	if !m.cfg.QuickJoinCreates {
		return nil, ErrNoRoom
	}
	return m.CreateRoom(userID, name, "", m.cfg.DefaultBaseScore, "")
}

// LeaveRoom removes the user. An empty room is deleted; a game in progress
// is reset to the lobby.
func (m *Manager) LeaveRoom(userID string) (r *Room, disbanded bool, err error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, false, ErrNotInRoom
	}
	r.Players = lo.Reject(r.Players, func(p *Player, _ int) bool { return p.ID == userID })
	m.rooms.Unbind(userID)
	if len(r.Players) == 0 {
		m.rooms.Delete(r.ID)
		m.log.Info("room disbanded", zap.String("room", r.ID))
		return r, true, nil
	}
	if r.HostID == userID {
		r.HostID, r.HostName = r.Players[0].ID, r.Players[0].Name
		r.Players[0].Ready = true
	}
	if r.Phase != PhaseWaiting {
		m.reset(r)
	}
	return r, false, nil
}

// Disconnect keeps the seat and hand of a player dropped during bidding or
// play and marks them offline; the room is disbanded once every seat is
// offline. Outside a game a drop is a leave. offline reports which of the
// two happened.
func (m *Manager) Disconnect(userID string) (r *Room, disbanded, offline bool) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, false, false
	}
	if r.Phase != PhaseBidding && r.Phase != PhasePlaying {
		r, disbanded, _ = m.LeaveRoom(userID)
		return r, disbanded, false
	}
	r.Player(userID).Online = false
	if lo.NoneBy(r.Players, func(p *Player) bool { return p.Online }) {
		m.rooms.Delete(r.ID)
		m.log.Info("room disbanded", zap.String("room", r.ID))
		return r, true, true
	}
	return r, false, true
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

// Start deals the cards and opens bidding with a random first bidder.
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
	if len(r.Players) != PlayersCount {
		return nil, ErrNeedPlayers
	}
	if !lo.EveryBy(r.Players, func(p *Player) bool { return p.Ready }) {
		return nil, ErrNotReady
	}
	hands, bottom := Deal(m.rng)
	for i, p := range r.Players {
		p.Hand = hands[i]
		p.Landlord = false
	}
	r.Bottom = bottom
	r.Phase = PhaseBidding
	r.CurrentBid = 0
	r.passed = map[int]bool{}
	r.BidTurn = m.rng.Intn(PlayersCount)
	r.LandlordID = ""
	r.LastPlay = nil
	r.PassCount = 0
	r.Discarded = nil
	r.WinnerID = ""
	r.Scores = nil
	m.log.Info("game started", zap.String("room", r.ID), zap.String("firstBidder", r.CurrentTurn()))
	return r, nil
}

type BidResult struct {
	Room       *Room
	Bid        int
	LandlordID string // set once the landlord is decided
	Reset      bool   // nobody bid; the room went back to the lobby
}

// Bid records a bid (1..3) or a pass (0) from the current bidder.
func (m *Manager) Bid(userID string, bid int) (BidResult, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return BidResult{}, ErrNotInRoom
	}
	if r.Phase != PhaseBidding {
		return BidResult{}, ErrNotBidding
	}
	if r.CurrentTurn() != userID {
		return BidResult{}, ErrNotYourTurn
	}
	if bid < 0 || bid > MaxBid || (bid > 0 && bid <= r.CurrentBid) {
		return BidResult{}, ErrBadBid
	}
	res := BidResult{Room: r, Bid: bid}
	if bid == MaxBid {
		r.CurrentBid = bid
		m.selectLandlord(r, r.BidTurn)
		res.LandlordID = r.LandlordID
		return res, nil
	}
	if bid > 0 {
		r.CurrentBid = bid
	} else {
		r.passed[r.BidTurn] = true
	}
	if len(r.passed) >= PlayersCount-1 {
		if r.CurrentBid == 0 {
			m.reset(r)
			res.Reset = true
			return res, nil
		}
		remaining := room.NextSeat(PlayersCount, r.BidTurn, func(i int) bool { return !r.passed[i] })
		m.selectLandlord(r, remaining)
		res.LandlordID = r.LandlordID
		return res, nil
	}
	r.BidTurn = room.NextSeat(PlayersCount, r.BidTurn, func(i int) bool { return !r.passed[i] })
	return res, nil
}

func (m *Manager) selectLandlord(r *Room, idx int) {
	p := r.Players[idx]
	p.Landlord = true
	p.Hand = SortCards(append(p.Hand, r.Bottom...))
	r.LandlordID = p.ID
	r.Phase = PhasePlaying
	r.Turn = idx
	r.LastPlay = nil
	r.PassCount = 0
	m.log.Info("landlord selected", zap.String("room", r.ID), zap.String("landlord", p.ID), zap.Int("bid", r.CurrentBid))
}

type PlayResult struct {
	Room     *Room
	Play     Play
	Finished bool
}

// PlayCards plays the cards with the given ids from the current player's hand.
func (m *Manager) PlayCards(userID string, cardIDs []string) (PlayResult, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return PlayResult{}, ErrNotInRoom
	}
	if r.Phase != PhasePlaying {
		return PlayResult{}, ErrNotPlaying
	}
	if r.CurrentTurn() != userID {
		return PlayResult{}, ErrNotYourTurn
	}
	p := r.Players[r.Turn]
	picked, rest, ok := take(p.Hand, cardIDs)
	if !ok {
		return PlayResult{}, ErrCardsNotInHand
	}
	pat := Classify(picked)
	if pat.Type == Invalid {
		return PlayResult{}, ErrInvalidPattern
	}
	if r.LastPlay != nil && r.LastPlay.PlayerID != userID && !Beats(pat, r.LastPlay.Pattern) {
		return PlayResult{}, ErrTooSmall
	}

	p.Hand = rest
	play := Play{PlayerID: userID, Cards: SortCards(picked), Pattern: pat}
	r.LastPlay = &play
	r.PassCount = 0
	r.Discarded = append(r.Discarded, picked...)

	if len(p.Hand) == 0 {
		m.finish(r, userID)
		return PlayResult{Room: r, Play: play, Finished: true}, nil
	}
	r.Turn = (r.Turn + 1) % PlayersCount
	return PlayResult{Room: r, Play: play}, nil
}

// Pass is only allowed when someone else made the last play. Two passes in a
// row clear the table and the last player leads.
func (m *Manager) Pass(userID string) (*Room, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, ErrNotInRoom
	}
	if r.Phase != PhasePlaying {
		return nil, ErrNotPlaying
	}
	if r.CurrentTurn() != userID {
		return nil, ErrNotYourTurn
	}
	if r.LastPlay == nil || r.LastPlay.PlayerID == userID {
		return nil, ErrMustPlay
	}
	r.PassCount++
	if r.PassCount >= PlayersCount-1 {
		r.LastPlay = nil
		r.PassCount = 0
	}
	r.Turn = (r.Turn + 1) % PlayersCount
	return r, nil
}

func (m *Manager) finish(r *Room, winnerID string) {
	r.Phase = PhaseFinished
	r.WinnerID = winnerID
	r.Scores = Settle(r.Players, r.LandlordID, winnerID, r.BaseScore, r.Multiplier())
	m.log.Info("game finished", zap.String("room", r.ID), zap.String("winner", winnerID), zap.Any("scores", r.Scores))
}

// Settle computes the payout: the landlord wins or loses base*mult*2, each
// farmer the mirrored base*mult.
func Settle(players []*Player, landlordID, winnerID string, base, mult int) map[string]int {
	unit := base * mult
	landlordWon := winnerID == landlordID
	scores := make(map[string]int, len(players))
	for _, p := range players {
		switch {
		case p.ID == landlordID && landlordWon:
			scores[p.ID] = unit * 2
		case p.ID == landlordID:
			scores[p.ID] = -unit * 2
		case landlordWon:
			scores[p.ID] = -unit
		default:
			scores[p.ID] = unit
		}
	}
	return scores
}

// Restart returns a finished room to the lobby. Host only.
func (m *Manager) Restart(userID string) (*Room, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, ErrNotInRoom
	}
	if r.HostID != userID {
		return nil, shared.Forbidden("only the host can restart")
	}
	if r.Phase != PhaseFinished {
		return nil, ErrGameStarted
	}
	m.reset(r)
	return r, nil
}

func (m *Manager) reset(r *Room) {
	r.Phase = PhaseWaiting
	r.Bottom = nil
	r.LandlordID = ""
	r.CurrentBid = 0
	r.passed = nil
	r.LastPlay = nil
	r.PassCount = 0
	r.Discarded = nil
	r.WinnerID = ""
	r.Turn, r.BidTurn = 0, 0
	for _, p := range r.Players {
		p.Hand = nil
		p.Landlord = false
		p.Ready = p.ID == r.HostID
	}
}

// Rejoin marks a seated user online again.
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
