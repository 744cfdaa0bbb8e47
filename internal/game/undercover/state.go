package undercover

import (
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jinzhu/copier"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"party-games/internal/config"
	"party-games/internal/room"
	"party-games/internal/shared"
	"party-games/internal/store"
	"party-games/internal/work"
)

type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseDescribing Phase = "describing"
	PhaseVoting     Phase = "voting"
	PhaseResult     Phase = "result"
	PhaseEnded      Phase = "ended"
)

// Playing reports whether a round is in progress.
func (p Phase) Playing() bool {
	return p == PhaseDescribing || p == PhaseVoting || p == PhaseResult
}

type Role string

const (
	RoleCivilian   Role = "civilian"
	RoleUndercover Role = "undercover"
)

type Winner string

const (
	WinnerNone       Winner = ""
	WinnerCivilian   Winner = "civilian"
	WinnerUndercover Winner = "undercover"
	WinnerDraw       Winner = "draw"
)

const (
	MinPlayers        = 3
	maxDescription    = 50
	staleRoundsToDraw = 2
)

var (
	ErrRoomNotFound   = shared.NotFound("room not found")
	ErrNotInRoom      = shared.NotFound("you are not in this room")
	ErrNoRoom         = shared.NotFound("no room available")
	ErrRoomFull       = shared.Capacity("room is full")
	ErrGameStarted    = shared.InvalidState("game already started")
	ErrBadPassword    = shared.AuthFailure("wrong password")
	ErrAlreadyInRoom  = shared.InvalidState("already in another room")
	ErrNotHost        = shared.Forbidden("only the host can do that")
	ErrNotEnough      = shared.InvalidState("at least 3 players are needed")
	ErrNotReady       = shared.InvalidState("not everyone is ready")
	ErrWrongPhase     = shared.InvalidState("not allowed in this phase")
	ErrEliminated     = shared.Forbidden("eliminated players cannot act")
	ErrAlreadyDone    = shared.InvalidState("already described this round")
	ErrEmptyText      = shared.InvalidMove("description is empty")
	ErrTextTooLong    = shared.InvalidMove("description is too long")
	ErrRevealsWord    = shared.InvalidMove("description may not contain your word")
	ErrSelfVote       = shared.Forbidden("you cannot vote for yourself")
	ErrBadTarget      = shared.InvalidMove("vote target is not an active player")
	ErrTooManyPlayers = shared.InvalidState("max players is below the current head count")
)

// Settings are host controlled while the room waits.
type Settings struct {
	MaxPlayers       int  `json:"maxPlayers"`
	DoubleUndercover bool `json:"doubleUndercover"`
	DescribeTime     int  `json:"describeTime"`
	VoteTime         int  `json:"voteTime"`
}

func DefaultSettings() Settings {
	return Settings{MaxPlayers: 8, DescribeTime: 30, VoteTime: 20}
}

// SettingsPatch carries a partial update. Zero numbers keep the current value.
type SettingsPatch struct {
	MaxPlayers       int   `json:"maxPlayers"`
	DescribeTime     int   `json:"describeTime"`
	VoteTime         int   `json:"voteTime"`
	DoubleUndercover *bool `json:"doubleUndercover" copier:"-"`
}

// Apply merges patch over s and clamps every field into range.
func (s Settings) Apply(patch SettingsPatch) Settings {
	_ = copier.CopyWithOption(&s, &patch, copier.Option{IgnoreEmpty: true})
	if patch.DoubleUndercover != nil {
		s.DoubleUndercover = *patch.DoubleUndercover
	}
	s.MaxPlayers = room.Clamp(s.MaxPlayers, MinPlayers, 8)
	s.DescribeTime = room.Clamp(s.DescribeTime, 15, 60)
	s.VoteTime = room.Clamp(s.VoteTime, 10, 30)
	return s
}

type Player struct {
	ID       string
	Name     string
	Position int
	Ready    bool
	Online   bool
	// Left is set when a player walks out mid-game. The seat is pruned on
	// the next reset.
	Left bool

	Alive       bool
	Role        Role
	Word        string
	Description string
	Described   bool
	VotedFor    string

	grace *work.Handle
}

// VoteRecord is the resolution of one voting phase.
type VoteRecord struct {
	Round          int               `json:"round"`
	Votes          map[string]string `json:"votes"`
	Tally          map[string]int    `json:"tally"`
	EliminatedID   string            `json:"eliminatedId,omitempty"`
	EliminatedRole Role              `json:"eliminatedRole,omitempty"`
	Tie            bool              `json:"isTie"`
}

type Room struct {
	ID             string
	Name           string
	PasswordDigest string
	HostID         string
	HostName       string
	Settings       Settings
	Players        []*Player
	Phase          Phase
	CreatedAt      time.Time

	Round       int
	Pair        WordPair
	Order       []string
	Describer   string
	History     []VoteRecord
	StaleRounds int
	Winner      Winner
	PhaseEndsAt time.Time

	timers     *work.Timers
	phaseTimer *work.Handle
}

func (r *Room) Player(id string) *Player {
	p, _ := lo.Find(r.Players, func(p *Player) bool { return p.ID == id })
	return p
}

func (r *Room) Alive() []*Player {
	return lo.Filter(r.Players, func(p *Player, _ int) bool { return p.Alive })
}

func (r *Room) seated() []*Player {
	return lo.Reject(r.Players, func(p *Player, _ int) bool { return p.Left })
}

func (r *Room) open() bool {
	return r.Phase == PhaseWaiting && r.PasswordDigest == "" && len(r.Players) < r.Settings.MaxPlayers
}

// Listener receives the transitions that happen without a player intent.
type Listener interface {
	VoteOpened(r *Room)
	VoteClosed(r *Room, rec VoteRecord)
	GraceExpired(userID string, res LeaveResult)
}

// Manager owns every undercover room. Its methods and timer callbacks run on
// the module loop.
type Manager struct {
	rooms    *store.Registry[*Room]
	rng      *rand.Rand
	cfg      config.UndercoverConfig
	sched    work.Scheduler
	post     work.Poster
	listener Listener
	log      *zap.Logger
}

func NewManager(rooms *store.Registry[*Room], rng *rand.Rand, cfg config.UndercoverConfig, sched work.Scheduler, post work.Poster, log *zap.Logger) *Manager {
	return &Manager{rooms: rooms, rng: rng, cfg: cfg, sched: sched, post: post, log: log}
}

func (m *Manager) SetListener(l Listener) { m.listener = l }

func (m *Manager) Get(roomID string) (*Room, bool) { return m.rooms.Get(roomID) }

func (m *Manager) RoomOf(userID string) (*Room, bool) { return m.rooms.ForUser(userID) }

func (m *Manager) Rooms() []*Room { return m.rooms.All() }

func (m *Manager) CreateRoom(hostID, hostName, name, password string, patch SettingsPatch) (*Room, error) {
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
		Settings:       DefaultSettings().Apply(patch),
		Phase:          PhaseWaiting,
		CreatedAt:      m.sched.Now(),
		Players:        []*Player{{ID: hostID, Name: hostName, Position: 1, Ready: true, Online: true, Alive: true}},
		timers:         work.NewTimers(m.sched, m.post),
	}
	m.rooms.Add(r.ID, r)
	m.rooms.Bind(hostID, r.ID)
	m.log.Info("room created", zap.String("room", r.ID), zap.String("host", hostID))
	return r, nil
}

// JoinResult tells a fresh seat apart from a returning one.
type JoinResult struct {
	Room      *Room
	Reconnect bool
}

func (m *Manager) JoinRoom(roomID, userID, name, password string) (JoinResult, error) {
	r, ok := m.rooms.Get(roomID)
	if !ok {
		return JoinResult{}, ErrRoomNotFound
	}
	if p := r.Player(userID); p != nil && !p.Left {
		if err := m.reconnect(r, p); err != nil {
			return JoinResult{}, err
		}
		return JoinResult{Room: r, Reconnect: true}, nil
	}
	if other, busy := m.rooms.RoomOf(userID); busy && other != roomID {
		return JoinResult{}, ErrAlreadyInRoom
	}
	if r.Phase != PhaseWaiting {
		return JoinResult{}, ErrGameStarted
	}
	if len(r.Players) >= r.Settings.MaxPlayers {
		return JoinResult{}, ErrRoomFull
	}
	if !room.PasswordOK(r.PasswordDigest, password) {
		return JoinResult{}, ErrBadPassword
	}
	pos := 1
	for lo.ContainsBy(r.Players, func(p *Player) bool { return p.Position == pos }) {
		pos++
	}
	r.Players = append(r.Players, &Player{ID: userID, Name: name, Position: pos, Online: true, Alive: true})
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
	r, err := m.CreateRoom(userID, name, "", "", SettingsPatch{})
	return JoinResult{Room: r}, err
}

// Rejoin reattaches a returning user to their seat and cancels any pending
// removal.
func (m *Manager) Rejoin(roomID, userID string) (*Room, error) {
	r, ok := m.rooms.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	p := r.Player(userID)
	if p == nil || p.Left {
		return nil, ErrNotInRoom
	}
	if err := m.reconnect(r, p); err != nil {
		return nil, err
	}
	return r, nil
}

// reconnect refuses a user who has since settled in another room.
func (m *Manager) reconnect(r *Room, p *Player) error {
	if !m.rooms.Claim(p.ID, r.ID) {
		return ErrAlreadyInRoom
	}
	p.grace.Stop()
	p.grace = nil
	p.Online = true
	return nil
}

// LeaveResult describes what a departure did to the room.
type LeaveResult struct {
	Room      *Room
	Player    *Player
	Disbanded bool
	// EndedGame is set when the departure cut a round short.
	EndedGame bool
}

// LeaveRoom removes a waiting player outright. Leaving mid-round ends the
// game as a draw and keeps the seat, marked Left, until the next reset.
func (m *Manager) LeaveRoom(userID string) (LeaveResult, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return LeaveResult{}, ErrNotInRoom
	}
	p := r.Player(userID)
	p.grace.Stop()
	p.grace = nil
	m.rooms.Unbind(userID)
	res := LeaveResult{Room: r, Player: p}

	if r.Phase.Playing() {
		p.Left, p.Online, p.Alive = true, false, false
		m.end(r, WinnerDraw)
		res.EndedGame = true
	} else {
		r.Players = lo.Reject(r.Players, func(q *Player, _ int) bool { return q.ID == userID })
	}

	remaining := r.seated()
	if len(remaining) == 0 {
		m.disband(r)
		res.Disbanded = true
		return res, nil
	}
	if r.HostID == userID {
		next := lo.MinBy(remaining, func(a, b *Player) bool { return a.Position < b.Position })
		r.HostID, r.HostName = next.ID, next.Name
		next.Ready = true
	}
	m.log.Info("player left", zap.String("room", r.ID), zap.String("user", userID), zap.Bool("endedGame", res.EndedGame))
	return res, nil
}

// Disconnect leaves immediately during a round. Otherwise the seat is held
// for the grace window so a page navigation can reconnect. The returned
// result is zero when the leave was deferred.
func (m *Manager) Disconnect(userID string) (LeaveResult, bool) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return LeaveResult{}, false
	}
	if r.Phase.Playing() {
		res, err := m.LeaveRoom(userID)
		return res, err == nil
	}
	p := r.Player(userID)
	p.Online = false
	p.grace.Stop()
	p.grace = r.timers.After(m.cfg.DisconnectGrace, func() {
		p.grace = nil
		if cur, ok := m.rooms.ForUser(userID); !ok || cur != r || p.Online {
			return
		}
		res, err := m.LeaveRoom(userID)
		if err == nil && m.listener != nil {
			m.listener.GraceExpired(userID, res)
		}
	})
	return LeaveResult{}, false
}

func (m *Manager) disband(r *Room) {
	r.timers.StopAll()
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

func (m *Manager) UpdateSettings(userID string, patch SettingsPatch) (*Room, error) {
	r, err := m.hostRoom(userID)
	if err != nil {
		return nil, err
	}
	if r.Phase != PhaseWaiting {
		return nil, ErrGameStarted
	}
	next := r.Settings.Apply(patch)
	if next.MaxPlayers < len(r.Players) {
		return nil, ErrTooManyPlayers
	}
	r.Settings = next
	return r, nil
}

func (m *Manager) hostRoom(userID string) (*Room, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, ErrNotInRoom
	}
	if r.HostID != userID {
		return nil, ErrNotHost
	}
	return r, nil
}

// Start deals roles and words and opens the first describe phase.
func (m *Manager) Start(userID string) (*Room, error) {
	r, err := m.hostRoom(userID)
	if err != nil {
		return nil, err
	}
	if r.Phase != PhaseWaiting {
		return nil, ErrGameStarted
	}
	if len(r.Players) < MinPlayers {
		return nil, ErrNotEnough
	}
	if !lo.EveryBy(r.Players, func(p *Player) bool { return p.Ready }) {
		return nil, ErrNotReady
	}

	sort.SliceStable(r.Players, func(i, j int) bool { return r.Players[i].Position < r.Players[j].Position })
	undercovers := 1
	if r.Settings.DoubleUndercover && len(r.Players) >= 6 {
		undercovers = 2
	}
	r.Pair = RandomPair(m.rng)
	picked := m.rng.Perm(len(r.Players))[:undercovers]
	for i, p := range r.Players {
		p.Alive = true
		p.Role, p.Word = RoleCivilian, r.Pair.Civilian
		if lo.Contains(picked, i) {
			p.Role, p.Word = RoleUndercover, r.Pair.Undercover
		}
	}
	r.Round = 1
	r.History = nil
	r.StaleRounds = 0
	r.Winner = WinnerNone
	m.log.Info("game started", zap.String("room", r.ID), zap.Int("players", len(r.Players)), zap.Int("undercovers", undercovers))
	m.beginDescribe(r)
	return r, nil
}

// beginDescribe resets the per-round fields, recomputes the speaking order
// from the surviving seats and arms the describe deadline.
func (m *Manager) beginDescribe(r *Room) {
	for _, p := range r.Players {
		p.Description, p.Described, p.VotedFor = "", false, ""
	}
	r.Order = lo.Map(r.Alive(), func(p *Player, _ int) string { return p.ID })
	r.Describer = r.Order[0]
	r.Phase = PhaseDescribing
	m.arm(r, time.Duration(r.Settings.DescribeTime)*time.Second, func() {
		m.openVote(r)
		if m.listener != nil {
			m.listener.VoteOpened(r)
		}
	})
}

func (m *Manager) arm(r *Room, d time.Duration, f func()) {
	r.phaseTimer.Stop()
	r.PhaseEndsAt = r.timers.Now().Add(d)
	r.phaseTimer = r.timers.After(d, f)
}

func (m *Manager) disarm(r *Room) {
	r.phaseTimer.Stop()
	r.phaseTimer = nil
	r.PhaseEndsAt = time.Time{}
}

// DescribeResult reports whether the submission closed the describe phase.
type DescribeResult struct {
	Room       *Room
	VoteOpened bool
}

func (m *Manager) Describe(userID, text string) (DescribeResult, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return DescribeResult{}, ErrNotInRoom
	}
	if r.Phase != PhaseDescribing {
		return DescribeResult{}, ErrWrongPhase
	}
	p := r.Player(userID)
	if !p.Alive {
		return DescribeResult{}, ErrEliminated
	}
	if p.Described {
		return DescribeResult{}, ErrAlreadyDone
	}
	text = strings.TrimSpace(text)
	if err := checkDescription(text, p.Word); err != nil {
		return DescribeResult{}, err
	}
	p.Description, p.Described = text, true

	pending := lo.Filter(r.Order, func(id string, _ int) bool { return !r.Player(id).Described })
	if len(pending) > 0 {
		r.Describer = pending[0]
		return DescribeResult{Room: r}, nil
	}
	m.openVote(r)
	return DescribeResult{Room: r, VoteOpened: true}, nil
}

// checkDescription rejects a description sharing any non-space rune with word.
func checkDescription(text, word string) error {
	if text == "" {
		return ErrEmptyText
	}
	if utf8.RuneCountInString(text) > maxDescription {
		return ErrTextTooLong
	}
	for _, ch := range word {
		if unicode.IsSpace(ch) {
			continue
		}
		if strings.ContainsRune(text, ch) {
			return ErrRevealsWord
		}
	}
	return nil
}

func (m *Manager) openVote(r *Room) {
	r.Describer = ""
	r.Phase = PhaseVoting
	m.arm(r, time.Duration(r.Settings.VoteTime)*time.Second, func() {
		rec := m.resolve(r)
		if m.listener != nil {
			m.listener.VoteClosed(r, rec)
		}
	})
}

// VoteOutcome carries the progress after a ballot, and the resolution when
// the ballot was the last one.
type VoteOutcome struct {
	Room   *Room
	Voted  int
	Total  int
	Record *VoteRecord
}

func (m *Manager) Vote(userID, targetID string) (VoteOutcome, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return VoteOutcome{}, ErrNotInRoom
	}
	if r.Phase != PhaseVoting {
		return VoteOutcome{}, ErrWrongPhase
	}
	voter := r.Player(userID)
	if !voter.Alive {
		return VoteOutcome{}, ErrEliminated
	}
	if targetID == userID {
		return VoteOutcome{}, ErrSelfVote
	}
	if t := r.Player(targetID); t == nil || !t.Alive {
		return VoteOutcome{}, ErrBadTarget
	}
	voter.VotedFor = targetID

	alive := r.Alive()
	voted := lo.CountBy(alive, func(p *Player) bool { return p.VotedFor != "" })
	out := VoteOutcome{Room: r, Voted: voted, Total: len(alive)}
	if voted == len(alive) {
		rec := m.resolve(r)
		out.Record = &rec
	}
	return out, nil
}

// resolve tallies the ballots, eliminates the unique leader if any and runs
// the end check. A tie, including an empty ballot box, eliminates nobody.
func (m *Manager) resolve(r *Room) VoteRecord {
	m.disarm(r)
	rec := VoteRecord{Round: r.Round, Votes: map[string]string{}, Tally: map[string]int{}}
	for _, p := range r.Alive() {
		if p.VotedFor != "" {
			rec.Votes[p.ID] = p.VotedFor
			rec.Tally[p.VotedFor]++
		}
	}
	top, leaders := 0, []string(nil)
	for _, id := range r.Order {
		switch n := rec.Tally[id]; {
		case n > top:
			top, leaders = n, []string{id}
		case n == top && n > 0:
			leaders = append(leaders, id)
		}
	}
	if len(leaders) == 1 {
		out := r.Player(leaders[0])
		out.Alive = false
		rec.EliminatedID, rec.EliminatedRole = out.ID, out.Role
		r.StaleRounds = 0
	} else {
		rec.Tie = true
		r.StaleRounds++
	}
	r.History = append(r.History, rec)
	m.log.Info("vote resolved", zap.String("room", r.ID), zap.Int("round", r.Round), zap.String("eliminated", rec.EliminatedID), zap.Bool("tie", rec.Tie))

	if w := m.winner(r); w != WinnerNone {
		m.end(r, w)
	} else {
		r.Phase = PhaseResult
	}
	return rec
}

func (m *Manager) winner(r *Room) Winner {
	alive := r.Alive()
	spies := lo.CountBy(alive, func(p *Player) bool { return p.Role == RoleUndercover })
	switch {
	case spies == 0:
		return WinnerCivilian
	case len(alive) <= 3:
		return WinnerUndercover
	case r.StaleRounds >= staleRoundsToDraw:
		return WinnerDraw
	}
	return WinnerNone
}

func (m *Manager) end(r *Room, w Winner) {
	m.disarm(r)
	r.Describer = ""
	r.Phase = PhaseEnded
	r.Winner = w
	m.log.Info("game ended", zap.String("room", r.ID), zap.String("winner", string(w)))
}

func (m *Manager) NextRound(userID string) (*Room, error) {
	r, err := m.hostRoom(userID)
	if err != nil {
		return nil, err
	}
	if r.Phase != PhaseResult {
		return nil, ErrWrongPhase
	}
	r.Round++
	m.beginDescribe(r)
	return r, nil
}

// Restart returns the room to the lobby. Seats vacated mid-game are dropped
// and every pending timer is cancelled.
func (m *Manager) Restart(userID string) (*Room, error) {
	r, err := m.hostRoom(userID)
	if err != nil {
		return nil, err
	}
	if r.Phase == PhaseWaiting {
		return nil, ErrWrongPhase
	}
	r.timers.StopAll()
	r.phaseTimer = nil
	r.PhaseEndsAt = time.Time{}
	r.Players = r.seated()
	r.Phase = PhaseWaiting
	for _, p := range r.Players {
		p.grace = nil
		p.Alive = true
		p.Role, p.Word = "", ""
		p.Description, p.Described, p.VotedFor = "", false, ""
		p.Ready = p.ID == r.HostID
		if !p.Online {
			m.Disconnect(p.ID)
		}
	}
	r.Round = 0
	r.Pair = WordPair{}
	r.Order = nil
	r.Describer = ""
	r.History = nil
	r.StaleRounds = 0
	r.Winner = WinnerNone
	return r, nil
}
