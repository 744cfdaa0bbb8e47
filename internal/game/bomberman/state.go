package bomberman

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"party-games/internal/config"
	"party-games/internal/room"
	"party-games/internal/shared"
	"party-games/internal/store"
	"party-games/internal/work"
)

var (
	ErrRoomNotFound  = shared.NotFound("room not found")
	ErrNotInRoom     = shared.NotFound("you are not in this room")
	ErrNoRoom        = shared.NotFound("no room available")
	ErrBotNotFound   = shared.NotFound("bot not found")
	ErrNoTarget      = shared.NotFound("no bomb within reach")
	ErrRoomFull      = shared.Capacity("room is full")
	ErrGameStarted   = shared.InvalidState("game already started")
	ErrNotPlaying    = shared.InvalidState("game is not in progress")
	ErrBadPassword   = shared.AuthFailure("wrong password")
	ErrAlreadyInRoom = shared.InvalidState("already in another room")
	ErrNotHost       = shared.Forbidden("only the host can do that")
	ErrNotEnough     = shared.InvalidState("at least 2 players are needed")
	ErrNotReady      = shared.InvalidState("not everyone is ready")
	ErrDead          = shared.Forbidden("you are out")
	ErrBlocked       = shared.InvalidMove("cannot move there")
	ErrNoBombs       = shared.InvalidMove("no bombs left")
	ErrBombHere      = shared.InvalidMove("there is already a bomb here")
	ErrNoNeedle      = shared.InvalidMove("no needles left")
)

// Listener receives everything that happens on a timer rather than in reply
// to an intent.
type Listener interface {
	Exploded(r *Room, b Blast)
	ExplosionCleared(r *Room)
	Kicked(r *Room, k Kick)
	DyingExpired(r *Room, playerID string)
	BotActed(r *Room, botID string, out Outcome)
}

// Outcome is the side effect of one move or bomb action.
type Outcome struct {
	Moved    bool
	Pushing  bool
	Picked   *PowerUp
	Revived  []string
	Hit      *Hit
	Bomb     *Bomb
	Finished bool
}

// Hit records what a blast did to the players it swept.
type Hit struct {
	Killed   []string `json:"killed"`
	Dying    []string `json:"dying"`
	Shielded []string `json:"shielded"`
}

// Blast is one bomb going off.
type Blast struct {
	BombID    string     `json:"bombId"`
	Explosion *Explosion `json:"explosion"`
	Bricks    []Pos      `json:"bricks"`
	Spawned   []*PowerUp `json:"powerUps"`
	Chain     []string   `json:"chain"`
	Hit       Hit        `json:"hit"`
	Finished  bool       `json:"finished"`
}

// Kick is a bomb that slid after a push.
type Kick struct {
	BombID string `json:"bombId"`
	From   Pos    `json:"from"`
	To     Pos    `json:"to"`
	Blast  *Blast `json:"blast,omitempty"`
}

// Manager owns every arena room. Its methods and timer callbacks run on the
// module loop.
type Manager struct {
	rooms    *store.Registry[*Room]
	rng      *rand.Rand
	cfg      config.BombermanConfig
	sched    work.Scheduler
	post     work.Poster
	listener Listener
	log      *zap.Logger
}

func NewManager(rooms *store.Registry[*Room], rng *rand.Rand, cfg config.BombermanConfig, sched work.Scheduler, post work.Poster, log *zap.Logger) *Manager {
	return &Manager{rooms: rooms, rng: rng, cfg: cfg, sched: sched, post: post, log: log}
}

func (m *Manager) SetListener(l Listener) { m.listener = l }

func (m *Manager) Get(roomID string) (*Room, bool) { return m.rooms.Get(roomID) }

func (m *Manager) RoomOf(userID string) (*Room, bool) { return m.rooms.ForUser(userID) }

func (m *Manager) Rooms() []*Room { return m.rooms.All() }

func (m *Manager) now() time.Time { return m.sched.Now() }

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
		timers:         work.NewTimers(m.sched, m.post),
	}
	r.Players = []*Player{m.seat(r, hostID, hostName)}
	r.Players[0].Ready = true
	m.rooms.Add(r.ID, r)
	m.rooms.Bind(hostID, r.ID)
	m.log.Info("room created", zap.String("room", r.ID), zap.String("host", hostID), zap.String("map", r.Rules.MapID))
	return r, nil
}

// seat builds a player on the lowest free seat with that seat's color.
func (m *Manager) seat(r *Room, id, name string) *Player {
	s := 0
	for lo.ContainsBy(r.Players, func(p *Player) bool { return p.Seat == s }) {
		s++
	}
	p := &Player{ID: id, Name: name, Seat: s, Color: colors[s%len(colors)], Online: true}
	p.reset(r.Rules, Pos{})
	return p
}

type JoinResult struct {
	Room      *Room
	Reconnect bool
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
		p.Online = true
		return JoinResult{Room: r, Reconnect: true}, nil
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
	r.Players = append(r.Players, m.seat(r, userID, name))
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

// LeaveResult reports what a departure did to the room.
type LeaveResult struct {
	Room      *Room
	Disbanded bool
	Finished  bool
}

// LeaveRoom removes a waiting player. During play the player is killed
// outright, with no dying window, and keeps the seat. A room with no human
// left online is disbanded.
func (m *Manager) LeaveRoom(userID string) (LeaveResult, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return LeaveResult{}, ErrNotInRoom
	}
	m.rooms.Unbind(userID)
	res := m.depart(r, r.Player(userID), true)
	return res, nil
}

// Disconnect has the same effect as leaving during play. A waiting or
// finished seat is only marked offline so the player can rejoin.
func (m *Manager) Disconnect(userID string) (LeaveResult, bool) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return LeaveResult{}, false
	}
	return m.depart(r, r.Player(userID), false), true
}

func (m *Manager) depart(r *Room, p *Player, remove bool) LeaveResult {
	res := LeaveResult{Room: r}
	p.Online = false
	switch {
	case r.Phase == PhasePlaying:
		m.cancelPush(p)
		p.dying.Stop()
		p.Alive, p.Dying = false, false
		m.settleTeams(r)
		res.Finished = m.checkEnd(r)
	case remove && r.Phase == PhaseWaiting:
		r.Players = lo.Reject(r.Players, func(q *Player, _ int) bool { return q.ID == p.ID })
	}
	humans := r.humans()
	if !lo.SomeBy(humans, func(q *Player) bool { return q.Online }) {
		m.disband(r)
		res.Disbanded = true
		return res
	}
	if r.HostID == p.ID {
		next, _ := lo.Find(humans, func(q *Player) bool { return q.Online })
		r.HostID, r.HostName = next.ID, next.Name
		next.Ready = true
	}
	return res
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

// AddBot seats a computer player. Bots are always ready.
func (m *Manager) AddBot(userID string, d Difficulty) (*Room, *Player, error) {
	r, err := m.hostRoom(userID)
	if err != nil {
		return nil, nil, err
	}
	if r.Phase != PhaseWaiting {
		return nil, nil, ErrGameStarted
	}
	if len(r.Players) >= r.Rules.PlayerCount {
		return nil, nil, ErrRoomFull
	}
	if _, ok := difficulties[d]; !ok {
		d = Normal
	}
	n := lo.CountBy(r.Players, func(p *Player) bool { return p.Bot }) + 1
	p := m.seat(r, "bot-"+uuid.NewString(), fmt.Sprintf("Bot %d [%s]", n, d))
	p.Bot, p.Difficulty, p.Ready = true, d, true
	r.Players = append(r.Players, p)
	return r, p, nil
}

func (m *Manager) RemoveBot(userID, botID string) (*Room, error) {
	r, err := m.hostRoom(userID)
	if err != nil {
		return nil, err
	}
	if r.Phase != PhaseWaiting {
		return nil, ErrGameStarted
	}
	if p := r.Player(botID); p == nil || !p.Bot {
		return nil, ErrBotNotFound
	}
	r.Players = lo.Reject(r.Players, func(p *Player, _ int) bool { return p.ID == botID })
	return r, nil
}

// Start builds the map, places everyone on a spawn and starts the bot tick.
func (m *Manager) Start(userID string) (*Room, error) {
	r, err := m.hostRoom(userID)
	if err != nil {
		return nil, err
	}
	if r.Phase != PhaseWaiting {
		return nil, ErrGameStarted
	}
	if len(r.Players) < 2 {
		return nil, ErrNotEnough
	}
	if !lo.EveryBy(r.Players, func(p *Player) bool { return p.Ready || p.ID == r.HostID }) {
		return nil, ErrNotReady
	}

	var spawns []Pos
	if p, ok := PresetByID(r.Rules.MapID); ok {
		r.Board, spawns = p.Build()
		r.DropRate = p.DropRate
	} else {
		r.Board, spawns = Generate(r.Rules.MapSize, m.rng)
		r.DropRate = generatedDropRate
	}
	for i, p := range r.Players {
		p.reset(r.Rules, spawns[i%len(spawns)])
		p.Team = 0
		if r.Rules.TeamMode {
			p.Team = i%2 + 1
		}
	}
	r.Bombs, r.Explosions, r.PowerUps = nil, nil, nil
	r.Winner, r.WinnerTeam = "", 0
	r.Phase = PhasePlaying
	r.StartedAt = m.now()
	if lo.SomeBy(r.Players, func(p *Player) bool { return p.Bot }) {
		r.botTick = r.timers.Every(m.cfg.BotTick, func() { m.tickBots(r) })
	}
	m.log.Info("game started", zap.String("room", r.ID), zap.Int("players", len(r.Players)), zap.Bool("teams", r.Rules.TeamMode))
	return r, nil
}

func (m *Manager) actor(userID string) (*Room, *Player, error) {
	r, ok := m.rooms.ForUser(userID)
	if !ok {
		return nil, nil, ErrNotInRoom
	}
	return m.actorIn(r, userID)
}

func (m *Manager) actorIn(r *Room, id string) (*Room, *Player, error) {
	if r.Phase != PhasePlaying {
		return nil, nil, ErrNotPlaying
	}
	p := r.Player(id)
	if p == nil || !p.Living() {
		return nil, nil, ErrDead
	}
	return r, p, nil
}

func (m *Manager) Move(userID, dir string) (*Room, Outcome, error) {
	r, p, err := m.actor(userID)
	if err != nil {
		return nil, Outcome{}, err
	}
	d, err := ParseDirection(dir)
	if err != nil {
		return nil, Outcome{}, err
	}
	out, err := m.move(r, p, d)
	return r, out, err
}

// move steps p one tile. Walking into a bomb with the kick ability starts or
// continues a push instead; every other outcome cancels a pending push.
func (m *Manager) move(r *Room, p *Player, d Direction) (Outcome, error) {
	to := p.Pos.Step(d)
	if b := r.BombAt(to); b != nil {
		if !p.Kick {
			m.cancelPush(p)
			return Outcome{}, ErrBlocked
		}
		if p.push == nil || p.push.dir != d || p.push.bombID != b.ID {
			m.cancelPush(p)
			bombID := b.ID
			p.push = &push{dir: d, bombID: bombID}
			p.push.timer = r.timers.After(m.cfg.PushDelay, func() {
				p.push = nil
				k, ok := m.kick(r, p, bombID, d)
				if ok && m.listener != nil {
					m.listener.Kicked(r, k)
				}
			})
		}
		return Outcome{Pushing: true}, nil
	}
	m.cancelPush(p)
	if !r.Board.Walkable(to) {
		return Outcome{}, ErrBlocked
	}

	p.Pos = to
	out := Outcome{Moved: true}
	out.Picked = m.pickUp(r, p)
	out.Revived = m.revive(r, p)
	if r.burning(to) {
		h := &Hit{}
		m.hit(r, p, h)
		out.Hit = h
		m.settleTeams(r)
		out.Finished = m.checkEnd(r)
	}
	return out, nil
}

func (m *Manager) cancelPush(p *Player) {
	if p.push != nil {
		p.push.timer.Stop()
		p.push = nil
	}
}

func (m *Manager) pickUp(r *Room, p *Player) *PowerUp {
	_, i, ok := lo.FindIndexOf(r.PowerUps, func(u *PowerUp) bool { return u.Pos == p.Pos })
	if !ok {
		return nil
	}
	u := r.PowerUps[i]
	r.PowerUps = append(r.PowerUps[:i], r.PowerUps[i+1:]...)
	switch u.Kind {
	case PowerBombCount:
		if p.MaxBombs < maxBombs {
			p.MaxBombs++
			p.Bombs++
		}
	case PowerBombRange:
		p.Range = min(p.Range+1, maxRange)
	case PowerSpeed:
		p.Speed = min(p.Speed+speedStep, maxSpeed)
	case PowerShield:
		p.Shield = min(p.Shield+1, maxShield)
	case PowerKick:
		p.Kick = true
	case PowerNeedle:
		p.Needles = min(p.Needles+1, maxNeedles)
	}
	return u
}

// revive restores every dying teammate sharing p's tile.
func (m *Manager) revive(r *Room, p *Player) []string {
	if !r.Rules.TeamMode {
		return nil
	}
	var out []string
	for _, q := range r.Players {
		if q != p && q.Dying && q.Team == p.Team && q.Pos == p.Pos {
			q.dying.Stop()
			q.dying = nil
			q.Dying, q.DyingUntil = false, time.Time{}
			out = append(out, q.ID)
		}
	}
	return out
}

func (m *Manager) PlaceBomb(userID string) (*Room, *Bomb, error) {
	r, p, err := m.actor(userID)
	if err != nil {
		return nil, nil, err
	}
	b, err := m.placeBomb(r, p)
	return r, b, err
}

func (m *Manager) placeBomb(r *Room, p *Player) (*Bomb, error) {
	if p.Bombs <= 0 {
		return nil, ErrNoBombs
	}
	if r.BombAt(p.Pos) != nil {
		return nil, ErrBombHere
	}
	fuse := time.Duration(r.Rules.BombTimer) * time.Millisecond
	b := &Bomb{ID: uuid.NewString(), OwnerID: p.ID, Pos: p.Pos, Range: p.Range, PlacedAt: m.now(), ExplodeAt: m.now().Add(fuse)}
	r.Bombs = append(r.Bombs, b)
	p.Bombs--
	m.arm(r, b, fuse)
	return b, nil
}

func (m *Manager) arm(r *Room, b *Bomb, d time.Duration) {
	b.fuse.Stop()
	id := b.ID
	b.fuse = r.timers.After(d, func() { m.fire(r, id) })
}

// fire detonates a bomb from a timer. A bomb that already went off, or a
// room that moved on, makes it a no-op.
func (m *Manager) fire(r *Room, bombID string) {
	if cur, ok := m.rooms.Get(r.ID); !ok || cur != r || r.Phase != PhasePlaying {
		return
	}
	blast, ok := m.detonate(r, bombID)
	if ok && m.listener != nil {
		m.listener.Exploded(r, blast)
	}
}

// UseNeedle pops the first bomb in a straight line within reach. Walls and
// bricks block the needle.
func (m *Manager) UseNeedle(userID, dir string) (*Room, Blast, error) {
	r, p, err := m.actor(userID)
	if err != nil {
		return nil, Blast{}, err
	}
	d, err := ParseDirection(dir)
	if err != nil {
		return nil, Blast{}, err
	}
	if p.Needles <= 0 {
		return nil, Blast{}, ErrNoNeedle
	}
	at := p.Pos
	for i := 0; i < needleReach; i++ {
		at = at.Step(d)
		if c := r.Board.At(at); c == CellWall || c == CellBrick {
			break
		}
		if b := r.BombAt(at); b != nil {
			p.Needles--
			blast, _ := m.detonate(r, b.ID)
			return r, blast, nil
		}
	}
	return nil, Blast{}, ErrNoTarget
}

// detonate resolves one bomb. The bomb leaves the active set before its
// effects apply, so every bomb goes off at most once however the chain
// loops back. Caught bombs are queued after the chain delay.
func (m *Manager) detonate(r *Room, bombID string) (Blast, bool) {
	b, i := r.bomb(bombID)
	if b == nil {
		return Blast{}, false
	}
	r.Bombs = append(r.Bombs[:i], r.Bombs[i+1:]...)
	b.fuse.Stop()
	if owner := r.Player(b.OwnerID); owner != nil && owner.Alive {
		owner.Bombs = min(owner.Bombs+1, owner.MaxBombs)
	}

	now := m.now()
	cells := r.Board.Sweep(b.Pos, b.Range)
	ex := &Explosion{ID: uuid.NewString(), Cells: cells, CreatedAt: now, ExpiresAt: now.Add(m.cfg.ExplosionTTL)}
	r.Explosions = append(r.Explosions, ex)
	blast := Blast{BombID: b.ID, Explosion: ex}

	for _, c := range cells {
		if r.Board.At(c) == CellBrick {
			r.Board.Set(c, CellEmpty)
			blast.Bricks = append(blast.Bricks, c)
			if m.rng.Float64() < r.DropRate {
				u := &PowerUp{ID: uuid.NewString(), Kind: pickPower(m.rng), Pos: c}
				r.PowerUps = append(r.PowerUps, u)
				blast.Spawned = append(blast.Spawned, u)
			}
		}
		for _, p := range r.Players {
			if p.Pos == c {
				m.hit(r, p, &blast.Hit)
			}
		}
		if other := r.BombAt(c); other != nil && !lo.Contains(blast.Chain, other.ID) {
			blast.Chain = append(blast.Chain, other.ID)
			m.arm(r, other, m.cfg.ChainDelay)
		}
	}

	exID := ex.ID
	r.timers.After(m.cfg.ExplosionTTL, func() {
		r.Explosions = lo.Reject(r.Explosions, func(e *Explosion, _ int) bool { return e.ID == exID })
		if m.listener != nil {
			m.listener.ExplosionCleared(r)
		}
	})

	m.settleTeams(r)
	blast.Finished = m.checkEnd(r)
	return blast, true
}

// hit applies one blast to p. A shield charge absorbs it. In team mode a
// player with a living teammate goes down for the dying window instead of
// out.
func (m *Manager) hit(r *Room, p *Player, h *Hit) {
	if !p.Living() {
		return
	}
	if p.Shield > 0 {
		p.Shield--
		h.Shielded = append(h.Shielded, p.ID)
		return
	}
	m.cancelPush(p)
	if r.Rules.TeamMode && m.hasLivingMate(r, p) {
		p.Dying = true
		p.DyingUntil = m.now().Add(m.cfg.DyingTimeout)
		id := p.ID
		p.dying = r.timers.After(m.cfg.DyingTimeout, func() {
			p.dying = nil
			if !p.Dying {
				return
			}
			p.Dying, p.Alive = false, false
			m.settleTeams(r)
			m.checkEnd(r)
			if m.listener != nil {
				m.listener.DyingExpired(r, id)
			}
		})
		h.Dying = append(h.Dying, p.ID)
		return
	}
	p.Alive = false
	h.Killed = append(h.Killed, p.ID)
}

func (m *Manager) hasLivingMate(r *Room, p *Player) bool {
	return lo.SomeBy(r.Players, func(q *Player) bool { return q != p && q.Team == p.Team && q.Living() })
}

// settleTeams eliminates dying players nobody is left to revive.
func (m *Manager) settleTeams(r *Room) {
	if !r.Rules.TeamMode {
		return
	}
	for _, p := range r.Players {
		if p.Dying && !m.hasLivingMate(r, p) {
			p.dying.Stop()
			p.dying = nil
			p.Dying, p.Alive = false, false
		}
	}
}

// checkEnd finishes the game once at most one side is still standing and
// cancels every pending timer. Dying players still count for their team.
func (m *Manager) checkEnd(r *Room) bool {
	if r.Phase != PhasePlaying {
		return false
	}
	alive := lo.Filter(r.Players, func(p *Player, _ int) bool { return p.Alive })
	if r.Rules.TeamMode {
		teams := lo.Uniq(lo.Map(alive, func(p *Player, _ int) int { return p.Team }))
		if len(teams) > 1 {
			return false
		}
		if len(teams) == 1 {
			r.WinnerTeam = teams[0]
		}
	} else {
		if len(alive) > 1 {
			return false
		}
		if len(alive) == 1 {
			r.Winner = alive[0].ID
		}
	}
	r.Phase = PhaseFinished
	r.timers.StopAll()
	r.botTick = nil
	for _, p := range r.Players {
		p.dying, p.push = nil, nil
	}
	m.log.Info("game finished", zap.String("room", r.ID), zap.String("winner", r.Winner), zap.Int("team", r.WinnerTeam))
	return true
}

// kick slides the pushed bomb until the next tile holds an obstacle, a bomb
// or a player. A hazard tile takes the bomb and sets it off.
func (m *Manager) kick(r *Room, p *Player, bombID string, d Direction) (Kick, bool) {
	if r.Phase != PhasePlaying || !p.Living() {
		return Kick{}, false
	}
	b, _ := r.bomb(bombID)
	if b == nil || p.Pos.Step(d) != b.Pos {
		return Kick{}, false
	}
	k := Kick{BombID: b.ID, From: b.Pos}
	for {
		next := b.Pos.Step(d)
		c := r.Board.At(next)
		if c == CellWall || c == CellBrick || r.BombAt(next) != nil {
			break
		}
		if lo.SomeBy(r.Players, func(q *Player) bool { return q.Alive && q.Pos == next }) {
			break
		}
		b.Pos = next
		if c == CellHazard {
			k.To = b.Pos
			blast, _ := m.detonate(r, b.ID)
			k.Blast = &blast
			return k, true
		}
	}
	k.To = b.Pos
	return k, k.To != k.From
}

// Restart returns a finished game to the lobby. Offline humans lose their
// seats.
func (m *Manager) Restart(userID string) (*Room, error) {
	r, err := m.hostRoom(userID)
	if err != nil {
		return nil, err
	}
	if r.Phase == PhaseWaiting {
		return nil, ErrNotPlaying
	}
	r.timers.StopAll()
	r.botTick = nil
	for _, p := range r.Players {
		if !p.Online && !p.Bot {
			m.rooms.Unbind(p.ID)
		}
	}
	r.Players = lo.Filter(r.Players, func(p *Player, _ int) bool { return p.Online || p.Bot })
	for _, p := range r.Players {
		p.reset(r.Rules, Pos{})
		p.Team = 0
		p.Ready = p.Bot || p.ID == r.HostID
	}
	r.Phase = PhaseWaiting
	r.Board = nil
	r.Bombs, r.Explosions, r.PowerUps = nil, nil, nil
	r.Winner, r.WinnerTeam = "", 0
	r.StartedAt = time.Time{}
	return r, nil
}
