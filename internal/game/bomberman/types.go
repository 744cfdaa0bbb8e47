package bomberman

import (
	"math/rand"
	"time"

	"github.com/jinzhu/copier"
	"github.com/samber/lo"

	"party-games/internal/room"
	"party-games/internal/work"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

type PowerKind string

const (
	PowerBombCount PowerKind = "bomb_count"
	PowerBombRange PowerKind = "bomb_range"
	PowerSpeed     PowerKind = "speed"
	PowerShield    PowerKind = "shield"
	PowerKick      PowerKind = "kick"
	PowerNeedle    PowerKind = "needle"
)

type powerWeight struct {
	kind   PowerKind
	weight int
}

var powerWeights = []powerWeight{
	{PowerBombCount, 30},
	{PowerBombRange, 30},
	{PowerSpeed, 15},
	{PowerShield, 10},
	{PowerKick, 8},
	{PowerNeedle, 7},
}

// pickPower draws a power-up kind by weight.
func pickPower(rng *rand.Rand) PowerKind {
	n := rng.Intn(lo.SumBy(powerWeights, func(w powerWeight) int { return w.weight }))
	for _, w := range powerWeights {
		if n < w.weight {
			return w.kind
		}
		n -= w.weight
	}
	return PowerBombCount
}

const (
	maxBombs    = 8
	maxRange    = 8
	maxSpeed    = 2.0
	speedStep   = 0.2
	maxShield   = 3
	maxNeedles  = 3
	needleReach = 3
)

var colors = []string{"#ef4444", "#3b82f6", "#22c55e", "#eab308", "#a855f7", "#f97316"}

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Normal Difficulty = "normal"
	Hard   Difficulty = "hard"
)

// Rules are fixed at room creation. Zero fields fall back to DefaultRules.
type Rules struct {
	PlayerCount  int     `json:"playerCount"`
	MapID        string  `json:"mapId,omitempty"`
	MapSize      MapSize `json:"mapSize"`
	BombTimer    int     `json:"bombTimer"`
	InitialBombs int     `json:"initialBombs"`
	InitialRange int     `json:"initialRange"`
	TeamMode     bool    `json:"teamMode"`
}

func DefaultRules() Rules {
	return Rules{PlayerCount: 4, MapSize: SizeMedium, BombTimer: 3000, InitialBombs: 1, InitialRange: 2}
}

// MergeRules lays the set fields of partial over the defaults, drops an
// unknown map id and clamps the numbers. A preset caps the player count.
func MergeRules(partial Rules) Rules {
	r := DefaultRules()
	_ = copier.CopyWithOption(&r, &partial, copier.Option{IgnoreEmpty: true})
	if _, ok := sizes[r.MapSize]; !ok {
		r.MapSize = SizeMedium
	}
	hi := 6
	if p, ok := PresetByID(r.MapID); ok {
		hi = p.MaxPlayers
	} else {
		r.MapID = ""
	}
	r.PlayerCount = room.Clamp(r.PlayerCount, 2, hi)
	r.BombTimer = room.Clamp(r.BombTimer, 1000, 10000)
	r.InitialBombs = room.Clamp(r.InitialBombs, 1, 5)
	r.InitialRange = room.Clamp(r.InitialRange, 1, 6)
	return r
}

type Player struct {
	ID         string
	Name       string
	Seat       int
	Color      string
	Bot        bool
	Difficulty Difficulty
	Online     bool
	Ready      bool
	Team       int

	Alive      bool
	Dying      bool
	DyingUntil time.Time
	Pos        Pos
	Bombs      int
	MaxBombs   int
	Range      int
	Speed      float64
	Shield     int
	Kick       bool
	Needles    int

	dying   *work.Handle
	push    *push
	lastBot time.Time
}

// Living players are alive and not waiting on a revive.
func (p *Player) Living() bool { return p.Alive && !p.Dying }

type push struct {
	dir    Direction
	bombID string
	timer  *work.Handle
}

func (p *Player) reset(r Rules, at Pos) {
	p.Alive, p.Dying, p.DyingUntil = true, false, time.Time{}
	p.Pos = at
	p.Bombs, p.MaxBombs, p.Range = r.InitialBombs, r.InitialBombs, r.InitialRange
	p.Speed = 1
	p.Shield, p.Kick, p.Needles = 0, false, 0
	p.dying, p.push = nil, nil
}

type Bomb struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"playerId"`
	Pos       Pos       `json:"position"`
	Range     int       `json:"range"`
	PlacedAt  time.Time `json:"-"`
	ExplodeAt time.Time `json:"-"`

	fuse *work.Handle
}

type Explosion struct {
	ID        string    `json:"id"`
	Cells     []Pos     `json:"positions"`
	CreatedAt time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

type PowerUp struct {
	ID   string    `json:"id"`
	Kind PowerKind `json:"type"`
	Pos  Pos       `json:"position"`
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
	StartedAt      time.Time

	Board      *Board
	DropRate   float64
	Bombs      []*Bomb
	Explosions []*Explosion
	PowerUps   []*PowerUp
	Winner     string
	WinnerTeam int

	timers  *work.Timers
	botTick *work.Handle
}

func (r *Room) Player(id string) *Player {
	p, _ := lo.Find(r.Players, func(p *Player) bool { return p.ID == id })
	return p
}

func (r *Room) humans() []*Player {
	return lo.Reject(r.Players, func(p *Player, _ int) bool { return p.Bot })
}

func (r *Room) BombAt(p Pos) *Bomb {
	b, _ := lo.Find(r.Bombs, func(b *Bomb) bool { return b.Pos == p })
	return b
}

func (r *Room) bomb(id string) (*Bomb, int) {
	_, i, ok := lo.FindIndexOf(r.Bombs, func(b *Bomb) bool { return b.ID == id })
	if !ok {
		return nil, -1
	}
	return r.Bombs[i], i
}

func (r *Room) burning(p Pos) bool {
	return lo.SomeBy(r.Explosions, func(e *Explosion) bool { return lo.Contains(e.Cells, p) })
}

func (r *Room) open() bool {
	return r.Phase == PhaseWaiting && r.PasswordDigest == "" && len(r.Players) < r.Rules.PlayerCount
}
