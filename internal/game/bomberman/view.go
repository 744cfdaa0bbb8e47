package bomberman

import (
	"github.com/samber/lo"
)

type PlayerView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	IsBot      bool       `json:"isBot"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	IsHost     bool       `json:"isHost"`
	IsOnline   bool       `json:"isOnline"`
	IsReady    bool       `json:"isReady"`
	Team       int        `json:"team,omitempty"`
	IsAlive    bool       `json:"isAlive"`
	IsDying    bool       `json:"isDying"`
	DyingUntil int64      `json:"dyingUntil,omitempty"`
	Position   Pos        `json:"position"`
	Bombs      int        `json:"bombCount"`
	MaxBombs   int        `json:"maxBombs"`
	Range      int        `json:"bombRange"`
	Speed      float64    `json:"speed"`
	Shield     int        `json:"shield"`
	CanKick    bool       `json:"canKick"`
	Needles    int        `json:"needleCount"`
}

// RoomView is the whole arena. Nothing in it is secret, so every member gets
// the same copy.
type RoomView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	HostID      string       `json:"hostId"`
	HasPassword bool         `json:"hasPassword"`
	Rules       Rules        `json:"settings"`
	Phase       Phase        `json:"gameState"`
	Players     []PlayerView `json:"players"`
	Board       *Board       `json:"map,omitempty"`
	Bombs       []Bomb       `json:"bombs"`
	Explosions  []Explosion  `json:"explosions"`
	PowerUps    []PowerUp    `json:"powerUps"`
	Winner      string       `json:"winnerId,omitempty"`
	WinnerTeam  int          `json:"winnerTeam,omitempty"`
	StartedAt   int64        `json:"startedAt,omitempty"`
}

// View snapshots r. The board and entities are copied so a snapshot never
// aliases live state.
func View(r *Room) RoomView {
	v := RoomView{
		ID:          r.ID,
		Name:        r.Name,
		HostID:      r.HostID,
		HasPassword: r.PasswordDigest != "",
		Rules:       r.Rules,
		Phase:       r.Phase,
		Players:     lo.Map(r.Players, func(p *Player, _ int) PlayerView { return viewPlayer(r, p) }),
		Bombs:       lo.Map(r.Bombs, func(b *Bomb, _ int) Bomb { return Bomb{ID: b.ID, OwnerID: b.OwnerID, Pos: b.Pos, Range: b.Range} }),
		Explosions:  lo.Map(r.Explosions, func(e *Explosion, _ int) Explosion { return Explosion{ID: e.ID, Cells: e.Cells} }),
		PowerUps:    lo.Map(r.PowerUps, func(u *PowerUp, _ int) PowerUp { return *u }),
		Winner:      r.Winner,
		WinnerTeam:  r.WinnerTeam,
	}
	if r.Board != nil {
		v.Board = r.Board.clone()
	}
	if !r.StartedAt.IsZero() {
		v.StartedAt = r.StartedAt.UnixMilli()
	}
	return v
}

func viewPlayer(r *Room, p *Player) PlayerView {
	pv := PlayerView{
		ID:         p.ID,
		Name:       p.Name,
		Color:      p.Color,
		IsBot:      p.Bot,
		Difficulty: p.Difficulty,
		IsHost:     p.ID == r.HostID,
		IsOnline:   p.Online,
		IsReady:    p.Ready,
		Team:       p.Team,
		IsAlive:    p.Alive,
		IsDying:    p.Dying,
		Position:   p.Pos,
		Bombs:      p.Bombs,
		MaxBombs:   p.MaxBombs,
		Range:      p.Range,
		Speed:      p.Speed,
		Shield:     p.Shield,
		CanKick:    p.Kick,
		Needles:    p.Needles,
	}
	if p.Dying {
		pv.DyingUntil = p.DyingUntil.UnixMilli()
	}
	return pv
}

type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HostName    string `json:"hostName"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	HasPassword bool   `json:"hasPassword"`
	MapID       string `json:"mapId,omitempty"`
	TeamMode    bool   `json:"teamMode"`
	Phase       Phase  `json:"gameState"`
}

func SummaryOf(r *Room) Summary {
	return Summary{
		ID:          r.ID,
		Name:        r.Name,
		HostName:    r.HostName,
		PlayerCount: len(r.Players),
		MaxPlayers:  r.Rules.PlayerCount,
		HasPassword: r.PasswordDigest != "",
		MapID:       r.Rules.MapID,
		TeamMode:    r.Rules.TeamMode,
		Phase:       r.Phase,
	}
}

// MapInfo describes a preset for the lobby's map picker.
type MapInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

func Maps() []MapInfo {
	return lo.Map(presets, func(p Preset, _ int) MapInfo {
		b, _ := p.Build()
		return MapInfo{ID: p.ID, Name: p.Name, MaxPlayers: p.MaxPlayers, Width: b.Width, Height: b.Height}
	})
}
