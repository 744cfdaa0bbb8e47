package undercover

import (
	"github.com/samber/lo"
)

type PlayerView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	IsReady     bool   `json:"isReady"`
	IsOnline    bool   `json:"isOnline"`
	IsAlive     bool   `json:"isAlive"`
	IsHost      bool   `json:"isHost"`
	HasSpoken   bool   `json:"hasDescribed"`
	HasVoted    bool   `json:"hasVoted"`
	Description string `json:"description,omitempty"`
	Role        Role   `json:"role,omitempty"`
	Word        string `json:"word,omitempty"`
}

type RoomView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	HostID      string       `json:"hostId"`
	HasPassword bool         `json:"hasPassword"`
	Settings    Settings     `json:"settings"`
	Phase       Phase        `json:"phase"`
	Round       int          `json:"round"`
	Players     []PlayerView `json:"players"`
	Describer   string       `json:"currentDescriber,omitempty"`
	EndTime     int64        `json:"endTime,omitempty"`
	History     []VoteRecord `json:"voteHistory"`
	Winner      Winner       `json:"winner,omitempty"`
}

// Private is what only the seat owner may see.
type Private struct {
	Word string `json:"word"`
	Role Role   `json:"role"`
}

// ViewFor redacts r for viewer. Roles surface once the game is over or their
// owner is out, words only once the game is over. Descriptions surface from
// the vote on.
func ViewFor(r *Room, viewer string) RoomView {
	ended := r.Phase == PhaseEnded
	showText := r.Phase == PhaseVoting || r.Phase == PhaseResult || ended
	v := RoomView{
		ID:          r.ID,
		Name:        r.Name,
		HostID:      r.HostID,
		HasPassword: r.PasswordDigest != "",
		Settings:    r.Settings,
		Phase:       r.Phase,
		Round:       r.Round,
		Describer:   r.Describer,
		History:     r.History,
		Winner:      r.Winner,
	}
	if v.History == nil {
		v.History = []VoteRecord{}
	}
	if !r.PhaseEndsAt.IsZero() {
		v.EndTime = r.PhaseEndsAt.UnixMilli()
	}
	v.Players = lo.Map(r.Players, func(p *Player, _ int) PlayerView {
		pv := PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Position:  p.Position,
			IsReady:   p.Ready,
			IsOnline:  p.Online,
			IsAlive:   p.Alive,
			IsHost:    p.ID == r.HostID,
			HasSpoken: p.Described,
			HasVoted:  p.VotedFor != "",
		}
		if showText {
			pv.Description = p.Description
		}
		if p.Role != "" && (ended || !p.Alive) {
			pv.Role = p.Role
		}
		if ended {
			pv.Word = p.Word
		}
		return pv
	})
	return v
}

// PrivateFor returns the viewer's own word and role, or nil outside a game.
func PrivateFor(r *Room, viewer string) *Private {
	p := r.Player(viewer)
	if p == nil || p.Role == "" {
		return nil
	}
	return &Private{Word: p.Word, Role: p.Role}
}

// Descriptions lists this round's descriptions in speaking order.
func Descriptions(r *Room) []map[string]string {
	out := []map[string]string{}
	for _, id := range r.Order {
		if p := r.Player(id); p != nil && p.Described {
			out = append(out, map[string]string{"playerId": p.ID, "playerName": p.Name, "description": p.Description})
		}
	}
	return out
}

type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HostName    string `json:"hostName"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	HasPassword bool   `json:"hasPassword"`
	Phase       Phase  `json:"phase"`
}

func SummaryOf(r *Room) Summary {
	return Summary{
		ID:          r.ID,
		Name:        r.Name,
		HostName:    r.HostName,
		PlayerCount: len(r.Players),
		MaxPlayers:  r.Settings.MaxPlayers,
		HasPassword: r.PasswordDigest != "",
		Phase:       r.Phase,
	}
}

// Reveal lists every player's role and word once the game is over.
func Reveal(r *Room) []PlayerView {
	return lo.Map(r.Players, func(p *Player, _ int) PlayerView {
		return PlayerView{ID: p.ID, Name: p.Name, Position: p.Position, IsAlive: p.Alive, Role: p.Role, Word: p.Word}
	})
}
