package qigui523

type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	HandCount int    `json:"handCount"`
	Hand      []Card `json:"hand,omitempty"`
	IsReady   bool   `json:"isReady"`
	IsOnline  bool   `json:"isOnline"`
	Score     int    `json:"score"`
	Position  int    `json:"position"`
}

type RoomView struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	HostID       string       `json:"hostId"`
	HostName     string       `json:"hostName"`
	HasPassword  bool         `json:"hasPassword"`
	Rules        Rules        `json:"rules"`
	Phase        Phase        `json:"phase"`
	Players      []PlayerView `json:"players"`
	DeckCount    int          `json:"deckCount"`
	CurrentTurn  string       `json:"currentTurn,omitempty"`
	LastPlay     *Play        `json:"lastPlay,omitempty"`
	RoundStarter string       `json:"roundStarter,omitempty"`
	RoundCards   []Card       `json:"roundCards"`
	PlayHistory  []Play       `json:"playHistory"`
	FirstRound   bool         `json:"firstRound"`
	FinishOrder  []string     `json:"finishOrder"`
}

// ViewFor hides every hand but the viewer's and reduces the deck to a count.
func ViewFor(r *Room, viewerID string) RoomView {
	v := RoomView{
		ID:           r.ID,
		Name:         r.Name,
		HostID:       r.HostID,
		HostName:     r.HostName,
		HasPassword:  r.PasswordDigest != "",
		Rules:        r.Rules,
		Phase:        r.Phase,
		DeckCount:    len(r.Deck),
		CurrentTurn:  r.Turn,
		LastPlay:     r.LastPlay,
		RoundStarter: r.RoundStarter,
		RoundCards:   append([]Card{}, r.TrickCards...),
		PlayHistory:  append([]Play{}, r.History...),
		FirstRound:   r.FirstPlay,
		FinishOrder:  append([]string{}, r.FinishOrder...),
	}
	for _, p := range r.Players {
		pv := PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			HandCount: len(p.Hand),
			IsReady:   p.Ready,
			IsOnline:  p.Online,
			Score:     p.Score,
			Position:  p.Position,
		}
		if viewerID != "" && p.ID == viewerID {
			pv.Hand = append([]Card{}, p.Hand...)
		}
		v.Players = append(v.Players, pv)
	}
	return v
}

// Summary is the lobby entry for a room.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HostName    string `json:"hostName"`
	HasPassword bool   `json:"hasPassword"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Phase       Phase  `json:"phase"`
	Rules       Rules  `json:"rules"`
}

func SummaryOf(r *Room) Summary {
	return Summary{
		ID:          r.ID,
		Name:        r.Name,
		HostName:    r.HostName,
		HasPassword: r.PasswordDigest != "",
		PlayerCount: len(r.Players),
		MaxPlayers:  r.Rules.PlayerCount,
		Phase:       r.Phase,
		Rules:       r.Rules,
	}
}

type Score struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func Scores(r *Room) []Score {
	out := make([]Score, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, Score{ID: p.ID, Name: p.Name, Score: p.Score})
	}
	return out
}
