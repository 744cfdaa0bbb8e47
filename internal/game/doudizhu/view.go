package doudizhu

type PlayerView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	IsReady    bool   `json:"isReady"`
	IsLandlord bool   `json:"isLandlord"`
	IsOnline   bool   `json:"isOnline"`
	CardCount  int    `json:"cardCount"`
	Cards      []Card `json:"cards"`
}

type PlayView struct {
	PlayerID string `json:"playerId"`
	Cards    []Card `json:"cards"`
	Pattern  string `json:"pattern"`
}

type RoomView struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	HostID        string         `json:"hostId"`
	HostName      string         `json:"hostName"`
	HasPassword   bool           `json:"hasPassword"`
	MaxPlayers    int            `json:"maxPlayers"`
	BaseScore     int            `json:"baseScore"`
	Status        Phase          `json:"status"`
	Players       []PlayerView   `json:"players"`
	CurrentTurn   string         `json:"currentTurn,omitempty"`
	CurrentBid    int            `json:"currentBid"`
	LandlordID    string         `json:"landlordId,omitempty"`
	LandlordCards []Card         `json:"landlordCards"`
	LastPlay      *PlayView      `json:"lastPlay,omitempty"`
	WinnerID      string         `json:"winnerId,omitempty"`
	Scores        map[string]int `json:"scores,omitempty"`
}

// ViewFor renders r as seen by viewerID. Only the viewer's own hand is
// included; everyone else is reduced to a card count. The bottom cards stay
// face down until the landlord takes them. An empty viewerID yields the
// public lobby view.
func ViewFor(r *Room, viewerID string) RoomView {
	v := RoomView{
		ID:            r.ID,
		Name:          r.Name,
		HostID:        r.HostID,
		HostName:      r.HostName,
		HasPassword:   r.PasswordDigest != "",
		MaxPlayers:    PlayersCount,
		BaseScore:     r.BaseScore,
		Status:        r.Phase,
		CurrentTurn:   r.CurrentTurn(),
		CurrentBid:    r.CurrentBid,
		LandlordID:    r.LandlordID,
		LandlordCards: []Card{},
		WinnerID:      r.WinnerID,
		Scores:        r.Scores,
	}
	if r.LandlordID != "" {
		v.LandlordCards = r.Bottom
	}
	for _, p := range r.Players {
		pv := PlayerView{
			ID:         p.ID,
			Name:       p.Name,
			Position:   p.Seat,
			IsReady:    p.Ready,
			IsLandlord: p.Landlord,
			IsOnline:   p.Online,
			CardCount:  len(p.Hand),
			Cards:      []Card{},
		}
		if viewerID != "" && p.ID == viewerID {
			pv.Cards = p.Hand
		}
		v.Players = append(v.Players, pv)
	}
	if r.LastPlay != nil {
		v.LastPlay = &PlayView{PlayerID: r.LastPlay.PlayerID, Cards: r.LastPlay.Cards, Pattern: string(r.LastPlay.Pattern.Type)}
	}
	return v
}

// Snapshot is the private state handed to a reconnecting player.
type Snapshot struct {
	Room           RoomView       `json:"room"`
	PlayerID       string         `json:"playerId"`
	MyCards        []Card         `json:"myCards"`
	OpponentCounts map[string]int `json:"opponentCounts"`
	CurrentTurn    string         `json:"currentTurn,omitempty"`
	IsMyTurn       bool           `json:"isMyTurn"`
}

func SnapshotFor(r *Room, userID string) Snapshot {
	s := Snapshot{
		Room:           ViewFor(r, userID),
		PlayerID:       userID,
		MyCards:        []Card{},
		OpponentCounts: map[string]int{},
		CurrentTurn:    r.CurrentTurn(),
	}
	for _, p := range r.Players {
		if p.ID == userID {
			s.MyCards = p.Hand
			continue
		}
		s.OpponentCounts[p.ID] = len(p.Hand)
	}
	s.IsMyTurn = s.CurrentTurn == userID
	return s
}
