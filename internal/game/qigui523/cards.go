package qigui523

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/samber/lo"

	"party-games/internal/shared"
)

const DeckSize = 54

// rankValues is the 7523 order: 4 is the lowest card and 7 the highest.
var rankValues = map[string]int{
	"4": 1, "6": 2, "8": 3, "9": 4, "10": 5, "J": 6, "Q": 7, "K": 8, "A": 9,
	"3": 10, "2": 11, "5": 12, "joker_small": 13, "joker_big": 14, "7": 15,
}

var suitValues = map[string]int{
	"diamonds": 1, "clubs": 2, "hearts": 3, "spades": 4, "joker": 5,
}

var pointValues = map[string]int{"5": 5, "10": 10, "K": 10}

var (
	suits = []string{"hearts", "diamonds", "clubs", "spades"}
	ranks = []string{"3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2"}
)

type Card struct {
	ID    string `json:"id"`
	Suit  string `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

func NewCard(id, suit, rank string) Card {
	return Card{ID: id, Suit: suit, Rank: rank, Value: rankValues[rank]}
}

func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range suits {
		for _, r := range ranks {
			deck = append(deck, NewCard(fmt.Sprintf("card_%d", len(deck)), s, r))
		}
	}
	deck = append(deck,
		NewCard(fmt.Sprintf("card_%d", len(deck)), "joker", "joker_small"),
		NewCard(fmt.Sprintf("card_%d", len(deck)+1), "joker", "joker_big"),
	)
	return deck
}

func Shuffle(rng *rand.Rand, deck []Card) []Card {
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// Compare orders by rank value, then suit.
func Compare(a, b Card) int {
	if a.Value != b.Value {
		return a.Value - b.Value
	}
	return suitValues[a.Suit] - suitValues[b.Suit]
}

// SortCards orders high to low in place.
func SortCards(cards []Card) []Card {
	sort.SliceStable(cards, func(i, j int) bool { return Compare(cards[i], cards[j]) > 0 })
	return cards
}

func Smallest(hand []Card) (Card, bool) {
	if len(hand) == 0 {
		return Card{}, false
	}
	return lo.MinBy(hand, func(a, b Card) bool { return Compare(a, b) < 0 }), true
}

// Points sums the scoring cards: 5 is worth 5, 10 and K are worth 10.
func Points(cards []Card) int {
	return lo.SumBy(cards, func(c Card) int { return pointValues[c.Rank] })
}

type PatternType string

const (
	Invalid      PatternType = "invalid"
	Single       PatternType = "single"
	Pair         PatternType = "pair"
	Triple       PatternType = "triple"
	Bomb4        PatternType = "bomb_4"
	ThreeWithTwo PatternType = "three_with_two"
)

type Pattern struct {
	Type  PatternType `json:"pattern"`
	Value int         `json:"mainValue"`
	// BombSize is 3 for a triple and 4 for four of a kind, 0 otherwise.
	BombSize int `json:"bombSize,omitempty"`
}

func (p Pattern) IsBomb() bool { return p.BombSize > 0 }

func Classify(cards []Card) Pattern {
	groups := lo.GroupBy(cards, func(c Card) int { return c.Value })
	sameRank := len(groups) == 1
	switch n := len(cards); {
	case n == 1:
		return Pattern{Type: Single, Value: cards[0].Value}
	case n == 2 && sameRank:
		return Pattern{Type: Pair, Value: cards[0].Value}
	case n == 3 && sameRank:
		return Pattern{Type: Triple, Value: cards[0].Value, BombSize: 3}
	case n == 4 && sameRank:
		return Pattern{Type: Bomb4, Value: cards[0].Value, BombSize: 4}
	case n == 5 && len(groups) == 2:
		for v, g := range groups {
			if len(g) == 3 {
				return Pattern{Type: ThreeWithTwo, Value: v}
			}
		}
	}
	return Pattern{Type: Invalid}
}

var (
	ErrEmptyPlay      = shared.InvalidMove("choose cards to play")
	ErrInvalidPattern = shared.InvalidMove("invalid card pattern")
	ErrMustLeadLowest = shared.InvalidMove("the first play must include your lowest card")
	ErrBombNeeded     = shared.InvalidMove("only a bomb can beat a bomb")
	ErrBombTooSmall   = shared.InvalidMove("bomb too small")
	ErrCountMismatch  = shared.InvalidMove("play the same number of cards as the last play")
	ErrTooSmall       = shared.InvalidMove("cards do not beat the last play")
	ErrSuitTooSmall   = shared.InvalidMove("same rank needs a higher suit")
	ErrCardsNotInHand = shared.InvalidMove("cards not in hand")
)

// Check validates cards against the previous play of the trick (nil when
// leading). lowest, when non-empty, is a card id the play must contain.
func Check(cards []Card, last *Play, lowest string) (Pattern, error) {
	if len(cards) == 0 {
		return Pattern{}, ErrEmptyPlay
	}
	pat := Classify(cards)
	if pat.Type == Invalid {
		return pat, ErrInvalidPattern
	}
	if lowest != "" && !lo.ContainsBy(cards, func(c Card) bool { return c.ID == lowest }) {
		return pat, ErrMustLeadLowest
	}
	if last == nil {
		return pat, nil
	}
	prev := last.Pattern
	switch {
	case pat.IsBomb() && !prev.IsBomb():
		return pat, nil
	case !pat.IsBomb() && prev.IsBomb():
		return pat, ErrBombNeeded
	case pat.IsBomb():
		if pat.BombSize != prev.BombSize {
			if pat.BombSize > prev.BombSize {
				return pat, nil
			}
			return pat, ErrBombTooSmall
		}
		if pat.Value <= prev.Value {
			return pat, ErrBombTooSmall
		}
		return pat, nil
	}
	if len(cards) != len(last.Cards) {
		return pat, ErrCountMismatch
	}
	if pat.Value < prev.Value {
		return pat, ErrTooSmall
	}
	if pat.Value == prev.Value {
		if pat.Type != Single || prev.Type != Single {
			return pat, ErrTooSmall
		}
		if suitValues[cards[0].Suit] <= suitValues[last.Cards[0].Suit] {
			return pat, ErrSuitTooSmall
		}
	}
	return pat, nil
}

// take removes the cards with the given ids from hand. ok is false, and hand
// untouched, unless every id is present exactly once.
func take(hand []Card, ids []string) (picked, rest []Card, ok bool) {
	if len(ids) == 0 || len(lo.Uniq(ids)) != len(ids) {
		return nil, hand, false
	}
	picked, rest = lo.FilterReject(hand, func(c Card, _ int) bool { return lo.Contains(ids, c.ID) })
	if len(picked) != len(ids) {
		return nil, hand, false
	}
	return picked, rest, true
}
