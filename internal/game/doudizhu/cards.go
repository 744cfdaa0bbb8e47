package doudizhu

import (
	"fmt"
	"math/rand"
	"sort"
)

const (
	WeightTwo        = 15
	WeightSmallJoker = 16
	WeightBigJoker   = 17

	DeckSize     = 54
	HandSize     = 17
	BottomCards  = 3
	PlayersCount = 3
)

var (
	suits = []string{"spades", "hearts", "diamonds", "clubs"}
	ranks = []string{"3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2"}
)

// Card is immutable once the deck is built. ID is the only field used to
// locate a card in a hand.
type Card struct {
	ID     string `json:"id"`
	Suit   string `json:"suit"`
	Rank   string `json:"rank"`
	Weight int    `json:"value"`
}

// NewDeck returns the 54 cards in a fixed order, ids card_0..card_53.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	n := 0
	for ri, rank := range ranks {
		for _, suit := range suits {
			deck = append(deck, Card{ID: fmt.Sprintf("card_%d", n), Suit: suit, Rank: rank, Weight: ri + 3})
			n++
		}
	}
	deck = append(deck,
		Card{ID: fmt.Sprintf("card_%d", n), Suit: "joker", Rank: "small", Weight: WeightSmallJoker},
		Card{ID: fmt.Sprintf("card_%d", n+1), Suit: "joker", Rank: "big", Weight: WeightBigJoker},
	)
	return deck
}

// Deal shuffles a fresh deck and splits it into three hands and the
// landlord's bottom cards.
func Deal(rng *rand.Rand) (hands [PlayersCount][]Card, bottom []Card) {
	deck := NewDeck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	for i := 0; i < PlayersCount; i++ {
		hands[i] = SortCards(append([]Card(nil), deck[i*HandSize:(i+1)*HandSize]...))
	}
	bottom = SortCards(append([]Card(nil), deck[PlayersCount*HandSize:]...))
	return hands, bottom
}

// SortCards orders by weight descending, then suit, in place.
func SortCards(cards []Card) []Card {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Weight != cards[j].Weight {
			return cards[i].Weight > cards[j].Weight
		}
		return cards[i].Suit < cards[j].Suit
	})
	return cards
}

// take removes the cards with the given ids from hand. ok is false, and hand
// untouched, unless every id is present exactly once.
func take(hand []Card, ids []string) (picked, rest []Card, ok bool) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if want[id] {
			return nil, hand, false
		}
		want[id] = true
	}
	for _, c := range hand {
		if want[c.ID] {
			picked = append(picked, c)
		} else {
			rest = append(rest, c)
		}
	}
	if len(picked) != len(ids) || len(ids) == 0 {
		return nil, hand, false
	}
	return picked, rest, true
}
