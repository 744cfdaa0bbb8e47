package qigui523

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(id, suit, rank string) Card { return NewCard(id, suit, rank) }

func TestRankOrder(t *testing.T) {
	order := []string{"4", "6", "8", "9", "10", "J", "Q", "K", "A", "3", "2", "5", "joker_small", "joker_big", "7"}
	for i := 1; i < len(order); i++ {
		low, high := c("x", "spades", order[i-1]), c("y", "diamonds", order[i])
		assert.Negative(t, Compare(low, high), "%s < %s", order[i-1], order[i])
	}
	assert.Positive(t, Compare(c("a", "spades", "9"), c("b", "hearts", "9")))
	assert.Negative(t, Compare(c("a", "diamonds", "9"), c("b", "clubs", "9")))
}

func TestDeck(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, DeckSize)
	ids := map[string]bool{}
	for _, card := range deck {
		ids[card.ID] = true
		assert.NotZero(t, card.Value)
	}
	assert.Len(t, ids, DeckSize)
}

func TestPoints(t *testing.T) {
	assert.Equal(t, 25, Points([]Card{c("a", "hearts", "5"), c("b", "hearts", "10"), c("c", "clubs", "K"), c("d", "clubs", "Q")}))
	assert.Equal(t, 100, Points(NewDeck()))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		cards []Card
		want  PatternType
		bomb  int
	}{
		{"single", []Card{c("a", "hearts", "7")}, Single, 0},
		{"pair", []Card{c("a", "hearts", "9"), c("b", "clubs", "9")}, Pair, 0},
		{"mixed pair", []Card{c("a", "hearts", "9"), c("b", "clubs", "8")}, Invalid, 0},
		{"triple is a bomb", []Card{c("a", "hearts", "9"), c("b", "clubs", "9"), c("c", "spades", "9")}, Triple, 3},
		{"four of a kind", []Card{c("a", "hearts", "9"), c("b", "clubs", "9"), c("c", "spades", "9"), c("d", "diamonds", "9")}, Bomb4, 4},
		{"three with two", []Card{c("a", "hearts", "9"), c("b", "clubs", "9"), c("c", "spades", "9"), c("d", "diamonds", "4"), c("e", "clubs", "4")}, ThreeWithTwo, 0},
		{"no straights", []Card{c("a", "hearts", "8"), c("b", "clubs", "9"), c("c", "spades", "10"), c("d", "diamonds", "J"), c("e", "clubs", "Q")}, Invalid, 0},
		{"jokers are not a pair", []Card{c("a", "joker", "joker_small"), c("b", "joker", "joker_big")}, Invalid, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Classify(tt.cards)
			assert.Equal(t, tt.want, p.Type)
			assert.Equal(t, tt.bomb, p.BombSize)
		})
	}
	assert.Equal(t, 4, Classify([]Card{c("a", "hearts", "9"), c("b", "clubs", "9"), c("c", "spades", "9"), c("d", "diamonds", "4"), c("e", "clubs", "4")}).Value)
}

func TestCheck(t *testing.T) {
	playOf := func(cards ...Card) *Play { return &Play{Cards: cards, Pattern: Classify(cards)} }
	nine := c("n", "hearts", "9")
	pairNine := playOf(c("p1", "hearts", "9"), c("p2", "clubs", "9"))
	tripleFour := playOf(c("t1", "hearts", "4"), c("t2", "clubs", "4"), c("t3", "spades", "4"))

	_, err := Check(nil, nil, "")
	assert.ErrorIs(t, err, ErrEmptyPlay)

	_, err = Check([]Card{c("a", "spades", "9")}, playOf(nine), "")
	assert.NoError(t, err, "same rank, higher suit")
	_, err = Check([]Card{c("a", "diamonds", "9")}, playOf(nine), "")
	assert.ErrorIs(t, err, ErrSuitTooSmall)
	_, err = Check([]Card{c("a", "diamonds", "7")}, playOf(nine), "")
	assert.NoError(t, err)
	_, err = Check([]Card{c("a", "diamonds", "4")}, playOf(nine), "")
	assert.ErrorIs(t, err, ErrTooSmall)

	_, err = Check([]Card{c("a", "spades", "9"), c("b", "diamonds", "9")}, pairNine, "")
	assert.ErrorIs(t, err, ErrTooSmall, "equal pairs never beat")
	_, err = Check([]Card{c("a", "spades", "K")}, pairNine, "")
	assert.ErrorIs(t, err, ErrCountMismatch)

	// any triple beats any non-bomb
	_, err = Check(tripleFour.Cards, pairNine, "")
	assert.NoError(t, err)
	_, err = Check([]Card{c("a", "spades", "7"), c("b", "hearts", "7")}, tripleFour, "")
	assert.ErrorIs(t, err, ErrBombNeeded)

	four := []Card{c("a", "spades", "6"), c("b", "hearts", "6"), c("c", "clubs", "6"), c("d", "diamonds", "6")}
	_, err = Check(four, playOf(c("x", "spades", "7"), c("y", "hearts", "7"), c("z", "clubs", "7")), "")
	assert.NoError(t, err, "four of a kind beats any triple")
	_, err = Check([]Card{c("x", "spades", "7"), c("y", "hearts", "7"), c("z", "clubs", "7")}, playOf(four...), "")
	assert.ErrorIs(t, err, ErrBombTooSmall)
	_, err = Check([]Card{c("x", "spades", "6"), c("y", "hearts", "6"), c("z", "clubs", "6")}, tripleFour, "")
	assert.NoError(t, err)
	_, err = Check(tripleFour.Cards, tripleFour, "")
	assert.ErrorIs(t, err, ErrBombTooSmall)

	_, err = Check([]Card{c("a", "spades", "9")}, nil, "low")
	assert.ErrorIs(t, err, ErrMustLeadLowest)
	_, err = Check([]Card{c("low", "diamonds", "4")}, nil, "low")
	assert.NoError(t, err)
}

func TestTake(t *testing.T) {
	hand := []Card{c("a", "spades", "9"), c("b", "hearts", "9"), c("c", "clubs", "4")}
	picked, rest, ok := take(hand, []string{"a", "c"})
	require.True(t, ok)
	assert.Len(t, picked, 2)
	assert.Equal(t, "b", rest[0].ID)

	_, rest, ok = take(hand, []string{"a", "a"})
	assert.False(t, ok)
	assert.Len(t, rest, 3)
	_, _, ok = take(hand, []string{"zz"})
	assert.False(t, ok)
	_, _, ok = take(hand, nil)
	assert.False(t, ok)
}
