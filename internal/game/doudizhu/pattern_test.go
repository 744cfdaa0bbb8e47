package doudizhu

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func cardsOf(weights ...int) []Card {
	out := make([]Card, len(weights))
	for i, w := range weights {
		out[i] = Card{ID: fmt.Sprintf("c%d_%d", i, w), Suit: "spades", Weight: w}
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		weights []int
		want    PatternType
		value   int
	}{
		{"single", []int{9}, Single, 9},
		{"pair", []int{11, 11}, Pair, 11},
		{"mismatched pair", []int{15, 3}, Invalid, 0},
		{"triple", []int{5, 5, 5}, Triple, 5},
		{"triple with single", []int{5, 5, 5, 9}, TripleSingle, 5},
		{"triple with pair", []int{5, 5, 5, 9, 9}, TriplePair, 5},
		{"bomb", []int{7, 7, 7, 7}, Bomb, 7},
		{"rocket", []int{WeightSmallJoker, WeightBigJoker}, Rocket, WeightBigJoker},
		{"straight", []int{3, 4, 5, 6, 7}, Straight, 3},
		{"straight through ace", []int{10, 11, 12, 13, 14}, Straight, 10},
		{"straight into two", []int{11, 12, 13, 14, 15}, Invalid, 0},
		{"straight with gap", []int{3, 4, 5, 6, 8}, Invalid, 0},
		{"straight pairs", []int{3, 3, 4, 4, 5, 5}, StraightPairs, 3},
		{"two pairs", []int{3, 3, 4, 4}, Invalid, 0},
		{"plane", []int{6, 6, 6, 7, 7, 7}, Plane, 6},
		{"plane with singles", []int{6, 6, 6, 7, 7, 7, 3, 9}, PlaneSingle, 6},
		{"plane with pairs", []int{6, 6, 6, 7, 7, 7, 3, 3, 9, 9}, PlanePair, 6},
		{"four with two", []int{8, 8, 8, 8, 3, 4}, FourTwo, 8},
		{"four with two pairs", []int{8, 8, 8, 8, 3, 3, 4, 4}, FourTwo, 8},
		{"nonsense", []int{3, 5, 9}, Invalid, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Classify(cardsOf(tt.weights...))
			assert.Equal(t, tt.want, p.Type)
			if tt.want != Invalid {
				assert.Equal(t, tt.value, p.Value)
				assert.Equal(t, len(tt.weights), p.Length)
			}
		})
	}
	assert.Equal(t, Invalid, Classify(nil).Type)
}

func TestBeats(t *testing.T) {
	single := func(w int) Pattern { return Classify(cardsOf(w)) }
	bomb := Classify(cardsOf(4, 4, 4, 4))
	bigBomb := Classify(cardsOf(9, 9, 9, 9))
	rocket := Classify(cardsOf(WeightSmallJoker, WeightBigJoker))
	straight := Classify(cardsOf(3, 4, 5, 6, 7))
	longer := Classify(cardsOf(4, 5, 6, 7, 8, 9))

	assert.True(t, Beats(single(10), single(9)))
	assert.False(t, Beats(single(9), single(9)))
	assert.False(t, Beats(single(8), single(9)))

	assert.True(t, Beats(bomb, straight))
	assert.True(t, Beats(bomb, single(15)))
	assert.True(t, Beats(bigBomb, bomb))
	assert.False(t, Beats(bomb, bigBomb))

	assert.True(t, Beats(rocket, bigBomb))
	assert.True(t, Beats(rocket, single(17)))
	assert.False(t, Beats(bigBomb, rocket))
	assert.False(t, Beats(rocket, rocket))

	// same type, different length
	assert.False(t, Beats(longer, straight))
	assert.False(t, Beats(Classify(cardsOf(9, 9)), single(3)))
}
