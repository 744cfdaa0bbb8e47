package doudizhu

import "sort"

type PatternType string

const (
	Invalid       PatternType = "invalid"
	Single        PatternType = "single"
	Pair          PatternType = "pair"
	Triple        PatternType = "triple"
	TripleSingle  PatternType = "triple_single"
	TriplePair    PatternType = "triple_pair"
	Straight      PatternType = "straight"
	StraightPairs PatternType = "straight_pairs"
	Plane         PatternType = "plane"
	PlaneSingle   PatternType = "plane_single"
	PlanePair     PatternType = "plane_pair"
	FourTwo       PatternType = "four_two"
	Bomb          PatternType = "bomb"
	Rocket        PatternType = "rocket"
)

// Pattern is the canonical shape of a set of cards. Value is the comparison
// key (the weight of the defining group); Length is the card count.
type Pattern struct {
	Type   PatternType `json:"pattern"`
	Value  int         `json:"value"`
	Length int         `json:"length"`
}

func invalid(n int) Pattern { return Pattern{Type: Invalid, Length: n} }

// Classify maps cards to their pattern, or Invalid.
func Classify(cards []Card) Pattern {
	n := len(cards)
	if n == 0 {
		return invalid(0)
	}
	counts := map[int]int{}
	for _, c := range cards {
		counts[c.Weight]++
	}
	// weights grouped by how many copies are present
	byCount := map[int][]int{}
	for w, c := range counts {
		byCount[c] = append(byCount[c], w)
	}
	for _, ws := range byCount {
		sort.Ints(ws)
	}

	switch {
	case n == 1:
		return Pattern{Type: Single, Value: cards[0].Weight, Length: 1}
	case n == 2:
		if counts[WeightSmallJoker] == 1 && counts[WeightBigJoker] == 1 {
			return Pattern{Type: Rocket, Value: WeightBigJoker, Length: 2}
		}
		if len(byCount[2]) == 1 {
			return Pattern{Type: Pair, Value: byCount[2][0], Length: 2}
		}
	case n == 3:
		if len(byCount[3]) == 1 {
			return Pattern{Type: Triple, Value: byCount[3][0], Length: 3}
		}
	case n == 4:
		if len(byCount[4]) == 1 {
			return Pattern{Type: Bomb, Value: byCount[4][0], Length: 4}
		}
		if len(byCount[3]) == 1 {
			return Pattern{Type: TripleSingle, Value: byCount[3][0], Length: 4}
		}
	case n == 5:
		if len(byCount[3]) == 1 && len(byCount[2]) == 1 {
			return Pattern{Type: TriplePair, Value: byCount[3][0], Length: 5}
		}
	}

	if n >= 5 && len(byCount[1]) == n && consecutive(byCount[1]) {
		return Pattern{Type: Straight, Value: byCount[1][0], Length: n}
	}
	if n >= 6 && n%2 == 0 && len(byCount[2]) == n/2 && consecutive(byCount[2]) {
		return Pattern{Type: StraightPairs, Value: byCount[2][0], Length: n}
	}
	if n >= 6 && n%3 == 0 && len(byCount[3]) == n/3 && consecutive(byCount[3]) {
		return Pattern{Type: Plane, Value: byCount[3][0], Length: n}
	}
	if n == 6 && len(byCount[4]) == 1 {
		return Pattern{Type: FourTwo, Value: byCount[4][0], Length: 6}
	}
	if n == 8 && len(byCount[4]) == 1 && len(byCount[2]) == 2 {
		return Pattern{Type: FourTwo, Value: byCount[4][0], Length: 8}
	}
	if n >= 8 && n%4 == 0 {
		if v, ok := planeWithWings(counts, n/4, func(rest map[int]int) bool { return true }); ok {
			return Pattern{Type: PlaneSingle, Value: v, Length: n}
		}
	}
	if n >= 10 && n%5 == 0 {
		pairsOnly := func(rest map[int]int) bool {
			for _, c := range rest {
				if c%2 != 0 {
					return false
				}
			}
			return true
		}
		if v, ok := planeWithWings(counts, n/5, pairsOnly); ok {
			return Pattern{Type: PlanePair, Value: v, Length: n}
		}
	}
	return invalid(n)
}

// planeWithWings looks for k consecutive triples; the remaining cards are the
// wings and must satisfy wingsOK. It returns the lowest triple weight.
func planeWithWings(counts map[int]int, k int, wingsOK func(rest map[int]int) bool) (int, bool) {
	var tripleable []int
	for w, c := range counts {
		if c >= 3 && w < WeightTwo {
			tripleable = append(tripleable, w)
		}
	}
	sort.Ints(tripleable)
	// prefer the highest run so 333444555+666 reads as 444555666 wings 3
	for start := len(tripleable) - k; start >= 0; start-- {
		run := tripleable[start : start+k]
		if !consecutive(run) {
			continue
		}
		rest := make(map[int]int, len(counts))
		for w, c := range counts {
			rest[w] = c
		}
		for _, w := range run {
			rest[w] -= 3
			if rest[w] == 0 {
				delete(rest, w)
			}
		}
		if wingsOK(rest) {
			return run[0], true
		}
	}
	return 0, false
}

// consecutive reports whether sorted weights form an unbroken run that never
// reaches 2 or the jokers.
func consecutive(weights []int) bool {
	if len(weights) == 0 {
		return false
	}
	for i, w := range weights {
		if w >= WeightTwo {
			return false
		}
		if i > 0 && w != weights[i-1]+1 {
			return false
		}
	}
	return true
}

// Beats reports whether cand may be played over prev.
func Beats(cand, prev Pattern) bool {
	if cand.Type == Invalid || prev.Type == Invalid {
		return false
	}
	if cand.Type == Rocket {
		return prev.Type != Rocket
	}
	if prev.Type == Rocket {
		return false
	}
	if cand.Type == Bomb && prev.Type != Bomb {
		return true
	}
	if cand.Type != prev.Type || cand.Length != prev.Length {
		return false
	}
	return cand.Value > prev.Value
}
