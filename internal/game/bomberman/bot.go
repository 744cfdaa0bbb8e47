package bomberman

import (
	"time"

	"github.com/samber/lo"
)

// botProfile tunes how a difficulty plays. Slower reactions and more random
// moves make easier bots.
type botProfile struct {
	reaction   time.Duration
	bombChance float64
	chaseRange int
	wander     float64
}

var difficulties = map[Difficulty]botProfile{
	Easy:   {reaction: 400 * time.Millisecond, bombChance: 0.3, chaseRange: 3, wander: 0.3},
	Normal: {reaction: 250 * time.Millisecond, bombChance: 0.6, chaseRange: 5, wander: 0.1},
	Hard:   {reaction: 150 * time.Millisecond, bombChance: 0.9, chaseRange: 8, wander: 0},
}

// Candidate weights.
const (
	wSafe   = 100
	wExit   = 4
	wPower  = 30
	wTarget = 12
)

type botAction struct {
	bomb bool
	dir  Direction
}

// tickBots lets every living bot whose reaction time has passed take one
// action.
func (m *Manager) tickBots(r *Room) {
	now := m.now()
	for _, p := range r.Players {
		if r.Phase != PhasePlaying {
			return
		}
		if !p.Bot || !p.Living() {
			continue
		}
		prof := difficulties[p.Difficulty]
		if now.Sub(p.lastBot) < prof.reaction {
			continue
		}
		p.lastBot = now
		act, ok := m.decide(r, p, prof)
		if !ok {
			continue
		}
		var out Outcome
		if act.bomb {
			b, err := m.placeBomb(r, p)
			if err != nil {
				continue
			}
			out.Bomb = b
		} else {
			var err error
			if out, err = m.move(r, p, act.dir); err != nil {
				continue
			}
		}
		if m.listener != nil {
			m.listener.BotActed(r, p.ID, out)
		}
	}
}

// danger is every tile that is burning or will burn when a live bomb goes
// off.
func danger(r *Room) map[Pos]bool {
	out := make(map[Pos]bool)
	for _, e := range r.Explosions {
		for _, c := range e.Cells {
			out[c] = true
		}
	}
	for _, b := range r.Bombs {
		for _, c := range r.Board.Sweep(b.Pos, b.Range) {
			out[c] = true
		}
	}
	return out
}

// passable tiles can be walked through by a bot planning a route.
func passable(r *Room, p Pos) bool {
	return r.Board.Walkable(p) && r.BombAt(p) == nil
}

// route runs a breadth first search from start and returns the first step
// towards the nearest tile accepted by goal, and the path length.
func route(r *Room, start Pos, limit int, avoid map[Pos]bool, goal func(Pos) bool) (Direction, int, bool) {
	type node struct {
		at    Pos
		first Direction
		depth int
	}
	seen := map[Pos]bool{start: true}
	queue := []node{{at: start}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.depth > 0 && goal(n.at) {
			return n.first, n.depth, true
		}
		if n.depth >= limit {
			continue
		}
		for _, d := range Directions {
			next := n.at.Step(d)
			if seen[next] || !passable(r, next) || (avoid != nil && avoid[next] && r.burning(next)) {
				continue
			}
			seen[next] = true
			first := n.first
			if n.depth == 0 {
				first = d
			}
			queue = append(queue, node{at: next, first: first, depth: n.depth + 1})
		}
	}
	return "", 0, false
}

func (m *Manager) decide(r *Room, p *Player, prof botProfile) (botAction, bool) {
	threat := danger(r)
	safe := func(c Pos) bool { return !threat[c] }

	if threat[p.Pos] {
		if d, _, ok := route(r, p.Pos, 8, threat, safe); ok {
			return botAction{dir: d}, true
		}
		return m.anyStep(r, p)
	}

	if p.Bombs > 0 && r.BombAt(p.Pos) == nil && m.worthBombing(r, p) && m.rng.Float64() < prof.bombChance {
		after := make(map[Pos]bool, len(threat))
		for c := range threat {
			after[c] = true
		}
		for _, c := range r.Board.Sweep(p.Pos, p.Range) {
			after[c] = true
		}
		if _, _, ok := route(r, p.Pos, 6, after, func(c Pos) bool { return !after[c] }); ok {
			return botAction{bomb: true}, true
		}
	}

	if m.rng.Float64() < prof.wander {
		return m.anyStep(r, p)
	}

	best, bestScore := Direction(""), 0
	for _, d := range Directions {
		to := p.Pos.Step(d)
		if !passable(r, to) || threat[to] || r.burning(to) {
			continue
		}
		if s := m.score(r, p, to, prof); best == "" || s > bestScore {
			best, bestScore = d, s
		}
	}
	if best == "" {
		return botAction{}, false
	}
	return botAction{dir: best}, true
}

// score rates standing on to: open exits, and progress towards a power-up or
// an opponent in range.
func (m *Manager) score(r *Room, p *Player, to Pos, prof botProfile) int {
	s := wSafe
	s += wExit * lo.CountBy(Directions, func(d Direction) bool { return passable(r, to.Step(d)) })
	if u, ok := nearest(lo.Map(r.PowerUps, func(u *PowerUp, _ int) Pos { return u.Pos }), p.Pos); ok && p.Pos.Dist(u) <= prof.chaseRange {
		if to.Dist(u) < p.Pos.Dist(u) {
			s += wPower
		}
	}
	if t, ok := nearest(m.targets(r, p), p.Pos); ok && p.Pos.Dist(t) <= prof.chaseRange*2 {
		if to.Dist(t) < p.Pos.Dist(t) {
			s += wTarget
		}
	}
	return s + m.rng.Intn(wExit)
}

func (m *Manager) targets(r *Room, p *Player) []Pos {
	return lo.FilterMap(r.Players, func(q *Player, _ int) (Pos, bool) {
		foe := q != p && q.Living() && (!r.Rules.TeamMode || q.Team != p.Team)
		return q.Pos, foe
	})
}

func nearest(ps []Pos, from Pos) (Pos, bool) {
	if len(ps) == 0 {
		return Pos{}, false
	}
	return lo.MinBy(ps, func(a, b Pos) bool { return from.Dist(a) < from.Dist(b) }), true
}

// worthBombing is true next to a brick or with an opponent inside the blast.
func (m *Manager) worthBombing(r *Room, p *Player) bool {
	if lo.SomeBy(Directions, func(d Direction) bool { return r.Board.At(p.Pos.Step(d)) == CellBrick }) {
		return true
	}
	cover := r.Board.Sweep(p.Pos, p.Range)
	return lo.SomeBy(m.targets(r, p), func(t Pos) bool { return lo.Contains(cover, t) })
}

func (m *Manager) anyStep(r *Room, p *Player) (botAction, bool) {
	open := lo.Filter(Directions, func(d Direction, _ int) bool { return passable(r, p.Pos.Step(d)) })
	if len(open) == 0 {
		return botAction{}, false
	}
	return botAction{dir: open[m.rng.Intn(len(open))]}, true
}
