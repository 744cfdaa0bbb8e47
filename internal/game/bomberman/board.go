package bomberman

import "party-games/internal/shared"

type Cell string

const (
	CellEmpty  Cell = "empty"
	CellWall   Cell = "wall"
	CellBrick  Cell = "brick"
	CellHazard Cell = "hazard"
)

type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

var Directions = []Direction{Up, Down, Left, Right}

var ErrBadDirection = shared.InvalidMove("invalid direction")

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down, Left, Right:
		return d, nil
	}
	return "", ErrBadDirection
}

func (p Pos) Step(d Direction) Pos {
	switch d {
	case Up:
		p.Y--
	case Down:
		p.Y++
	case Left:
		p.X--
	case Right:
		p.X++
	}
	return p
}

func (p Pos) Dist(q Pos) int { return abs(p.X-q.X) + abs(p.Y-q.Y) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Board is the tile grid, indexed Cells[y][x].
type Board struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Cells  [][]Cell `json:"cells"`
}

func NewBoard(w, h int) *Board {
	c := make([][]Cell, h)
	for y := range c {
		c[y] = make([]Cell, w)
		for x := range c[y] {
			c[y][x] = CellEmpty
		}
	}
	return &Board{Width: w, Height: h, Cells: c}
}

func (b *Board) In(p Pos) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < b.Width && p.Y < b.Height
}

// At reports out-of-bounds positions as walls.
func (b *Board) At(p Pos) Cell {
	if !b.In(p) {
		return CellWall
	}
	return b.Cells[p.Y][p.X]
}

func (b *Board) Set(p Pos, c Cell) {
	if b.In(p) {
		b.Cells[p.Y][p.X] = c
	}
}

// Walkable cells can be entered by players.
func (b *Board) Walkable(p Pos) bool { return b.At(p) == CellEmpty }

// Sweep returns the tiles a blast of the given range covers from origin.
// Walls stop the sweep before their tile; bricks are included and stop it.
func (b *Board) Sweep(origin Pos, rng int) []Pos {
	out := []Pos{origin}
	for _, d := range Directions {
		p := origin
		for i := 0; i < rng; i++ {
			p = p.Step(d)
			c := b.At(p)
			if c == CellWall {
				break
			}
			out = append(out, p)
			if c == CellBrick {
				break
			}
		}
	}
	return out
}

func (b *Board) clone() *Board {
	nb := &Board{Width: b.Width, Height: b.Height, Cells: make([][]Cell, len(b.Cells))}
	for y := range b.Cells {
		nb.Cells[y] = append([]Cell(nil), b.Cells[y]...)
	}
	return nb
}
