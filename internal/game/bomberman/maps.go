package bomberman

import (
	"math/rand"

	"github.com/samber/lo"
)

// Preset is a hand-drawn map. Layout legend: W wall, B brick, H hazard,
// S spawn, anything else empty.
type Preset struct {
	ID         string
	Name       string
	MaxPlayers int
	DropRate   float64
	Layout     []string
}

var presets = []Preset{
	{
		ID: "classic", Name: "Classic", MaxPlayers: 4, DropRate: 0.5,
		Layout: []string{
			"WWWWWWWWWWWWWWWWW",
			"WS.BB.B.B.B.BBS.W",
			"W.W.W.W.W.W.W.W.W",
			"WBB.BBB.B.BBB.BBW",
			"W.W.W.W.W.W.W.W.W",
			"WBBB.B.....B.BBBW",
			"W.W.W.W...W.W.W.W",
			"WBBB.B.....B.BBBW",
			"W.W.W.W.W.W.W.W.W",
			"WBB.BBB.B.BBB.BBW",
			"W.W.W.W.W.W.W.W.W",
			"WS.BB.B.B.B.BBS.W",
			"WWWWWWWWWWWWWWWWW",
		},
	},
	{
		ID: "arena", Name: "Arena", MaxPlayers: 4, DropRate: 1,
		Layout: []string{
			"WWWWWWWWWWWWWWWWW",
			"WS.............SW",
			"W.W.W.W.W.W.W.W.W",
			"W...BB.BBB.BB...W",
			"W.W.W.W.W.W.W.W.W",
			"W.BB.........BB.W",
			"W.W.W...H...W.W.W",
			"W.BB.........BB.W",
			"W.W.W.W.W.W.W.W.W",
			"W...BB.BBB.BB...W",
			"W.W.W.W.W.W.W.W.W",
			"WS.............SW",
			"WWWWWWWWWWWWWWWWW",
		},
	},
	{
		ID: "maze", Name: "Maze", MaxPlayers: 4, DropRate: 0.5,
		Layout: []string{
			"WWWWWWWWWWWWWWWWW",
			"WS.B.B.B.B.B.B.SW",
			"W.WBWBWBWBWBWBW.W",
			"WB.B.B.B.B.B.B.BW",
			"WBWBWBWBWBWBWBWBW",
			"WB.B.B.B.B.B.B.BW",
			"WBWBWBW...WBWBWBW",
			"WB.B.B.B.B.B.B.BW",
			"WBWBWBWBWBWBWBWBW",
			"WB.B.B.B.B.B.B.BW",
			"W.WBWBWBWBWBWBW.W",
			"WS.B.B.B.B.B.B.SW",
			"WWWWWWWWWWWWWWWWW",
		},
	},
	{
		ID: "cross", Name: "Cross", MaxPlayers: 4, DropRate: 0.55,
		Layout: []string{
			"WWWWWWWWWWWWWWWWW",
			"WS.BBBB...BBBB.SW",
			"W.W.W.WB.BW.W.W.W",
			"WBBB.BB...BB.BBBW",
			"WBW.W.W.W.W.W.WBW",
			"WBB.....H.....BBW",
			"W.W.W.W.H.W.W.W.W",
			"WBB.....H.....BBW",
			"WBW.W.W.W.W.W.WBW",
			"WBBB.BB...BB.BBBW",
			"W.W.W.WB.BW.W.W.W",
			"WS.BBBB...BBBB.SW",
			"WWWWWWWWWWWWWWWWW",
		},
	},
	{
		ID: "party", Name: "Party", MaxPlayers: 6, DropRate: 0.5,
		Layout: []string{
			"WWWWWWWWWWWWWWWWW",
			"WS.BB..S..BB..S.W",
			"W.W.W.W.W.W.W.W.W",
			"WBB.BBB.B.BBB.BBW",
			"W.W.W.W.W.W.W.W.W",
			"WBBB.B.....B.BBBW",
			"W.W.W.W...W.W.W.W",
			"WBBB.B.....B.BBBW",
			"W.W.W.W.W.W.W.W.W",
			"WBB.BBB.B.BBB.BBW",
			"W.W.W.W.W.W.W.W.W",
			"WS.BB..S..BB..S.W",
			"WWWWWWWWWWWWWWWWW",
		},
	},
	{
		ID: "treasure", Name: "Treasure", MaxPlayers: 4, DropRate: 0.5,
		Layout: []string{
			"WWWWWWWWWWWWWWWWW",
			"WS..BB.....BB..SW",
			"W.W.W.WBWBW.W.W.W",
			"W..BBBBBBBBBBB..W",
			"WBW.W.W.W.W.W.WBW",
			"W.BBBB.....BBBB.W",
			"W.W.WB.BHB.BW.W.W",
			"W.BBBB.....BBBB.W",
			"WBW.W.W.W.W.W.WBW",
			"W..BBBBBBBBBBB..W",
			"W.W.W.WBWBW.W.W.W",
			"WS..BB.....BB..SW",
			"WWWWWWWWWWWWWWWWW",
		},
	},
}

func PresetByID(id string) (Preset, bool) {
	return lo.Find(presets, func(p Preset) bool { return p.ID == id })
}

func PresetIDs() []string {
	return lo.Map(presets, func(p Preset, _ int) string { return p.ID })
}

// Build parses the layout into a board and its spawn points.
func (p Preset) Build() (*Board, []Pos) {
	h := len(p.Layout)
	w := lo.MaxBy(p.Layout, func(a, b string) bool { return len(a) > len(b) })
	b := NewBoard(len(w), h)
	var spawns []Pos
	for y, row := range p.Layout {
		for x := 0; x < b.Width; x++ {
			ch := byte('W')
			if x < len(row) {
				ch = row[x]
			}
			switch ch {
			case 'W':
				b.Cells[y][x] = CellWall
			case 'B':
				b.Cells[y][x] = CellBrick
			case 'H':
				b.Cells[y][x] = CellHazard
			case 'S':
				spawns = append(spawns, Pos{x, y})
			}
		}
	}
	return b, spread(spawns)
}

type MapSize string

const (
	SizeSmall  MapSize = "small"
	SizeMedium MapSize = "medium"
	SizeLarge  MapSize = "large"
)

var sizes = map[MapSize]Pos{
	SizeSmall:  {11, 9},
	SizeMedium: {13, 11},
	SizeLarge:  {15, 13},
}

const (
	generatedBrickRate = 0.6
	generatedDropRate  = 0.3
)

// Generate lays out a classic grid: border walls, pillars on even/even
// tiles, random bricks elsewhere, with every spawn and its neighbours kept
// clear.
func Generate(size MapSize, rng *rand.Rand) (*Board, []Pos) {
	dim, ok := sizes[size]
	if !ok {
		dim = sizes[SizeMedium]
	}
	w, h := dim.X, dim.Y
	b := NewBoard(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x == 0 || y == 0 || x == w-1 || y == h-1:
				b.Cells[y][x] = CellWall
			case x%2 == 0 && y%2 == 0:
				b.Cells[y][x] = CellWall
			case rng.Float64() < generatedBrickRate:
				b.Cells[y][x] = CellBrick
			}
		}
	}
	mid := w / 2
	if mid%2 == 0 {
		mid--
	}
	spawns := []Pos{{1, 1}, {w - 2, h - 2}, {w - 2, 1}, {1, h - 2}, {mid, 1}, {mid, h - 2}}
	for _, s := range spawns {
		for _, p := range append([]Pos{s}, lo.Map(Directions, func(d Direction, _ int) Pos { return s.Step(d) })...) {
			if b.At(p) == CellBrick {
				b.Set(p, CellEmpty)
			}
		}
	}
	return b, spawns
}

// spread orders spawns so that consecutive seats land far apart: first,
// last, second, second to last, and so on.
func spread(in []Pos) []Pos {
	out := make([]Pos, 0, len(in))
	for i, j := 0, len(in)-1; i <= j; i, j = i+1, j-1 {
		out = append(out, in[i])
		if i != j {
			out = append(out, in[j])
		}
	}
	return out
}
