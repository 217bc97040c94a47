package grid

import (
	"math"

	"github.com/mlange-42/ark/ecs"
)

const (
	Width          = 256
	Height         = 256
	CellSize       = 16.0
	ChunkSize      = 8
	WaterThreshold = 0.35
	NumCells       = Width * Height
)

// Cell is one grid square. Building is the zero entity when the cell is empty.
type Cell struct {
	Elevation float32
	Type      CellType
	Zone      ZoneType
	Road      RoadType
	HasPower  bool
	HasWater  bool
	Building  ecs.Entity
}

func (c *Cell) HasBuilding() bool { return c.Building != (ecs.Entity{}) }

// WorldGrid is the process-wide Width x Height cell array.
type WorldGrid struct {
	Width  int
	Height int
	Cells  []Cell
}

func New() *WorldGrid {
	return &WorldGrid{Width: Width, Height: Height, Cells: make([]Cell, NumCells)}
}

// Reset restores every cell to flat grass.
func (g *WorldGrid) Reset() {
	for i := range g.Cells {
		g.Cells[i] = Cell{}
	}
}

func InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < Width && y < Height
}

func (g *WorldGrid) InBounds(x, y int) bool { return InBounds(x, y) }

func Index(x, y int) int { return y*Width + x }

func (g *WorldGrid) At(x, y int) *Cell { return &g.Cells[y*g.Width+x] }

// Get returns a copy of the cell and false when (x,y) is out of bounds.
func (g *WorldGrid) Get(x, y int) (Cell, bool) {
	if !g.InBounds(x, y) {
		return Cell{}, false
	}
	return g.Cells[y*g.Width+x], true
}

// GridToWorld returns the world-space center of a cell.
func GridToWorld(x, y int) (float32, float32) {
	return float32(x)*CellSize + CellSize/2, float32(y)*CellSize + CellSize/2
}

// WorldToGrid floors a world position to a cell index. The result may be out of bounds.
func WorldToGrid(wx, wy float32) (int, int) {
	return int(math.Floor(float64(wx / CellSize))), int(math.Floor(float64(wy / CellSize)))
}

// ClampWorld clamps a world position into the grid extent.
func ClampWorld(wx, wy float32) (float32, float32) {
	maxX := float32(Width)*CellSize - 0.001
	maxY := float32(Height)*CellSize - 0.001
	return clampF(wx, 0, maxX), clampF(wy, 0, maxY)
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Neighbors4 returns the in-bounds von Neumann neighbors in N, E, S, W order.
func Neighbors4(x, y int) [][2]int {
	out := make([][2]int, 0, 4)
	for _, d := range dirs4 {
		nx, ny := x+d[0], y+d[1]
		if InBounds(nx, ny) {
			out = append(out, [2]int{nx, ny})
		}
	}
	return out
}

var dirs4 = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// IsRoadAdjacent reports whether any 4-neighbor is a road.
func (g *WorldGrid) IsRoadAdjacent(x, y int) bool {
	for _, d := range dirs4 {
		nx, ny := x+d[0], y+d[1]
		if InBounds(nx, ny) && g.At(nx, ny).Type == Road {
			return true
		}
	}
	return false
}

// RoadAccessRadius is how far a lot may sit from the road that serves it.
const RoadAccessRadius = 2

// HasRoadAccess reports whether a road lies within RoadAccessRadius of
// (x,y) in Chebyshev distance. The cell itself does not count.
func (g *WorldGrid) HasRoadAccess(x, y int) bool {
	for dy := -RoadAccessRadius; dy <= RoadAccessRadius; dy++ {
		for dx := -RoadAccessRadius; dx <= RoadAccessRadius; dx++ {
			nx, ny := x+dx, y+dy
			if (dx != 0 || dy != 0) && InBounds(nx, ny) && g.At(nx, ny).Type == Road {
				return true
			}
		}
	}
	return false
}

// RoadCells counts cells of type Road.
func (g *WorldGrid) RoadCells() int {
	n := 0
	for i := range g.Cells {
		if g.Cells[i].Type == Road {
			n++
		}
	}
	return n
}

// ChunkOf returns the chunk coordinates for a cell.
func ChunkOf(x, y int) (int, int) { return x / ChunkSize, y / ChunkSize }

// Rect is an inclusive cell rectangle normalised so X0<=X1 and Y0<=Y1.
type Rect struct {
	X0, Y0, X1, Y1 int
}

func NewRect(x0, y0, x1, y1 int) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Clip intersects r with the grid; ok is false when nothing remains.
func (r Rect) Clip() (Rect, bool) {
	if r.X1 < 0 || r.Y1 < 0 || r.X0 >= Width || r.Y0 >= Height {
		return Rect{}, false
	}
	r.X0 = max(r.X0, 0)
	r.Y0 = max(r.Y0, 0)
	r.X1 = min(r.X1, Width-1)
	r.Y1 = min(r.Y1, Height-1)
	return r, true
}

func (r Rect) Area() int { return (r.X1 - r.X0 + 1) * (r.Y1 - r.Y0 + 1) }

func (r Rect) Contains(x, y int) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Each visits cells row-major.
func (r Rect) Each(fn func(x, y int)) {
	for y := r.Y0; y <= r.Y1; y++ {
		for x := r.X0; x <= r.X1; x++ {
			fn(x, y)
		}
	}
}
