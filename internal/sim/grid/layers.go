package grid

// U8View is the read-only surface handed to overlay producers.
type U8View interface {
	Get(x, y int) uint8
}

// F32View is the read-only surface for float layers.
type F32View interface {
	Get(x, y int) float32
}

// U8Grid is a dense byte layer over the world grid.
type U8Grid struct {
	Cells []uint8
}

func NewU8() *U8Grid { return &U8Grid{Cells: make([]uint8, NumCells)} }

// Get returns 0 for out-of-bounds reads.
func (g *U8Grid) Get(x, y int) uint8 {
	if !InBounds(x, y) {
		return 0
	}
	return g.Cells[y*Width+x]
}

func (g *U8Grid) Set(x, y int, v uint8) {
	if InBounds(x, y) {
		g.Cells[y*Width+x] = v
	}
}

// AddSat adds d and saturates at 0 and 255.
func (g *U8Grid) AddSat(x, y int, d int) {
	if !InBounds(x, y) {
		return
	}
	i := y*Width + x
	v := int(g.Cells[i]) + d
	g.Cells[i] = ClampU8(v)
}

func (g *U8Grid) Clear() {
	clear(g.Cells)
}

func (g *U8Grid) IsZero() bool {
	for _, v := range g.Cells {
		if v != 0 {
			return false
		}
	}
	return true
}

func (g *U8Grid) View() U8View { return g }

// Mean is the average over all cells.
func (g *U8Grid) Mean() float64 {
	var sum uint64
	for _, v := range g.Cells {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(g.Cells))
}

// F32Grid is a dense float layer over the world grid.
type F32Grid struct {
	Cells []float32
}

func NewF32() *F32Grid { return &F32Grid{Cells: make([]float32, NumCells)} }

func (g *F32Grid) Get(x, y int) float32 {
	if !InBounds(x, y) {
		return 0
	}
	return g.Cells[y*Width+x]
}

func (g *F32Grid) Set(x, y int, v float32) {
	if InBounds(x, y) {
		g.Cells[y*Width+x] = v
	}
}

func (g *F32Grid) Add(x, y int, d float32) {
	if InBounds(x, y) {
		g.Cells[y*Width+x] += d
	}
}

func (g *F32Grid) Clear() {
	clear(g.Cells)
}

func (g *F32Grid) IsZero() bool {
	for _, v := range g.Cells {
		if v != 0 {
			return false
		}
	}
	return true
}

func (g *F32Grid) View() F32View { return g }

// Sum adds every cell in float64.
func (g *F32Grid) Sum() float64 {
	var s float64
	for _, v := range g.Cells {
		s += float64(v)
	}
	return s
}

func ClampU8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ClampU8F rounds and clamps a float into a byte.
func ClampU8F(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// BoxSelect returns the cells of a w x h box anchored at (x,y), clipped to the grid.
// A box with zero width or height selects nothing.
func BoxSelect(x, y, w, h int) [][2]int {
	if w <= 0 || h <= 0 {
		return nil
	}
	r, ok := Rect{X0: x, Y0: y, X1: x + w - 1, Y1: y + h - 1}.Clip()
	if !ok {
		return nil
	}
	out := make([][2]int, 0, r.Area())
	r.Each(func(cx, cy int) { out = append(out, [2]int{cx, cy}) })
	return out
}
