package roads

// BresenhamLine returns the cells on the line from (x0,y0) to (x1,y1)
// inclusive, made 4-connected so consecutive cells share an edge.
func BresenhamLine(x0, y0, x1, y1 int) []RoadNode {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	out := []RoadNode{{x0, y0}}
	x, y := x0, y0
	for x != x1 || y != y1 {
		e2 := 2 * err
		// Step one axis at a time so the run never moves diagonally.
		switch {
		case x == x1:
			y += sy
		case y == y1:
			x += sx
		case e2 >= dy:
			err += dy
			x += sx
		default:
			err += dx
			y += sy
		}
		out = append(out, RoadNode{x, y})
	}
	return out
}
