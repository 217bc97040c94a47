package grid

import "testing"

func TestGridToWorld_RoundTrip(t *testing.T) {
	for _, c := range [][2]int{{0, 0}, {255, 255}, {17, 200}} {
		wx, wy := GridToWorld(c[0], c[1])
		gx, gy := WorldToGrid(wx, wy)
		if gx != c[0] || gy != c[1] {
			t.Fatalf("round trip %v: got (%d,%d)", c, gx, gy)
		}
	}
	if x, y := WorldToGrid(-1, -1); InBounds(x, y) {
		t.Fatalf("negative world coords should map out of bounds, got (%d,%d)", x, y)
	}
}

func TestNeighbors4_Corners(t *testing.T) {
	if got := len(Neighbors4(0, 0)); got != 2 {
		t.Fatalf("corner neighbors: got %d want 2", got)
	}
	if got := len(Neighbors4(10, 0)); got != 3 {
		t.Fatalf("edge neighbors: got %d want 3", got)
	}
	if got := len(Neighbors4(10, 10)); got != 4 {
		t.Fatalf("interior neighbors: got %d want 4", got)
	}
}

func TestIsRoadAdjacent(t *testing.T) {
	g := New()
	g.At(5, 5).Type = Road
	if !g.IsRoadAdjacent(5, 6) || !g.IsRoadAdjacent(4, 5) {
		t.Fatalf("expected road adjacency")
	}
	if g.IsRoadAdjacent(6, 6) {
		t.Fatalf("diagonal must not count as adjacent")
	}
}

func TestHasRoadAccess(t *testing.T) {
	g := New()
	g.At(10, 10).Type = Road
	if !g.HasRoadAccess(10, 8) || !g.HasRoadAccess(12, 12) {
		t.Fatalf("cells two away should have access")
	}
	if g.HasRoadAccess(10, 7) {
		t.Fatalf("three cells away must not have access")
	}
	if g.HasRoadAccess(0, 0) {
		t.Fatalf("corner far from road must not have access")
	}
}

func TestRect_ClipAndEach(t *testing.T) {
	r, ok := NewRect(260, 260, 250, 250).Clip()
	if !ok {
		t.Fatalf("expected overlap")
	}
	if r.X0 != 250 || r.X1 != 255 || r.Y1 != 255 {
		t.Fatalf("unexpected clip: %+v", r)
	}
	n := 0
	r.Each(func(x, y int) { n++ })
	if n != r.Area() || n != 36 {
		t.Fatalf("each visited %d, area %d", n, r.Area())
	}
	if _, ok := NewRect(-5, -5, -1, -1).Clip(); ok {
		t.Fatalf("fully outside rect should not clip")
	}
}

func TestBoxSelect_ZeroArea(t *testing.T) {
	if got := BoxSelect(10, 10, 0, 0); len(got) != 0 {
		t.Fatalf("0x0 selection should be empty, got %d", len(got))
	}
	if got := BoxSelect(10, 10, 3, 0); len(got) != 0 {
		t.Fatalf("3x0 selection should be empty, got %d", len(got))
	}
	if got := BoxSelect(254, 254, 4, 4); len(got) != 4 {
		t.Fatalf("clipped selection: got %d want 4", len(got))
	}
}

func TestU8Grid_SaturatingAdd(t *testing.T) {
	g := NewU8()
	g.AddSat(1, 1, 300)
	if g.Get(1, 1) != 255 {
		t.Fatalf("expected saturation at 255")
	}
	g.AddSat(1, 1, -400)
	if g.Get(1, 1) != 0 {
		t.Fatalf("expected saturation at 0")
	}
	if !g.IsZero() {
		t.Fatalf("grid should be zero")
	}
	if g.Get(-1, 3) != 0 {
		t.Fatalf("out of bounds read should be 0")
	}
}

func TestZoneParse(t *testing.T) {
	for _, z := range AllZones {
		got, ok := ParseZone(z.String())
		if !ok || got != z {
			t.Fatalf("parse %s: got %v ok=%v", z, got, ok)
		}
	}
	if ZoneResidentialLow.MaxLevel() != 3 || ZoneOffice.MaxLevel() != 5 {
		t.Fatalf("unexpected max levels")
	}
}
