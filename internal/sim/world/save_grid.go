package world

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/encoding"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
)

// u8Saveable persists a byte layer run-length encoded; an all-zero layer is
// omitted.
func u8Saveable(key string, stage SaveStage, g *grid.U8Grid) Saveable {
	return Saveable{
		Key:   key,
		Stage: stage,
		Save: func() ([]byte, error) {
			if g.IsZero() {
				return nil, nil
			}
			w := encoding.NewWriter()
			w.U8Layer(1, g.Cells)
			return w.Finish(), nil
		},
		Load: func(b []byte) error {
			r := encoding.NewReader(b)
			for r.Next() {
				switch r.Field() {
				case 1:
					r.U8Layer(g.Cells)
				default:
					r.Skip()
				}
			}
			return r.Err()
		},
		Reset: g.Clear,
	}
}

func f32Saveable(key string, stage SaveStage, g *grid.F32Grid) Saveable {
	return Saveable{
		Key:   key,
		Stage: stage,
		Save: func() ([]byte, error) {
			if g.IsZero() {
				return nil, nil
			}
			w := encoding.NewWriter()
			w.Float32s(1, g.Cells)
			return w.Finish(), nil
		},
		Load: func(b []byte) error {
			r := encoding.NewReader(b)
			for r.Next() {
				switch r.Field() {
				case 1:
					if err := loadF32(r, g.Cells); err != nil {
						return err
					}
				default:
					r.Skip()
				}
			}
			return r.Err()
		},
		Reset: g.Clear,
	}
}

func loadF32(r *encoding.Reader, dst []float32) error {
	vs := r.Float32s()
	if r.Err() != nil {
		return r.Err()
	}
	if len(vs) != len(dst) {
		return fmt.Errorf("float layer: %d cells, want %d", len(vs), len(dst))
	}
	copy(dst, vs)
	return nil
}

const (
	cellPower uint8 = 1 << iota
	cellWater
)

func (w *World) gridSaveables() []Saveable {
	return []Saveable{
		{Key: "grid", Stage: SaveStageGrid, Save: w.saveGrid, Load: w.loadGrid, Reset: w.grid.Reset},
		{Key: "road_segments", Stage: SaveStageGrid, Save: w.saveSegments, Load: w.loadSegments, Reset: w.segments.Reset},
		u8Saveable("road_condition", SaveStageGrid, w.condition.Grid),
		{
			Key:   "zone_overlays",
			Stage: SaveStageGrid,
			Save: func() ([]byte, error) {
				if w.overlays.Transect.IsZero() && w.overlays.Historic.IsZero() {
					return nil, nil
				}
				e := encoding.NewWriter()
				e.U8Layer(1, w.overlays.Transect.Cells)
				e.U8Layer(2, w.overlays.Historic.Cells)
				return e.Finish(), nil
			},
			Load: func(b []byte) error {
				r := encoding.NewReader(b)
				for r.Next() {
					switch r.Field() {
					case 1:
						r.U8Layer(w.overlays.Transect.Cells)
					case 2:
						r.U8Layer(w.overlays.Historic.Cells)
					default:
						r.Skip()
					}
				}
				return r.Err()
			},
			Reset: func() {
				w.overlays.Transect.Clear()
				w.overlays.Historic.Clear()
			},
		},
		{
			Key:   "traffic_density",
			Stage: SaveStageGrid,
			Save: func() ([]byte, error) {
				if w.density.IsZero() {
					return nil, nil
				}
				lo := make([]uint8, grid.NumCells)
				hi := make([]uint8, grid.NumCells)
				for i, v := range w.density.Cells {
					lo[i], hi[i] = uint8(v), uint8(v>>8)
				}
				e := encoding.NewWriter()
				e.U8Layer(1, lo)
				e.U8Layer(2, hi)
				return e.Finish(), nil
			},
			Load: func(b []byte) error {
				lo := make([]uint8, grid.NumCells)
				hi := make([]uint8, grid.NumCells)
				r := encoding.NewReader(b)
				for r.Next() {
					switch r.Field() {
					case 1:
						r.U8Layer(lo)
					case 2:
						r.U8Layer(hi)
					default:
						r.Skip()
					}
				}
				if err := r.Err(); err != nil {
					return err
				}
				for i := range w.density.Cells {
					w.density.Cells[i] = uint16(lo[i]) | uint16(hi[i])<<8
				}
				return nil
			},
			Reset: w.density.Clear,
		},
	}
}

// saveGrid writes one layer per cell attribute. Building back-references are
// not persisted; loading buildings rewrites them.
func (w *World) saveGrid() ([]byte, error) {
	n := len(w.grid.Cells)
	elev := make([]float32, n)
	types := make([]uint8, n)
	zs := make([]uint8, n)
	rs := make([]uint8, n)
	flags := make([]uint8, n)
	for i := range w.grid.Cells {
		c := &w.grid.Cells[i]
		elev[i] = c.Elevation
		types[i] = uint8(c.Type)
		zs[i] = uint8(c.Zone)
		rs[i] = uint8(c.Road)
		if c.HasPower {
			flags[i] |= cellPower
		}
		if c.HasWater {
			flags[i] |= cellWater
		}
	}
	e := encoding.NewWriter()
	e.Float32s(1, elev)
	e.U8Layer(2, types)
	e.U8Layer(3, zs)
	e.U8Layer(4, rs)
	e.U8Layer(5, flags)
	return e.Finish(), nil
}

func (w *World) loadGrid(b []byte) error {
	n := len(w.grid.Cells)
	elev := make([]float32, n)
	types := make([]uint8, n)
	zs := make([]uint8, n)
	rs := make([]uint8, n)
	flags := make([]uint8, n)
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			if err := loadF32(r, elev); err != nil {
				return err
			}
		case 2:
			r.U8Layer(types)
		case 3:
			r.U8Layer(zs)
		case 4:
			r.U8Layer(rs)
		case 5:
			r.U8Layer(flags)
		default:
			r.Skip()
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	for i := range w.grid.Cells {
		if types[i] > uint8(grid.Road) || !grid.ZoneType(zs[i]).Valid() || !grid.RoadType(rs[i]).Valid() {
			return fmt.Errorf("grid: bad cell %d", i)
		}
	}
	for i := range w.grid.Cells {
		w.grid.Cells[i] = grid.Cell{
			Elevation: elev[i],
			Type:      grid.CellType(types[i]),
			Zone:      grid.ZoneType(zs[i]),
			Road:      grid.RoadType(rs[i]),
			HasPower:  flags[i]&cellPower != 0,
			HasWater:  flags[i]&cellWater != 0,
			Building:  ecs.Entity{},
		}
	}
	return nil
}

func (w *World) saveSegments() ([]byte, error) {
	s := w.segments
	if len(s.Nodes) == 0 && len(s.Segments) == 0 && s.Generation == 0 {
		return nil, nil
	}
	e := encoding.NewWriter()
	for _, n := range s.Nodes {
		e.Message(1, func(m *encoding.Writer) {
			m.Uint(1, uint64(n.ID))
			m.Float32(2, n.Pos.X)
			m.Float32(3, n.Pos.Y)
			ids := make([]uint64, len(n.Segments))
			for i, id := range n.Segments {
				ids[i] = uint64(id)
			}
			m.Uints(4, ids)
			m.Bool(5, n.Removed)
		})
	}
	for _, seg := range s.Segments {
		e.Message(2, func(m *encoding.Writer) {
			m.Uint(1, uint64(seg.ID))
			m.Uint(2, uint64(seg.Start))
			m.Uint(3, uint64(seg.End))
			m.Float32s(4, []float32{seg.P0.X, seg.P0.Y, seg.P1.X, seg.P1.Y, seg.P2.X, seg.P2.Y, seg.P3.X, seg.P3.Y})
			m.Uint(5, uint64(seg.Road))
			m.Float32(6, seg.ArcLength)
			cells := make([]uint64, 0, 2*len(seg.Cells))
			for _, c := range seg.Cells {
				cells = append(cells, uint64(c.X), uint64(c.Y))
			}
			m.Uints(7, cells)
			m.Uint(8, uint64(seg.OneWay))
			m.Bool(9, seg.Removed)
		})
	}
	e.Float32(3, s.SnapRadius)
	e.Uint(4, s.Generation)
	return e.Finish(), nil
}

func (w *World) loadSegments(b []byte) error {
	s := w.segments
	s.Reset()
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			var n roads.SegmentNode
			r.Message(func(m *encoding.Reader) {
				for m.Next() {
					switch m.Field() {
					case 1:
						n.ID = roads.NodeID(m.Uint())
					case 2:
						n.Pos.X = m.Float32()
					case 3:
						n.Pos.Y = m.Float32()
					case 4:
						for _, id := range m.Uints() {
							n.Segments = append(n.Segments, roads.SegmentID(id))
						}
					case 5:
						n.Removed = m.Bool()
					default:
						m.Skip()
					}
				}
			})
			s.Nodes = append(s.Nodes, n)
		case 2:
			var seg roads.Segment
			r.Message(func(m *encoding.Reader) {
				for m.Next() {
					switch m.Field() {
					case 1:
						seg.ID = roads.SegmentID(m.Uint())
					case 2:
						seg.Start = roads.NodeID(m.Uint())
					case 3:
						seg.End = roads.NodeID(m.Uint())
					case 4:
						if p := m.Float32s(); len(p) == 8 {
							seg.P0 = roads.Vec2{X: p[0], Y: p[1]}
							seg.P1 = roads.Vec2{X: p[2], Y: p[3]}
							seg.P2 = roads.Vec2{X: p[4], Y: p[5]}
							seg.P3 = roads.Vec2{X: p[6], Y: p[7]}
						}
					case 5:
						seg.Road = grid.RoadType(m.Uint())
					case 6:
						seg.ArcLength = m.Float32()
					case 7:
						cs := m.Uints()
						for i := 0; i+1 < len(cs); i += 2 {
							seg.Cells = append(seg.Cells, roads.RoadNode{X: int(cs[i]), Y: int(cs[i+1])})
						}
					case 8:
						seg.OneWay = roads.OneWay(m.Uint())
					case 9:
						seg.Removed = m.Bool()
					default:
						m.Skip()
					}
				}
			})
			s.Segments = append(s.Segments, seg)
		case 3:
			s.SnapRadius = r.Float32()
		case 4:
			s.Generation = r.Uint()
		default:
			r.Skip()
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	for i, n := range s.Nodes {
		if int(n.ID) != i {
			return fmt.Errorf("road_segments: node %d has id %d", i, n.ID)
		}
	}
	for i, seg := range s.Segments {
		if int(seg.ID) != i || int(seg.Start) >= len(s.Nodes) || int(seg.End) >= len(s.Nodes) {
			return fmt.Errorf("road_segments: bad segment %d", i)
		}
	}
	return nil
}
