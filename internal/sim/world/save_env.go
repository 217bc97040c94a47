package world

import (
	"fmt"

	"cityforge.dev/internal/sim/disasters"
	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/encoding"
	"cityforge.dev/internal/sim/env"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/weather"
)

func (w *World) environmentSaveables() []Saveable {
	return []Saveable{
		u8Saveable("pollution", SaveStageEnvironment, w.pollution),
		u8Saveable("noise", SaveStageEnvironment, w.noise),
		u8Saveable("water_pollution", SaveStageEnvironment, w.waterPollution),
		u8Saveable("land_value", SaveStageEnvironment, w.landValue),
		u8Saveable("crime", SaveStageEnvironment, w.crime),
		u8Saveable("heating", SaveStageEnvironment, w.heating),
		u8Saveable("education", SaveStageEnvironment, w.education),
		u8Saveable("health", SaveStageEnvironment, w.health),
		f32Saveable("uhi", SaveStageEnvironment, w.uhi),
		u8Saveable("fire", SaveStageEnvironment, w.fire.Intensity),
		u8Saveable("forest_fire", SaveStageEnvironment, w.forestFire.Intensity),
		f32Saveable("snow", SaveStageEnvironment, w.snow.Depth),
		{Key: "groundwater", Stage: SaveStageEnvironment, Save: w.saveGroundwater, Load: w.loadGroundwater, Reset: w.groundwater.Reset},
		{Key: "garbage", Stage: SaveStageEnvironment, Save: w.saveGarbage, Load: w.loadGarbage, Reset: w.resetGarbage},
		{Key: "stormwater", Stage: SaveStageEnvironment, Save: w.saveStorm, Load: w.loadStorm, Reset: w.resetStorm},
		{Key: "flood", Stage: SaveStageEnvironment, Save: w.saveFlood, Load: w.loadFlood, Reset: w.resetFlood},
		{
			Key:   "weather",
			Stage: SaveStageEnvironment,
			Save:  func() ([]byte, error) { return saveWeather(w.weather) },
			Load: func(b []byte) error {
				wx, err := loadWeather(b)
				if err != nil {
					return err
				}
				w.weather = wx
				return nil
			},
			Reset: func() { w.weather = weather.Default() },
		},
		{
			Key:   "climate",
			Stage: SaveStageEnvironment,
			Save: func() ([]byte, error) {
				if w.climate == (weather.Climate{}) {
					return nil, nil
				}
				e := encoding.NewWriter()
				e.Float64(1, w.climate.CumulativeCO2)
				e.Float32(2, w.climate.Offset)
				return e.Finish(), nil
			},
			Load: func(b []byte) error {
				var c weather.Climate
				r := encoding.NewReader(b)
				for r.Next() {
					switch r.Field() {
					case 1:
						c.CumulativeCO2 = r.Float64()
					case 2:
						c.Offset = r.Float32()
					default:
						r.Skip()
					}
				}
				if err := r.Err(); err != nil {
					return err
				}
				w.climate = c
				return nil
			},
			Reset: func() { w.climate = weather.Climate{} },
		},
	}
}

func (w *World) saveGroundwater() ([]byte, error) {
	return record(func(e *encoding.Writer) {
		e.U8Layer(1, w.groundwater.Level.Cells)
		e.U8Layer(2, w.groundwater.Quality.Cells)
	})
}

func (w *World) loadGroundwater(b []byte) error {
	level := make([]uint8, grid.NumCells)
	quality := make([]uint8, grid.NumCells)
	err := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			r.U8Layer(level)
		case 2:
			r.U8Layer(quality)
		default:
			r.Skip()
		}
	})
	if err != nil {
		return err
	}
	copy(w.groundwater.Level.Cells, level)
	copy(w.groundwater.Quality.Cells, quality)
	return nil
}

// landfillCapacity is the tonnage a new city's landfill accepts.
const landfillCapacity = 500_000

func (w *World) resetGarbage() {
	w.garbage.Level.Clear()
	w.garbage.Landfill = env.Landfill{Capacity: landfillCapacity}
}

func (w *World) saveGarbage() ([]byte, error) {
	g := w.garbage
	return record(func(e *encoding.Writer) {
		if !g.Level.IsZero() {
			e.U8Layer(1, g.Level.Cells)
		}
		e.Float64(2, g.Landfill.Capacity)
		e.Float64(3, g.Landfill.Used)
		e.Uint(4, uint64(g.Landfill.Warned))
	})
}

func (w *World) loadGarbage(b []byte) error {
	level := make([]uint8, grid.NumCells)
	var lf env.Landfill
	err := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			r.U8Layer(level)
		case 2:
			lf.Capacity = r.Float64()
		case 3:
			lf.Used = r.Float64()
		case 4:
			lf.Warned = uint8(r.Uint())
		default:
			r.Skip()
		}
	})
	if err != nil {
		return err
	}
	copy(w.garbage.Level.Cells, level)
	w.garbage.Landfill = lf
	return nil
}

func (w *World) resetStorm() {
	w.storm.Runoff.Clear()
	w.storm.Retention.Clear()
}

func (w *World) saveStorm() ([]byte, error) {
	if w.storm.Runoff.IsZero() && w.storm.Retention.IsZero() {
		return nil, nil
	}
	e := encoding.NewWriter()
	e.Float32s(1, w.storm.Runoff.Cells)
	e.Float32s(2, w.storm.Retention.Cells)
	return e.Finish(), nil
}

func (w *World) loadStorm(b []byte) error {
	runoff := make([]float32, grid.NumCells)
	retention := make([]float32, grid.NumCells)
	r := encoding.NewReader(b)
	for r.Next() {
		var err error
		switch r.Field() {
		case 1:
			err = loadF32(r, runoff)
		case 2:
			err = loadF32(r, retention)
		default:
			r.Skip()
		}
		if err != nil {
			return err
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	copy(w.storm.Runoff.Cells, runoff)
	copy(w.storm.Retention.Cells, retention)
	return nil
}

func (w *World) resetFlood() {
	d := w.flood.Depth
	d.Clear()
	*w.flood = env.Flood{Depth: d}
}

func (w *World) saveFlood() ([]byte, error) {
	f := w.flood
	if f.Depth.IsZero() && !f.Active && f.CalmUpdates == 0 && f.FloodedCells == 0 && f.MaxDepth == 0 {
		return nil, nil
	}
	e := encoding.NewWriter()
	if !f.Depth.IsZero() {
		e.Float32s(1, f.Depth.Cells)
	}
	e.Bool(2, f.Active)
	e.Uint(3, uint64(f.CalmUpdates))
	e.Uint(4, uint64(f.FloodedCells))
	e.Float32(5, f.MaxDepth)
	return e.Finish(), nil
}

func (w *World) loadFlood(b []byte) error {
	depth := make([]float32, grid.NumCells)
	var f env.Flood
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			if err := loadF32(r, depth); err != nil {
				return err
			}
		case 2:
			f.Active = r.Bool()
		case 3:
			f.CalmUpdates = uint32(r.Uint())
		case 4:
			f.FloodedCells = uint32(r.Uint())
		case 5:
			f.MaxDepth = r.Float32()
		default:
			r.Skip()
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	f.Depth = w.flood.Depth
	copy(f.Depth.Cells, depth)
	*w.flood = f
	return nil
}

func (w *World) disasterSaveables() []Saveable {
	return []Saveable{
		{Key: "disasters", Stage: SaveStageDisaster, Save: w.saveDisaster, Load: w.loadDisaster, Reset: w.disasters.Reset},
		{Key: "flood_protection", Stage: SaveStageDisaster, Save: w.saveProtection, Load: w.loadProtection, Reset: func() { w.protection = env.Protection{} }},
		streakSaveable("cold_snap", streak{&w.coldSnap.ConsecutiveDays, &w.coldSnap.Active, &w.coldSnap.LastDay}),
		streakSaveable("heat_wave", streak{&w.heatWave.ConsecutiveDays, &w.heatWave.Active, &w.heatWave.LastDay}),
	}
}

func (w *World) saveDisaster() ([]byte, error) {
	in := w.disasters.Current
	if in == nil {
		return nil, nil
	}
	return record(func(e *encoding.Writer) {
		e.Uint(1, uint64(in.Kind))
		e.Uints(2, []uint64{uint64(in.CenterX), uint64(in.CenterY), uint64(in.Radius)})
		e.Uint(3, uint64(in.TicksRemaining))
		e.Bool(4, in.DamageApplied)
	})
}

func (w *World) loadDisaster(b []byte) error {
	in := &disasters.Instance{}
	var err error
	derr := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			in.Kind = disasters.Kind(r.Uint())
		case 2:
			var v []uint64
			if v, err = want(r.Uints(), 3, "disaster"); err == nil {
				in.CenterX, in.CenterY, in.Radius = int(v[0]), int(v[1]), int(v[2])
			}
		case 3:
			in.TicksRemaining = uint32(r.Uint())
		case 4:
			in.DamageApplied = r.Bool()
		default:
			r.Skip()
		}
	})
	if derr != nil {
		return derr
	}
	if err != nil {
		return err
	}
	if !in.Kind.Valid() {
		return fmt.Errorf("disasters: kind %d", in.Kind)
	}
	w.disasters.Current = in
	return nil
}

func (w *World) saveProtection() ([]byte, error) {
	if len(w.protection.Barriers) == 0 {
		return nil, nil
	}
	e := encoding.NewWriter()
	for _, b := range w.protection.Barriers {
		e.Message(1, func(m *encoding.Writer) {
			m.Uint(1, uint64(b.X))
			m.Uint(2, uint64(b.Y))
			m.Uint(3, uint64(b.Kind))
			m.Float32(4, b.Condition)
			m.Uint(5, uint64(b.AgeDays))
			m.Bool(6, b.Maintained)
			m.Bool(7, b.Failed)
		})
	}
	return e.Finish(), nil
}

func (w *World) loadProtection(b []byte) error {
	var p env.Protection
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			var bar env.Barrier
			r.Message(func(m *encoding.Reader) {
				for m.Next() {
					switch m.Field() {
					case 1:
						bar.X = int(m.Uint())
					case 2:
						bar.Y = int(m.Uint())
					case 3:
						bar.Kind = env.ProtectionKind(m.Uint())
					case 4:
						bar.Condition = m.Float32()
					case 5:
						bar.AgeDays = uint32(m.Uint())
					case 6:
						bar.Maintained = m.Bool()
					case 7:
						bar.Failed = m.Bool()
					default:
						m.Skip()
					}
				}
			})
			// Add treats zero condition as new; keep a worn-out barrier worn out.
			p.Barriers = append(p.Barriers, bar)
		default:
			r.Skip()
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	w.protection = p
	return nil
}

func (w *World) policySaveables() []Saveable {
	return []Saveable{
		{
			Key:   "policies",
			Stage: SaveStagePolicy,
			Save: func() ([]byte, error) {
				if w.policies.Active == 0 {
					return nil, nil
				}
				e := encoding.NewWriter()
				e.Uint(1, uint64(w.policies.Active))
				return e.Finish(), nil
			},
			Load: func(b []byte) error {
				var p economy.Policies
				r := encoding.NewReader(b)
				for r.Next() {
					switch r.Field() {
					case 1:
						p.Active = uint32(r.Uint())
					default:
						r.Skip()
					}
				}
				if err := r.Err(); err != nil {
					return err
				}
				w.policies = p
				return nil
			},
			Reset: func() { w.policies = economy.Policies{} },
		},
		{
			Key:   "tutorial",
			Stage: SaveStagePolicy,
			Save: func() ([]byte, error) {
				if w.tutorial == (Tutorial{}) {
					return nil, nil
				}
				e := encoding.NewWriter()
				e.Bool(1, w.tutorial.Active)
				e.Uint(2, uint64(w.tutorial.Step))
				return e.Finish(), nil
			},
			Load: func(b []byte) error {
				var t Tutorial
				r := encoding.NewReader(b)
				for r.Next() {
					switch r.Field() {
					case 1:
						t.Active = r.Bool()
					case 2:
						t.Step = uint8(r.Uint())
					default:
						r.Skip()
					}
				}
				if err := r.Err(); err != nil {
					return err
				}
				if t.Step > TutorialDone {
					return fmt.Errorf("tutorial: step %d", t.Step)
				}
				w.tutorial = t
				return nil
			},
			Reset: func() { w.tutorial = Tutorial{} },
		},
	}
}
