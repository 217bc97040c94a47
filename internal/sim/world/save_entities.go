package world

import (
	"fmt"

	"cityforge.dev/internal/sim/citizen"
	"cityforge.dev/internal/sim/encoding"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/traffic"
	"cityforge.dev/internal/sim/utilities"
	"cityforge.dev/internal/sim/zones"
)

// Entity blobs hold one nested record per entity in stable order. Entity
// handles are never written; references between entities use grid cells or
// persisted IDs.
func (w *World) entitySaveables() []Saveable {
	despawn := func() {}
	return []Saveable{
		{Key: "buildings", Stage: SaveStageEntity, Save: w.saveBuildings, Load: w.loadBuildings, Reset: despawn},
		{Key: "citizens", Stage: SaveStageEntity, Save: w.saveCitizens, Load: w.loadCitizens, Reset: despawn},
		{Key: "services", Stage: SaveStageEntity, Save: w.saveServices, Load: w.loadServices, Reset: despawn},
		{Key: "utilities", Stage: SaveStageEntity, Save: w.saveUtilities, Load: w.loadUtilities, Reset: despawn},
		{Key: "vehicles", Stage: SaveStageEntity, Save: w.saveVehicles, Load: w.loadVehicles, Reset: despawn},
	}
}

func (w *World) saveBuildings() ([]byte, error) {
	es := w.ecs.buildingEntities()
	if len(es) == 0 {
		return nil, nil
	}
	e := encoding.NewWriter()
	for _, ent := range es {
		b := w.ecs.buildings.Get(ent)
		e.Message(1, func(m *encoding.Writer) {
			m.Uint(1, uint64(b.ID))
			m.Uint(2, uint64(b.Zone))
			m.Uint(3, uint64(b.Level))
			m.Uint(4, uint64(b.GridX))
			m.Uint(5, uint64(b.GridY))
			m.Uint(6, uint64(b.Capacity))
			m.Uint(7, uint64(b.Occupants))
			m.Uint(8, uint64(b.AffordableUnits))
			m.Uint(9, uint64(b.UtilityLossStreak))
			m.Uint(10, uint64(b.EmptyStreak))
			if w.ecs.construction.Has(ent) {
				uc := w.ecs.construction.Get(ent)
				m.Message(11, func(c *encoding.Writer) {
					c.Uint(1, uint64(uc.TicksRemaining))
					c.Uint(2, uint64(uc.TotalTicks))
					c.Float32(3, uc.Carry)
				})
			}
			if w.ecs.onFire.Has(ent) {
				f := w.ecs.onFire.Get(ent)
				m.Message(12, func(c *encoding.Writer) {
					c.Float32(1, f.Intensity)
					c.Uint(2, uint64(f.TicksBurning))
				})
			}
			if w.ecs.abandoned.Has(ent) {
				a := w.ecs.abandoned.Get(ent)
				m.Message(13, func(c *encoding.Writer) { c.Uint(1, uint64(a.TicksAbandoned)) })
			}
		})
	}
	return e.Finish(), nil
}

type buildingBlob struct {
	b     zones.Building
	uc    *zones.UnderConstruction
	fire  *zones.OnFire
	aband *zones.Abandoned
}

func readBuilding(m *encoding.Reader) buildingBlob {
	var out buildingBlob
	b := &out.b
	for m.Next() {
		switch m.Field() {
		case 1:
			b.ID = uint32(m.Uint())
		case 2:
			b.Zone = grid.ZoneType(m.Uint())
		case 3:
			b.Level = uint8(m.Uint())
		case 4:
			b.GridX = int(m.Uint())
		case 5:
			b.GridY = int(m.Uint())
		case 6:
			b.Capacity = uint32(m.Uint())
		case 7:
			b.Occupants = uint32(m.Uint())
		case 8:
			b.AffordableUnits = uint32(m.Uint())
		case 9:
			b.UtilityLossStreak = uint16(m.Uint())
		case 10:
			b.EmptyStreak = uint16(m.Uint())
		case 11:
			uc := &zones.UnderConstruction{}
			m.Message(func(c *encoding.Reader) {
				for c.Next() {
					switch c.Field() {
					case 1:
						uc.TicksRemaining = uint32(c.Uint())
					case 2:
						uc.TotalTicks = uint32(c.Uint())
					case 3:
						uc.Carry = c.Float32()
					default:
						c.Skip()
					}
				}
			})
			out.uc = uc
		case 12:
			f := &zones.OnFire{}
			m.Message(func(c *encoding.Reader) {
				for c.Next() {
					switch c.Field() {
					case 1:
						f.Intensity = c.Float32()
					case 2:
						f.TicksBurning = uint32(c.Uint())
					default:
						c.Skip()
					}
				}
			})
			out.fire = f
		case 13:
			a := &zones.Abandoned{}
			m.Message(func(c *encoding.Reader) {
				for c.Next() {
					switch c.Field() {
					case 1:
						a.TicksAbandoned = uint32(c.Uint())
					default:
						c.Skip()
					}
				}
			})
			out.aband = a
		default:
			m.Skip()
		}
	}
	return out
}

func (w *World) loadBuildings(b []byte) error {
	var blobs []buildingBlob
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			r.Message(func(m *encoding.Reader) { blobs = append(blobs, readBuilding(m)) })
		default:
			r.Skip()
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	seen := map[int]bool{}
	for _, bb := range blobs {
		x, y := bb.b.GridX, bb.b.GridY
		if !w.grid.InBounds(x, y) || seen[grid.Index(x, y)] {
			return fmt.Errorf("buildings: bad cell (%d,%d)", x, y)
		}
		if bb.b.Level < 1 || bb.b.Level > zones.MaxLevel || bb.b.Occupants > bb.b.Capacity {
			return fmt.Errorf("buildings: bad record at (%d,%d)", x, y)
		}
		seen[grid.Index(x, y)] = true
	}
	for _, bb := range blobs {
		e := w.spawnBuilding(bb.b, bb.uc)
		if bb.fire != nil {
			w.ecs.onFire.Add(e, bb.fire)
		}
		if bb.aband != nil {
			w.ecs.abandoned.Add(e, bb.aband)
		}
	}
	return nil
}

func (w *World) saveCitizens() ([]byte, error) {
	es := w.ecs.citizenEntities()
	if len(es) == 0 {
		return nil, nil
	}
	s := w.ecs
	e := encoding.NewWriter()
	for _, ent := range es {
		e.Message(1, func(m *encoding.Writer) {
			m.Uint(1, uint64(s.citizens.Get(ent).ID))
			pos, vel := s.positions.Get(ent), s.velocities.Get(ent)
			m.Float32s(2, []float32{pos.X, pos.Y, vel.X, vel.Y})
			h := s.homes.Get(ent)
			m.Uints(3, []uint64{uint64(h.GridX), uint64(h.GridY)})
			if s.works.Has(ent) {
				wl := s.works.Get(ent)
				m.Uints(4, []uint64{uint64(wl.GridX), uint64(wl.GridY)})
			}
			m.Uint(5, uint64(*s.states.Get(ent)))
			n := s.needs.Get(ent)
			m.Float32s(6, []float32{n.Hunger, n.Energy, n.Social, n.Fun, n.Comfort})
			d := s.details.Get(ent)
			m.Uints(7, []uint64{uint64(d.Age), uint64(d.Gender), uint64(d.Education)})
			m.Float32s(8, []float32{d.Happiness, d.Health, d.Salary, d.Savings})
			p := s.personality.Get(ent)
			m.Float32s(9, []float32{p.Ambition, p.Sociability, p.Materialism, p.Resilience})
			f := s.family.Get(ent)
			m.Uints(10, []uint64{uint64(f.Partner), uint64(f.Parent), uint64(f.Children)})
			m.Uint(11, uint64(s.timers.Get(ent).Ticks))
			pc := s.paths.Get(ent)
			m.Uints(12, nodesToUints(pc.Waypoints))
			m.Uint(13, uint64(pc.Index))
			if s.homeless.Has(ent) {
				hl := s.homeless.Get(ent)
				m.Message(14, func(c *encoding.Writer) {
					c.Uint(1, uint64(hl.TicksHomeless))
					c.Bool(2, hl.Sheltered)
				})
			}
			m.Uint(15, uint64(s.modes.Get(ent).Mode))
		})
	}
	return e.Finish(), nil
}

func readCitizen(m *encoding.Reader) (citizenSeed, error) {
	var c citizenSeed
	var err error
	for m.Next() {
		switch m.Field() {
		case 1:
			c.ID = uint32(m.Uint())
		case 2:
			var v []float32
			if v, err = want(m.Float32s(), 4, "citizen motion"); err == nil {
				c.Pos = citizen.Position{X: v[0], Y: v[1]}
				c.Vel = citizen.Velocity{X: v[2], Y: v[3]}
			}
		case 3:
			var v []uint64
			if v, err = want(m.Uints(), 2, "citizen home"); err == nil {
				c.Home = citizen.HomeLocation{GridX: int(v[0]), GridY: int(v[1])}
			}
		case 4:
			var v []uint64
			if v, err = want(m.Uints(), 2, "citizen work"); err == nil {
				c.Work = &citizen.WorkLocation{GridX: int(v[0]), GridY: int(v[1])}
			}
		case 5:
			c.State = citizen.State(m.Uint())
		case 6:
			var v []float32
			if v, err = want(m.Float32s(), 5, "citizen needs"); err == nil {
				c.Needs = citizen.Needs{Hunger: v[0], Energy: v[1], Social: v[2], Fun: v[3], Comfort: v[4]}
			}
		case 7:
			var v []uint64
			if v, err = want(m.Uints(), 3, "citizen details"); err == nil {
				c.Details.Age, c.Details.Gender, c.Details.Education = uint8(v[0]), citizen.Gender(v[1]), uint8(v[2])
			}
		case 8:
			var v []float32
			if v, err = want(m.Float32s(), 4, "citizen wellbeing"); err == nil {
				c.Details.Happiness, c.Details.Health, c.Details.Salary, c.Details.Savings = v[0], v[1], v[2], v[3]
			}
		case 9:
			var v []float32
			if v, err = want(m.Float32s(), 4, "citizen personality"); err == nil {
				c.Personality = citizen.Personality{Ambition: v[0], Sociability: v[1], Materialism: v[2], Resilience: v[3]}
			}
		case 10:
			var v []uint64
			if v, err = want(m.Uints(), 3, "citizen family"); err == nil {
				c.Family = citizen.Family{Partner: uint32(v[0]), Parent: uint32(v[1]), Children: uint8(v[2])}
			}
		case 11:
			c.Timer.Ticks = uint32(m.Uint())
		case 12:
			c.Path.Waypoints = uintsToNodes(m.Uints())
		case 13:
			c.Path.Index = int(m.Uint())
		case 14:
			h := &citizen.Homeless{}
			m.Message(func(r *encoding.Reader) {
				for r.Next() {
					switch r.Field() {
					case 1:
						h.TicksHomeless = uint32(r.Uint())
					case 2:
						h.Sheltered = r.Bool()
					default:
						r.Skip()
					}
				}
			})
			c.Homeless = h
		case 15:
			c.Mode.Mode = citizen.Mode(m.Uint())
		default:
			m.Skip()
		}
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

func (w *World) loadCitizens(b []byte) error {
	var seeds []citizenSeed
	var err error
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			r.Message(func(m *encoding.Reader) {
				s, e := readCitizen(m)
				if e != nil && err == nil {
					err = e
				}
				seeds = append(seeds, s)
			})
		default:
			r.Skip()
		}
	}
	if r.Err() != nil {
		return r.Err()
	}
	if err != nil {
		return err
	}
	ids := map[uint32]bool{}
	for _, s := range seeds {
		if s.ID == 0 || ids[s.ID] || !s.State.Valid() || s.Path.Index > len(s.Path.Waypoints) {
			return fmt.Errorf("citizens: bad record id %d", s.ID)
		}
		ids[s.ID] = true
	}
	for _, s := range seeds {
		w.spawnCitizen(s)
	}
	return nil
}

func (w *World) saveServices() ([]byte, error) {
	sites := w.ecs.serviceSites()
	if len(sites) == 0 {
		return nil, nil
	}
	e := encoding.NewWriter()
	for _, s := range sites {
		e.Message(1, func(m *encoding.Writer) {
			m.Uint(1, uint64(s.Type))
			m.Uint(2, uint64(s.X))
			m.Uint(3, uint64(s.Y))
			m.Float32(4, s.Radius)
			m.Uint(5, uint64(s.Capacity))
		})
	}
	return e.Finish(), nil
}

func (w *World) loadServices(b []byte) error {
	var sites []services.Site
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			var s services.Site
			r.Message(func(m *encoding.Reader) {
				for m.Next() {
					switch m.Field() {
					case 1:
						s.Type = services.Type(m.Uint())
					case 2:
						s.X = int(m.Uint())
					case 3:
						s.Y = int(m.Uint())
					case 4:
						s.Radius = m.Float32()
					case 5:
						s.Capacity = uint32(m.Uint())
					default:
						m.Skip()
					}
				}
			})
			sites = append(sites, s)
		default:
			r.Skip()
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	for _, s := range sites {
		if !s.Type.Valid() || !w.grid.InBounds(s.X, s.Y) {
			return fmt.Errorf("services: bad record %v at (%d,%d)", s.Type, s.X, s.Y)
		}
	}
	for _, s := range sites {
		w.ecs.services.NewEntity(&s)
	}
	return nil
}

func (w *World) saveUtilities() ([]byte, error) {
	es := w.ecs.utilityEntities()
	if len(es) == 0 {
		return nil, nil
	}
	e := encoding.NewWriter()
	for _, ent := range es {
		u := w.ecs.utilities.Get(ent)
		e.Message(1, func(m *encoding.Writer) {
			m.Uint(1, uint64(u.Type))
			m.Uint(2, uint64(u.X))
			m.Uint(3, uint64(u.Y))
			m.Uint(4, uint64(u.Range))
			m.Bool(5, u.Outage)
			if w.ecs.batteries.Has(ent) {
				m.Float32(6, w.ecs.batteries.Get(ent).StoredMWh)
			}
		})
	}
	return e.Finish(), nil
}

func (w *World) loadUtilities(b []byte) error {
	type rec struct {
		u      utilities.Source
		stored float32
	}
	var recs []rec
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			var x rec
			r.Message(func(m *encoding.Reader) {
				for m.Next() {
					switch m.Field() {
					case 1:
						x.u.Type = utilities.Type(m.Uint())
					case 2:
						x.u.X = int(m.Uint())
					case 3:
						x.u.Y = int(m.Uint())
					case 4:
						x.u.Range = int(m.Uint())
					case 5:
						x.u.Outage = m.Bool()
					case 6:
						x.stored = m.Float32()
					default:
						m.Skip()
					}
				}
			})
			recs = append(recs, x)
		default:
			r.Skip()
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	for _, x := range recs {
		if !x.u.Type.Valid() || !w.grid.InBounds(x.u.X, x.u.Y) {
			return fmt.Errorf("utilities: bad record %v at (%d,%d)", x.u.Type, x.u.X, x.u.Y)
		}
	}
	for _, x := range recs {
		w.spawnUtility(x.u, x.stored)
	}
	return nil
}

func (w *World) saveVehicles() ([]byte, error) {
	es := w.ecs.vehicleEntities()
	if len(es) == 0 {
		return nil, nil
	}
	e := encoding.NewWriter()
	for _, ent := range es {
		v := w.ecs.vehicles.Get(ent)
		id := w.ecs.vehicleTags.Get(ent).ID
		e.Message(1, func(m *encoding.Writer) {
			m.Uint(1, uint64(id))
			m.Uint(2, uint64(v.Kind))
			m.Uints(3, nodesToUints(v.Route))
			m.Uint(4, uint64(v.Index))
			m.Uint(5, uint64(v.Capacity))
			m.Uint(6, uint64(v.Passengers))
			m.Uint(7, uint64(v.RouteID))
		})
	}
	return e.Finish(), nil
}

func (w *World) loadVehicles(b []byte) error {
	type rec struct {
		id uint32
		v  traffic.Vehicle
	}
	var recs []rec
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			var x rec
			r.Message(func(m *encoding.Reader) {
				for m.Next() {
					switch m.Field() {
					case 1:
						x.id = uint32(m.Uint())
					case 2:
						x.v.Kind = traffic.VehicleKind(m.Uint())
					case 3:
						x.v.Route = uintsToNodes(m.Uints())
					case 4:
						x.v.Index = int(m.Uint())
					case 5:
						x.v.Capacity = uint32(m.Uint())
					case 6:
						x.v.Passengers = uint32(m.Uint())
					case 7:
						x.v.RouteID = uint32(m.Uint())
					default:
						m.Skip()
					}
				}
			})
			recs = append(recs, x)
		default:
			r.Skip()
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	for _, x := range recs {
		if x.id == 0 || !x.v.Kind.Valid() || x.v.Passengers > x.v.Capacity {
			return fmt.Errorf("vehicles: bad record %d", x.id)
		}
	}
	for _, x := range recs {
		w.spawnVehicle(x.v, x.id)
	}
	return nil
}
