package world

import (
	"fmt"
	"sort"

	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/encoding"
	"cityforge.dev/internal/sim/energy"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
	"cityforge.dev/internal/sim/stats"
	"cityforge.dev/internal/sim/traffic"
	"cityforge.dev/internal/sim/weather"
)

// fieldVersion is written into every struct blob so a resource holding only
// zero values still differs from an omitted one.
const fieldVersion encoding.Field = 100

const blobVersion = 1

func record(fn func(e *encoding.Writer)) ([]byte, error) {
	e := encoding.NewWriter()
	e.Uint(fieldVersion, blobVersion)
	fn(e)
	return e.Finish(), nil
}

// decode runs fn for every field except the version marker.
func decode(b []byte, fn func(r *encoding.Reader)) error {
	r := encoding.NewReader(b)
	for r.Next() {
		if r.Field() == fieldVersion {
			if v := r.Uint(); v > blobVersion {
				return fmt.Errorf("blob version %d", v)
			}
			continue
		}
		fn(r)
	}
	return r.Err()
}

func want[T any](vs []T, n int, what string) ([]T, error) {
	if len(vs) != n {
		return nil, fmt.Errorf("%s: %d values, want %d", what, len(vs), n)
	}
	return vs, nil
}

func (w *World) economySaveables() []Saveable {
	return []Saveable{
		{Key: "clock", Stage: SaveStageEconomy, Save: w.saveClock, Load: w.loadClock, Reset: w.resetClock},
		{Key: "city", Stage: SaveStageEconomy, Save: w.saveCity, Load: w.loadCity, Reset: func() { w.city = CityInfo{} }},
		{
			Key:   "rng",
			Stage: SaveStageEconomy,
			Save:  w.rng.MarshalBinary,
			Load:  w.rng.UnmarshalBinary,
			Reset: func() { w.rng.Reseed(w.cfg.Seed) },
		},
		{Key: "budget", Stage: SaveStageEconomy, Save: w.saveBudget, Load: w.loadBudget, Reset: w.resetBudget},
		{Key: "budget_extended", Stage: SaveStageEconomy, Save: w.saveExtended, Load: w.loadExtended, Reset: func() { w.ext = economy.NewExtendedBudget() }},
		{Key: "loans", Stage: SaveStageEconomy, Save: w.saveLoans, Load: w.loadLoans, Reset: func() { w.loans = economy.NewLoanBook() }},
		{
			Key:   "bankruptcy",
			Stage: SaveStageEconomy,
			Save: func() ([]byte, error) {
				return record(func(e *encoding.Writer) { e.Uint(1, uint64(w.bankruptcy.Level)) })
			},
			Load: func(b []byte) error {
				w.bankruptcy = economy.BankruptcyState{}
				return decode(b, func(r *encoding.Reader) {
					switch r.Field() {
					case 1:
						w.bankruptcy.Level = economy.BankruptcyLevel(r.Uint())
					default:
						r.Skip()
					}
				})
			},
			Reset: func() { w.bankruptcy = economy.BankruptcyState{} },
		},
		{Key: "city_stats", Stage: SaveStageEconomy, Save: w.saveStats, Load: w.loadStats, Reset: func() { w.stats = stats.CityStats{} }},
		{Key: "stats_history", Stage: SaveStageEconomy, Save: w.saveHistory, Load: w.loadHistory, Reset: w.series.Reset},
		{
			Key:   "milestones",
			Stage: SaveStageEconomy,
			Save: func() ([]byte, error) {
				return record(func(e *encoding.Writer) {
					e.Uint(1, uint64(w.progress.Current))
					e.Int(2, int64(w.progress.ReachedAt))
				})
			},
			Load: func(b []byte) error {
				w.progress.Reset()
				return decode(b, func(r *encoding.Reader) {
					switch r.Field() {
					case 1:
						w.progress.Current = stats.Tier(r.Uint())
					case 2:
						w.progress.ReachedAt = int(r.Int())
					default:
						r.Skip()
					}
				})
			},
			Reset: w.progress.Reset,
		},
		{Key: "achievements", Stage: SaveStageEconomy, Save: w.saveAchievements, Load: w.loadAchievements, Reset: w.tracker.Reset},
		{Key: "notifications", Stage: SaveStageEconomy, Save: w.saveNotifications, Load: w.loadNotifications, Reset: w.notes.Reset},
		{Key: "attractiveness", Stage: SaveStageEconomy, Save: w.saveAttract, Load: w.loadAttract, Reset: func() { w.attract = Attractiveness{} }},
		{Key: "energy_grid", Stage: SaveStageEconomy, Save: w.savePower, Load: w.loadPower, Reset: w.resetPower},
		{Key: "freight", Stage: SaveStageEconomy, Save: w.saveFreight, Load: w.loadFreight, Reset: w.freight.Reset},
		{Key: "transit", Stage: SaveStageEconomy, Save: w.saveTransit, Load: w.loadTransit, Reset: w.transit.Reset},
	}
}

func (w *World) resetClock() {
	w.clock = DefaultClock()
	w.clock.Paused = false
	w.tick.Store(0)
}

func (w *World) saveClock() ([]byte, error) {
	return record(func(e *encoding.Writer) {
		e.Uint(1, uint64(w.clock.Day))
		e.Uint(2, uint64(w.clock.Minute))
		e.Uint(3, uint64(w.clock.Speed))
		e.Bool(4, w.clock.Paused)
		e.Uint(5, w.tick.Load())
	})
}

func (w *World) loadClock(b []byte) error {
	var c GameClock
	var tick uint64
	err := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			c.Day = uint32(r.Uint())
		case 2:
			c.Minute = uint32(r.Uint())
		case 3:
			c.Speed = uint8(r.Uint())
		case 4:
			c.Paused = r.Bool()
		case 5:
			tick = r.Uint()
		default:
			r.Skip()
		}
	})
	if err != nil {
		return err
	}
	if c.Day == 0 || c.Minute >= MinutesPerDay || !ValidSpeed(c.Speed) {
		return fmt.Errorf("clock: bad value %s speed %d", c, c.Speed)
	}
	w.clock = c
	w.tick.Store(tick)
	return nil
}

func (w *World) saveCity() ([]byte, error) {
	c := w.city
	return record(func(e *encoding.Writer) {
		e.String(1, c.Name)
		e.Uint(2, c.Seed)
		e.Uint(3, uint64(c.NextBuildingID))
		e.Uint(4, uint64(c.NextCitizenID))
		e.Uint(5, uint64(c.NextVehicleID))
		e.Float64(6, c.PlaySeconds)
		e.Float64(7, c.FloodLosses)
		e.Float64(8, c.PlowCost)
	})
}

func (w *World) loadCity(b []byte) error {
	var c CityInfo
	err := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			c.Name = r.String()
		case 2:
			c.Seed = r.Uint()
		case 3:
			c.NextBuildingID = uint32(r.Uint())
		case 4:
			c.NextCitizenID = uint32(r.Uint())
		case 5:
			c.NextVehicleID = uint32(r.Uint())
		case 6:
			c.PlaySeconds = r.Float64()
		case 7:
			c.FloodLosses = r.Float64()
		case 8:
			c.PlowCost = r.Float64()
		default:
			r.Skip()
		}
	})
	if err != nil {
		return err
	}
	w.city = c
	return nil
}

func (w *World) resetBudget() {
	w.budget = economy.NewBudget(w.tun.StartingTreasury)
}

func ratesVector(r economy.ZoneTaxRates) []float32 {
	return []float32{r.Residential, r.Commercial, r.Industrial, r.Office}
}

func (w *World) saveBudget() ([]byte, error) {
	b := w.budget
	return record(func(e *encoding.Writer) {
		e.Float64s(1, []float64{b.Treasury, b.MonthlyIncome, b.MonthlyExpenses})
		e.Float32(2, b.TaxRate)
		e.Uint(3, uint64(b.LastCollectionDay))
		e.Float32s(4, ratesVector(b.Rates))
	})
}

func (w *World) loadBudget(b []byte) error {
	var out economy.CityBudget
	var err error
	derr := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			var vs []float64
			if vs, err = want(r.Float64s(), 3, "budget totals"); err == nil {
				out.Treasury, out.MonthlyIncome, out.MonthlyExpenses = vs[0], vs[1], vs[2]
			}
		case 2:
			out.TaxRate = r.Float32()
		case 3:
			out.LastCollectionDay = uint32(r.Uint())
		case 4:
			var vs []float32
			if vs, err = want(r.Float32s(), 4, "tax rates"); err == nil {
				out.Rates = economy.ZoneTaxRates{Residential: vs[0], Commercial: vs[1], Industrial: vs[2], Office: vs[3]}
			}
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
	if !out.Rates.Valid() {
		return fmt.Errorf("budget: tax rates out of range")
	}
	w.budget = out
	return nil
}

func (w *World) saveExtended() ([]byte, error) {
	x := w.ext
	in, ex, sv := x.Income, x.Expenses, x.Services
	return record(func(e *encoding.Writer) {
		e.Float64s(1, []float64{in.ResidentialTax, in.CommercialTax, in.IndustrialTax, in.OfficeTax, in.Trade, in.TransitFares})
		e.Float64s(2, []float64{ex.RoadMaintenance, ex.ServiceCosts, ex.UtilityMaintenance, ex.PolicyCosts, ex.LoanPayments, ex.FuelCosts, ex.Imports})
		e.Float32s(3, []float32{sv.Fire, sv.Police, sv.Health, sv.Education, sv.Parks, sv.Sanitation, sv.Transport})
		e.Float64(4, x.LastDelta)
	})
}

func (w *World) loadExtended(b []byte) error {
	var x economy.ExtendedBudget
	var err error
	derr := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			var v []float64
			if v, err = want(r.Float64s(), 6, "income"); err == nil {
				x.Income = economy.IncomeBreakdown{
					ResidentialTax: v[0], CommercialTax: v[1], IndustrialTax: v[2],
					OfficeTax: v[3], Trade: v[4], TransitFares: v[5],
				}
			}
		case 2:
			var v []float64
			if v, err = want(r.Float64s(), 7, "expenses"); err == nil {
				x.Expenses = economy.ExpenseBreakdown{
					RoadMaintenance: v[0], ServiceCosts: v[1], UtilityMaintenance: v[2],
					PolicyCosts: v[3], LoanPayments: v[4], FuelCosts: v[5], Imports: v[6],
				}
			}
		case 3:
			var v []float32
			if v, err = want(r.Float32s(), 7, "service sliders"); err == nil {
				x.Services = economy.ServiceBudget{
					Fire: v[0], Police: v[1], Health: v[2], Education: v[3],
					Parks: v[4], Sanitation: v[5], Transport: v[6],
				}
			}
		case 4:
			x.LastDelta = r.Float64()
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
	w.ext = x
	return nil
}

func (w *World) saveLoans() ([]byte, error) {
	lb := w.loans
	return record(func(e *encoding.Writer) {
		for _, l := range lb.Loans {
			e.Message(1, func(m *encoding.Writer) {
				m.Uint(1, uint64(l.ID))
				m.Float64s(2, []float64{l.Principal, l.Rate, l.RemainingBalance, l.MonthlyPayment})
				m.Uint(3, uint64(l.TermMonths))
				m.Uint(4, uint64(l.MonthsRemaining))
			})
		}
		e.Uint(2, uint64(lb.NextID))
		e.Uint(3, uint64(lb.MissedPayments))
		e.Float64(4, lb.TotalRepaid)
	})
}

func (w *World) loadLoans(b []byte) error {
	var lb economy.LoanBook
	var err error
	derr := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			var l economy.Loan
			r.Message(func(m *encoding.Reader) {
				for m.Next() {
					switch m.Field() {
					case 1:
						l.ID = uint32(m.Uint())
					case 2:
						var v []float64
						if v, err = want(m.Float64s(), 4, "loan"); err == nil {
							l.Principal, l.Rate, l.RemainingBalance, l.MonthlyPayment = v[0], v[1], v[2], v[3]
						}
					case 3:
						l.TermMonths = uint32(m.Uint())
					case 4:
						l.MonthsRemaining = uint32(m.Uint())
					default:
						m.Skip()
					}
				}
			})
			lb.Loans = append(lb.Loans, l)
		case 2:
			lb.NextID = uint32(r.Uint())
		case 3:
			lb.MissedPayments = uint32(r.Uint())
		case 4:
			lb.TotalRepaid = r.Float64()
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
	if len(lb.Loans) > economy.MaxActiveLoans {
		return fmt.Errorf("loans: %d active", len(lb.Loans))
	}
	w.loans = lb
	return nil
}

func (w *World) saveStats() ([]byte, error) {
	s := w.stats
	ints := []int{
		s.Population, s.Employed, s.Unemployed, s.Homeless, s.Children, s.Seniors,
		s.Buildings, s.HousingCapacity, s.JobCapacity, s.Jobs, s.Abandoned, s.RoadCells,
	}
	ints = append(ints, s.BuildingsByZone[:]...)
	ints = append(ints, s.RoadsByType[:]...)
	us := make([]uint64, len(ints))
	for i, v := range ints {
		us[i] = uint64(v)
	}
	return record(func(e *encoding.Writer) {
		e.Uints(1, us)
		e.Float32s(2, []float32{
			s.AvgHappiness, s.HappinessStdDev, s.AvgHealth, s.AvgSalary,
			s.PowerCoverage, s.WaterCoverage, s.AvgPollution, s.AvgCrime, s.AvgLandValue, s.Congestion,
		})
	})
}

func (w *World) loadStats(b []byte) error {
	var s stats.CityStats
	nz, nr := len(s.BuildingsByZone), len(s.RoadsByType)
	var err error
	derr := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			var us []uint64
			if us, err = want(r.Uints(), 12+nz+nr, "stats counts"); err != nil {
				return
			}
			v := make([]int, len(us))
			for i, u := range us {
				v[i] = int(u)
			}
			s.Population, s.Employed, s.Unemployed, s.Homeless, s.Children, s.Seniors = v[0], v[1], v[2], v[3], v[4], v[5]
			s.Buildings, s.HousingCapacity, s.JobCapacity, s.Jobs, s.Abandoned, s.RoadCells = v[6], v[7], v[8], v[9], v[10], v[11]
			copy(s.BuildingsByZone[:], v[12:12+nz])
			copy(s.RoadsByType[:], v[12+nz:])
		case 2:
			var f []float32
			if f, err = want(r.Float32s(), 10, "stats means"); err != nil {
				return
			}
			s.AvgHappiness, s.HappinessStdDev, s.AvgHealth, s.AvgSalary = f[0], f[1], f[2], f[3]
			s.PowerCoverage, s.WaterCoverage, s.AvgPollution, s.AvgCrime, s.AvgLandValue, s.Congestion = f[4], f[5], f[6], f[7], f[8], f[9]
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
	w.stats = s
	return nil
}

func (w *World) saveHistory() ([]byte, error) {
	h := &w.series
	if h.Population.Len() == 0 && h.Treasury.Len() == 0 && h.Happiness.Len() == 0 {
		return nil, nil
	}
	e := encoding.NewWriter()
	e.Float64s(1, h.Population.Values())
	e.Float64s(2, h.Treasury.Values())
	e.Float64s(3, h.Happiness.Values())
	return e.Finish(), nil
}

func (w *World) loadHistory(b []byte) error {
	var h stats.History
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			h.Population.Load(r.Float64s())
		case 2:
			h.Treasury.Load(r.Float64s())
		case 3:
			h.Happiness.Load(r.Float64s())
		default:
			r.Skip()
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	w.series = h
	return nil
}

func (w *World) saveAchievements() ([]byte, error) {
	t := w.tracker
	ids := make([]int, 0, len(t.Unlocked))
	for a := range t.Unlocked {
		ids = append(ids, int(a))
	}
	sort.Ints(ids)
	return record(func(e *encoding.Writer) {
		for _, id := range ids {
			e.Message(1, func(m *encoding.Writer) {
				m.Uint(1, uint64(id))
				m.Uint(2, t.Unlocked[stats.Achievement(id)])
			})
		}
		e.Uint(2, uint64(t.PositiveTradeRun))
		e.Bool(3, t.HadActiveDisaster)
		e.Int(4, int64(t.Points))
	})
}

func (w *World) loadAchievements(b []byte) error {
	t := stats.NewTracker()
	err := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			var id, tick uint64
			r.Message(func(m *encoding.Reader) {
				for m.Next() {
					switch m.Field() {
					case 1:
						id = m.Uint()
					case 2:
						tick = m.Uint()
					default:
						m.Skip()
					}
				}
			})
			t.Unlocked[stats.Achievement(id)] = tick
		case 2:
			t.PositiveTradeRun = uint32(r.Uint())
		case 3:
			t.HadActiveDisaster = r.Bool()
		case 4:
			t.Points = int(r.Int())
		default:
			r.Skip()
		}
	})
	if err != nil {
		return err
	}
	*w.tracker = *t
	return nil
}

func writeNotification(m *encoding.Writer, n stats.Notification) {
	m.Uint(1, n.ID)
	m.String(2, n.Text)
	m.Uint(3, uint64(n.Priority))
	if n.Location != nil {
		m.Message(4, func(l *encoding.Writer) {
			l.Int(1, int64(n.Location.X))
			l.Int(2, int64(n.Location.Y))
		})
	}
	m.Uint(5, uint64(n.Day))
	m.Float32(6, n.Hour)
	m.Uint(7, n.Tick)
}

func readNotification(r *encoding.Reader) stats.Notification {
	var n stats.Notification
	r.Message(func(m *encoding.Reader) {
		for m.Next() {
			switch m.Field() {
			case 1:
				n.ID = m.Uint()
			case 2:
				n.Text = m.String()
			case 3:
				n.Priority = stats.Priority(m.Uint())
			case 4:
				loc := &stats.Location{}
				m.Message(func(l *encoding.Reader) {
					for l.Next() {
						switch l.Field() {
						case 1:
							loc.X = int(l.Int())
						case 2:
							loc.Y = int(l.Int())
						default:
							l.Skip()
						}
					}
				})
				n.Location = loc
			case 5:
				n.Day = uint32(m.Uint())
			case 6:
				n.Hour = m.Float32()
			case 7:
				n.Tick = m.Uint()
			default:
				m.Skip()
			}
		}
	})
	return n
}

func (w *World) saveNotifications() ([]byte, error) {
	ns := &w.notes
	if len(ns.Active) == 0 && len(ns.Journal) == 0 && ns.NextID == 0 {
		return nil, nil
	}
	e := encoding.NewWriter()
	for _, n := range ns.Active {
		e.Message(1, func(m *encoding.Writer) { writeNotification(m, n) })
	}
	for _, n := range ns.Journal {
		e.Message(2, func(m *encoding.Writer) { writeNotification(m, n) })
	}
	e.Uint(3, ns.NextID)
	return e.Finish(), nil
}

func (w *World) loadNotifications(b []byte) error {
	var ns stats.Notifications
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			ns.Active = append(ns.Active, readNotification(r))
		case 2:
			ns.Journal = append(ns.Journal, readNotification(r))
		case 3:
			ns.NextID = r.Uint()
		default:
			r.Skip()
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	w.notes = ns
	return nil
}

func (w *World) saveAttract() ([]byte, error) {
	a := w.attract
	if a == (Attractiveness{}) {
		return nil, nil
	}
	e := encoding.NewWriter()
	e.Float32s(1, []float32{a.Score, a.Employment, a.Happiness, a.Services, a.Housing, a.Tax})
	return e.Finish(), nil
}

func (w *World) loadAttract(b []byte) error {
	var a Attractiveness
	var err error
	r := encoding.NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			var v []float32
			if v, err = want(r.Float32s(), 6, "attractiveness"); err == nil {
				a = Attractiveness{Score: v[0], Employment: v[1], Happiness: v[2], Services: v[3], Housing: v[4], Tax: v[5]}
			}
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
	w.attract = a
	return nil
}

func (w *World) resetPower() { w.power = energy.Grid{PriceMultiplier: 1} }

func (w *World) savePower() ([]byte, error) {
	p := w.power
	return record(func(e *encoding.Writer) {
		e.Float32s(1, []float32{p.TotalDemandMW, p.TotalSupplyMW, p.ServedMW, p.UnservedMW, p.ReserveMargin, p.PriceMultiplier})
		e.Bool(2, p.Blackout)
		e.Float64s(3, []float64{p.FuelCostAccrued, p.CO2Accrued, p.MWhAccrued})
	})
}

func (w *World) loadPower(b []byte) error {
	var p energy.Grid
	var err error
	derr := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			var v []float32
			if v, err = want(r.Float32s(), 6, "energy grid"); err == nil {
				p.TotalDemandMW, p.TotalSupplyMW, p.ServedMW = v[0], v[1], v[2]
				p.UnservedMW, p.ReserveMargin, p.PriceMultiplier = v[3], v[4], v[5]
			}
		case 2:
			p.Blackout = r.Bool()
		case 3:
			var v []float64
			if v, err = want(r.Float64s(), 3, "energy accruals"); err == nil {
				p.FuelCostAccrued, p.CO2Accrued, p.MWhAccrued = v[0], v[1], v[2]
			}
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
	w.power = p
	return nil
}

func (w *World) saveFreight() ([]byte, error) {
	f := w.freight
	return record(func(e *encoding.Writer) {
		e.Float32s(1, []float32{f.IndustrialDemand, f.CommercialDemand, f.Satisfaction})
		e.Uint(2, f.TripsGenerated)
		e.Uint(3, f.TripsCompleted)
		cells := f.BannedCells()
		us := make([]uint64, len(cells))
		for i, c := range cells {
			us[i] = uint64(c)
		}
		e.Uints(4, us)
	})
}

func (w *World) loadFreight(b []byte) error {
	f := traffic.NewFreight()
	var err error
	derr := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			var v []float32
			if v, err = want(r.Float32s(), 3, "freight"); err == nil {
				f.IndustrialDemand, f.CommercialDemand, f.Satisfaction = v[0], v[1], v[2]
			}
		case 2:
			f.TripsGenerated = r.Uint()
		case 3:
			f.TripsCompleted = r.Uint()
		case 4:
			for _, c := range r.Uints() {
				if int(c) >= grid.NumCells {
					err = fmt.Errorf("freight ban cell %d", c)
					return
				}
				f.Bans[int(c)] = true
			}
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
	*w.freight = *f
	return nil
}

func nodesToUints(ns []roads.RoadNode) []uint64 {
	out := make([]uint64, 0, 2*len(ns))
	for _, n := range ns {
		out = append(out, uint64(n.X), uint64(n.Y))
	}
	return out
}

func uintsToNodes(us []uint64) []roads.RoadNode {
	out := make([]roads.RoadNode, 0, len(us)/2)
	for i := 0; i+1 < len(us); i += 2 {
		out = append(out, roads.RoadNode{X: int(us[i]), Y: int(us[i+1])})
	}
	return out
}

func (w *World) saveTransit() ([]byte, error) {
	t := w.transit
	return record(func(e *encoding.Writer) {
		for _, rt := range t.Routes {
			e.Message(1, func(m *encoding.Writer) {
				m.Uint(1, uint64(rt.ID))
				m.Uint(2, uint64(rt.Kind))
				m.Uints(3, nodesToUints(rt.Stops))
				m.Uints(4, nodesToUints(rt.Path))
				m.Uint(5, rt.Riders)
			})
		}
		e.Uint(2, uint64(t.NextID))
		e.Float64(3, t.FareRevenue)
	})
}

func (w *World) loadTransit(b []byte) error {
	t := traffic.NewTransit()
	t.NextID = 0
	err := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			var rt traffic.Route
			r.Message(func(m *encoding.Reader) {
				for m.Next() {
					switch m.Field() {
					case 1:
						rt.ID = uint32(m.Uint())
					case 2:
						rt.Kind = traffic.VehicleKind(m.Uint())
					case 3:
						rt.Stops = uintsToNodes(m.Uints())
					case 4:
						rt.Path = uintsToNodes(m.Uints())
					case 5:
						rt.Riders = m.Uint()
					default:
						m.Skip()
					}
				}
			})
			t.Routes = append(t.Routes, rt)
		case 2:
			t.NextID = uint32(r.Uint())
		case 3:
			t.FareRevenue = r.Float64()
		default:
			r.Skip()
		}
	})
	if err != nil {
		return err
	}
	*w.transit = *t
	return nil
}

// saveWeather backs the weather key of the environment stage.
func saveWeather(wx weather.Weather) ([]byte, error) {
	return record(func(e *encoding.Writer) {
		e.Uint(1, uint64(wx.Condition))
		e.Float32s(2, []float32{wx.Temperature, wx.Precipitation, wx.WindDir, wx.WindSpeed})
		e.Bool(3, wx.Extreme)
		e.Uint(4, uint64(wx.LastDay))
	})
}

func loadWeather(b []byte) (weather.Weather, error) {
	var wx weather.Weather
	var err error
	derr := decode(b, func(r *encoding.Reader) {
		switch r.Field() {
		case 1:
			wx.Condition = weather.Condition(r.Uint())
		case 2:
			var v []float32
			if v, err = want(r.Float32s(), 4, "weather"); err == nil {
				wx.Temperature, wx.Precipitation, wx.WindDir, wx.WindSpeed = v[0], v[1], v[2], v[3]
			}
		case 3:
			wx.Extreme = r.Bool()
		case 4:
			wx.LastDay = uint32(r.Uint())
		default:
			r.Skip()
		}
	})
	if derr != nil {
		return wx, derr
	}
	return wx, err
}

// streak is the shared shape of ColdSnap and HeatWave.
type streak struct {
	days   *uint32
	active *bool
	last   *uint32
}

func streakSaveable(key string, s streak) Saveable {
	return Saveable{
		Key:   key,
		Stage: SaveStageDisaster,
		Save: func() ([]byte, error) {
			if *s.days == 0 && !*s.active && *s.last == 0 {
				return nil, nil
			}
			e := encoding.NewWriter()
			e.Uint(1, uint64(*s.days))
			e.Bool(2, *s.active)
			e.Uint(3, uint64(*s.last))
			return e.Finish(), nil
		},
		Load: func(b []byte) error {
			var days, last uint32
			var active bool
			r := encoding.NewReader(b)
			for r.Next() {
				switch r.Field() {
				case 1:
					days = uint32(r.Uint())
				case 2:
					active = r.Bool()
				case 3:
					last = uint32(r.Uint())
				default:
					r.Skip()
				}
			}
			if err := r.Err(); err != nil {
				return err
			}
			*s.days, *s.active, *s.last = days, active, last
			return nil
		},
		Reset: func() { *s.days, *s.active, *s.last = 0, false, 0 },
	}
}
