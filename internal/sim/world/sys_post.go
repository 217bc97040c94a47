package world

import (
	"fmt"

	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/stats"
)

// collectStats recounts the city from the entity store and the grids.
func (w *World) collectStats() stats.CityStats {
	var s stats.CityStats
	var samples []stats.Sample
	q := w.ecs.citizenFilter.Query()
	for q.Next() {
		e := q.Entity()
		d := w.ecs.details.Get(e)
		s.Population++
		switch stage := d.Stage(); {
		case w.ecs.works.Has(e):
			s.Employed++
		case stage.CanWork():
			s.Unemployed++
		}
		if d.Age < 18 {
			s.Children++
		} else if d.Age >= 65 {
			s.Seniors++
		}
		if w.ecs.homeless.Has(e) {
			s.Homeless++
		}
		samples = append(samples, stats.Sample{Happiness: float64(d.Happiness), Health: float64(d.Health), Salary: float64(d.Salary)})
	}
	s.Summarize(samples)

	for _, e := range w.ecs.buildingEntities() {
		b := w.ecs.buildings.Get(e)
		s.Buildings++
		s.BuildingsByZone[b.Zone]++
		if w.ecs.abandoned.Has(e) {
			s.Abandoned++
		}
		if !w.ecs.operational(e) {
			continue
		}
		if b.Zone.IsResidential() {
			s.HousingCapacity += int(b.Capacity)
		}
		if b.Zone.IsJobZone() {
			s.JobCapacity += int(b.Capacity)
			s.Jobs += int(b.Occupants)
		}
	}

	builtAt := func(i int) bool { return w.grid.Cells[i].HasBuilding() }
	for i := range w.grid.Cells {
		if c := &w.grid.Cells[i]; c.Type == grid.Road {
			s.RoadCells++
			s.RoadsByType[c.Road]++
		}
	}
	built := func(c *grid.Cell) bool { return c.HasBuilding() }
	s.PowerCoverage = stats.CoverageShare(w.grid, built, func(c *grid.Cell) bool { return c.HasPower })
	s.WaterCoverage = stats.CoverageShare(w.grid, built, func(c *grid.Cell) bool { return c.HasWater })
	s.AvgPollution = stats.MeanU8(w.pollution.Cells, nil)
	s.AvgCrime = stats.MeanU8(w.crime.Cells, builtAt)
	s.AvgLandValue = stats.MeanU8(w.landValue.Cells, builtAt)
	s.Congestion = w.density.Summarize(w.grid).MeanRatio
	return s
}

// sysCityStats refreshes the aggregates and the charted history on the
// slow tick.
func (w *World) sysCityStats() {
	if !w.slowTick() {
		return
	}
	w.stats = w.collectStats()
	w.series.Record(&w.stats, w.budget.Treasury)
}

func (w *World) sysMilestones() {
	if !w.slowTick() {
		return
	}
	for _, t := range w.progress.Check(w.stats.Population) {
		w.notify(t.Message(), stats.Positive, nil)
		w.log.Printf("[world] milestone %s pop=%d", t, w.stats.Population)
	}
}

// sysAchievements unlocks achievements and pays their treasury bonus.
func (w *World) sysAchievements() {
	if !w.slowTick() {
		return
	}
	unlocked := w.tracker.Check(w.now, stats.AchievementInputs{
		Stats:          &w.stats,
		Treasury:       w.budget.Treasury,
		TradeBalance:   w.tradeBalance(),
		DisasterActive: w.disasters.Current != nil,
		SlowInterval:   int(w.slow.Interval),
	})
	for _, a := range unlocked {
		w.budget.Treasury += a.Bonus()
		w.events.emit(AchievementNotification{Achievement: a, Bonus: a.Bonus()})
		w.notify(fmt.Sprintf("Achievement unlocked: %s (%s)", a, a.Reward()), stats.Positive, nil)
	}
}

// tutorialGrowPopulation ends the tutorial.
const tutorialGrowPopulation = 50

var tutorialHints = [...]string{
	TutorialPlaceRoad:     "Place a road to get started",
	TutorialZone:          "Zone some land next to your road",
	TutorialPower:         "Build a power plant and a water tower",
	TutorialFirstBuilding: "Wait for the first building to go up",
	TutorialGrow:          "Grow your city to 50 residents",
	TutorialDone:          "Tutorial complete. Good luck, mayor!",
}

// tutorialStepDone reports whether the current step's goal is met.
func (w *World) tutorialStepDone(step uint8) bool {
	switch step {
	case TutorialPlaceRoad:
		return w.network.Len() > 0
	case TutorialZone:
		for i := range w.grid.Cells {
			if w.grid.Cells[i].Zone != grid.ZoneNone {
				return true
			}
		}
		return false
	case TutorialPower:
		var power, water bool
		for _, u := range w.ecs.utilitySources() {
			power = power || u.Type.IsPower()
			water = water || u.Type.IsWater()
		}
		return power && water
	case TutorialFirstBuilding:
		for _, e := range w.ecs.buildingEntities() {
			if w.ecs.operational(e) {
				return true
			}
		}
		return false
	case TutorialGrow:
		return len(w.ecs.citizenEntities()) >= tutorialGrowPopulation
	}
	return false
}

// sysTutorial advances the onboarding one step at a time.
func (w *World) sysTutorial() {
	t := &w.tutorial
	if !t.Active || t.Step >= TutorialDone {
		return
	}
	if !w.tutorialStepDone(t.Step) {
		return
	}
	t.Step++
	w.notify(tutorialHints[t.Step], stats.Info, nil)
	if t.Step == TutorialDone {
		t.Active = false
	}
}

func (w *World) sysNotificationsSweep() { w.notes.Sweep(w.now) }

func (w *World) sysObservation() {
	w.obs = stats.Observe(&w.stats, stats.ObservationInputs{
		Tick:         w.now,
		Day:          w.clock.Day,
		Hour:         w.clock.Hour(),
		Treasury:     w.budget.Treasury,
		TradeBalance: w.ext.Income.Trade - w.ext.Expenses.Imports,
		Demand:       w.demand,
		Progress:     w.progress,
		PowerDemand:  w.power.TotalDemandMW,
		PowerSupply:  w.power.TotalSupplyMW,
	})
}
