package world

import (
	"sort"

	"github.com/mlange-42/ark/ecs"

	"cityforge.dev/internal/sim/citizen"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/stats"
)

const (
	attractivenessInterval = 50
	immigrationInterval    = 100
	// emigrationScore is the attractiveness below which residents leave.
	emigrationScore = 30
	// targetVacancy is the residential vacancy that scores full housing.
	targetVacancy = 0.1
	// maxAttractiveTax is the mean tax rate that scores zero.
	maxAttractiveTax = 0.2
)

// homeServiceBits are the categories residents weigh when moving in.
var homeServiceBits = [...]uint8{services.BitHealth, services.BitEducation, services.BitPolice, services.BitFire, services.BitPark}

func clampScore(v float32) float32 { return min(max(v, 0), 100) }

// sysAttractiveness scores the city on employment, happiness, services,
// housing and tax every 50 ticks.
func (w *World) sysAttractiveness() {
	if !w.every(attractivenessInterval) {
		return
	}
	a := &w.attract
	a.Employment = clampScore((1 - w.stats.UnemploymentRate()) * 100)
	a.Happiness = 50
	if w.stats.Population > 0 {
		a.Happiness = clampScore(w.stats.AvgHappiness)
	}

	var covered, homes, capacity, occupied float32
	for _, e := range w.ecs.buildingEntities() {
		b := w.ecs.buildings.Get(e)
		if !b.Zone.IsResidential() || !w.ecs.operational(e) {
			continue
		}
		flags := w.coverage.Get(b.GridX, b.GridY)
		for _, bit := range homeServiceBits {
			if flags&bit != 0 {
				covered++
			}
		}
		homes++
		capacity += float32(b.Capacity)
		occupied += float32(b.Occupants)
	}
	a.Services, a.Housing = 0, 0
	if homes > 0 {
		a.Services = clampScore(covered / (homes * float32(len(homeServiceBits))) * 100)
	}
	if capacity > 0 {
		a.Housing = clampScore((capacity - occupied) / capacity / targetVacancy * 100)
	}
	a.Tax = clampScore((1 - w.budget.TaxRate/maxAttractiveTax) * 100)
	a.Score = clampScore(0.25*a.Employment + 0.25*a.Happiness + 0.20*a.Services + 0.15*a.Housing + 0.15*a.Tax)
}

// sysImmigration moves a wave of newcomers into free housing every 100
// ticks, sized by attractiveness. An unattractive city loses its unhappiest
// residents instead.
func (w *World) sysImmigration() {
	if !w.every(immigrationInterval) {
		return
	}
	if w.attract.Score < emigrationScore {
		w.emigrate()
		return
	}
	var homes []ecs.Entity
	free := 0
	for _, e := range w.ecs.buildingEntities() {
		b := w.ecs.buildings.Get(e)
		if b.Zone.IsResidential() && w.ecs.operational(e) && b.Occupants < b.Capacity {
			homes = append(homes, e)
			free += int(b.Capacity - b.Occupants)
		}
	}
	waveMax := w.tun.Citizens.ImmigrationWaveMax
	wave := min(free, int(float32(waveMax)*w.attract.Score/100+0.5))
	for i := 0; i < wave; i++ {
		home, ok := w.freeHome(homes)
		if !ok {
			break
		}
		b := w.ecs.buildings.Get(home)
		b.Occupants++
		w.spawnCitizen(w.newcomer(b.GridX, b.GridY))
	}
	if wave > 0 {
		w.log.Printf("[world] immigration day=%d arrived=%d score=%.1f", w.clock.Day, wave, w.attract.Score)
	}
}

// newcomer rolls an adult immigrant living at (x,y).
func (w *World) newcomer(x, y int) citizenSeed {
	px, py := grid.GridToWorld(x, y)
	d := citizen.Details{
		Age:       uint8(18 + w.rng.IntN(43)),
		Gender:    citizen.Gender(w.rng.IntN(2)),
		Education: uint8(w.rng.IntN(citizen.MaxEducation)),
		Happiness: 60,
		Health:    80,
	}
	d.Savings = citizen.SalaryFor(d.Education) * w.rng.Range(0.5, 2)
	return citizenSeed{
		Home:    citizen.HomeLocation{GridX: x, GridY: y},
		State:   citizen.AtHome,
		Pos:     citizen.Position{X: px, Y: py},
		Needs:   citizen.DefaultNeeds(),
		Details: d,
		Personality: citizen.Personality{
			Ambition:    w.rng.Range(0.1, 1),
			Sociability: w.rng.Range(0.1, 1),
			Materialism: w.rng.Range(0.1, 1),
			Resilience:  w.rng.Range(0.1, 1),
		},
		Mode: citizen.TravelMode{Mode: citizen.Walk},
	}
}

// emigrate removes the least happy residents, lowest ID first on ties.
func (w *World) emigrate() {
	ents := w.ecs.citizenEntities()
	if len(ents) == 0 {
		return
	}
	deficit := float32(emigrationScore) - w.attract.Score
	n := min(len(ents), max(1, int(float32(w.tun.Citizens.ImmigrationWaveMax)*deficit/emigrationScore)))
	sort.SliceStable(ents, func(i, j int) bool {
		return w.ecs.details.Get(ents[i]).Happiness < w.ecs.details.Get(ents[j]).Happiness
	})
	for _, e := range ents[:n] {
		w.ecs.remove(e)
	}
	w.notify("Residents are leaving the city", stats.Attention, nil)
}
