// Package stats holds the city-wide aggregates rebuilt on slow ticks and the
// read-only observation assembled from them every tick.
package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"cityforge.dev/internal/sim/grid"
)

// CityStats are the slow-tick aggregates. Values are snapshots; nothing here
// is incrementally maintained.
type CityStats struct {
	Population int
	Employed   int
	Unemployed int
	Homeless   int
	Children   int
	Seniors    int

	Buildings       int
	BuildingsByZone [grid.ZoneMixedUse + 1]int
	HousingCapacity int
	JobCapacity     int
	Jobs            int
	Abandoned       int

	AvgHappiness    float32
	HappinessStdDev float32
	AvgHealth       float32
	AvgSalary       float32

	RoadCells     int
	RoadsByType   [grid.RoadPath + 1]int
	PowerCoverage float32
	WaterCoverage float32

	AvgPollution float32
	AvgCrime     float32
	AvgLandValue float32
	Congestion   float32
}

// UnemploymentRate is unemployed over labor force, 0 with no labor force.
func (s *CityStats) UnemploymentRate() float32 {
	labor := s.Employed + s.Unemployed
	if labor == 0 {
		return 0
	}
	return float32(s.Unemployed) / float32(labor)
}

// HousingVacancy is the share of residential capacity left unoccupied.
func (s *CityStats) HousingVacancy() float32 {
	if s.HousingCapacity == 0 {
		return 0
	}
	v := float32(s.HousingCapacity-(s.Population-s.Homeless)) / float32(s.HousingCapacity)
	if v < 0 {
		return 0
	}
	return v
}

// Sample is the per-citizen input to Summarize.
type Sample struct {
	Happiness float64
	Health    float64
	Salary    float64
}

// Summarize fills the citizen averages from samples.
func (s *CityStats) Summarize(samples []Sample) {
	if len(samples) == 0 {
		s.AvgHappiness, s.HappinessStdDev, s.AvgHealth, s.AvgSalary = 0, 0, 0, 0
		return
	}
	happy := make([]float64, len(samples))
	health := make([]float64, len(samples))
	salary := make([]float64, len(samples))
	for i, c := range samples {
		happy[i], health[i], salary[i] = c.Happiness, c.Health, c.Salary
	}
	mean, std := stat.MeanStdDev(happy, nil)
	if len(samples) == 1 {
		std = 0
	}
	s.AvgHappiness = float32(mean)
	s.HappinessStdDev = float32(std)
	s.AvgHealth = float32(stat.Mean(health, nil))
	s.AvgSalary = float32(stat.Mean(salary, nil))
}

// CoverageShare is the fraction of cells in want that also satisfy have.
func CoverageShare(g *grid.WorldGrid, want, have func(*grid.Cell) bool) float32 {
	var n, ok float64
	for i := range g.Cells {
		c := &g.Cells[i]
		if !want(c) {
			continue
		}
		n++
		if have(c) {
			ok++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(ok / n)
}

// MeanU8 averages a u8 layer over the cells keep accepts.
func MeanU8(cells []uint8, keep func(i int) bool) float32 {
	vals := make([]float64, 0, len(cells))
	for i, v := range cells {
		if keep == nil || keep(i) {
			vals = append(vals, float64(v))
		}
	}
	if len(vals) == 0 {
		return 0
	}
	return float32(floats.Sum(vals) / float64(len(vals)))
}
