// Package zones computes zone demand, tracks spawn-eligible cells and holds
// the building components and their lifecycle rules.
package zones

import "cityforge.dev/internal/sim/grid"

// ZoneDemand scores are in [0,1]; vacancies are fractions of capacity.
type ZoneDemand struct {
	Residential float32
	Commercial  float32
	Industrial  float32
	Office      float32

	VacancyResidential float32
	VacancyCommercial  float32
	VacancyIndustrial  float32
	VacancyOffice      float32
}

// For returns the demand that gates spawning in zone z.
func (d ZoneDemand) For(z grid.ZoneType) float32 {
	switch z {
	case grid.ZoneResidentialLow, grid.ZoneResidentialMedium, grid.ZoneResidentialHigh:
		return d.Residential
	case grid.ZoneCommercialLow, grid.ZoneCommercialHigh:
		return d.Commercial
	case grid.ZoneMixedUse:
		return max(d.Residential, d.Commercial)
	case grid.ZoneIndustrial:
		return d.Industrial
	case grid.ZoneOffice:
		return d.Office
	default:
		return 0
	}
}

// Occupancy is capacity and use for one zone category.
type Occupancy struct {
	Capacity  uint32
	Occupants uint32
}

func (o Occupancy) Vacancy() float32 {
	if o.Capacity == 0 {
		return 0
	}
	return float32(o.Capacity-min(o.Occupants, o.Capacity)) / float32(o.Capacity)
}

func (o Occupancy) Free() uint32 { return o.Capacity - min(o.Occupants, o.Capacity) }

// DemandInputs are the city-wide aggregates demand is derived from.
type DemandInputs struct {
	Population uint32
	Employed   uint32
	// Educated counts citizens with at least a high school education.
	Educated    uint32
	Residential Occupancy
	Commercial  Occupancy
	Industrial  Occupancy
	Office      Occupancy
}

// ComputeDemand derives the four demand scores. Residential demand follows
// the job surplus, commercial follows population, industrial follows unused
// labor and office follows education and commercial demand.
func ComputeDemand(in DemandInputs) ZoneDemand {
	d := ZoneDemand{
		VacancyResidential: in.Residential.Vacancy(),
		VacancyCommercial:  in.Commercial.Vacancy(),
		VacancyIndustrial:  in.Industrial.Vacancy(),
		VacancyOffice:      in.Office.Vacancy(),
	}
	pop := float32(in.Population)
	jobs := float32(in.Commercial.Capacity + in.Industrial.Capacity + in.Office.Capacity)

	jobSurplus := (jobs - pop) / max(pop, 100)
	d.Residential = clamp01(0.5 + 0.5*jobSurplus - 2*(d.VacancyResidential-0.05))

	shopsWanted := pop * 0.25
	d.Commercial = clamp01(0.15 + (shopsWanted-float32(in.Commercial.Capacity))/max(shopsWanted, 40) - d.VacancyCommercial)

	unemployed := pop - float32(min(in.Employed, in.Population))
	d.Industrial = clamp01(0.2 + (unemployed-float32(in.Industrial.Free()))/max(pop, 50))

	educated := float32(0)
	if in.Population > 0 {
		educated = float32(in.Educated) / pop
	}
	d.Office = clamp01(educated*0.8 + d.Commercial*0.3 - d.VacancyOffice)
	return d
}

func clamp01(v float32) float32 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
