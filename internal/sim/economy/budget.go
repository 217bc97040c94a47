// Package economy holds the city treasury, tax rates, the itemized monthly
// budget, loans, credit rating, bankruptcy levels and policies.
package economy

import (
	"gonum.org/v1/gonum/floats"

	"cityforge.dev/internal/sim/grid"
)

const (
	StartingTreasury = 10000
	DefaultTaxRate   = 0.09
	// HighTaxThreshold is where citizens start to complain.
	HighTaxThreshold = 0.15
	MaxTaxRate       = 0.5
)

// ZoneTaxRates are per-category property tax rates in [0, MaxTaxRate].
type ZoneTaxRates struct {
	Residential float32 `json:"residential"`
	Commercial  float32 `json:"commercial"`
	Industrial  float32 `json:"industrial"`
	Office      float32 `json:"office"`
}

func DefaultRates() ZoneTaxRates {
	return ZoneTaxRates{DefaultTaxRate, DefaultTaxRate, DefaultTaxRate, DefaultTaxRate}
}

func (r ZoneTaxRates) Mean() float32 {
	return (r.Residential + r.Commercial + r.Industrial + r.Office) / 4
}

func (r ZoneTaxRates) Valid() bool {
	for _, v := range []float32{r.Residential, r.Commercial, r.Industrial, r.Office} {
		if v < 0 || v > MaxTaxRate || v != v {
			return false
		}
	}
	return true
}

// ForZone picks the rate that applies to buildings of zone z. Mixed use pays
// the commercial rate.
func (r ZoneTaxRates) ForZone(z grid.ZoneType) float32 {
	switch z {
	case grid.ZoneResidentialLow, grid.ZoneResidentialMedium, grid.ZoneResidentialHigh:
		return r.Residential
	case grid.ZoneCommercialLow, grid.ZoneCommercialHigh, grid.ZoneMixedUse:
		return r.Commercial
	case grid.ZoneIndustrial:
		return r.Industrial
	case grid.ZoneOffice:
		return r.Office
	default:
		return 0
	}
}

// CityBudget is the treasury resource.
type CityBudget struct {
	Treasury        float64
	TaxRate         float32
	MonthlyIncome   float64
	MonthlyExpenses float64
	// LastCollectionDay is the day the last monthly collection ran.
	LastCollectionDay uint32
	Rates             ZoneTaxRates
}

func NewBudget(treasury float64) CityBudget {
	r := DefaultRates()
	return CityBudget{Treasury: treasury, TaxRate: r.Mean(), Rates: r, LastCollectionDay: 1}
}

func (b *CityBudget) SetRates(r ZoneTaxRates) {
	b.Rates = r
	b.TaxRate = r.Mean()
}

// PropertyTax is the monthly tax for one building.
func PropertyTax(occupants uint32, level uint8, baseTax float64, rate float32) float64 {
	return float64(occupants) * float64(level) * baseTax * float64(rate)
}

// ServiceBudget holds per-department spending sliders in [0, 1.5].
type ServiceBudget struct {
	Fire       float32 `json:"fire"`
	Police     float32 `json:"police"`
	Health     float32 `json:"health"`
	Education  float32 `json:"education"`
	Parks      float32 `json:"parks"`
	Sanitation float32 `json:"sanitation"`
	Transport  float32 `json:"transport"`
}

func DefaultServiceBudget() ServiceBudget {
	return ServiceBudget{1, 1, 1, 1, 1, 1, 1}
}

// Slider returns the spending slider for a service category name.
func (s ServiceBudget) Slider(category string) float32 {
	switch category {
	case "fire":
		return s.Fire
	case "police":
		return s.Police
	case "health":
		return s.Health
	case "education":
		return s.Education
	case "park", "entertainment":
		return s.Parks
	case "garbage", "deathcare", "water_treatment":
		return s.Sanitation
	case "transport", "airport":
		return s.Transport
	default:
		return 1
	}
}

// QualityFactor maps a slider onto service quality. Underfunding hurts
// linearly; overfunding has diminishing returns capped at 1.2.
func QualityFactor(slider float32) float32 {
	if slider <= 1 {
		if slider < 0 {
			return 0
		}
		return slider
	}
	q := 1 + (slider-1)*0.4
	if q > 1.2 {
		q = 1.2
	}
	return q
}

// IncomeBreakdown itemizes one month of income.
type IncomeBreakdown struct {
	ResidentialTax float64
	CommercialTax  float64
	IndustrialTax  float64
	OfficeTax      float64
	Trade          float64
	TransitFares   float64
}

func (i IncomeBreakdown) Total() float64 {
	return floats.Sum([]float64{i.ResidentialTax, i.CommercialTax, i.IndustrialTax, i.OfficeTax, i.Trade, i.TransitFares})
}

// ExpenseBreakdown itemizes one month of expenses.
type ExpenseBreakdown struct {
	RoadMaintenance    float64
	ServiceCosts       float64
	UtilityMaintenance float64
	PolicyCosts        float64
	LoanPayments       float64
	FuelCosts          float64
	Imports            float64
}

func (e ExpenseBreakdown) Total() float64 {
	return floats.Sum([]float64{e.RoadMaintenance, e.ServiceCosts, e.UtilityMaintenance, e.PolicyCosts, e.LoanPayments, e.FuelCosts, e.Imports})
}

// ExtendedBudget is the itemized view of the last collection.
type ExtendedBudget struct {
	Income   IncomeBreakdown
	Expenses ExpenseBreakdown
	Services ServiceBudget
	// LastDelta is income minus expenses for the last month.
	LastDelta float64
}

func NewExtendedBudget() ExtendedBudget {
	return ExtendedBudget{Services: DefaultServiceBudget()}
}

// TaxedBuilding is one building's contribution to property tax.
type TaxedBuilding struct {
	Zone      grid.ZoneType
	Level     uint8
	Occupants uint32
	BaseTax   float64
}

// ServiceCost is one service building's monthly running cost.
type ServiceCost struct {
	Category    string
	MonthlyCost float64
}

// MonthInputs gathers everything the monthly collection needs.
type MonthInputs struct {
	Buildings          []TaxedBuilding
	Trade              float64
	TransitFares       float64
	RoadMaintenance    float64
	Services           []ServiceCost
	UtilityMaintenance float64
	PolicyCosts        float64
	FuelCosts          float64
}

// CollectMonth runs the monthly collection: it fills ext, pays loans and
// moves the treasury. Loan payments come after income so a healthy month never
// records a missed payment.
func (b *CityBudget) CollectMonth(day uint32, in MonthInputs, ext *ExtendedBudget, loans *LoanBook) {
	var inc IncomeBreakdown
	for _, bl := range in.Buildings {
		tax := PropertyTax(bl.Occupants, bl.Level, bl.BaseTax, b.Rates.ForZone(bl.Zone))
		switch {
		case bl.Zone.IsResidential() && bl.Zone != grid.ZoneMixedUse:
			inc.ResidentialTax += tax
		case bl.Zone == grid.ZoneIndustrial:
			inc.IndustrialTax += tax
		case bl.Zone == grid.ZoneOffice:
			inc.OfficeTax += tax
		default:
			inc.CommercialTax += tax
		}
	}
	var exp ExpenseBreakdown
	if in.Trade >= 0 {
		inc.Trade = in.Trade
	} else {
		exp.Imports = -in.Trade
	}
	inc.TransitFares = in.TransitFares

	exp.RoadMaintenance = in.RoadMaintenance
	for _, s := range in.Services {
		exp.ServiceCosts += s.MonthlyCost * float64(ext.Services.Slider(s.Category))
	}
	exp.UtilityMaintenance = in.UtilityMaintenance
	exp.PolicyCosts = in.PolicyCosts
	exp.FuelCosts = in.FuelCosts

	b.Treasury += inc.Total()
	b.Treasury -= exp.RoadMaintenance + exp.ServiceCosts + exp.UtilityMaintenance + exp.PolicyCosts + exp.FuelCosts + exp.Imports
	if loans != nil {
		exp.LoanPayments = loans.ProcessMonth(&b.Treasury)
	}

	ext.Income = inc
	ext.Expenses = exp
	b.MonthlyIncome = inc.Total()
	b.MonthlyExpenses = exp.Total()
	ext.LastDelta = b.MonthlyIncome - b.MonthlyExpenses
	b.LastCollectionDay = day
}

// TradeBalance is exports from industry and offices minus imports consumed by residents.
func TradeBalance(industrialWorkers, officeWorkers, population uint32) float64 {
	return float64(industrialWorkers)*2.0 + float64(officeWorkers)*1.5 - float64(population)*0.6
}
