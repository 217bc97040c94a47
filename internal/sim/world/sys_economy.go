package world

import (
	"fmt"

	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/stats"
)

// tradeBalance is the monthly export surplus at current employment.
func (w *World) tradeBalance() float64 {
	var ind, off, pop uint32
	for _, e := range w.ecs.buildingEntities() {
		if !w.ecs.operational(e) {
			continue
		}
		b := w.ecs.buildings.Get(e)
		switch {
		case b.Zone == grid.ZoneIndustrial:
			ind += b.Occupants
		case b.Zone == grid.ZoneOffice:
			off += b.Occupants
		case b.Zone.IsResidential():
			pop += b.Occupants
		}
	}
	return economy.TradeBalance(ind, off, pop)
}

// monthInputs collects this month's tax base and running costs. Fuel and
// plowing accruals are included but not reset here.
func (w *World) monthInputs() economy.MonthInputs {
	in := economy.MonthInputs{
		Trade:           w.tradeBalance(),
		TransitFares:    w.transit.CollectFares(),
		RoadMaintenance: w.condition.MaintenanceCost(w.grid),
		PolicyCosts:     w.policies.MonthlyCost(),
		FuelCosts:       w.power.FuelCostAccrued + w.city.PlowCost,
	}
	for _, e := range w.ecs.buildingEntities() {
		if !w.ecs.operational(e) {
			continue
		}
		b := w.ecs.buildings.Get(e)
		in.Buildings = append(in.Buildings, economy.TaxedBuilding{
			Zone:      b.Zone,
			Level:     b.Level,
			Occupants: b.Occupants,
			BaseTax:   w.cats.Buildings.ByZone[b.Zone.String()].BaseTax,
		})
	}
	for _, s := range w.ecs.serviceSites() {
		if def, ok := w.cats.Services.ByID[s.Type.String()]; ok {
			in.Services = append(in.Services, economy.ServiceCost{Category: def.Category, MonthlyCost: def.MonthlyCost})
		}
	}
	for _, u := range w.ecs.utilitySources() {
		if def, ok := w.cats.Generators.ByID[u.Type.String()]; ok {
			in.UtilityMaintenance += def.MonthlyCost
		}
	}
	in.UtilityMaintenance += w.transit.MonthlyCost() + w.protection.MaintenanceCost()
	return in
}

// sysMonthlyEconomy runs the collection once MonthDays have passed since
// the last one.
func (w *World) sysMonthlyEconomy() {
	if !w.dayRolled || w.clock.Day < w.budget.LastCollectionDay+MonthDays {
		return
	}
	in := w.monthInputs()
	w.budget.CollectMonth(w.clock.Day, in, &w.ext, &w.loans)
	w.power.FuelCostAccrued = 0
	w.power.MWhAccrued = 0
	w.city.PlowCost = 0
	w.log.Printf("[world] month day=%d income=%.0f expenses=%.0f treasury=%.0f",
		w.clock.Day, w.budget.MonthlyIncome, w.budget.MonthlyExpenses, w.budget.Treasury)
	if w.ext.Expenses.LoanPayments > 0 && w.budget.Treasury < 0 {
		w.notify("Loan payment left the treasury in debt", stats.Warning, nil)
	}
}

// sysBankruptcy tracks the treasury level and announces every transition.
func (w *World) sysBankruptcy() {
	prev, changed := w.bankruptcy.Update(w.budget.Treasury)
	if !changed {
		return
	}
	level := w.bankruptcy.Level
	if level < prev {
		w.notify(fmt.Sprintf("City finances recovered to %s", level), stats.Positive, nil)
		return
	}
	prio := stats.Warning
	if level >= economy.Critical {
		prio = stats.Emergency
	}
	w.notify(fmt.Sprintf("City finances are %s", level), prio, nil)
}
