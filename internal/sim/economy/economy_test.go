package economy

import (
	"errors"
	"math"
	"testing"

	"cityforge.dev/internal/sim/grid"
)

func TestLoanAmortization_TwelveMonths(t *testing.T) {
	book := NewLoanBook()
	treasury := 0.0
	l := book.Open(100_000, 0.05, 12)
	var total float64
	for m := 0; m < 12; m++ {
		total += book.ProcessMonth(&treasury)
	}
	if len(book.Loans) != 0 {
		t.Fatalf("loan should be paid off, remaining %+v", book.Loans)
	}
	if want := l.MonthlyPayment * 12; math.Abs(total-want) > 0.01 {
		t.Fatalf("total paid %.4f want %.4f", total, want)
	}
	if math.Abs(treasury+total) > 1e-6 {
		t.Fatalf("treasury should fall by the total paid")
	}
	if book.Outstanding() != 0 {
		t.Fatalf("outstanding: %v", book.Outstanding())
	}
}

func TestLoanBalanceNeverNegative(t *testing.T) {
	book := NewLoanBook()
	treasury := 1e9
	book.Open(10_000, 0.12, 6)
	for m := 0; m < 10; m++ {
		book.ProcessMonth(&treasury)
		for _, l := range book.Loans {
			if l.RemainingBalance < 0 {
				t.Fatalf("negative balance %v", l.RemainingBalance)
			}
		}
	}
	if len(book.Loans) != 0 {
		t.Fatalf("loan should be gone after its term")
	}
}

func TestTake_LimitsAndRating(t *testing.T) {
	book := NewLoanBook()
	treasury := 0.0
	if _, err := book.Take(LoanLarge, RatingB, &treasury); !errors.Is(err, ErrTierLocked) {
		t.Fatalf("expected tier locked, got %v", err)
	}
	for i := 0; i < MaxActiveLoans; i++ {
		if _, err := book.Take(LoanSmall, RatingAAA, &treasury); err != nil {
			t.Fatalf("take %d: %v", i, err)
		}
	}
	if treasury != 30_000 {
		t.Fatalf("treasury: %v", treasury)
	}
	if _, err := book.Take(LoanSmall, RatingAAA, &treasury); !errors.Is(err, ErrTooManyLoans) {
		t.Fatalf("expected too many loans, got %v", err)
	}
}

func TestRate_NewCityIsBBB(t *testing.T) {
	b := NewBudget(StartingTreasury)
	book := NewLoanBook()
	if got := Rate(&b, &book); got != RatingBBB {
		t.Fatalf("rating: got %v", got)
	}
	b.Treasury = -60_000
	book.MissedPayments = 3
	if got := Rate(&b, &book); got != RatingD {
		t.Fatalf("broke city rating: got %v", got)
	}
}

func TestCollectMonth_BreakdownIdentity(t *testing.T) {
	b := NewBudget(StartingTreasury)
	ext := NewExtendedBudget()
	ext.Services.Police = 0.5
	book := NewLoanBook()
	book.Open(10_000, 0.05, 12)
	in := MonthInputs{
		Buildings: []TaxedBuilding{
			{Zone: grid.ZoneResidentialLow, Level: 1, Occupants: 10, BaseTax: 6},
			{Zone: grid.ZoneIndustrial, Level: 2, Occupants: 20, BaseTax: 10},
			{Zone: grid.ZoneOffice, Level: 1, Occupants: 5, BaseTax: 9},
			{Zone: grid.ZoneMixedUse, Level: 3, Occupants: 7, BaseTax: 8},
		},
		Trade:           -42.5,
		RoadMaintenance: 17.25,
		Services: []ServiceCost{
			{Category: "police", MonthlyCost: 50},
			{Category: "fire", MonthlyCost: 20},
		},
		PolicyCosts: 300,
		FuelCosts:   12.75,
	}
	before := b.Treasury
	b.CollectMonth(31, in, &ext, &book)

	if math.Abs(b.MonthlyIncome-ext.Income.Total()) > 0.01 {
		t.Fatalf("income identity broken")
	}
	if math.Abs(b.MonthlyExpenses-ext.Expenses.Total()) > 0.01 {
		t.Fatalf("expense identity broken")
	}
	if math.Abs((b.Treasury-before)-(b.MonthlyIncome-b.MonthlyExpenses)) > 0.01 {
		t.Fatalf("treasury delta %v != income-expenses %v", b.Treasury-before, b.MonthlyIncome-b.MonthlyExpenses)
	}
	if ext.Expenses.Imports != 42.5 || ext.Income.Trade != 0 {
		t.Fatalf("negative trade should book as imports")
	}
	if ext.Expenses.ServiceCosts != 45 {
		t.Fatalf("service costs should follow sliders: %v", ext.Expenses.ServiceCosts)
	}
	if ext.Income.CommercialTax == 0 {
		t.Fatalf("mixed use should pay commercial tax")
	}
	if b.LastCollectionDay != 31 {
		t.Fatalf("collection day not recorded")
	}
}

func TestBankruptcyTransitions(t *testing.T) {
	var s BankruptcyState
	steps := []struct {
		treasury float64
		want     BankruptcyLevel
		changed  bool
	}{
		{100, Normal, false},
		{-1, Warning, true},
		{-20_000, Critical, true},
		{-60_000, Bankrupt, true},
		{-70_000, Bankrupt, false},
		{5, Normal, true},
	}
	for _, st := range steps {
		_, changed := s.Update(st.treasury)
		if s.Level != st.want || changed != st.changed {
			t.Fatalf("treasury %v: level %v changed %v", st.treasury, s.Level, changed)
		}
	}
}

func TestPolicies(t *testing.T) {
	var p Policies
	p.Set(PolicyScrubbers, true)
	p.Set(PolicyRecycling, true)
	if p.PowerPlantEmissionMult() != 0.5 || p.RoadEmissionMult() != 1 {
		t.Fatalf("multipliers wrong")
	}
	if p.MonthlyCost() != 550 {
		t.Fatalf("cost: %v", p.MonthlyCost())
	}
	p.Set(PolicyScrubbers, false)
	if got := p.Enacted(); len(got) != 1 || got[0] != PolicyRecycling {
		t.Fatalf("enacted: %v", got)
	}
	if _, err := ParsePolicy("Nope"); err == nil {
		t.Fatalf("unknown policy should fail")
	}
}

func TestZoneTaxRates(t *testing.T) {
	r := ZoneTaxRates{0.1, 0.2, 0.3, 0.4}
	if math.Abs(float64(r.Mean()-0.25)) > 1e-6 {
		t.Fatalf("mean %v", r.Mean())
	}
	if r.ForZone(grid.ZoneMixedUse) != 0.2 || r.ForZone(grid.ZoneResidentialMedium) != 0.1 {
		t.Fatalf("zone mapping")
	}
	if (ZoneTaxRates{Residential: -0.1}).Valid() {
		t.Fatalf("negative rate must be invalid")
	}
}
