package economy

import (
	"errors"
	"fmt"
	"math"
)

const MaxActiveLoans = 3

var (
	ErrTooManyLoans = errors.New("too many active loans")
	ErrTierLocked   = errors.New("loan tier not available at this credit rating")
	ErrUnknownTier  = errors.New("unknown loan tier")
)

// Loan is one amortized loan. Rate is annual.
type Loan struct {
	ID               uint32
	Principal        float64
	Rate             float64
	TermMonths       uint32
	MonthsRemaining  uint32
	RemainingBalance float64
	MonthlyPayment   float64
}

// MonthlyPayment is P·r/(1−(1+r)^−n) with r the monthly rate.
func MonthlyPayment(principal, annualRate float64, months uint32) float64 {
	if months == 0 {
		return principal
	}
	r := annualRate / 12
	if r == 0 {
		return principal / float64(months)
	}
	return principal * r / (1 - math.Pow(1+r, -float64(months)))
}

type LoanTier uint8

const (
	LoanSmall LoanTier = iota
	LoanMedium
	LoanLarge
	LoanJumbo
	LoanEmergency
)

var tierNames = [...]string{"Small", "Medium", "Large", "Jumbo", "Emergency"}

func (t LoanTier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return "Unknown"
}

func ParseLoanTier(s string) (LoanTier, error) {
	for i, n := range tierNames {
		if n == s {
			return LoanTier(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// TierTerms are the fixed terms of each tier.
type TierTerms struct {
	Principal float64
	Rate      float64
	Months    uint32
	MinRating CreditRating
}

func (t LoanTier) Terms() (TierTerms, bool) {
	switch t {
	case LoanSmall:
		return TierTerms{10_000, 0.05, 12, RatingB}, true
	case LoanMedium:
		return TierTerms{50_000, 0.07, 24, RatingBB}, true
	case LoanLarge:
		return TierTerms{100_000, 0.05, 12, RatingBBB}, true
	case LoanJumbo:
		return TierTerms{250_000, 0.09, 36, RatingA}, true
	case LoanEmergency:
		return TierTerms{25_000, 0.12, 6, RatingC}, true
	default:
		return TierTerms{}, false
	}
}

// LoanBook is the loans resource.
type LoanBook struct {
	Loans          []Loan
	NextID         uint32
	MissedPayments uint32
	TotalRepaid    float64
}

func NewLoanBook() LoanBook { return LoanBook{NextID: 1} }

// Take opens a new loan of tier and credits the principal to treasury.
func (b *LoanBook) Take(tier LoanTier, rating CreditRating, treasury *float64) (Loan, error) {
	terms, ok := tier.Terms()
	if !ok {
		return Loan{}, ErrUnknownTier
	}
	if len(b.Loans) >= MaxActiveLoans {
		return Loan{}, ErrTooManyLoans
	}
	if rating < terms.MinRating {
		return Loan{}, fmt.Errorf("%w: %s needs %s, have %s", ErrTierLocked, tier, terms.MinRating, rating)
	}
	l := b.Open(terms.Principal, terms.Rate, terms.Months)
	*treasury += terms.Principal
	return l, nil
}

// Open records a loan without touching the treasury.
func (b *LoanBook) Open(principal, rate float64, months uint32) Loan {
	if b.NextID == 0 {
		b.NextID = 1
	}
	l := Loan{
		ID:               b.NextID,
		Principal:        principal,
		Rate:             rate,
		TermMonths:       months,
		MonthsRemaining:  months,
		RemainingBalance: principal,
		MonthlyPayment:   MonthlyPayment(principal, rate, months),
	}
	b.NextID++
	b.Loans = append(b.Loans, l)
	return l
}

// ProcessMonth pays every loan from treasury and returns the total paid.
// The final payment is clamped to what is owed; paid-off loans are dropped.
func (b *LoanBook) ProcessMonth(treasury *float64) float64 {
	var paid float64
	kept := b.Loans[:0]
	for _, l := range b.Loans {
		interest := l.RemainingBalance * l.Rate / 12
		pay := l.MonthlyPayment
		if owed := l.RemainingBalance + interest; pay > owed || l.MonthsRemaining <= 1 {
			pay = owed
		}
		if *treasury < pay {
			b.MissedPayments++
		}
		*treasury -= pay
		paid += pay
		b.TotalRepaid += pay
		l.RemainingBalance = math.Max(0, l.RemainingBalance+interest-pay)
		if l.MonthsRemaining > 0 {
			l.MonthsRemaining--
		}
		if l.RemainingBalance < 0.005 {
			continue
		}
		kept = append(kept, l)
	}
	b.Loans = kept
	return paid
}

// Outstanding is the sum of remaining balances.
func (b *LoanBook) Outstanding() float64 {
	var s float64
	for _, l := range b.Loans {
		s += l.RemainingBalance
	}
	return s
}
