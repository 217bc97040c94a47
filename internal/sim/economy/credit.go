package economy

// CreditRating orders from worst (D) to best (AAA).
type CreditRating uint8

const (
	RatingD CreditRating = iota
	RatingC
	RatingB
	RatingBB
	RatingBBB
	RatingA
	RatingAA
	RatingAAA
)

var ratingNames = [...]string{"D", "C", "B", "BB", "BBB", "A", "AA", "AAA"}

func (r CreditRating) String() string {
	if int(r) < len(ratingNames) {
		return ratingNames[r]
	}
	return "?"
}

// Rate scores budget health and loan history into a rating.
func Rate(b *CityBudget, loans *LoanBook) CreditRating {
	score := 50
	switch {
	case b.Treasury >= 50_000:
		score += 25
	case b.Treasury >= 10_000:
		score += 15
	case b.Treasury >= 0:
		score += 5
	case b.Treasury >= -10_000:
		score -= 20
	default:
		score -= 40
	}
	switch {
	case b.MonthlyIncome > b.MonthlyExpenses:
		score += 15
	case b.MonthlyIncome < b.MonthlyExpenses:
		score -= 10
	}
	if loans != nil {
		score -= 10 * int(loans.MissedPayments)
		score -= 5 * len(loans.Loans)
	}
	switch {
	case score >= 90:
		return RatingAAA
	case score >= 80:
		return RatingAA
	case score >= 70:
		return RatingA
	case score >= 60:
		return RatingBBB
	case score >= 50:
		return RatingBB
	case score >= 40:
		return RatingB
	case score >= 25:
		return RatingC
	default:
		return RatingD
	}
}

// BankruptcyLevel escalates as the treasury goes further negative.
type BankruptcyLevel uint8

const (
	Normal BankruptcyLevel = iota
	Warning
	Critical
	Bankrupt
)

func (l BankruptcyLevel) String() string {
	switch l {
	case Normal:
		return "Normal"
	case Warning:
		return "Warning"
	case Critical:
		return "Critical"
	case Bankrupt:
		return "Bankrupt"
	default:
		return "Unknown"
	}
}

func LevelFor(treasury float64) BankruptcyLevel {
	switch {
	case treasury < -50_000:
		return Bankrupt
	case treasury < -10_000:
		return Critical
	case treasury < 0:
		return Warning
	default:
		return Normal
	}
}

type BankruptcyState struct {
	Level BankruptcyLevel
}

// Update reports the previous level when it changed.
func (s *BankruptcyState) Update(treasury float64) (prev BankruptcyLevel, changed bool) {
	prev = s.Level
	s.Level = LevelFor(treasury)
	return prev, prev != s.Level
}
