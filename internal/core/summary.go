package core

// CategoryAmount represents an expense total aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthTotal holds income and expense totals for one month of a year.
type MonthTotal struct {
	Month   int // 1-12
	Income  Money
	Expense Money
}

// YearSummary aggregates a calendar year: overall totals, per-month rows and
// expense totals by category.
type YearSummary struct {
	Year         int
	TotalIncome  Money
	TotalExpense Money
	Months       []MonthTotal
	ByCategory   []CategoryAmount
}

// Net returns income minus expenses; negative when the year ran a deficit.
func (s YearSummary) Net() Money {
	return Money{Cents: s.TotalIncome.Cents - s.TotalExpense.Cents}
}
