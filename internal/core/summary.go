package core

// Summary aggregates income and expenses over a filtered set of transactions.
type Summary struct {
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	Balance       float64 `json:"balance"`
}

// NewSummary derives the balance from the two totals; Balance == TotalIncome - TotalExpenses.
func NewSummary(income, expenses float64) Summary {
	return Summary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		Balance:       income - expenses,
	}
}
