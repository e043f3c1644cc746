package domain

import "time"

const (
	MinSummaryYear      = 2020
	MaxSummaryYear      = 2100
	RecentTransactionsN = 10
)

type CategoryTotal struct {
	Type          TransactionType `json:"-"`
	CategoryID    string          `json:"categoryId"`
	CategoryName  string          `json:"categoryName"`
	CategoryIcon  string          `json:"categoryIcon"`
	CategoryColor string          `json:"categoryColor"`
	Total         float64         `json:"total"`
	Count         int             `json:"count"`
}

type Summary struct {
	Month              int             `json:"month"`
	Year               int             `json:"year"`
	TotalIncome        float64         `json:"totalIncome"`
	TotalExpenses      float64         `json:"totalExpenses"`
	Balance            float64         `json:"balance"`
	IncomeByCategory   []CategoryTotal `json:"incomeByCategory"`
	ExpenseByCategory  []CategoryTotal `json:"expenseByCategory"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
}

func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}

func ValidYear(year int) bool {
	return year >= MinSummaryYear && year <= MaxSummaryYear
}

// MonthWindow spans the whole calendar month in UTC, both ends inclusive.
func MonthWindow(month, year int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}
