package application

import (
	"context"
	"sort"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/finance/domain"
	"golang.org/x/sync/errgroup"
)

type SummaryService struct {
	repo domain.TransactionRepository
	now  func() time.Time
}

func NewSummaryService(repo domain.TransactionRepository) *SummaryService {
	return &SummaryService{repo: repo, now: time.Now}
}

// GetMonthlySummary totals a calendar month per category. Month and year
// outside the accepted range fall back to the current UTC month.
func (s *SummaryService) GetMonthlySummary(ctx context.Context, userID string, month, year int) (*domain.Summary, error) {
	now := s.now().UTC()
	if !domain.ValidMonth(month) {
		month = int(now.Month())
	}
	if !domain.ValidYear(year) {
		year = now.Year()
	}
	start, end := domain.MonthWindow(month, year)

	var (
		totals []domain.CategoryTotal
		recent []domain.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.repo.SummarizeByCategory(gctx, userID, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.FindRecent(gctx, userID, start, end, domain.RecentTransactionsN)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &domain.Summary{
		Month:              month,
		Year:               year,
		IncomeByCategory:   []domain.CategoryTotal{},
		ExpenseByCategory:  []domain.CategoryTotal{},
		RecentTransactions: recent,
	}
	if summary.RecentTransactions == nil {
		summary.RecentTransactions = []domain.Transaction{}
	}

	for _, total := range totals {
		total.Total = domain.RoundToTwoDecimalPlaces(total.Total)
		switch total.Type {
		case domain.Income:
			summary.TotalIncome += total.Total
			summary.IncomeByCategory = append(summary.IncomeByCategory, total)
		case domain.Expense:
			summary.TotalExpenses += total.Total
			summary.ExpenseByCategory = append(summary.ExpenseByCategory, total)
		}
	}
	sortByTotal(summary.IncomeByCategory)
	sortByTotal(summary.ExpenseByCategory)

	summary.TotalIncome = domain.RoundToTwoDecimalPlaces(summary.TotalIncome)
	summary.TotalExpenses = domain.RoundToTwoDecimalPlaces(summary.TotalExpenses)
	summary.Balance = domain.RoundToTwoDecimalPlaces(summary.TotalIncome - summary.TotalExpenses)
	return summary, nil
}

func sortByTotal(totals []domain.CategoryTotal) {
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Total != totals[j].Total {
			return totals[i].Total > totals[j].Total
		}
		return totals[i].CategoryName < totals[j].CategoryName
	})
}
