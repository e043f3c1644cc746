package application

import (
	"context"
	"testing"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/finance/domain"
	"github.com/sebuszqo/FinanceHub/internal/finance/infrastructure"
	"github.com/stretchr/testify/require"
)

const testUserID = "11111111-1111-1111-1111-111111111111"

type financeFixture struct {
	categories   *infrastructure.MockCategoryRepository
	transactions *infrastructure.MockTransactionRepository
	categorySvc  *CategoryService
	txSvc        *TransactionService
	summarySvc   *SummaryService
}

func newFinanceFixture() *financeFixture {
	categories := infrastructure.NewMockCategoryRepository()
	transactions := infrastructure.NewMockTransactionRepository(categories)
	categorySvc := NewCategoryService(categories, transactions)
	return &financeFixture{
		categories:   categories,
		transactions: transactions,
		categorySvc:  categorySvc,
		txSvc:        NewTransactionService(transactions, categorySvc),
		summarySvc:   NewSummaryService(transactions),
	}
}

func (f *financeFixture) category(t *testing.T, name string, kind domain.TransactionType) *domain.Category {
	t.Helper()
	c := &domain.Category{UserID: testUserID, Name: name, Type: kind}
	require.NoError(t, f.categorySvc.CreateCategory(context.Background(), c))
	return c
}

func (f *financeFixture) transaction(t *testing.T, c *domain.Category, amount float64, date time.Time) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		UserID:      testUserID,
		CategoryID:  c.ID,
		Type:        c.Type,
		Amount:      amount,
		Description: c.Name + " entry",
		Date:        date,
	}
	require.NoError(t, f.txSvc.CreateTransaction(context.Background(), tx))
	return tx
}
