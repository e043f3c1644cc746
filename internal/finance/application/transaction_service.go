package application

import (
	"context"
	"strings"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceHub/internal/finance/errors"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type CategoryServiceInterface interface {
	GetActiveCategory(ctx context.Context, userID, categoryID string) (*domain.Category, error)
}

type TransactionService struct {
	repo            domain.TransactionRepository
	categoryService CategoryServiceInterface
	now             func() time.Time
}

func NewTransactionService(repo domain.TransactionRepository, categoryService CategoryServiceInterface) *TransactionService {
	return &TransactionService{repo: repo, categoryService: categoryService, now: time.Now}
}

// checkCategory loads the category fresh on every write; its type may have
// changed since the transaction was last saved.
func (s *TransactionService) checkCategory(ctx context.Context, userID, categoryID string, transactionType domain.TransactionType) (*domain.Category, error) {
	category, err := s.categoryService.GetActiveCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	if category.Type != transactionType {
		return nil, financeErrors.ErrCategoryTypeMismatch
	}
	return category, nil
}

func categoryRef(c *domain.Category) *domain.CategoryRef {
	return &domain.CategoryRef{ID: c.ID, Name: c.Name, Type: c.Type, Icon: c.Icon, Color: c.Color}
}

func (s *TransactionService) CreateTransaction(ctx context.Context, transaction *domain.Transaction) error {
	transaction.Description = strings.TrimSpace(transaction.Description)
	transaction.Notes = strings.TrimSpace(transaction.Notes)
	transaction.RoundToTwoDecimalPlaces()
	if transaction.Date.IsZero() {
		transaction.Date = s.now().UTC()
	}
	if err := transaction.Validate(); err != nil {
		return err
	}

	category, err := s.checkCategory(ctx, transaction.UserID, transaction.CategoryID, transaction.Type)
	if err != nil {
		return err
	}

	if err := s.repo.Create(ctx, transaction); err != nil {
		return err
	}
	transaction.Category = categoryRef(category)
	return nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	return s.repo.FindByID(ctx, userID, transactionID)
}

func (s *TransactionService) GetUserTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) (*domain.TransactionPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultPageLimit
	}
	if filter.Limit > MaxPageLimit {
		filter.Limit = MaxPageLimit
	}

	transactions, total, err := s.repo.Find(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	return &domain.TransactionPage{
		Transactions: transactions,
		Pagination:   domain.NewPagination(filter, len(transactions), total),
	}, nil
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, update domain.TransactionUpdate) (*domain.Transaction, error) {
	transaction, err := s.repo.FindByID(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	revalidate := update.ChangesClassification(*transaction)
	update.Apply(transaction)
	transaction.RoundToTwoDecimalPlaces()
	if err := transaction.Validate(); err != nil {
		return nil, err
	}

	if revalidate {
		category, err := s.checkCategory(ctx, userID, transaction.CategoryID, transaction.Type)
		if err != nil {
			return nil, err
		}
		transaction.Category = categoryRef(category)
	}

	if err := s.repo.Update(ctx, transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	return s.repo.Delete(ctx, userID, transactionID)
}
