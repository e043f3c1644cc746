package application

import (
	"context"
	"errors"
	"strings"

	"github.com/sebuszqo/FinanceHub/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceHub/internal/finance/errors"
)

// TransactionCounter is the slice of the transaction store the category
// rules depend on.
type TransactionCounter interface {
	CountByCategory(ctx context.Context, userID, categoryID string) (int, error)
}

type CategoryService struct {
	repo         domain.CategoryRepository
	transactions TransactionCounter
}

func NewCategoryService(repo domain.CategoryRepository, transactions TransactionCounter) *CategoryService {
	return &CategoryService{repo: repo, transactions: transactions}
}

func (s *CategoryService) GetUserCategories(ctx context.Context, userID string, categoryType domain.TransactionType) ([]domain.Category, error) {
	categories, err := s.repo.FindByUser(ctx, userID, categoryType)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		return []domain.Category{}, nil
	}
	return categories, nil
}

// GetActiveCategory is the lookup transaction writes revalidate against.
func (s *CategoryService) GetActiveCategory(ctx context.Context, userID, categoryID string) (*domain.Category, error) {
	return s.repo.FindByID(ctx, userID, categoryID)
}

func (s *CategoryService) CreateCategory(ctx context.Context, category *domain.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if !domain.IsValidTransactionType(string(category.Type)) {
		return financeErrors.ErrInvalidTransactionType
	}
	if strings.TrimSpace(category.Icon) == "" {
		category.Icon = domain.DefaultCategoryIcon
	}
	if category.Color == "" {
		category.Color = domain.DefaultCategoryColor
	}
	category.IsDefault = false
	category.IsActive = true
	return s.repo.Create(ctx, category)
}

// UpdateCategory refuses a type change while transactions still reference
// the category, so a transaction's type always equals its category's.
func (s *CategoryService) UpdateCategory(ctx context.Context, userID, categoryID string, update domain.CategoryUpdate) (*domain.Category, error) {
	category, err := s.repo.FindByID(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}
	if update.Type != nil && *update.Type != category.Type {
		if !domain.IsValidTransactionType(string(*update.Type)) {
			return nil, financeErrors.ErrInvalidTransactionType
		}
		count, err := s.transactions.CountByCategory(ctx, userID, categoryID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, financeErrors.ErrCategoryTypeInUse
		}
	}

	update.Apply(category)
	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, domain.ErrCategoryReferenced) {
			return nil, financeErrors.ErrCategoryTypeInUse
		}
		return nil, err
	}
	return category, nil
}

// DeleteCategory soft-deletes a category nothing references anymore.
func (s *CategoryService) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	if _, err := s.repo.FindByID(ctx, userID, categoryID); err != nil {
		return err
	}

	count, err := s.transactions.CountByCategory(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if count > 0 {
		return financeErrors.NewCategoryInUseError(count)
	}

	err = s.repo.Deactivate(ctx, userID, categoryID)
	if errors.Is(err, domain.ErrCategoryReferenced) {
		// A transaction slipped in between the count and the flip.
		count, countErr := s.transactions.CountByCategory(ctx, userID, categoryID)
		if countErr != nil {
			return countErr
		}
		return financeErrors.NewCategoryInUseError(count)
	}
	return err
}
