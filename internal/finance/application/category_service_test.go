package application

import (
	"context"
	"testing"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"github.com/sebuszqo/FinanceHub/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceHub/internal/finance/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCategory_AppliesDefaults(t *testing.T) {
	f := newFinanceFixture()

	c := &domain.Category{UserID: testUserID, Name: "  Groceries ", Type: domain.Expense, IsDefault: true}
	require.NoError(t, f.categorySvc.CreateCategory(context.Background(), c))

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Groceries", c.Name)
	assert.Equal(t, domain.DefaultCategoryIcon, c.Icon)
	assert.Equal(t, domain.DefaultCategoryColor, c.Color)
	assert.False(t, c.IsDefault)
	assert.True(t, c.IsActive)
}

func TestCreateCategory_Duplicate(t *testing.T) {
	f := newFinanceFixture()
	f.category(t, "Groceries", domain.Expense)

	err := f.categorySvc.CreateCategory(context.Background(), &domain.Category{UserID: testUserID, Name: "Groceries", Type: domain.Expense})
	assert.ErrorIs(t, err, financeErrors.ErrCategoryAlreadyExists)

	// Same name under the other type is a different category.
	err = f.categorySvc.CreateCategory(context.Background(), &domain.Category{UserID: testUserID, Name: "Groceries", Type: domain.Income})
	assert.NoError(t, err)
}

func TestCreateCategory_InvalidType(t *testing.T) {
	f := newFinanceFixture()
	err := f.categorySvc.CreateCategory(context.Background(), &domain.Category{UserID: testUserID, Name: "X", Type: "transfer"})
	assert.ErrorIs(t, err, financeErrors.ErrInvalidTransactionType)
}

func TestGetUserCategories_SortedAndFiltered(t *testing.T) {
	f := newFinanceFixture()
	ctx := context.Background()

	empty, err := f.categorySvc.GetUserCategories(ctx, testUserID, "")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	f.category(t, "Rent", domain.Expense)
	f.category(t, "Salary", domain.Income)
	f.category(t, "Food", domain.Expense)

	all, err := f.categorySvc.GetUserCategories(ctx, testUserID, "")
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, c := range all {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Food", "Rent", "Salary"}, names)

	income, err := f.categorySvc.GetUserCategories(ctx, testUserID, domain.Income)
	require.NoError(t, err)
	require.Len(t, income, 1)
	assert.Equal(t, "Salary", income[0].Name)

	other, err := f.categorySvc.GetUserCategories(ctx, "someone-else", "")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDeleteCategory_RefusedWhileReferenced(t *testing.T) {
	f := newFinanceFixture()
	ctx := context.Background()
	food := f.category(t, "Food", domain.Expense)
	f.transaction(t, food, 10, time.Now())
	f.transaction(t, food, 20, time.Now())

	err := f.categorySvc.DeleteCategory(ctx, testUserID, food.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	assert.Equal(t, "Cannot delete category with 2 transactions. Reassign them first.", err.Error())

	still, err := f.categorySvc.GetActiveCategory(ctx, testUserID, food.ID)
	require.NoError(t, err)
	assert.True(t, still.IsActive)
}

func TestDeleteCategory_SoftDeletes(t *testing.T) {
	f := newFinanceFixture()
	ctx := context.Background()
	food := f.category(t, "Food", domain.Expense)

	require.NoError(t, f.categorySvc.DeleteCategory(ctx, testUserID, food.ID))

	_, err := f.categorySvc.GetActiveCategory(ctx, testUserID, food.ID)
	assert.ErrorIs(t, err, financeErrors.ErrCategoryNotFound)
	assert.False(t, f.categories.Categories[food.ID].IsActive)

	err = f.categorySvc.DeleteCategory(ctx, testUserID, food.ID)
	assert.ErrorIs(t, err, financeErrors.ErrCategoryNotFound)

	// The name is free again once the old one is inactive.
	f.category(t, "Food", domain.Expense)
}

func TestDeleteCategory_OtherUser(t *testing.T) {
	f := newFinanceFixture()
	food := f.category(t, "Food", domain.Expense)

	err := f.categorySvc.DeleteCategory(context.Background(), "intruder", food.ID)
	assert.ErrorIs(t, err, financeErrors.ErrCategoryNotFound)
}

func TestUpdateCategory_TypeChange(t *testing.T) {
	f := newFinanceFixture()
	ctx := context.Background()
	food := f.category(t, "Food", domain.Expense)
	income := domain.Income

	updated, err := f.categorySvc.UpdateCategory(ctx, testUserID, food.ID, domain.CategoryUpdate{Type: &income})
	require.NoError(t, err)
	assert.Equal(t, domain.Income, updated.Type)

	f.transaction(t, updated, 5, time.Now())
	expense := domain.Expense
	_, err = f.categorySvc.UpdateCategory(ctx, testUserID, food.ID, domain.CategoryUpdate{Type: &expense})
	assert.ErrorIs(t, err, financeErrors.ErrCategoryTypeInUse)

	name := "  Side income "
	color := "#00ff00"
	renamed, err := f.categorySvc.UpdateCategory(ctx, testUserID, food.ID, domain.CategoryUpdate{Name: &name, Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "Side income", renamed.Name)
	assert.Equal(t, "#00ff00", renamed.Color)
	assert.Equal(t, domain.Income, renamed.Type)
}

func TestUpdateCategory_Duplicate(t *testing.T) {
	f := newFinanceFixture()
	f.category(t, "Food", domain.Expense)
	rent := f.category(t, "Rent", domain.Expense)
	name := "Food"

	_, err := f.categorySvc.UpdateCategory(context.Background(), testUserID, rent.ID, domain.CategoryUpdate{Name: &name})
	assert.ErrorIs(t, err, financeErrors.ErrCategoryAlreadyExists)
}
