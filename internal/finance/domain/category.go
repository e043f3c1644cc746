package domain

import (
	"context"
	"errors"
	"time"
)

type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

func IsValidTransactionType(t string) bool {
	return t == string(Income) || t == string(Expense)
}

const (
	DefaultCategoryIcon  = "Circle"
	DefaultCategoryColor = "#8b949e"
)

type Category struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	Icon      string          `json:"icon"`
	Color     string          `json:"color"`
	IsDefault bool            `json:"isDefault"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CategoryUpdate carries only the fields the caller sent.
type CategoryUpdate struct {
	Name  *string
	Type  *TransactionType
	Icon  *string
	Color *string
}

func (u CategoryUpdate) Apply(c *Category) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Type != nil {
		c.Type = *u.Type
	}
	if u.Icon != nil {
		c.Icon = *u.Icon
	}
	if u.Color != nil {
		c.Color = *u.Color
	}
}

// ErrCategoryReferenced is returned by guarded writes that lost a race with
// a transaction being attached to the category.
var ErrCategoryReferenced = errors.New("category is referenced by transactions")

// CategoryRepository only ever sees active categories; a soft-deleted row is
// indistinguishable from a missing one.
type CategoryRepository interface {
	FindByUser(ctx context.Context, userID string, categoryType TransactionType) ([]Category, error)
	FindByID(ctx context.Context, userID, categoryID string) (*Category, error)
	Create(ctx context.Context, category *Category) error
	Update(ctx context.Context, category *Category) error
	Deactivate(ctx context.Context, userID, categoryID string) error
}

type defaultCategory struct {
	Name  string
	Type  TransactionType
	Icon  string
	Color string
}

var defaultCategories = []defaultCategory{
	{"Consulting", Income, "Briefcase", "#3fb950"},
	{"Loan repayments", Income, "HandCoins", "#58a6ff"},
	{"Interest", Income, "TrendingUp", "#d2a8ff"},
	{"Other income", Income, "CircleDollarSign", "#79c0ff"},

	{"Bills & utilities", Expense, "Receipt", "#f85149"},
	{"Home", Expense, "Home", "#ffa657"},
	{"Household help", Expense, "UserCheck", "#d2a8ff"},
	{"Dining out", Expense, "UtensilsCrossed", "#ff7b72"},
	{"Shopping", Expense, "ShoppingBag", "#79c0ff"},
	{"Luxuries", Expense, "Gem", "#d2a8ff"},
	{"Wellbeing", Expense, "Heart", "#f778ba"},
	{"Credit cards", Expense, "CreditCard", "#ffa657"},
	{"Loans given", Expense, "Banknote", "#e3b341"},
	{"Other expenses", Expense, "MoreHorizontal", "#8b949e"},
}

// DefaultCategories returns the starter set seeded for every new user.
func DefaultCategories(userID string) []Category {
	categories := make([]Category, 0, len(defaultCategories))
	for _, d := range defaultCategories {
		categories = append(categories, Category{
			UserID:    userID,
			Name:      d.Name,
			Type:      d.Type,
			Icon:      d.Icon,
			Color:     d.Color,
			IsDefault: true,
			IsActive:  true,
		})
	}
	return categories
}
