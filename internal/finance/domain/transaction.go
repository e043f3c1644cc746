package domain

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
)

const (
	MaxDescriptionLength = 200
	MaxNotesLength       = 500
)

// CategoryRef is the slice of a category embedded in transaction reads.
type CategoryRef struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  TransactionType `json:"type"`
	Icon  string          `json:"icon"`
	Color string          `json:"color"`
}

type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	CategoryID  string          `json:"categoryId"`
	Category    *CategoryRef    `json:"category,omitempty"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Notes       string          `json:"notes"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func RoundToTwoDecimalPlaces(v float64) float64 {
	return math.Round(v*100) / 100
}

func (t *Transaction) RoundToTwoDecimalPlaces() {
	t.Amount = RoundToTwoDecimalPlaces(t.Amount)
}

func (t *Transaction) Validate() error {
	var validationErrors apperror.ValidationErrors
	if !IsValidTransactionType(string(t.Type)) {
		validationErrors.Add("Type must be income or expense")
	}
	if t.Amount <= 0 {
		validationErrors.Add("Amount must be greater than 0")
	}
	description := strings.TrimSpace(t.Description)
	if description == "" {
		validationErrors.Add("Description is required")
	} else if len([]rune(description)) > MaxDescriptionLength {
		validationErrors.Add("Description cannot exceed 200 characters")
	}
	if len([]rune(t.Notes)) > MaxNotesLength {
		validationErrors.Add("Notes cannot exceed 500 characters")
	}
	return validationErrors.Err()
}

// TransactionUpdate carries only the fields the caller sent.
type TransactionUpdate struct {
	Type        *TransactionType
	Amount      *float64
	Description *string
	CategoryID  *string
	Date        *time.Time
	Notes       *string
}

// ChangesClassification reports whether the write could break the
// transaction/category type agreement.
func (u TransactionUpdate) ChangesClassification(current Transaction) bool {
	return (u.Type != nil && *u.Type != current.Type) ||
		(u.CategoryID != nil && *u.CategoryID != current.CategoryID)
}

func (u TransactionUpdate) Apply(t *Transaction) {
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.Description != nil {
		t.Description = strings.TrimSpace(*u.Description)
	}
	if u.CategoryID != nil {
		t.CategoryID = *u.CategoryID
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if u.Notes != nil {
		t.Notes = strings.TrimSpace(*u.Notes)
	}
}

type TransactionFilter struct {
	Type       TransactionType
	CategoryID string
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

func (f TransactionFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasMore bool `json:"hasMore"`
}

func NewPagination(filter TransactionFilter, returned, total int) Pagination {
	pages := 0
	if filter.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(filter.Limit)))
	}
	return Pagination{
		Page:    filter.Page,
		Limit:   filter.Limit,
		Total:   total,
		Pages:   pages,
		HasMore: filter.Offset()+returned < total,
	}
}

type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

// TransactionRepository reads always come back enriched with CategoryRef and
// are scoped to the owning user.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) error
	FindByID(ctx context.Context, userID, transactionID string) (*Transaction, error)
	Find(ctx context.Context, userID string, filter TransactionFilter) ([]Transaction, int, error)
	Update(ctx context.Context, transaction *Transaction) error
	Delete(ctx context.Context, userID, transactionID string) error
	CountByCategory(ctx context.Context, userID, categoryID string) (int, error)
	SummarizeByCategory(ctx context.Context, userID string, start, end time.Time) ([]CategoryTotal, error)
	FindRecent(ctx context.Context, userID string, start, end time.Time, limit int) ([]Transaction, error)
}
