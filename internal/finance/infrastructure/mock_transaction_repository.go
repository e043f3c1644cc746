package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceHub/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceHub/internal/finance/errors"
)

// MockCategoryRepository is an in-memory domain.CategoryRepository used by
// service and handler tests.
type MockCategoryRepository struct {
	mu         sync.RWMutex
	Categories map[string]*domain.Category
	// Transactions, when set, lets guarded writes see references.
	Transactions *MockTransactionRepository
}

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{Categories: make(map[string]*domain.Category)}
}

func (m *MockCategoryRepository) FindByUser(_ context.Context, userID string, categoryType domain.TransactionType) ([]domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var categories []domain.Category
	for _, c := range m.Categories {
		if c.UserID == userID && c.IsActive && (categoryType == "" || c.Type == categoryType) {
			categories = append(categories, *c)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Type != categories[j].Type {
			return categories[i].Type < categories[j].Type
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (m *MockCategoryRepository) FindByID(_ context.Context, userID, categoryID string) (*domain.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.Categories[categoryID]
	if !ok || c.UserID != userID || !c.IsActive {
		return nil, financeErrors.ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *MockCategoryRepository) duplicate(category *domain.Category) bool {
	for id, c := range m.Categories {
		if id != category.ID && c.IsActive && c.UserID == category.UserID && c.Name == category.Name && c.Type == category.Type {
			return true
		}
	}
	return false
}

func (m *MockCategoryRepository) Create(_ context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.duplicate(category) {
		return financeErrors.ErrCategoryAlreadyExists
	}
	category.ID = uuid.NewString()
	category.CreatedAt = time.Now().UTC()
	category.UpdatedAt = category.CreatedAt
	stored := *category
	m.Categories[category.ID] = &stored
	return nil
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Categories[category.ID]
	if !ok || existing.UserID != category.UserID || !existing.IsActive {
		return financeErrors.ErrCategoryNotFound
	}
	if m.duplicate(category) {
		return financeErrors.ErrCategoryAlreadyExists
	}
	if existing.Type != category.Type && m.referenced(ctx, category.UserID, category.ID) {
		return domain.ErrCategoryReferenced
	}
	category.UpdatedAt = time.Now().UTC()
	stored := *category
	m.Categories[category.ID] = &stored
	return nil
}

func (m *MockCategoryRepository) Deactivate(ctx context.Context, userID, categoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Categories[categoryID]
	if !ok || c.UserID != userID || !c.IsActive {
		return financeErrors.ErrCategoryNotFound
	}
	if m.referenced(ctx, userID, categoryID) {
		return domain.ErrCategoryReferenced
	}
	c.IsActive = false
	return nil
}

func (m *MockCategoryRepository) referenced(ctx context.Context, userID, categoryID string) bool {
	if m.Transactions == nil {
		return false
	}
	count, _ := m.Transactions.CountByCategory(ctx, userID, categoryID)
	return count > 0
}

// SeedDefaults mirrors the Postgres seeder without a transaction.
func (m *MockCategoryRepository) SeedDefaults(ctx context.Context, userID string) error {
	for _, c := range domain.DefaultCategories(userID) {
		c := c
		if err := m.Create(ctx, &c); err != nil {
			return err
		}
	}
	return nil
}

// MockTransactionRepository is an in-memory domain.TransactionRepository.
// Reads are enriched from Categories.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	Transactions []domain.Transaction
	Categories   *MockCategoryRepository
	// Err, when set, is returned by every read.
	Err error
}

func NewMockTransactionRepository(categories *MockCategoryRepository) *MockTransactionRepository {
	repo := &MockTransactionRepository{Categories: categories}
	if categories != nil {
		categories.Transactions = repo
	}
	return repo
}

func (m *MockTransactionRepository) enrich(t domain.Transaction) domain.Transaction {
	if m.Categories == nil {
		return t
	}
	m.Categories.mu.RLock()
	defer m.Categories.mu.RUnlock()
	if c, ok := m.Categories.Categories[t.CategoryID]; ok {
		t.Category = &domain.CategoryRef{ID: c.ID, Name: c.Name, Type: c.Type, Icon: c.Icon, Color: c.Color}
	}
	return t
}

// checkCategory applies the Postgres write guard. It runs before m.mu is taken
// since category writes lock in the other order.
func (m *MockTransactionRepository) checkCategory(transaction *domain.Transaction) error {
	if m.Categories == nil {
		return nil
	}
	m.Categories.mu.RLock()
	defer m.Categories.mu.RUnlock()
	c, ok := m.Categories.Categories[transaction.CategoryID]
	if !ok || c.UserID != transaction.UserID || !c.IsActive {
		return financeErrors.ErrCategoryNotFound
	}
	if c.Type != transaction.Type {
		return financeErrors.ErrCategoryTypeMismatch
	}
	return nil
}

func (m *MockTransactionRepository) Create(_ context.Context, transaction *domain.Transaction) error {
	if err := m.checkCategory(transaction); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	transaction.ID = uuid.NewString()
	transaction.CreatedAt = time.Now().UTC()
	transaction.UpdatedAt = transaction.CreatedAt
	m.Transactions = append(m.Transactions, *transaction)
	return nil
}

func (m *MockTransactionRepository) FindByID(_ context.Context, userID, transactionID string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, t := range m.Transactions {
		if t.ID == transactionID && t.UserID == userID {
			enriched := m.enrich(t)
			return &enriched, nil
		}
	}
	return nil, financeErrors.ErrTransactionNotFound
}

func matches(t domain.Transaction, userID string, filter domain.TransactionFilter) bool {
	switch {
	case t.UserID != userID:
		return false
	case filter.Type != "" && t.Type != filter.Type:
		return false
	case filter.CategoryID != "" && t.CategoryID != filter.CategoryID:
		return false
	case filter.From != nil && t.Date.Before(*filter.From):
		return false
	case filter.To != nil && t.Date.After(*filter.To):
		return false
	}
	return true
}

func sortNewestFirst(transactions []domain.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		if !transactions[i].Date.Equal(transactions[j].Date) {
			return transactions[i].Date.After(transactions[j].Date)
		}
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})
}

func (m *MockTransactionRepository) Find(_ context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, 0, m.Err
	}
	var filtered []domain.Transaction
	for _, t := range m.Transactions {
		if matches(t, userID, filter) {
			filtered = append(filtered, m.enrich(t))
		}
	}
	sortNewestFirst(filtered)

	total := len(filtered)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

func (m *MockTransactionRepository) Update(_ context.Context, transaction *domain.Transaction) error {
	categoryErr := m.checkCategory(transaction)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.Transactions {
		if t.ID == transaction.ID && t.UserID == transaction.UserID {
			if categoryErr != nil {
				return categoryErr
			}
			transaction.UpdatedAt = time.Now().UTC()
			stored := *transaction
			stored.Category = nil
			m.Transactions[i] = stored
			return nil
		}
	}
	return financeErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) Delete(_ context.Context, userID, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.Transactions {
		if t.ID == transactionID && t.UserID == userID {
			m.Transactions = append(m.Transactions[:i], m.Transactions[i+1:]...)
			return nil
		}
	}
	return financeErrors.ErrTransactionNotFound
}

func (m *MockTransactionRepository) CountByCategory(_ context.Context, userID, categoryID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, t := range m.Transactions {
		if t.UserID == userID && t.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (m *MockTransactionRepository) inWindow(t domain.Transaction, userID string, start, end time.Time) bool {
	return t.UserID == userID && !t.Date.Before(start) && !t.Date.After(end)
}

func (m *MockTransactionRepository) SummarizeByCategory(_ context.Context, userID string, start, end time.Time) ([]domain.CategoryTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	type key struct {
		kind       domain.TransactionType
		categoryID string
	}
	groups := make(map[key]*domain.CategoryTotal)
	var order []key
	for _, t := range m.Transactions {
		if !m.inWindow(t, userID, start, end) {
			continue
		}
		k := key{t.Type, t.CategoryID}
		group, ok := groups[k]
		if !ok {
			enriched := m.enrich(t)
			group = &domain.CategoryTotal{Type: t.Type, CategoryID: t.CategoryID}
			if enriched.Category != nil {
				group.CategoryName = enriched.Category.Name
				group.CategoryIcon = enriched.Category.Icon
				group.CategoryColor = enriched.Category.Color
			}
			groups[k] = group
			order = append(order, k)
		}
		group.Total += t.Amount
		group.Count++
	}

	totals := make([]domain.CategoryTotal, 0, len(order))
	for _, k := range order {
		totals = append(totals, *groups[k])
	}
	return totals, nil
}

func (m *MockTransactionRepository) FindRecent(_ context.Context, userID string, start, end time.Time, limit int) ([]domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var recent []domain.Transaction
	for _, t := range m.Transactions {
		if m.inWindow(t, userID, start, end) {
			recent = append(recent, m.enrich(t))
		}
	}
	sortNewestFirst(recent)
	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}
