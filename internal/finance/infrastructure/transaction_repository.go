package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceHub/internal/finance/errors"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const selectTransaction = `
	SELECT t.id, t.user_id, t.category_id, t.type, t.amount::float8, t.description, t.notes, t.date,
	       t.created_at, t.updated_at, c.name, c.type, c.icon, c.color
	FROM transactions t
	JOIN categories c ON c.id = t.category_id
`

func scanTransaction(row interface{ Scan(dest ...any) error }) (*domain.Transaction, error) {
	var (
		t   domain.Transaction
		ref domain.CategoryRef
	)
	err := row.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Type, &t.Amount, &t.Description, &t.Notes, &t.Date,
		&t.CreatedAt, &t.UpdatedAt, &ref.Name, &ref.Type, &ref.Icon, &ref.Color)
	if err != nil {
		return nil, err
	}
	ref.ID = t.CategoryID
	t.Category = &ref
	return &t, nil
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	var transactions []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// Create inserts only while the category is the user's, active and of the
// transaction's type. The (category_id, type) foreign key keeps that pairing
// true against a concurrent category update.
func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, category_id, type, amount, description, notes, date)
		SELECT c.user_id, c.id, c.type, $4::numeric, $5::varchar, $6::varchar, $7::timestamptz
		FROM categories c
		WHERE c.id = $2::uuid AND c.user_id = $1::uuid AND c.is_active AND c.type = $3::varchar
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, transaction.UserID, transaction.CategoryID, transaction.Type,
		transaction.Amount, transaction.Description, transaction.Notes, transaction.Date).
		Scan(&transaction.ID, &transaction.CreatedAt, &transaction.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isCategoryTypeConflict(err) || isMalformedID(err) {
			return r.explainCategoryMiss(ctx, transaction.UserID, transaction.CategoryID)
		}
		return fmt.Errorf("could not create transaction: %w", err)
	}
	return nil
}

// explainCategoryMiss tells apart the reasons a guarded transaction write
// matched no category.
func (r *TransactionRepository) explainCategoryMiss(ctx context.Context, userID, categoryID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND user_id = $2 AND is_active)`,
		categoryID, userID).Scan(&exists)
	if err != nil {
		if isMalformedID(err) {
			return financeErrors.ErrCategoryNotFound
		}
		return fmt.Errorf("could not check category: %w", err)
	}
	if !exists {
		return financeErrors.ErrCategoryNotFound
	}
	return financeErrors.ErrCategoryTypeMismatch
}

func (r *TransactionRepository) FindByID(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+" WHERE t.id = $1 AND t.user_id = $2", transactionID, userID)
	transaction, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, financeErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("could not find transaction: %w", err)
	}
	return transaction, nil
}

// filterClause renders the WHERE clause shared by the page and count queries.
func filterClause(userID string, filter domain.TransactionFilter) (string, []interface{}) {
	conditions := []string{"t.user_id = $1"}
	args := []interface{}{userID}
	add := func(condition string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}
	if filter.Type != "" {
		add("t.type = $%d", filter.Type)
	}
	if filter.CategoryID != "" {
		add("t.category_id = $%d", filter.CategoryID)
	}
	if filter.From != nil {
		add("t.date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("t.date <= $%d", *filter.To)
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *TransactionRepository) Find(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	where, args := filterClause(userID, filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions t"+where, args...).Scan(&total); err != nil {
		if isMalformedID(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("could not count transactions: %w", err)
	}

	query := selectTransaction + where +
		fmt.Sprintf(" ORDER BY t.date DESC, t.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("could not list transactions: %w", err)
	}
	transactions, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

// Update applies the same category guard as Create.
func (r *TransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) error {
	query := `
		UPDATE transactions t
		SET category_id = c.id, type = c.type, amount = $5, description = $6, notes = $7, date = $8, updated_at = NOW()
		FROM categories c
		WHERE t.id = $1 AND t.user_id = $2
		  AND c.id = $3 AND c.user_id = $2 AND c.is_active AND c.type = $4
		RETURNING t.updated_at
	`
	err := r.db.QueryRowContext(ctx, query, transaction.ID, transaction.UserID, transaction.CategoryID,
		transaction.Type, transaction.Amount, transaction.Description, transaction.Notes, transaction.Date).
		Scan(&transaction.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isCategoryTypeConflict(err) || isMalformedID(err) {
			if _, findErr := r.FindByID(ctx, transaction.UserID, transaction.ID); findErr != nil {
				return findErr
			}
			return r.explainCategoryMiss(ctx, transaction.UserID, transaction.CategoryID)
		}
		return fmt.Errorf("could not update transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Delete(ctx context.Context, userID, transactionID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = $1 AND user_id = $2", transactionID, userID)
	if err != nil {
		if isMalformedID(err) {
			return financeErrors.ErrTransactionNotFound
		}
		return fmt.Errorf("could not delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not delete transaction: %w", err)
	}
	if affected == 0 {
		return financeErrors.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) CountByCategory(ctx context.Context, userID, categoryID string) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND category_id = $2"
	if err := r.db.QueryRowContext(ctx, query, userID, categoryID).Scan(&count); err != nil {
		return 0, fmt.Errorf("could not count category transactions: %w", err)
	}
	return count, nil
}

// SummarizeByCategory groups the window by (type, category), largest total
// first.
func (r *TransactionRepository) SummarizeByCategory(ctx context.Context, userID string, start, end time.Time) ([]domain.CategoryTotal, error) {
	query := `
		SELECT t.type, t.category_id, c.name, c.icon, c.color, SUM(t.amount)::float8 AS total, COUNT(*) AS count
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = $1 AND t.date >= $2 AND t.date <= $3
		GROUP BY t.type, t.category_id, c.name, c.icon, c.color
		ORDER BY total DESC, c.name
	`
	rows, err := r.db.QueryContext(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("could not summarize transactions: %w", err)
	}
	defer rows.Close()

	var totals []domain.CategoryTotal
	for rows.Next() {
		var total domain.CategoryTotal
		if err := rows.Scan(&total.Type, &total.CategoryID, &total.CategoryName, &total.CategoryIcon,
			&total.CategoryColor, &total.Total, &total.Count); err != nil {
			return nil, fmt.Errorf("could not scan summary row: %w", err)
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

func (r *TransactionRepository) FindRecent(ctx context.Context, userID string, start, end time.Time, limit int) ([]domain.Transaction, error) {
	query := selectTransaction + `
		WHERE t.user_id = $1 AND t.date >= $2 AND t.date <= $3
		ORDER BY t.date DESC, t.created_at DESC
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, userID, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("could not list recent transactions: %w", err)
	}
	return collectTransactions(rows)
}
