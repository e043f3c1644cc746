package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sebuszqo/FinanceHub/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceHub/internal/finance/errors"
)

const (
	uniqueViolation            = "23505"
	foreignKeyViolation        = "23503"
	invalidTextRepresentation  = "22P02"
	categoriesActiveUniqueName = "categories_user_name_type_active"
	transactionCategoryTypeFK  = "transactions_category_type_fkey"
)

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func pgErrorCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isDuplicateCategory(err error) bool {
	code, constraint := pgErrorCode(err)
	return code == uniqueViolation && constraint == categoriesActiveUniqueName
}

// isCategoryTypeConflict reports a write that would leave a transaction
// typed differently from its category.
func isCategoryTypeConflict(err error) bool {
	code, constraint := pgErrorCode(err)
	return code == foreignKeyViolation && constraint == transactionCategoryTypeFK
}

// isMalformedID catches ids that never reached a uuid column; treated as
// missing rows.
func isMalformedID(err error) bool {
	code, _ := pgErrorCode(err)
	return code == invalidTextRepresentation
}

const selectCategory = `
	SELECT id, user_id, name, type, icon, color, is_default, is_active, created_at, updated_at
	FROM categories
`

func scanCategory(row interface{ Scan(dest ...any) error }) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.IsDefault, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) FindByUser(ctx context.Context, userID string, categoryType domain.TransactionType) ([]domain.Category, error) {
	query := selectCategory + " WHERE user_id = $1 AND is_active"
	args := []interface{}{userID}
	if categoryType != "" {
		query += " AND type = $2"
		args = append(args, categoryType)
	}
	query += " ORDER BY type, name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan category: %w", err)
		}
		categories = append(categories, *category)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) FindByID(ctx context.Context, userID, categoryID string) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx, selectCategory+" WHERE id = $1 AND user_id = $2 AND is_active", categoryID, userID)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, financeErrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("could not find category: %w", err)
	}
	return category, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (user_id, name, type, icon, color, is_default, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, category.UserID, category.Name, category.Type, category.Icon,
		category.Color, category.IsDefault, category.IsActive).
		Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if isDuplicateCategory(err) {
			return financeErrors.ErrCategoryAlreadyExists
		}
		return fmt.Errorf("could not create category: %w", err)
	}
	return nil
}

// Update refuses to change the type of a category that transactions still
// point at, checked in the same statement as the write.
func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories c
		SET name = $3, type = $4, icon = $5, color = $6, updated_at = NOW()
		WHERE c.id = $1 AND c.user_id = $2 AND c.is_active
		  AND (c.type = $4 OR NOT EXISTS (SELECT 1 FROM transactions t WHERE t.category_id = c.id))
		RETURNING c.updated_at
	`
	err := r.db.QueryRowContext(ctx, query, category.ID, category.UserID, category.Name, category.Type,
		category.Icon, category.Color).Scan(&category.UpdatedAt)
	if err != nil {
		if isDuplicateCategory(err) {
			return financeErrors.ErrCategoryAlreadyExists
		}
		if isCategoryTypeConflict(err) {
			return domain.ErrCategoryReferenced
		}
		if errors.Is(err, sql.ErrNoRows) {
			return r.explainMiss(ctx, category.UserID, category.ID)
		}
		return fmt.Errorf("could not update category: %w", err)
	}
	return nil
}

// Deactivate soft-deletes an unreferenced category.
func (r *CategoryRepository) Deactivate(ctx context.Context, userID, categoryID string) error {
	query := `
		UPDATE categories c
		SET is_active = FALSE, updated_at = NOW()
		WHERE c.id = $1 AND c.user_id = $2 AND c.is_active
		  AND NOT EXISTS (SELECT 1 FROM transactions t WHERE t.category_id = c.id)
	`
	res, err := r.db.ExecContext(ctx, query, categoryID, userID)
	if err != nil {
		if isMalformedID(err) {
			return financeErrors.ErrCategoryNotFound
		}
		return fmt.Errorf("could not delete category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not delete category: %w", err)
	}
	if affected == 0 {
		return r.explainMiss(ctx, userID, categoryID)
	}
	return nil
}

// explainMiss tells a guarded write that matched nothing apart: either the
// category is gone or something references it.
func (r *CategoryRepository) explainMiss(ctx context.Context, userID, categoryID string) error {
	if _, err := r.FindByID(ctx, userID, categoryID); err != nil {
		return err
	}
	return domain.ErrCategoryReferenced
}

// SeedDefaults inserts the starter categories inside the registration
// transaction so a user never exists without them.
func (r *CategoryRepository) SeedDefaults(ctx context.Context, tx *sql.Tx, userID string) error {
	defaults := domain.DefaultCategories(userID)
	values := make([]string, 0, len(defaults))
	args := make([]interface{}, 0, len(defaults)*5+1)
	args = append(args, userID)
	for _, c := range defaults {
		n := len(args)
		values = append(values, fmt.Sprintf("($1, $%d, $%d, $%d, $%d, TRUE, TRUE)", n+1, n+2, n+3, n+4))
		args = append(args, c.Name, c.Type, c.Icon, c.Color)
	}
	query := "INSERT INTO categories (user_id, name, type, icon, color, is_default, is_active) VALUES " + strings.Join(values, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("could not seed categories: %w", err)
	}
	return nil
}
