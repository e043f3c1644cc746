package errors

import (
	"fmt"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
)

var (
	ErrCategoryNotFound       = apperror.NotFound("Category not found")
	ErrCategoryAlreadyExists  = apperror.Conflict("Category already exists")
	ErrCategoryTypeInUse      = apperror.Conflict("Cannot change the type of a category with transactions")
	ErrCategoryTypeMismatch   = apperror.Validation("Category type does not match transaction type")
	ErrTransactionNotFound    = apperror.NotFound("Transaction not found")
	ErrInvalidTransactionType = apperror.Validation("Type must be income or expense")
	ErrInvalidMonth           = apperror.Validation("Month must be between 1 and 12")
	ErrInvalidYear            = apperror.Validation("Year must be between 2020 and 2100")
)

// NewCategoryInUseError reports how many transactions still point at a
// category that is about to be deleted.
func NewCategoryInUseError(count int) error {
	return apperror.Conflict(fmt.Sprintf("Cannot delete category with %d transactions. Reassign them first.", count))
}

func NewValidationError(msg string) error {
	return apperror.Validation(msg)
}

func IsValidationError(err error) bool {
	return apperror.IsKind(err, apperror.KindValidation)
}
