package interfaces

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"github.com/sebuszqo/FinanceHub/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceHub/internal/finance/errors"
	"github.com/sebuszqo/FinanceHub/internal/httpx"
)

const dateOnly = "2006-01-02"

var (
	errInvalidPage     = apperror.Validation("Invalid page value")
	errInvalidLimit    = apperror.Validation("Invalid limit value")
	errInvalidCategory = apperror.Validation("Invalid category ID")
	errInvalidDate     = apperror.Validation("Date must be a valid date")
)

type TransactionServiceInterface interface {
	CreateTransaction(ctx context.Context, transaction *domain.Transaction) error
	GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) (*domain.TransactionPage, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, update domain.TransactionUpdate) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
}

type SummaryServiceInterface interface {
	GetMonthlySummary(ctx context.Context, userID string, month, year int) (*domain.Summary, error)
}

type TransactionHandler struct {
	service        TransactionServiceInterface
	summaryService SummaryServiceInterface
	respondJSON    httpx.Responder
	respondError   httpx.ErrorResponder
}

func NewTransactionHandler(
	service TransactionServiceInterface,
	summaryService SummaryServiceInterface,
	respondJSON httpx.Responder,
	respondError httpx.ErrorResponder,
) *TransactionHandler {
	if service == nil || summaryService == nil {
		log.Fatal("Services must not be nil")
	}
	if respondJSON == nil || respondError == nil {
		log.Fatal("Response functions must not be nil")
	}
	return &TransactionHandler{
		service:        service,
		summaryService: summaryService,
		respondJSON:    respondJSON,
		respondError:   respondError,
	}
}

type createTransactionRequest struct {
	Type        string   `json:"type" validate:"required,oneof=income expense"`
	Amount      *float64 `json:"amount" validate:"required,gt=0"`
	Description string   `json:"description" validate:"notblank,max=200"`
	Category    string   `json:"category" validate:"required,uuid"`
	Date        string   `json:"date"`
	Notes       string   `json:"notes" validate:"max=500"`
}

type updateTransactionRequest struct {
	Type        *string  `json:"type" validate:"omitnil,oneof=income expense"`
	Amount      *float64 `json:"amount" validate:"omitnil,gt=0"`
	Description *string  `json:"description" validate:"omitnil,notblank,max=200"`
	Category    *string  `json:"category" validate:"omitnil,uuid"`
	Date        *string  `json:"date"`
	Notes       *string  `json:"notes" validate:"omitnil,max=500"`
}

func (req updateTransactionRequest) toUpdate() (domain.TransactionUpdate, error) {
	update := domain.TransactionUpdate{
		Amount:      req.Amount,
		Description: req.Description,
		CategoryID:  req.Category,
		Notes:       req.Notes,
	}
	if req.Type != nil {
		t := domain.TransactionType(*req.Type)
		update.Type = &t
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date, false)
		if err != nil {
			return update, err
		}
		update.Date = &date
	}
	return update, nil
}

// localDateTimeLayouts are ISO 8601 timestamps without a zone, as sent by
// datetime-local inputs. They are read as UTC.
var localDateTimeLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04"}

// parseDate accepts RFC 3339 timestamps, zoneless timestamps or plain dates.
// A plain date used as an upper bound covers the whole day.
func parseDate(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range localDateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(dateOnly, value)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return t, nil
}

func parsePositiveInt(value string, fallback int, invalid error) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, invalid
	}
	return n, nil
}

func parseTransactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	query := r.URL.Query()
	var filter domain.TransactionFilter

	if t := query.Get("type"); t != "" {
		if !domain.IsValidTransactionType(t) {
			return filter, financeErrors.ErrInvalidTransactionType
		}
		filter.Type = domain.TransactionType(t)
	}
	if c := query.Get("category"); c != "" {
		if _, err := uuid.Parse(c); err != nil {
			return filter, errInvalidCategory
		}
		filter.CategoryID = c
	}
	if from := query.Get("from"); from != "" {
		t, err := parseDate(from, false)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}
	if to := query.Get("to"); to != "" {
		t, err := parseDate(to, true)
		if err != nil {
			return filter, err
		}
		filter.To = &t
	}

	var err error
	if filter.Page, err = parsePositiveInt(query.Get("page"), 1, errInvalidPage); err != nil {
		return filter, err
	}
	if filter.Limit, err = parsePositiveInt(query.Get("limit"), 0, errInvalidLimit); err != nil {
		return filter, err
	}
	return filter, nil
}

// ValidatePathParamsMiddleware turns malformed transaction ids into 404s.
func (h *TransactionHandler) ValidatePathParamsMiddleware(next http.Handler) http.Handler {
	return validatePathParams(next, h.respondError, map[string]error{"id": financeErrors.ErrTransactionNotFound})
}

func (h *TransactionHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	filter, err := parseTransactionFilter(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.GetUserTransactions(r.Context(), userID, filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, httpx.Success(page))
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	transaction, err := h.service.GetTransaction(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]interface{}{"transaction": transaction}))
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	var req createTransactionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	transaction := &domain.Transaction{
		UserID:      userID,
		CategoryID:  req.Category,
		Type:        domain.TransactionType(req.Type),
		Amount:      *req.Amount,
		Description: req.Description,
		Notes:       req.Notes,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date, false)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		transaction.Date = date
	}

	if err := h.service.CreateTransaction(r.Context(), transaction); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, httpx.Success(map[string]interface{}{"transaction": transaction}))
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	var req updateTransactionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		h.respondError(w, r, err)
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	transaction, err := h.service.UpdateTransaction(r.Context(), userID, r.PathValue("id"), update)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]interface{}{"transaction": transaction}))
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	if err := h.service.DeleteTransaction(r.Context(), userID, r.PathValue("id")); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, httpx.Message("Transaction deleted successfully"))
}

// parseSummaryParam returns 0 for an absent value so the service falls back
// to the current month or year.
func parseSummaryParam(value string, valid func(int) bool, invalid error) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || !valid(n) {
		return 0, invalid
	}
	return n, nil
}

func (h *TransactionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	query := r.URL.Query()
	month, err := parseSummaryParam(query.Get("month"), domain.ValidMonth, financeErrors.ErrInvalidMonth)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	year, err := parseSummaryParam(query.Get("year"), domain.ValidYear, financeErrors.ErrInvalidYear)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	summary, err := h.summaryService.GetMonthlySummary(r.Context(), userID, month, year)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, httpx.Success(summary))
}
