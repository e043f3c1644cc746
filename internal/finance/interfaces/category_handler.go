package interfaces

import (
	"context"
	"log"
	"net/http"

	"github.com/sebuszqo/FinanceHub/internal/finance/domain"
	financeErrors "github.com/sebuszqo/FinanceHub/internal/finance/errors"
	"github.com/sebuszqo/FinanceHub/internal/httpx"
)

type CategoryServiceInterface interface {
	GetUserCategories(ctx context.Context, userID string, categoryType domain.TransactionType) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	UpdateCategory(ctx context.Context, userID, categoryID string, update domain.CategoryUpdate) (*domain.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

type CategoryHandler struct {
	service      CategoryServiceInterface
	respondJSON  httpx.Responder
	respondError httpx.ErrorResponder
}

func NewCategoryHandler(service CategoryServiceInterface, respondJSON httpx.Responder, respondError httpx.ErrorResponder) *CategoryHandler {
	if service == nil || respondJSON == nil || respondError == nil {
		log.Fatal("Service and response functions must not be nil")
	}
	return &CategoryHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

type createCategoryRequest struct {
	Name  string `json:"name" validate:"notblank,max=50"`
	Type  string `json:"type" validate:"required,oneof=income expense"`
	Icon  string `json:"icon" validate:"omitempty,max=50"`
	Color string `json:"color" validate:"omitempty,color6"`
}

type updateCategoryRequest struct {
	Name  *string `json:"name" validate:"omitnil,notblank,max=50"`
	Type  *string `json:"type" validate:"omitnil,oneof=income expense"`
	Icon  *string `json:"icon" validate:"omitnil,max=50"`
	Color *string `json:"color" validate:"omitnil,color6"`
}

func (req updateCategoryRequest) toUpdate() domain.CategoryUpdate {
	update := domain.CategoryUpdate{Name: req.Name, Icon: req.Icon, Color: req.Color}
	if req.Type != nil {
		t := domain.TransactionType(*req.Type)
		update.Type = &t
	}
	return update
}

// ValidatePathParamsMiddleware turns malformed category ids into 404s.
func (h *CategoryHandler) ValidatePathParamsMiddleware(next http.Handler) http.Handler {
	return validatePathParams(next, h.respondError, map[string]error{"id": financeErrors.ErrCategoryNotFound})
}

func (h *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	categoryType := r.URL.Query().Get("type")
	if categoryType != "" && !domain.IsValidTransactionType(categoryType) {
		h.respondError(w, r, financeErrors.ErrInvalidTransactionType)
		return
	}

	categories, err := h.service.GetUserCategories(r.Context(), userID, domain.TransactionType(categoryType))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	}))
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	var req createCategoryRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	category := &domain.Category{
		UserID: userID,
		Name:   req.Name,
		Type:   domain.TransactionType(req.Type),
		Icon:   req.Icon,
		Color:  req.Color,
	}
	if err := h.service.CreateCategory(r.Context(), category); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, httpx.Success(map[string]interface{}{"category": category}))
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	var req updateCategoryRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), userID, r.PathValue("id"), req.toUpdate())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]interface{}{"category": category}))
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	if err := h.service.DeleteCategory(r.Context(), userID, r.PathValue("id")); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, httpx.Message("Category deleted successfully"))
}
