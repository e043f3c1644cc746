package favorite

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"github.com/sebuszqo/FinanceHub/internal/httpx"
	"github.com/sebuszqo/FinanceHub/internal/user"
)

var (
	errNotAuthenticated = apperror.Unauthorized("Not authorized, please log in")
	ErrInvalidRepoID    = apperror.Validation("Invalid repository ID")
)

type ServiceInterface interface {
	List(ctx context.Context, userID string) ([]Favorite, error)
	IsFavorite(ctx context.Context, userID string, repoID int64) (bool, error)
	Add(ctx context.Context, userID, token string, repoID int64, owner, name string) (*Favorite, error)
	Remove(ctx context.Context, userID string, repoID int64) error
}

type Handler struct {
	service      ServiceInterface
	respondJSON  httpx.Responder
	respondError httpx.ErrorResponder
}

func NewHandler(service ServiceInterface, respondJSON httpx.Responder, respondError httpx.ErrorResponder) *Handler {
	if service == nil || respondJSON == nil || respondError == nil {
		log.Fatal("Service and response functions must not be nil")
	}
	return &Handler{service: service, respondJSON: respondJSON, respondError: respondError}
}

type addRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func repoIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("repoId"), 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidRepoID
	}
	return id, nil
}

func (h *Handler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	favorites, err := h.service.List(r.Context(), current.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]interface{}{
		"favorites": favorites,
		"count":     len(favorites),
	}))
}

func (h *Handler) CheckFavorite(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}
	repoID, err := repoIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	isFavorite, err := h.service.IsFavorite(r.Context(), current.ID, repoID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]bool{"isFavorite": isFavorite}))
}

func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}
	if !current.HasGitHub() {
		h.respondError(w, r, user.ErrGitHubNotConnected)
		return
	}
	repoID, err := repoIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req addRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	favorite, err := h.service.Add(r.Context(), current.ID, current.GitHubAccessToken, repoID, req.Owner, req.Repo)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, httpx.Envelope{
		Success: true,
		Message: "Added to favorites",
		Data:    map[string]interface{}{"favorite": favorite},
	})
}

func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}
	repoID, err := repoIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.service.Remove(r.Context(), current.ID, repoID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, httpx.Message("Removed from favorites"))
}
