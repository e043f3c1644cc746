package user

import (
	"net/http"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"github.com/sebuszqo/FinanceHub/internal/httpx"
)

var errNotAuthenticated = apperror.Unauthorized("Not authorized, please log in")

type Handler struct {
	respondJSON  httpx.Responder
	respondError httpx.ErrorResponder
}

func NewHandler(respondJSON httpx.Responder, respondError httpx.ErrorResponder) *Handler {
	return &Handler{
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

// HandleMe returns the user resolved by the session middleware.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	current, ok := FromContext(r.Context())
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}
	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]interface{}{
		"user": current,
	}))
}
