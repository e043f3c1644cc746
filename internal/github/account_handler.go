package github

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"github.com/sebuszqo/FinanceHub/internal/httpx"
	applog "github.com/sebuszqo/FinanceHub/internal/log"
	"github.com/sebuszqo/FinanceHub/internal/user"
	"golang.org/x/oauth2"
)

var (
	ErrCodeRequired = apperror.Validation("GitHub authorization code is required")
	ErrInvalidCode  = apperror.Validation("Invalid or expired GitHub authorization code")
	errExchange     = apperror.Upstream("GitHub authorization failed", nil)
)

// Linker is the slice of the user service that stores the linked account.
type Linker interface {
	LinkGitHub(ctx context.Context, userID, accessToken string, profile user.GitHubProfile) error
	UnlinkGitHub(ctx context.Context, userID string) error
}

// AccountHandler links and unlinks a GitHub account.
type AccountHandler struct {
	oauth        *OAuth
	client       *Client
	users        Linker
	frontendURL  string
	respondJSON  httpx.Responder
	respondError httpx.ErrorResponder
	logger       *applog.Logger
}

func NewAccountHandler(oauth *OAuth, client *Client, users Linker, frontendURL string, respondJSON httpx.Responder, respondError httpx.ErrorResponder) *AccountHandler {
	if oauth == nil || client == nil || users == nil {
		log.Fatal("OAuth config, client and user service must not be nil")
	}
	return &AccountHandler{
		oauth:        oauth,
		client:       client,
		users:        users,
		frontendURL:  frontendURL,
		respondJSON:  respondJSON,
		respondError: respondError,
		logger:       applog.Default("github"),
	}
}

func (h *AccountHandler) HandleAuthURL(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]string{
		"url": h.oauth.AuthURL(uuid.NewString()),
	}))
}

// HandleCallback hands the code to the frontend, which completes the link
// through HandleConnect while the user's session cookie is present.
func (h *AccountHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, h.frontendURL+"/profile?error=no_code", http.StatusFound)
		return
	}
	http.Redirect(w, r, h.frontendURL+"/auth/github/callback?code="+url.QueryEscape(code), http.StatusFound)
}

type connectRequest struct {
	Code string `json:"code"`
}

func (h *AccountHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	var req connectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Code == "" {
		h.respondError(w, r, ErrCodeRequired)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), req.Code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			h.respondError(w, r, apperror.Wrap(ErrInvalidCode, err))
			return
		}
		h.respondError(w, r, apperror.Wrap(errExchange, err))
		return
	}

	account, err := h.client.GetAuthenticatedUser(r.Context(), token)
	if err != nil {
		h.respondError(w, r, translate(err))
		return
	}

	profile := account.Profile()
	if err := h.users.LinkGitHub(r.Context(), current.ID, token, profile); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "github account linked", "user_id", current.ID, "github_id", profile.ID)
	h.respondJSON(w, http.StatusOK, httpx.Envelope{
		Success: true,
		Message: "GitHub connected successfully",
		Data:    map[string]interface{}{"github": profile},
	})
}

// HandleDisconnect unlinks the account and drops its favorites. Revoking the
// grant at GitHub is best-effort.
func (h *AccountHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.respondError(w, r, errNotAuthenticated)
		return
	}

	if err := h.users.UnlinkGitHub(r.Context(), current.ID); err != nil {
		h.respondError(w, r, err)
		return
	}
	if current.GitHubAccessToken != "" {
		if err := h.oauth.Revoke(r.Context(), current.GitHubAccessToken); err != nil {
			h.logger.WarnContext(r.Context(), "could not revoke github token", "user_id", current.ID, "error", err)
		}
	}

	h.respondJSON(w, http.StatusOK, httpx.Message("GitHub disconnected successfully"))
}
