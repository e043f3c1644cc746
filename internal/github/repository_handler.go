package github

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"github.com/sebuszqo/FinanceHub/internal/httpx"
	"github.com/sebuszqo/FinanceHub/internal/user"
)

var errNotAuthenticated = apperror.Unauthorized("Not authorized, please log in")

type RepositoryServiceInterface interface {
	ListRepositories(ctx context.Context, userID, token string, page, perPage int, sort string) (*RepositoryPage, error)
	SearchRepositories(ctx context.Context, userID, token, query string, page, perPage int) (*RepositoryPage, error)
	GetRepository(ctx context.Context, userID, token, owner, repo string) (*Repository, error)
	GetReadme(ctx context.Context, token, owner, repo string) (*Readme, error)
	ListCommits(ctx context.Context, token, owner, repo string, perPage int) ([]Commit, error)
	ListContributors(ctx context.Context, token, owner, repo string, perPage int) ([]Contributor, error)
}

type RepositoryHandler struct {
	service      RepositoryServiceInterface
	respondJSON  httpx.Responder
	respondError httpx.ErrorResponder
}

func NewRepositoryHandler(service RepositoryServiceInterface, respondJSON httpx.Responder, respondError httpx.ErrorResponder) *RepositoryHandler {
	if service == nil || respondJSON == nil || respondError == nil {
		log.Fatal("Service and response functions must not be nil")
	}
	return &RepositoryHandler{service: service, respondJSON: respondJSON, respondError: respondError}
}

// linkedUser returns the caller and their GitHub token. Routes are expected
// to sit behind auth.RequireGitHub; this only guards against misrouting.
func linkedUser(r *http.Request) (*user.User, error) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		return nil, errNotAuthenticated
	}
	if !current.HasGitHub() {
		return nil, user.ErrGitHubNotConnected
	}
	return current, nil
}

// intParam falls back when the value is missing or not a number.
func intParam(r *http.Request, name string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return n
}

func (h *RepositoryHandler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	current, err := linkedUser(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.ListRepositories(r.Context(), current.ID, current.GitHubAccessToken,
		intParam(r, "page", 1), intParam(r, "perPage", DefaultPerPage), r.URL.Query().Get("sort"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, httpx.Success(page))
}

func (h *RepositoryHandler) SearchRepositories(w http.ResponseWriter, r *http.Request) {
	current, err := linkedUser(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.SearchRepositories(r.Context(), current.ID, current.GitHubAccessToken,
		r.URL.Query().Get("q"), intParam(r, "page", 1), intParam(r, "perPage", DefaultPerPage))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, httpx.Success(page))
}

func (h *RepositoryHandler) GetRepository(w http.ResponseWriter, r *http.Request) {
	current, err := linkedUser(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	repository, err := h.service.GetRepository(r.Context(), current.ID, current.GitHubAccessToken, r.PathValue("owner"), r.PathValue("repo"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]interface{}{"repository": repository}))
}

func (h *RepositoryHandler) GetReadme(w http.ResponseWriter, r *http.Request) {
	current, err := linkedUser(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	readme, err := h.service.GetReadme(r.Context(), current.GitHubAccessToken, r.PathValue("owner"), r.PathValue("repo"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, httpx.Success(readme))
}

func (h *RepositoryHandler) ListCommits(w http.ResponseWriter, r *http.Request) {
	current, err := linkedUser(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	commits, err := h.service.ListCommits(r.Context(), current.GitHubAccessToken, r.PathValue("owner"), r.PathValue("repo"),
		intParam(r, "perPage", DefaultCommitsPerPage))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]interface{}{"commits": commits}))
}

func (h *RepositoryHandler) ListContributors(w http.ResponseWriter, r *http.Request) {
	current, err := linkedUser(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	contributors, err := h.service.ListContributors(r.Context(), current.GitHubAccessToken, r.PathValue("owner"), r.PathValue("repo"),
		intParam(r, "perPage", DefaultContributorsPerPage))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, httpx.Success(map[string]interface{}{"contributors": contributors}))
}
