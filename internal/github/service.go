package github

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
)

const (
	DefaultPerPage             = 30
	MaxPerPage                 = 100
	DefaultCommitsPerPage      = 10
	DefaultContributorsPerPage = 20
	minSearchQueryLength       = 2
)

var (
	ErrTokenExpired        = apperror.Unauthorized("GitHub token expired, please reconnect")
	ErrRepositoryNotFound  = apperror.NotFound("Repository not found")
	ErrSearchQueryTooShort = apperror.Validation("Search query must be at least 2 characters")
	errUpstream            = apperror.Upstream("GitHub request failed", nil)
)

// FavoriteLookup reports which repository ids a user has favorited.
type FavoriteLookup interface {
	FavoriteIDs(ctx context.Context, userID string) (map[int64]bool, error)
}

type Service struct {
	client    *Client
	favorites FavoriteLookup
	cache     Cache
	cacheTTL  time.Duration
}

// NewService wires the upstream client. cache may be nil.
func NewService(client *Client, favorites FavoriteLookup, cache Cache, cacheTTL time.Duration) *Service {
	return &Service{client: client, favorites: favorites, cache: cache, cacheTTL: cacheTTL}
}

// SetFavoriteLookup breaks the construction cycle with the favorites service,
// which fetches repositories through this one.
func (s *Service) SetFavoriteLookup(favorites FavoriteLookup) {
	s.favorites = favorites
}

func statusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// translate applies the shared part of every endpoint's policy: 401 means the
// linked token is dead, anything else unexpected is an upstream failure.
func translate(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if statusOf(err) == http.StatusUnauthorized {
		return ErrTokenExpired
	}
	return apperror.Wrap(errUpstream, err)
}

func translateRepoLookup(err error) error {
	if statusOf(err) == http.StatusNotFound {
		return ErrRepositoryNotFound
	}
	return translate(err)
}

func (s *Service) markFavorites(ctx context.Context, userID string, repos []Repository) error {
	if s.favorites == nil || len(repos) == 0 {
		return nil
	}
	ids, err := s.favorites.FavoriteIDs(ctx, userID)
	if err != nil {
		return err
	}
	for i := range repos {
		repos[i].IsFavorite = ids[repos[i].ID]
	}
	return nil
}

func clampPerPage(perPage, fallback int) int {
	if perPage < 1 {
		return fallback
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}

func (s *Service) ListRepositories(ctx context.Context, userID, token string, page, perPage int, sort string) (*RepositoryPage, error) {
	if page < 1 {
		page = 1
	}
	perPage = clampPerPage(perPage, DefaultPerPage)
	if sort == "" {
		sort = "updated"
	}

	key := cacheKey(token, "repos", strconv.Itoa(page), strconv.Itoa(perPage), sort)
	repos, err := cached(ctx, s.cache, s.cacheTTL, key, func() ([]Repository, error) {
		return s.client.ListRepositories(ctx, token, page, perPage, sort)
	})
	if err != nil {
		return nil, translate(err)
	}
	if repos == nil {
		repos = []Repository{}
	}
	if err := s.markFavorites(ctx, userID, repos); err != nil {
		return nil, err
	}
	return &RepositoryPage{
		Repositories: repos,
		Pagination:   Pagination{Page: page, PerPage: perPage, HasMore: len(repos) == perPage},
	}, nil
}

type searchResult struct {
	Items []Repository `json:"items"`
	Total int          `json:"total"`
}

func (s *Service) SearchRepositories(ctx context.Context, userID, token, query string, page, perPage int) (*RepositoryPage, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchQueryLength {
		return nil, ErrSearchQueryTooShort
	}
	if page < 1 {
		page = 1
	}
	perPage = clampPerPage(perPage, DefaultPerPage)

	key := cacheKey(token, "search", query, strconv.Itoa(page), strconv.Itoa(perPage))
	result, err := cached(ctx, s.cache, s.cacheTTL, key, func() (searchResult, error) {
		items, total, err := s.client.SearchRepositories(ctx, token, query, page, perPage)
		return searchResult{Items: items, Total: total}, err
	})
	if err != nil {
		return nil, translate(err)
	}
	if result.Items == nil {
		result.Items = []Repository{}
	}
	if err := s.markFavorites(ctx, userID, result.Items); err != nil {
		return nil, err
	}
	total := result.Total
	return &RepositoryPage{
		Repositories: result.Items,
		Pagination:   Pagination{Page: page, PerPage: perPage, Total: &total, HasMore: len(result.Items) == perPage},
	}, nil
}

func (s *Service) GetRepository(ctx context.Context, userID, token, owner, repo string) (*Repository, error) {
	key := cacheKey(token, "repo", owner, repo)
	repository, err := cached(ctx, s.cache, s.cacheTTL, key, func() (*Repository, error) {
		return s.client.GetRepository(ctx, token, owner, repo)
	})
	if err != nil {
		return nil, translateRepoLookup(err)
	}
	if s.favorites != nil {
		ids, err := s.favorites.FavoriteIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		repository.IsFavorite = ids[repository.ID]
	}
	return repository, nil
}

// FetchRepository always goes to GitHub; favorites snapshot what is there now.
func (s *Service) FetchRepository(ctx context.Context, token, owner, repo string) (*Repository, error) {
	repository, err := s.client.GetRepository(ctx, token, owner, repo)
	if err != nil {
		return nil, translateRepoLookup(err)
	}
	return repository, nil
}

func (s *Service) GetReadme(ctx context.Context, token, owner, repo string) (*Readme, error) {
	key := cacheKey(token, "readme", owner, repo)
	readme, err := cached(ctx, s.cache, s.cacheTTL, key, func() (*Readme, error) {
		html, err := s.client.GetReadme(ctx, token, owner, repo)
		if err != nil {
			if statusOf(err) == http.StatusNotFound {
				return &Readme{}, nil
			}
			return nil, err
		}
		return &Readme{Content: &html}, nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return readme, nil
}

func (s *Service) ListCommits(ctx context.Context, token, owner, repo string, perPage int) ([]Commit, error) {
	perPage = clampPerPage(perPage, DefaultCommitsPerPage)
	key := cacheKey(token, "commits", owner, repo, strconv.Itoa(perPage))
	commits, err := cached(ctx, s.cache, s.cacheTTL, key, func() ([]Commit, error) {
		return s.client.ListCommits(ctx, token, owner, repo, perPage)
	})
	if err != nil {
		return nil, translateRepoLookup(err)
	}
	if commits == nil {
		commits = []Commit{}
	}
	return commits, nil
}

func (s *Service) ListContributors(ctx context.Context, token, owner, repo string, perPage int) ([]Contributor, error) {
	perPage = clampPerPage(perPage, DefaultContributorsPerPage)
	key := cacheKey(token, "contributors", owner, repo, strconv.Itoa(perPage))
	contributors, err := cached(ctx, s.cache, s.cacheTTL, key, func() ([]Contributor, error) {
		return s.client.ListContributors(ctx, token, owner, repo, perPage)
	})
	if err != nil {
		return nil, translateRepoLookup(err)
	}
	return contributors, nil
}
