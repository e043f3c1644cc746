package favorite

import (
	"context"
	"strings"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"github.com/sebuszqo/FinanceHub/internal/github"
)

var (
	ErrAlreadyFavorite   = apperror.Conflict("Repository already in favorites")
	ErrNotFavorite       = apperror.NotFound("Repository not in favorites")
	ErrOwnerRepoRequired = apperror.Validation("Owner and repo name are required")
	ErrRepoIDMismatch    = apperror.Validation("Repository ID does not match owner and repo")
)

// RepositoryFetcher loads the live repository that a favorite snapshots.
type RepositoryFetcher interface {
	FetchRepository(ctx context.Context, token, owner, repo string) (*github.Repository, error)
}

type Service struct {
	repo    Repository
	fetcher RepositoryFetcher
}

func NewService(repo Repository, fetcher RepositoryFetcher) *Service {
	return &Service{repo: repo, fetcher: fetcher}
}

func (s *Service) List(ctx context.Context, userID string) ([]Favorite, error) {
	return s.repo.list(ctx, userID)
}

func (s *Service) IsFavorite(ctx context.Context, userID string, repoID int64) (bool, error) {
	return s.repo.exists(ctx, userID, repoID)
}

// FavoriteIDs lets the repository listings flag favorited entries.
func (s *Service) FavoriteIDs(ctx context.Context, userID string) (map[int64]bool, error) {
	return s.repo.ids(ctx, userID)
}

// Add confirms the repository still exists upstream and stores its current
// metadata. Two concurrent adds of the same id leave one row; the loser gets
// ErrAlreadyFavorite.
func (s *Service) Add(ctx context.Context, userID, token string, repoID int64, owner, name string) (*Favorite, error) {
	owner, name = strings.TrimSpace(owner), strings.TrimSpace(name)
	if owner == "" || name == "" {
		return nil, ErrOwnerRepoRequired
	}

	exists, err := s.repo.exists(ctx, userID, repoID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyFavorite
	}

	repository, err := s.fetcher.FetchRepository(ctx, token, owner, name)
	if err != nil {
		return nil, err
	}
	if repository.ID != repoID {
		return nil, ErrRepoIDMismatch
	}

	favorite := fromRepository(repository)
	inserted, err := s.repo.insert(ctx, userID, favorite)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, ErrAlreadyFavorite
	}
	return favorite, nil
}

func (s *Service) Remove(ctx context.Context, userID string, repoID int64) error {
	removed, err := s.repo.remove(ctx, userID, repoID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFavorite
	}
	return nil
}
