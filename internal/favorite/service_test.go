package favorite

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"github.com/sebuszqo/FinanceHub/internal/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRepository keeps favorites per user in insertion order.
type MockRepository struct {
	favorites map[string][]Favorite
	err       error
	now       time.Time
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		favorites: make(map[string][]Favorite),
		now:       time.Date(2025, 5, 14, 10, 0, 0, 0, time.UTC),
	}
}

func (m *MockRepository) list(_ context.Context, userID string) ([]Favorite, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]Favorite{}, m.favorites[userID]...), nil
}

func (m *MockRepository) exists(_ context.Context, userID string, repoID int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, f := range m.favorites[userID] {
		if f.RepoID == repoID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) ids(_ context.Context, userID string) (map[int64]bool, error) {
	ids := make(map[int64]bool)
	for _, f := range m.favorites[userID] {
		ids[f.RepoID] = true
	}
	return ids, m.err
}

func (m *MockRepository) insert(ctx context.Context, userID string, f *Favorite) (bool, error) {
	if exists, err := m.exists(ctx, userID, f.RepoID); err != nil || exists {
		return false, err
	}
	f.AddedAt = m.now
	m.favorites[userID] = append(m.favorites[userID], *f)
	return true, nil
}

func (m *MockRepository) remove(_ context.Context, userID string, repoID int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for i, f := range m.favorites[userID] {
		if f.RepoID == repoID {
			m.favorites[userID] = append(m.favorites[userID][:i], m.favorites[userID][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// stubFetcher serves repositories by "owner/name" and counts lookups.
type stubFetcher struct {
	repos map[string]*github.Repository
	err   error
	calls int
}

func (f *stubFetcher) FetchRepository(_ context.Context, token, owner, repo string) (*github.Repository, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	found, ok := f.repos[owner+"/"+repo]
	if !ok {
		return nil, github.ErrRepositoryNotFound
	}
	c := *found
	return &c, nil
}

func newFetcher() *stubFetcher {
	return &stubFetcher{repos: map[string]*github.Repository{
		"ada/engine": {
			ID: 7, Name: "engine", FullName: "ada/engine", HTMLURL: "https://github.com/ada/engine",
			Description: "Analytical engine", Language: "Go", StargazersCount: 12, ForksCount: 3,
		},
		"ada/notes": {ID: 8, Name: "notes", FullName: "ada/notes", HTMLURL: "https://github.com/ada/notes"},
	}}
}

func TestAdd_SnapshotsRepository(t *testing.T) {
	repo := NewMockRepository()
	service := NewService(repo, newFetcher())

	favorite, err := service.Add(context.Background(), "u1", "tok", 7, " ada ", "engine")
	require.NoError(t, err)
	assert.Equal(t, &Favorite{
		RepoID: 7, RepoName: "engine", RepoFullName: "ada/engine", RepoURL: "https://github.com/ada/engine",
		Description: "Analytical engine", Language: "Go", StargazersCount: 12, ForksCount: 3, AddedAt: repo.now,
	}, favorite)

	ids, err := service.FavoriteIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{7: true}, ids)
}

func TestAdd_DuplicateIsRejectedWithoutFetching(t *testing.T) {
	fetcher := newFetcher()
	service := NewService(NewMockRepository(), fetcher)
	ctx := context.Background()

	_, err := service.Add(ctx, "u1", "tok", 7, "ada", "engine")
	require.NoError(t, err)

	_, err = service.Add(ctx, "u1", "tok", 7, "ada", "engine")
	assert.ErrorIs(t, err, ErrAlreadyFavorite)
	assert.Equal(t, 1, fetcher.calls)

	// other users keep their own lists
	_, err = service.Add(ctx, "u2", "tok", 7, "ada", "engine")
	assert.NoError(t, err)
}

func TestAdd_Failures(t *testing.T) {
	fetcher := newFetcher()
	service := NewService(NewMockRepository(), fetcher)
	ctx := context.Background()

	_, err := service.Add(ctx, "u1", "tok", 7, "", "engine")
	assert.ErrorIs(t, err, ErrOwnerRepoRequired)
	assert.Zero(t, fetcher.calls)

	_, err = service.Add(ctx, "u1", "tok", 99, "ada", "missing")
	assert.ErrorIs(t, err, github.ErrRepositoryNotFound)

	_, err = service.Add(ctx, "u1", "tok", 8, "ada", "engine")
	assert.ErrorIs(t, err, ErrRepoIDMismatch)

	fetcher.err = github.ErrTokenExpired
	_, err = service.Add(ctx, "u1", "tok", 7, "ada", "engine")
	assert.Equal(t, http.StatusUnauthorized, err.(*apperror.Error).StatusCode())

	favorites, err := service.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestRemove(t *testing.T) {
	service := NewService(NewMockRepository(), newFetcher())
	ctx := context.Background()

	_, err := service.Add(ctx, "u1", "tok", 7, "ada", "engine")
	require.NoError(t, err)
	_, err = service.Add(ctx, "u1", "tok", 8, "ada", "notes")
	require.NoError(t, err)

	require.NoError(t, service.Remove(ctx, "u1", 7))
	assert.ErrorIs(t, service.Remove(ctx, "u1", 7), ErrNotFavorite)

	favorites, err := service.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, int64(8), favorites[0].RepoID)

	isFavorite, err := service.IsFavorite(ctx, "u1", 7)
	require.NoError(t, err)
	assert.False(t, isFavorite)
}
