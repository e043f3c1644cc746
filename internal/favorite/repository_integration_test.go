//go:build integration

package favorite_test

import (
	"context"
	"testing"

	"github.com/sebuszqo/FinanceHub/internal/db/dbtest"
	"github.com/sebuszqo/FinanceHub/internal/favorite"
	"github.com/sebuszqo/FinanceHub/internal/github"
	"github.com/sebuszqo/FinanceHub/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type oneRepo struct{ repo github.Repository }

func (o oneRepo) FetchRepository(context.Context, string, string, string) (*github.Repository, error) {
	r := o.repo
	return &r, nil
}

func TestFavoriteRepository_Postgres(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()
	users := user.NewUserService(user.NewUserRepository(db), nil)
	registered, err := users.Register(ctx, "Ada", "ada@example.com", "password1")
	require.NoError(t, err)

	service := favorite.NewService(favorite.NewFavoriteRepository(db),
		oneRepo{github.Repository{ID: 7, Name: "engine", FullName: "ada/engine", HTMLURL: "https://github.com/ada/engine", StargazersCount: 12}})

	added, err := service.Add(ctx, registered.ID, "tok", 7, "ada", "engine")
	require.NoError(t, err)
	assert.False(t, added.AddedAt.IsZero())

	_, err = service.Add(ctx, registered.ID, "tok", 7, "ada", "engine")
	assert.ErrorIs(t, err, favorite.ErrAlreadyFavorite)

	ids, err := service.FavoriteIDs(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{7: true}, ids)

	// unlinking GitHub drops the favorites with it
	require.NoError(t, users.LinkGitHub(ctx, registered.ID, "tok", user.GitHubProfile{ID: 42, Username: "ada"}))
	require.NoError(t, users.UnlinkGitHub(ctx, registered.ID))
	favorites, err := service.List(ctx, registered.ID)
	require.NoError(t, err)
	assert.Empty(t, favorites)

	assert.ErrorIs(t, service.Remove(ctx, registered.ID, 7), favorite.ErrNotFavorite)
}
