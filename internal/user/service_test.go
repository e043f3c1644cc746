package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRepository is an in-memory Repository keyed by user id.
type MockRepository struct {
	users     map[string]*User
	nextID    int
	createErr error
	unlinked  []string
}

func NewMockRepository() *MockRepository {
	return &MockRepository{users: make(map[string]*User)}
}

func (m *MockRepository) createUser(ctx context.Context, user *User, seeder Seeder) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailAlreadyExists
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.IsActive = true
	user.CreatedAt = time.Now()
	if seeder != nil {
		if err := seeder.SeedDefaults(ctx, nil, user.ID); err != nil {
			return err
		}
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *MockRepository) emailExists(_ context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRepository) getUserByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockRepository) getUserByID(_ context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *MockRepository) recordLogin(ctx context.Context, userID, refreshHash string, expiresAt time.Time) error {
	if err := m.setRefreshToken(ctx, userID, refreshHash, expiresAt); err != nil {
		return err
	}
	now := time.Now()
	m.users[userID].LastLogin = &now
	return nil
}

func (m *MockRepository) setRefreshToken(_ context.Context, userID, refreshHash string, expiresAt time.Time) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.RefreshTokenHash = refreshHash
	u.RefreshTokenExpiresAt = &expiresAt
	return nil
}

func (m *MockRepository) rotateRefreshToken(_ context.Context, userID, oldHash, newHash string, expiresAt time.Time) error {
	u, ok := m.users[userID]
	if !ok || u.RefreshTokenHash != oldHash {
		return ErrRefreshTokenMismatch
	}
	u.RefreshTokenHash = newHash
	u.RefreshTokenExpiresAt = &expiresAt
	return nil
}

func (m *MockRepository) clearRefreshToken(_ context.Context, userID string) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.RefreshTokenHash = ""
	u.RefreshTokenExpiresAt = nil
	return nil
}

func (m *MockRepository) linkGitHub(_ context.Context, userID, accessToken string, profile GitHubProfile) error {
	for id, u := range m.users {
		if id != userID && u.GitHub != nil && u.GitHub.ID == profile.ID {
			return ErrGitHubAlreadyLinked
		}
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.GitHub = &profile
	u.GitHubAccessToken = accessToken
	return nil
}

func (m *MockRepository) unlinkGitHub(_ context.Context, userID string) error {
	u := m.users[userID]
	u.GitHub = nil
	u.GitHubAccessToken = ""
	m.unlinked = append(m.unlinked, userID)
	return nil
}

func (m *MockRepository) purgeExpiredRefreshTokens(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.RefreshTokenExpiresAt != nil && u.RefreshTokenExpiresAt.Before(now) {
			u.RefreshTokenHash = ""
			u.RefreshTokenExpiresAt = nil
			n++
		}
	}
	return n, nil
}

type recordingSeeder struct {
	userIDs []string
}

func (s *recordingSeeder) SeedDefaults(_ context.Context, _ *sql.Tx, userID string) error {
	s.userIDs = append(s.userIDs, userID)
	return nil
}

func TestRegister_ThenAuthenticate(t *testing.T) {
	repo := NewMockRepository()
	seeder := &recordingSeeder{}
	service := NewUserService(repo, seeder)
	ctx := context.Background()

	registered, err := service.Register(ctx, "  Ada ", "Ada@Example.com ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", registered.Email)
	assert.Equal(t, "Ada", registered.Name)
	assert.NotEqual(t, "correct-horse", registered.PasswordHash)
	assert.Equal(t, []string{registered.ID}, seeder.userIDs)

	authenticated, err := service.Authenticate(ctx, "ADA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, authenticated.ID)

	body, err := json.Marshal(authenticated)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), authenticated.PasswordHash)
	assert.NotContains(t, string(body), "refresh")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	service := NewUserService(NewMockRepository(), nil)
	ctx := context.Background()

	_, err := service.Register(ctx, "Ada", "ada@example.com", "password1")
	require.NoError(t, err)

	_, err = service.Register(ctx, "Other", "ADA@example.com", "password2")
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestRegister_InvalidEmail(t *testing.T) {
	service := NewUserService(NewMockRepository(), nil)

	_, err := service.Register(context.Background(), "Ada", "not-an-email", "password1")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestAuthenticate_Failures(t *testing.T) {
	repo := NewMockRepository()
	service := NewUserService(repo, nil)
	ctx := context.Background()

	registered, err := service.Register(ctx, "Ada", "ada@example.com", "password1")
	require.NoError(t, err)

	_, err = service.Authenticate(ctx, "missing@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Authenticate(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	repo.users[registered.ID].IsActive = false
	_, err = service.Authenticate(ctx, "ada@example.com", "password1")
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestUnlinkGitHub(t *testing.T) {
	repo := NewMockRepository()
	service := NewUserService(repo, nil)
	ctx := context.Background()

	registered, err := service.Register(ctx, "Ada", "ada@example.com", "password1")
	require.NoError(t, err)

	err = service.UnlinkGitHub(ctx, registered.ID)
	assert.ErrorIs(t, err, ErrGitHubNotConnected)

	require.NoError(t, service.LinkGitHub(ctx, registered.ID, "gho_token", GitHubProfile{ID: 42, Username: "ada"}))
	linked, err := service.GetUserByID(ctx, registered.ID)
	require.NoError(t, err)
	assert.True(t, linked.HasGitHub())
	assert.False(t, linked.GitHub.ConnectedAt.IsZero())

	require.NoError(t, service.UnlinkGitHub(ctx, registered.ID))
	assert.Equal(t, []string{registered.ID}, repo.unlinked)
}

func TestLinkGitHub_AlreadyLinkedElsewhere(t *testing.T) {
	service := NewUserService(NewMockRepository(), nil)
	ctx := context.Background()

	first, err := service.Register(ctx, "Ada", "ada@example.com", "password1")
	require.NoError(t, err)
	second, err := service.Register(ctx, "Bob", "bob@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, service.LinkGitHub(ctx, first.ID, "t1", GitHubProfile{ID: 7}))
	err = service.LinkGitHub(ctx, second.ID, "t2", GitHubProfile{ID: 7})
	assert.ErrorIs(t, err, ErrGitHubAlreadyLinked)
}

func TestPurgeExpiredRefreshTokens(t *testing.T) {
	repo := NewMockRepository()
	service := NewUserService(repo, nil)
	ctx := context.Background()

	registered, err := service.Register(ctx, "Ada", "ada@example.com", "password1")
	require.NoError(t, err)
	require.NoError(t, service.StoreRefreshToken(ctx, registered.ID, "hash", time.Now().Add(-time.Minute)))

	purged, err := service.PurgeExpiredRefreshTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Empty(t, repo.users[registered.ID].RefreshTokenHash)
}

func TestRotateRefreshToken_RejectsStaleHash(t *testing.T) {
	repo := NewMockRepository()
	service := NewUserService(repo, nil)
	ctx := context.Background()

	registered, err := service.Register(ctx, "Ada", "ada@example.com", "password1")
	require.NoError(t, err)
	expires := time.Now().Add(time.Hour)
	require.NoError(t, service.StoreRefreshToken(ctx, registered.ID, "first", expires))

	require.NoError(t, service.RotateRefreshToken(ctx, registered.ID, "first", "second", expires))
	err = service.RotateRefreshToken(ctx, registered.ID, "first", "third", expires)
	assert.ErrorIs(t, err, ErrRefreshTokenMismatch)
	assert.Equal(t, "second", repo.users[registered.ID].RefreshTokenHash)
}

func TestHandleMe(t *testing.T) {
	handler := NewHandler(httpx.RespondJSON, httpx.RespondError)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	handler.HandleMe(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	current := &User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "secret-hash", GitHubAccessToken: "gho_secret", IsActive: true}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	handler.HandleMe(w, req.WithContext(NewContext(req.Context(), current)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-hash")
	assert.NotContains(t, w.Body.String(), "gho_secret")

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, true, response["success"])
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", data["user"].(map[string]interface{})["email"])
	assert.Equal(t, []interface{}{}, data["user"].(map[string]interface{})["favorites"])

	current.Favorites = []Favorite{
		{RepoID: 7, RepoName: "hub", RepoFullName: "ada/hub", RepoURL: "https://github.com/ada/hub", Language: "Go", StargazersCount: 3},
		{RepoID: 9, RepoName: "notes", RepoFullName: "ada/notes", RepoURL: "https://github.com/ada/notes"},
	}
	w = httptest.NewRecorder()
	handler.HandleMe(w, req.WithContext(NewContext(req.Context(), current)))
	require.Equal(t, http.StatusOK, w.Code)

	var populated struct {
		Data struct {
			User struct {
				Favorites []Favorite `json:"favorites"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&populated))
	assert.Equal(t, current.Favorites, populated.Data.User.Favorites)
}

func TestUserJSON_Favorites(t *testing.T) {
	encoded, err := json.Marshal(&User{ID: "u1"})
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"favorites":[]`)

	encoded, err = json.Marshal(User{ID: "u1", Favorites: []Favorite{{RepoID: 7, RepoFullName: "ada/hub"}}})
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"repoId":7`)
	assert.Contains(t, string(encoded), `"repoFullName":"ada/hub"`)
}
