package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sebuszqo/FinanceHub/internal/httpx"
	"github.com/sebuszqo/FinanceHub/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *service, *fakeUserService) {
	t.Helper()
	svc, users := newTestAuthService(t)
	cookies := CookieConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour}
	return NewHandler(svc, cookies, httpx.RespondJSON, httpx.RespondError), svc, users
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleRegister(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.HandleRegister(w, postJSON("/api/auth/register", `{"name":"Ada","email":"ada@example.com","password":"password1"}`))

	assert.Equal(t, http.StatusCreated, w.Code)
	cookies := cookiesByName(w)
	assert.NotEmpty(t, cookies[AccessTokenCookie].Value)
	assert.NotEmpty(t, cookies[RefreshTokenCookie].Value)

	body := decodeEnvelope(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, cookies[AccessTokenCookie].Value, data["accessToken"])
	assert.Equal(t, "ada@example.com", data["user"].(map[string]interface{})["email"])
	assert.Equal(t, []interface{}{}, data["user"].(map[string]interface{})["favorites"])
	assert.NotContains(t, data, "refreshToken")
}

func TestHandleRegister_ValidationErrors(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.HandleRegister(w, postJSON("/api/auth/register", `{"name":"A","email":"nope","password":"short"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeEnvelope(t, w)
	assert.Equal(t, false, body["success"])
	assert.ElementsMatch(t, []interface{}{
		"Name must be at least 2 characters",
		"Please provide a valid email",
		"Password must be at least 8 characters",
	}, body["errors"])
	assert.Empty(t, w.Result().Cookies())
}

func TestHandleLogin(t *testing.T) {
	handler, svc, users := newTestHandler(t)
	registered, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password1")
	require.NoError(t, err)
	users.users[registered.User.ID].Favorites = []user.Favorite{{RepoID: 42, RepoName: "hub", RepoFullName: "ada/hub"}}

	w := httptest.NewRecorder()
	handler.HandleLogin(w, postJSON("/api/auth/login", `{"email":"ada@example.com","password":"password1"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Result().Cookies(), 2)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	favorites := data["user"].(map[string]interface{})["favorites"].([]interface{})
	require.Len(t, favorites, 1)
	assert.Equal(t, "ada/hub", favorites[0].(map[string]interface{})["repoFullName"])

	w = httptest.NewRecorder()
	handler.HandleLogin(w, postJSON("/api/auth/login", `{"email":"ada@example.com","password":"wrong-password"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decodeEnvelope(t, w)["message"])
}

func TestHandleRefresh(t *testing.T) {
	handler, svc, _ := newTestHandler(t)
	session, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: session.RefreshToken})
	w := httptest.NewRecorder()
	handler.HandleRefresh(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	rotated := cookiesByName(w)[RefreshTokenCookie]
	require.NotNil(t, rotated)
	assert.NotEqual(t, session.RefreshToken, rotated.Value)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.NotEmpty(t, data["accessToken"])
}

func TestHandleRefresh_FailureClearsCookies(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.HandleRefresh(w, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No refresh token provided", decodeEnvelope(t, w)["message"])
	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "garbage"})
	w = httptest.NewRecorder()
	handler.HandleRefresh(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid refresh token", decodeEnvelope(t, w)["message"])
	assert.Len(t, w.Result().Cookies(), 2)
}

func TestHandleLogout(t *testing.T) {
	handler, svc, users := newTestHandler(t)
	session, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.HandleLogout(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully", decodeEnvelope(t, w)["message"])
	assert.NotEmpty(t, users.users[session.User.ID].RefreshTokenHash)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req = req.WithContext(user.NewContext(req.Context(), session.User))
	w = httptest.NewRecorder()
	handler.HandleLogout(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, users.users[session.User.ID].RefreshTokenHash)
	assert.Len(t, w.Result().Cookies(), 2)
}

func TestHandleLogout_StaleAccessCookie(t *testing.T) {
	handler, svc, _ := newTestHandler(t)
	logout := svc.OptionalSessionMiddleware()(http.HandlerFunc(handler.HandleLogout))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "expired.or.forged"})
	w := httptest.NewRecorder()
	logout.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully", decodeEnvelope(t, w)["message"])
	require.Len(t, w.Result().Cookies(), 2)
	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value, c.Name)
		assert.Negative(t, c.MaxAge, c.Name)
	}
}

func protectedEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, ok := user.FromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(current.ID))
	})
}

func TestJWTAccessTokenMiddleware(t *testing.T) {
	_, svc, users := newTestHandler(t)
	session, err := svc.Register(context.Background(), "Ada", "ada@example.com", "password1")
	require.NoError(t, err)
	protected := svc.JWTAccessTokenMiddleware()(protectedEcho())

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: session.AccessToken})
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, session.User.ID, w.Body.String())
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Not authorized, please log in", decodeEnvelope(t, w)["message"])
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+session.RefreshToken)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Not authorized, invalid token", decodeEnvelope(t, w)["message"])
	})

	t.Run("storage failure", func(t *testing.T) {
		users.lookupErr = errors.New("connection refused")
		defer func() { users.lookupErr = nil }()

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: session.AccessToken})
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestOptionalSessionMiddleware(t *testing.T) {
	_, svc, _ := newTestHandler(t)
	optional := svc.OptionalSessionMiddleware()(protectedEcho())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "expired-or-garbage"})
	w := httptest.NewRecorder()
	optional.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireGitHub(t *testing.T) {
	guarded := RequireGitHub(httpx.RespondError)(protectedEcho())

	w := httptest.NewRecorder()
	guarded.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/repositories", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/repositories", nil)
	w = httptest.NewRecorder()
	guarded.ServeHTTP(w, req.WithContext(user.NewContext(req.Context(), &user.User{ID: "u1"})))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "GitHub account not connected", decodeEnvelope(t, w)["message"])

	linked := &user.User{ID: "u1", GitHub: &user.GitHubProfile{ID: 1}, GitHubAccessToken: "gho_x"}
	w = httptest.NewRecorder()
	guarded.ServeHTTP(w, req.WithContext(user.NewContext(req.Context(), linked)))
	assert.Equal(t, http.StatusOK, w.Code)
}
