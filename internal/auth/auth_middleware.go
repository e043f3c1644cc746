package auth

import (
	"net/http"
	"strings"

	"github.com/sebuszqo/FinanceHub/internal/httpx"
	"github.com/sebuszqo/FinanceHub/internal/user"
)

// accessTokenFromRequest prefers the cookie and falls back to a bearer header.
func accessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if tokenString, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(tokenString)
	}
	return ""
}

func (s *service) JWTAccessTokenMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current, err := s.ResolveUser(r.Context(), accessTokenFromRequest(r))
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(user.NewContext(r.Context(), current)))
		})
	}
}

// OptionalSessionMiddleware attaches the user when the token resolves and
// otherwise lets the request through anonymously.
func (s *service) OptionalSessionMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := accessTokenFromRequest(r)
			if tokenString != "" {
				if current, err := s.ResolveUser(r.Context(), tokenString); err == nil {
					r = r.WithContext(user.NewContext(r.Context(), current))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireGitHub rejects sessions whose user has no linked GitHub account.
// It must run after JWTAccessTokenMiddleware.
func RequireGitHub(respondError httpx.ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current, ok := user.FromContext(r.Context())
			if !ok {
				respondError(w, r, ErrNotAuthenticated)
				return
			}
			if !current.HasGitHub() {
				respondError(w, r, user.ErrGitHubNotConnected)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
