package auth

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
	RefreshCookiePath  = "/api/auth/refresh"
)

// CookieConfig controls how tokens are transported to the browser.
type CookieConfig struct {
	Secure     bool
	Production bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieConfig) sameSite() http.SameSite {
	if c.Production {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

func (c CookieConfig) secure() bool {
	return c.Secure || c.Production
}

// SetTokenCookies attaches both tokens as http-only cookies. The refresh
// cookie is only sent to the refresh endpoint.
func (c CookieConfig) SetTokenCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(c.AccessTTL.Seconds()),
		Expires:  time.Now().Add(c.AccessTTL),
		HttpOnly: true,
		Secure:   c.secure(),
		SameSite: c.sameSite(),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refreshToken,
		Path:     RefreshCookiePath,
		MaxAge:   int(c.RefreshTTL.Seconds()),
		Expires:  time.Now().Add(c.RefreshTTL),
		HttpOnly: true,
		Secure:   c.secure(),
		SameSite: c.sameSite(),
	})
}

// ClearTokenCookies overwrites both cookies with an immediate expiry.
func (c CookieConfig) ClearTokenCookies(w http.ResponseWriter) {
	for _, cookie := range []struct{ name, path string }{
		{AccessTokenCookie, "/"},
		{RefreshTokenCookie, RefreshCookiePath},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     cookie.name,
			Value:    "",
			Path:     cookie.path,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.secure(),
			SameSite: c.sameSite(),
		})
	}
}
