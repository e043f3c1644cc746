package auth

import (
	"log"
	"net/http"

	"github.com/sebuszqo/FinanceHub/internal/httpx"
	applog "github.com/sebuszqo/FinanceHub/internal/log"
	"github.com/sebuszqo/FinanceHub/internal/user"
)

type Handler struct {
	authService  Service
	cookies      CookieConfig
	respondJSON  httpx.Responder
	respondError httpx.ErrorResponder
}

func NewHandler(authService Service, cookies CookieConfig, respondJSON httpx.Responder, respondError httpx.ErrorResponder) *Handler {
	if authService == nil || respondJSON == nil || respondError == nil {
		log.Fatal("auth handler requires a service and responders")
	}
	return &Handler{
		authService:  authService,
		cookies:      cookies,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"notblank,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) respondSession(w http.ResponseWriter, status int, message string, session *Session) {
	h.cookies.SetTokenCookies(w, session.AccessToken, session.RefreshToken)
	h.respondJSON(w, status, httpx.Envelope{
		Success: true,
		Message: message,
		Data: map[string]interface{}{
			"user":        session.User,
			"accessToken": session.AccessToken,
		},
	})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	session, err := h.authService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondSession(w, http.StatusCreated, "Registration successful", session)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondSession(w, http.StatusOK, "Login successful", session)
}

// HandleRefresh rotates the token pair. Any failure also clears both cookies
// so the browser stops presenting a dead token.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		refreshToken = cookie.Value
	}

	session, err := h.authService.Refresh(r.Context(), refreshToken)
	if err != nil {
		h.cookies.ClearTokenCookies(w)
		h.respondError(w, r, err)
		return
	}

	h.cookies.SetTokenCookies(w, session.AccessToken, session.RefreshToken)
	h.respondJSON(w, http.StatusOK, httpx.Envelope{
		Success: true,
		Message: "Token refreshed",
		Data:    map[string]string{"accessToken": session.AccessToken},
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if current, ok := user.FromContext(r.Context()); ok {
		if err := h.authService.Logout(r.Context(), current.ID); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "could not clear refresh token", "user_id", current.ID, "error", err)
		}
	}
	h.cookies.ClearTokenCookies(w)
	h.respondJSON(w, http.StatusOK, httpx.Message("Logged out successfully"))
}
