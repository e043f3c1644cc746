package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
	applog "github.com/sebuszqo/FinanceHub/internal/log"
)

// Envelope is the shape of every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// Responder writes successful payloads.
type Responder func(w http.ResponseWriter, status int, payload interface{})

// ErrorResponder translates an error into a response.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Default("http").Error("JSON encoding error", "error", err)
	}
}

// Success wraps data in the success envelope.
func Success(data interface{}) Envelope {
	return Envelope{Success: true, Data: data}
}

// Message builds a success envelope carrying only a message.
func Message(message string) Envelope {
	return Envelope{Success: true, Message: message}
}

// RespondError maps typed errors to their status; anything else is a 500
// with a generic message and the cause goes to the log only.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := apperror.As(err); ok && appErr.Kind != apperror.KindInternal {
		if appErr.Kind == apperror.KindUpstream {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "upstream failure", "path", r.URL.Path, "error", err)
		}
		RespondJSON(w, appErr.StatusCode(), Envelope{
			Success: false,
			Message: appErr.Message,
			Errors:  appErr.Details,
		})
		return
	}

	applog.FromContext(r.Context()).ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
	RespondJSON(w, http.StatusInternalServerError, Envelope{
		Success: false,
		Message: "Internal server error",
	})
}

// RespondStatus writes a bare failure envelope, used by middleware that
// runs before any service is involved.
func RespondStatus(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, Envelope{Success: false, Message: message})
}

// NotFoundHandler answers unmatched routes.
func NotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	RespondStatus(w, http.StatusNotFound, "Route not found")
}
