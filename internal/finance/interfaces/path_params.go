package interfaces

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sebuszqo/FinanceHub/internal/apperror"
	"github.com/sebuszqo/FinanceHub/internal/httpx"
	applog "github.com/sebuszqo/FinanceHub/internal/log"
	"github.com/sebuszqo/FinanceHub/internal/user"
)

var errNotAuthenticated = apperror.Unauthorized("Not authorized, please log in")

// validatePathParams answers 404 for path ids that are not UUIDs, so a
// malformed id looks exactly like someone else's.
func validatePathParams(next http.Handler, respondError httpx.ErrorResponder, notFound map[string]error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for param, errNotFound := range notFound {
			value := r.PathValue(param)
			if value == "" {
				continue
			}
			if _, err := uuid.Parse(value); err != nil {
				applog.FromContext(r.Context()).Debug("malformed path id", "param", param, "value", value)
				respondError(w, r, errNotFound)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func currentUserID(r *http.Request) (string, bool) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return current.ID, true
}
