package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sebuszqo/FinanceHub/internal/apperror"
)

// MaxBodyBytes caps JSON request bodies at 10kb.
const MaxBodyBytes = 10 << 10

var (
	ErrInvalidBody  = apperror.Validation("Invalid request body")
	ErrBodyTooLarge = apperror.Validation("Request body too large")
)

// DecodeJSON reads a size-limited JSON body into dst.
// An empty body leaves dst untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrBodyTooLarge
	}
	return apperror.Wrap(ErrInvalidBody, err)
}
