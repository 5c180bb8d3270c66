package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"absensi/internal/transport/http/api"
)

// DecodeJSON reads the request body into dst. An empty body leaves dst
// untouched when allowEmpty is set. It writes the error response itself and
// reports whether decoding succeeded.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool, requestID string) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF) && allowEmpty:
		return true
	case errors.As(err, &tooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
	}
	return false
}
