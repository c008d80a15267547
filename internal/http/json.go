package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/corrigohq/corrigo/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and
// handles errors. Returns true if successful, false if there was an error
// (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, "invalid_json", apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid JSON body"))
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// WriteError writes a JSON error response. The HTTP status is derived from
// the error's application code; errCode is the wire-level error identifier.
func WriteError(w http.ResponseWriter, errCode string, err error) {
	body := map[string]string{"error": errCode, "message": err.Error()}
	if field := apperrors.GetField(err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, statusFor(err), body)
}

// statusFor maps application error codes onto HTTP status codes. Unclassified
// errors are treated as internal.
func statusFor(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.ErrCodePermissionDenied:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
