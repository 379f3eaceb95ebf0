package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/reclaimhq/reclaim/internal/apperr"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps an error to its HTTP status. Errors outside the taxonomy
// are infrastructure failures: logged server-side, surfaced as a 500 with
// detail withheld.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrUnauthenticated):
		jsonError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, apperr.ErrPrincipalNotFound):
		jsonError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, apperr.ErrForbidden):
		jsonError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, apperr.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	default:
		slog.Error("request failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
