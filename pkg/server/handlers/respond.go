package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/soundprediction/predicato/pkg/errs"
	"github.com/soundprediction/predicato/pkg/server/dto"
)

// decodeJSON decodes r's JSON body into v, wrapping any failure as an
// InvalidError so handlers can writeError it directly.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.NewInvalidError("invalid request body: %v", err)
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError maps a tagged error kind to its HTTP status and writes an
// ErrorResponse body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), dto.ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, &errs.NotFoundError{}):
		return http.StatusNotFound
	case errors.Is(err, &errs.ConflictError{}):
		return http.StatusConflict
	case errors.Is(err, &errs.InvalidError{}):
		return http.StatusBadRequest
	case errors.Is(err, &errs.UnsupportedMediaError{}):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, &errs.ForbiddenError{}):
		return http.StatusForbidden
	case errors.Is(err, &errs.UnavailableError{}):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
