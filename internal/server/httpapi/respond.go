package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mzhurin/convo/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses:
// NotFound→404, Unauthorized→401, Forbidden→403, Validation/Conflict→400,
// everything else→400 with the message (logged by the caller).
func writeError(w http.ResponseWriter, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFoundMessage})
	case errors.Is(err, common.ErrorUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid credentials"})
	case errors.Is(err, common.ErrorForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Account is disabled."})
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorConflict):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.ErrorValidation
	}
	return nil
}
