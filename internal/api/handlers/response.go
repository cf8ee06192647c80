package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/progress-tracker/internal/domain"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeValidationError(w http.ResponseWriter, message string, errs *domain.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, Errors: errs.Errors})
}
