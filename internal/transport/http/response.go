package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"leveled-quiz-service/internal/domain"
)

type successBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type failBody struct {
	Status     string             `json:"status"`
	Message    string             `json:"message"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successBody{Status: "success", Message: message, Data: data})
}

func writeFail(w http.ResponseWriter, status int, message string, violations []domain.Violation) {
	writeJSON(w, status, failBody{Status: "fail", Message: message, Violations: violations})
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidationFailed):
		writeFail(w, http.StatusBadRequest, err.Error(), domain.Violations(err))
	case errors.Is(err, domain.ErrInvalidArgument):
		writeFail(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		writeFail(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrConflict):
		writeFail(w, http.StatusConflict, err.Error(), nil)
	default:
		log.Printf("request failed: %v", err)
		writeFail(w, http.StatusInternalServerError, "internal server error", nil)
	}
}
