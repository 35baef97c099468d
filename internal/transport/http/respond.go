package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quizdesk/internal/domain"
)

type errorPayload struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	// Question is the zero-based question index of a validation error.
	Question *int `json:"question,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	payload := errorPayload{Message: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		payload.Field = verr.Field
		if verr.Question >= 0 {
			q := verr.Question
			payload.Question = &q
		}
	}
	writeJSON(w, status, payload)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrOptionOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidQuiz):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoAttempt),
		errors.Is(err, domain.ErrAttemptFinished),
		errors.Is(err, domain.ErrNotInProgress),
		errors.Is(err, domain.ErrNoSelection):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &domain.ValidationError{Question: -1, Field: "body", Reason: "invalid JSON"}
	}
	return nil
}
