// Package handlers implements the HTTP surface of the engine.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/matura-ai/matura-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps a typed application error onto the HTTP taxonomy and
// writes it. Unknown errors become opaque 500s so internals never leak.
func WriteError(w http.ResponseWriter, err error) error {
	var validationErr *apperrors.ValidationError
	var generationErr *apperrors.GenerationError
	var rateErr *apperrors.RateLimitError

	switch {
	case errors.As(err, &validationErr):
		return ErrorResponse(w, http.StatusBadRequest, "validation_error", validationErr.Error())
	case errors.Is(err, apperrors.ErrTableNotFound):
		return ErrorResponse(w, http.StatusNotFound, "table_not_found", "table not found")
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorResponse(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, apperrors.ErrConflict):
		return ErrorResponse(w, http.StatusConflict, "conflict", "resource already exists")
	case errors.As(err, &rateErr):
		return ErrorResponse(w, http.StatusTooManyRequests, "rate_limited", rateErr.Error())
	case errors.As(err, &generationErr):
		msg := generationErr.Error() + " (" + recoverySuggestion(generationErr.Stage) + ")"
		return ErrorResponse(w, http.StatusInternalServerError, "generation_failed", msg)
	default:
		return ErrorResponse(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// recoverySuggestion names a recovery action for a failed pipeline stage.
func recoverySuggestion(stage string) string {
	switch stage {
	case "setup":
		return "configure at least one AI provider"
	case "design":
		return "retry without the design system"
	case "review":
		return "retry with a lower quality tier"
	default:
		return "retry the request, providers may be temporarily unavailable"
	}
}
