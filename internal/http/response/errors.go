package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/greensretreat/ggr-bookings/internal/domain"
	"github.com/greensretreat/ggr-bookings/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeRateLimit        = "RATE_LIMIT_EXCEEDED"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code}); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message, CodeConflict)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

// FromError maps the booking core's tagged errors to specific responses so
// the form layer can show an actionable message instead of a stack trace.
func FromError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrConflict):
		Conflict(w, "The selected dates for this cottage are no longer available. Please choose different dates.")
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, "Not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", CodeStoreUnavailable)
	default:
		// Unexpected failures read as store trouble to the user.
		WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", CodeStoreUnavailable)
	}
}
