package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskdeck/taskdeck-core/internal/account"
	"github.com/taskdeck/taskdeck-core/internal/auth"
	"github.com/taskdeck/taskdeck-core/internal/task"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeLockedOut    = "locked_out"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response, optionally naming the denied field.
func writeForbidden(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusForbidden, Error{
		Status:  http.StatusForbidden,
		Code:    ErrCodeForbidden,
		Message: message,
		Field:   field,
	})
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeValidation writes a 400 error response naming the offending field.
func writeValidation(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, Error{
		Status:  http.StatusBadRequest,
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	})
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps domain layer errors onto HTTP responses. Unknown
// errors become a 500 without leaking internals.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *task.ValidationError
	var permissionErr *task.PermissionError

	switch {
	case errors.As(err, &validationErr):
		writeValidation(w, validationErr.Field, validationErr.Reason)
	case errors.As(err, &permissionErr):
		writeForbidden(w, permissionErr.Field, permissionErr.Reason)
	case errors.Is(err, task.ErrTaskNotFound):
		writeNotFound(w, "task not found")
	case errors.Is(err, task.ErrOwnerNotFound):
		writeValidation(w, "owner_id", "owner does not exist")
	case errors.Is(err, account.ErrAccountNotFound):
		writeNotFound(w, "account not found")
	case errors.Is(err, account.ErrEmailExists):
		writeConflict(w, "an account with this email already exists")
	case errors.Is(err, account.ErrEmailInvalid):
		writeValidation(w, "email", "must be a valid email address")
	case errors.Is(err, account.ErrPasswordTooShort):
		writeValidation(w, "password", "must be at least 8 characters")
	case errors.Is(err, account.ErrPasswordNoDigit):
		writeValidation(w, "password", "must contain at least one digit")
	case errors.Is(err, account.ErrPasswordNoUpper):
		writeValidation(w, "password", "must contain at least one uppercase letter")
	case errors.Is(err, auth.ErrLockedOut):
		writeError(w, http.StatusForbidden, ErrCodeLockedOut,
			"account locked after repeated failed logins, try again later")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, "invalid credentials")
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenReuse):
		writeUnauthorized(w, "invalid or expired refresh token")
	default:
		s.logger.Error("unhandled domain error", "error", err)
		writeInternalError(w, "internal server error")
	}
}
