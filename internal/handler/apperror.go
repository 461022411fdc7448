package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrUnknownResource  = &AppError{http.StatusBadRequest, "UNKNOWN_RESOURCE", "Notification does not resolve to a known resource"}
	ErrInvalidPassword  = &AppError{http.StatusUnauthorized, "INVALID_PASSWORD", "Invalid admin password"}
	ErrUpstreamRejected = &AppError{http.StatusBadRequest, "UPSTREAM_REJECTED", "Payment processor rejected the request"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
)
