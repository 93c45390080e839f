package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
)

// statusFor maps a domain error to its HTTP status.
func statusFor(err error, legacyConflict bool) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidIndexID), errors.Is(err, domain.ErrInvalidMapping):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMappingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMappingExists):
		if legacyConflict {
			return http.StatusNotFound
		}
		return http.StatusConflict
	case errors.Is(err, domain.ErrEngineUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the plain-text body for err.
func messageFor(err error, index, fallback string) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return unauthorizedMessage
	case errors.Is(err, domain.ErrInvalidIndexID):
		return fmt.Sprintf("Invalid index name %q.", index)
	case errors.Is(err, domain.ErrInvalidMapping):
		return err.Error()
	case errors.Is(err, domain.ErrMappingNotFound):
		return fmt.Sprintf("The index %q was not found in mappings configuration on the server.", index)
	case errors.Is(err, domain.ErrMappingExists):
		return fmt.Sprintf("The index %q already exists in mappings configuration on the server.", index)
	case errors.Is(err, domain.ErrEngineFailure):
		return engineFailed
	case errors.Is(err, domain.ErrEngineUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return engineUnavailable
	}
	if fallback != "" {
		return fallback
	}
	return internalError
}
