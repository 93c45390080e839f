package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonesrussell/north-cloud/search-admin/internal/domain"
)

func TestStatusFor(t *testing.T) {
	t.Helper()

	tests := []struct {
		name   string
		err    error
		legacy bool
		want   int
	}{
		{"unauthorized", domain.ErrUnauthorized, false, http.StatusUnauthorized},
		{"invalid id", fmt.Errorf("%w: empty", domain.ErrInvalidIndexID), false, http.StatusBadRequest},
		{"invalid mapping", domain.ErrInvalidMapping, false, http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: x", domain.ErrMappingNotFound), false, http.StatusNotFound},
		{"conflict", domain.ErrMappingExists, false, http.StatusConflict},
		{"legacy conflict", domain.ErrMappingExists, true, http.StatusNotFound},
		{"engine failure", domain.ErrEngineFailure, false, http.StatusInternalServerError},
		{"persistence", fmt.Errorf("%w: %w", domain.ErrPersistence, errors.New("io")), false, http.StatusInternalServerError},
		{"unavailable", domain.ErrEngineUnavailable, false, http.StatusServiceUnavailable},
		{"client went away", context.Canceled, false, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), false, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err, tt.legacy); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestMessageFor_Fallback(t *testing.T) {
	t.Helper()

	if got := messageFor(domain.ErrPersistence, "x", storeWriteFailed); got != storeWriteFailed {
		t.Errorf("messageFor() = %q, want fallback", got)
	}
	if got := messageFor(errors.New("secret detail"), "x", ""); got != internalError {
		t.Errorf("messageFor() = %q, want generic message", got)
	}
}
