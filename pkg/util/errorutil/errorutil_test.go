package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/incident-hub/internal/domain"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"transition", fmt.Errorf("apply: %w", &domain.TransitionError{Op: "resolve", From: domain.TicketStatusNew, To: domain.TicketStatusResolved}), "INVALID_STATUS_TRANSITION", http.StatusBadRequest},
		{"notFound", domain.NewNotFound("ticket", "t-1"), "NOT_FOUND", http.StatusNotFound},
		{"noRows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"conflict", fmt.Errorf("%w: stale", domain.ErrConflict), "CONCURRENT_MODIFICATION", http.StatusConflict},
		{"validation", fmt.Errorf("%w: title", domain.ErrValidation), "VALIDATION_FAILED", http.StatusBadRequest},
		{"passthrough", NewUnauthorized("nope"), "UNAUTHORIZED", http.StatusUnauthorized},
		{"internal", errors.New("db down"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.status, de.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))
}

func TestTransitionDetails(t *testing.T) {
	de := ToDomainError(&domain.TransitionError{Op: "transition", From: domain.TicketStatusClosed, To: domain.TicketStatusNew})
	assert.Equal(t, domain.TicketStatusClosed, de.Details["from"])
	assert.True(t, errors.Is(de, domain.ErrInvalidTransition))
}
