package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("X", "bad"), http.StatusBadRequest},
		{Conflict("X", "dup"), http.StatusConflict},
		{Unauthenticated("X", "who"), http.StatusUnauthorized},
		{Forbidden("X", "no"), http.StatusForbidden},
		{NotFound("X", "gone"), http.StatusNotFound},
		{TooManyRequests("X", "slow"), http.StatusTooManyRequests},
		{Dependency("X", "mail", errors.New("smtp down")), http.StatusInternalServerError},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.StatusCode(), tt.err.Message)
	}
}

func TestFrom(t *testing.T) {
	op := NotFound("USER_NOT_FOUND", "no user")
	wrapped := fmt.Errorf("lookup: %w", op)

	got := From(wrapped)
	assert.Same(t, op, got)
	assert.True(t, got.Operational())

	cause := errors.New("connection reset")
	internal := From(cause)
	assert.Equal(t, KindInternal, internal.Kind)
	assert.False(t, internal.Operational())
	assert.ErrorIs(t, internal, cause)
	assert.NotEmpty(t, internal.Stack)
	assert.NotContains(t, internal.Message, "connection reset")
}
