package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("chat: %w", ErrNotFound), http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("admins cannot chat: %w", ErrForbidden), http.StatusForbidden},
		{"bad request", ErrBadRequest, http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"no-op", fmt.Errorf("all present: %w", ErrNoOp), http.StatusBadRequest},
		{"conflict", ErrConflict, http.StatusConflict},
		{"too large", ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"app error code wins", New(http.StatusTeapot, "short and stout", ErrBadRequest), http.StatusTeapot},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatus(tc.err))
		})
	}
}

func TestWrapKeepsSentinel(t *testing.T) {
	err := Wrap(ErrNoOp, "All selected members are already in the group")

	assert.ErrorIs(t, err, ErrNoOp)
	assert.Equal(t, http.StatusBadRequest, MapErrorToStatus(err))
	assert.Equal(t, "All selected members are already in the group", Message(err))
}

func TestMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, ErrInternal.Error(), Message(errors.New("pq: connection refused")))
	assert.Equal(t, "chat not found: resource not found", Message(fmt.Errorf("chat not found: %w", ErrNotFound)))
}
