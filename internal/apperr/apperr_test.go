package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized},
		{"invalid wrapped", Invalid("quantity %d out of range", 101), http.StatusBadRequest},
		{"stock", fmt.Errorf("add: %w", ErrInsufficientStock), http.StatusBadRequest},
		{"cart full", ErrCartFull, http.StatusBadRequest},
		{"validation", Validation("length mismatch"), http.StatusBadRequest},
		{"product", ErrProductNotFound, http.StatusNotFound},
		{"cart", ErrCartNotFound, http.StatusNotFound},
		{"item", ErrItemNotFound, http.StatusNotFound},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"conflict", fmt.Errorf("%w: product changed", ErrConflict), http.StatusConflict},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestInvalidKeepsMessage(t *testing.T) {
	err := Invalid("quantity must be between %d and %d", 1, 100)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid input: quantity must be between 1 and 100", err.Error())
	assert.False(t, IsInternal(err))
	assert.True(t, IsInternal(errors.New("boom")))
}
