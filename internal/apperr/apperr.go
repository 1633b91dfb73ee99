// Package apperr holds the error taxonomy shared by the cart and checkout
// services. Callers wrap a sentinel with detail using fmt.Errorf("%w: ...")
// and the HTTP layer recovers the kind with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartNotFound      = errors.New("cart not found")
	ErrItemNotFound      = errors.New("item not found in cart")
	ErrCartFull          = errors.New("cart is full")
	ErrValidation        = errors.New("checkout validation failed")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrUserNotFound      = errors.New("user not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrConflict          = errors.New("concurrent update")
)

// Invalid wraps ErrInvalidInput with a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Validation wraps ErrValidation with a formatted reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

var statusByKind = []struct {
	err    error
	status int
}{
	{ErrUnauthenticated, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrInsufficientStock, http.StatusBadRequest},
	{ErrCartFull, http.StatusBadRequest},
	{ErrValidation, http.StatusBadRequest},
	{ErrInvalidTransition, http.StatusBadRequest},
	{ErrProductNotFound, http.StatusNotFound},
	{ErrCartNotFound, http.StatusNotFound},
	{ErrItemNotFound, http.StatusNotFound},
	{ErrUserNotFound, http.StatusNotFound},
	{ErrOrderNotFound, http.StatusNotFound},
	{ErrConflict, http.StatusConflict},
}

// HTTPStatus maps an error to its response status. Anything outside the
// taxonomy is an internal error.
func HTTPStatus(err error) int {
	for _, k := range statusByKind {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// IsInternal reports whether err falls outside the taxonomy.
func IsInternal(err error) bool {
	return HTTPStatus(err) == http.StatusInternalServerError
}
