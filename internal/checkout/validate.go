package checkout

import (
	"net/mail"
	"strings"

	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/models"
)

// ValidateSnapshot checks that candidate is an exact, order-preserving copy
// of the cart's (product, quantity) pairs and that it orders something.
func ValidateSnapshot(cart models.LineItems, candidate []models.LineRef) error {
	count := 0
	for _, ref := range candidate {
		count += ref.Quantity
	}
	if count <= 0 {
		return apperr.Validation("order must contain at least one unit")
	}
	if len(candidate) == 0 {
		return apperr.Validation("order has no line items")
	}
	if len(candidate) != len(cart) {
		return apperr.Validation("order has %d line items, cart has %d", len(candidate), len(cart))
	}
	for i, ref := range candidate {
		line := cart[i]
		if ref.ProductID != line.ProductID {
			return apperr.Validation("line %d is product %s, cart has %s", i+1, ref.ProductID, line.ProductID)
		}
		if ref.Quantity != line.Quantity {
			return apperr.Validation("line %d has quantity %d, cart has %d", i+1, ref.Quantity, line.Quantity)
		}
	}
	return nil
}

// ValidateShipping requires the contact and address fields; province, city,
// postal code and map link are optional.
func ValidateShipping(s models.ShippingDetails) error {
	required := []struct{ name, value string }{
		{"name", s.Name},
		{"email", s.Email},
		{"phone", s.Phone},
		{"address", s.Address},
		{"country", s.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apperr.Validation("shipping %s is required", f.name)
		}
	}
	if _, err := mail.ParseAddress(s.Email); err != nil {
		return apperr.Validation("shipping email %q is not valid", s.Email)
	}
	return nil
}
