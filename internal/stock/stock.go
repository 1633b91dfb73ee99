// Package stock answers whether live product stock covers a requested quantity.
//
// The check is point-in-time. Callers that need the answer to hold until
// they write should run it inside a transaction, where the product row is
// read FOR SHARE.
package stock

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/store"
)

// Check validates requested against the product's current stock.
func Check(product *models.Product, requested int) error {
	if !models.ValidQuantity(requested) {
		return apperr.Invalid("quantity must be between %d and %d", models.MinQuantity, models.MaxQuantity)
	}
	if product.Stock < requested {
		return fmt.Errorf("%w: %q has %d left, %d requested",
			apperr.ErrInsufficientStock, product.Name, product.Stock, requested)
	}
	return nil
}

// CheckAvailability loads the product and checks it covers requested units.
// It returns the product as read, for callers that copy its fields.
func CheckAvailability(ctx context.Context, q database.Querier, productID uuid.UUID, requested int) (*models.Product, error) {
	if !models.ValidQuantity(requested) {
		return nil, apperr.Invalid("quantity must be between %d and %d", models.MinQuantity, models.MaxQuantity)
	}

	var (
		product *models.Product
		err     error
	)
	if tx, ok := q.(*sql.Tx); ok {
		product, err = store.GetProductForShare(ctx, tx, productID)
	} else {
		product, err = store.GetProduct(ctx, q, productID)
	}
	if err != nil {
		return nil, err
	}

	if err := Check(product, requested); err != nil {
		return nil, err
	}
	return product, nil
}
