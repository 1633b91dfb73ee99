package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/models"
)

const cartColumns = `id, customer_id, items, created_at, updated_at, version`

func scanCart(row rowScanner) (*models.Cart, error) {
	cart := &models.Cart{}
	err := row.Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.Items,
		&cart.CreatedAt,
		&cart.UpdatedAt,
		&cart.Version,
	)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// GetCartByCustomer returns ErrCartNotFound when the customer has no cart.
func GetCartByCustomer(ctx context.Context, q database.Querier, customerID uuid.UUID) (*models.Cart, error) {
	return getCart(ctx, q, `customer_id = $1`, customerID, "")
}

// LockCartByCustomer reads the customer's cart FOR UPDATE so that concurrent
// mutations of the same cart queue behind each other.
func LockCartByCustomer(ctx context.Context, tx *sql.Tx, customerID uuid.UUID) (*models.Cart, error) {
	return getCart(ctx, tx, `customer_id = $1`, customerID, "FOR UPDATE")
}

func LockCartByID(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Cart, error) {
	return getCart(ctx, tx, `id = $1`, id, "FOR UPDATE")
}

func getCart(ctx context.Context, q database.Querier, where string, arg uuid.UUID, lock string) (*models.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE ` + where + ` ` + lock

	cart, err := scanCart(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrCartNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// InsertCart creates the customer's cart. If another request created one
// first, ErrOptimisticLockFailed is returned so the caller's transaction is
// retried and picks up the existing cart.
func InsertCart(ctx context.Context, q database.Querier, customerID uuid.UUID, items models.LineItems) (*models.Cart, error) {
	query := `
		INSERT INTO carts (id, customer_id, items, created_at, updated_at, version)
		VALUES ($1, $2, $3, NOW(), NOW(), 1)
		ON CONFLICT (customer_id) DO NOTHING
		RETURNING ` + cartColumns

	cart, err := scanCart(q.QueryRowContext(ctx, query, uuid.New(), customerID, items))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("insert cart: %w", err)
	}

	return cart, nil
}

// SaveCart writes cart.Items if the stored version still equals cart.Version.
func SaveCart(ctx context.Context, q database.Querier, cart *models.Cart) (*models.Cart, error) {
	query := `
		UPDATE carts
		SET items = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING ` + cartColumns

	saved, err := scanCart(q.QueryRowContext(ctx, query, cart.Items, cart.ID, cart.Version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("save cart: %w", err)
	}

	return saved, nil
}

// DeleteCart removes the cart row. Deleting a missing cart is not an error.
func DeleteCart(ctx context.Context, q database.Querier, id uuid.UUID) error {
	_, err := q.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
