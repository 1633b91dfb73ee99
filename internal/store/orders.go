package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/models"
)

const orderColumns = `id, order_number, customer_id, cart_id, shipping, items, subtotal, shipping_cost,
	total_amount, item_count, status, payment_status, payment_method, created_at, updated_at, version`

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.CartID,
		&order.Shipping,
		&order.Items,
		&order.Subtotal,
		&order.ShippingCost,
		&order.TotalAmount,
		&order.ItemCount,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
}

// InsertOrder persists order as a new pending, unpaid row. ID and
// OrderNumber are assigned here; the stored row is returned.
func InsertOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error) {
	query := `
		INSERT INTO orders (id, order_number, customer_id, cart_id, shipping, items, subtotal,
			shipping_cost, total_amount, item_count, status, payment_status, payment_method,
			created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW(), 1)
		RETURNING ` + orderColumns

	created, err := scanOrder(tx.QueryRowContext(ctx, query,
		uuid.New(),
		generateOrderNumber(),
		order.CustomerID,
		order.CartID,
		order.Shipping,
		order.Items,
		order.Subtotal,
		order.ShippingCost,
		order.TotalAmount,
		order.ItemCount,
		models.OrderStatusPending,
		models.PaymentStatusUnpaid,
		order.PaymentMethod,
	))
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return created, nil
}

func GetOrder(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Order, error) {
	return getOrder(ctx, q, id, "")
}

func LockOrder(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Order, error) {
	return getOrder(ctx, tx, id, "FOR UPDATE")
}

func getOrder(ctx context.Context, q database.Querier, id uuid.UUID, lock string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 ` + lock

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

// UpdateOrderStatus moves an order to status if its version is unchanged.
func UpdateOrderStatus(ctx context.Context, q database.Querier, id uuid.UUID, status models.OrderStatus, version int) (*models.Order, error) {
	query := `
		UPDATE orders
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING ` + orderColumns

	order, err := scanOrder(q.QueryRowContext(ctx, query, status, id, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return order, nil
}

func MarkOrderPaid(ctx context.Context, q database.Querier, id uuid.UUID, method string, version int) (*models.Order, error) {
	query := `
		UPDATE orders
		SET payment_status = $1, payment_method = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
		RETURNING ` + orderColumns

	order, err := scanOrder(q.QueryRowContext(ctx, query, models.PaymentStatusPaid, method, id, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	return order, nil
}

// ListOrdersCursor pages orders newest first. uuid.Nil as customerID lists every
// customer's orders.
func ListOrdersCursor(ctx context.Context, q database.Querier, customerID uuid.UUID, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, apperr.Invalid("malformed cursor")
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '00000000-0000-0000-0000-000000000000'::uuid OR customer_id = $1)
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := q.QueryContext(ctx, query, customerID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
