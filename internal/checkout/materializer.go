// Package checkout turns a customer's cart into an immutable order and
// moves orders through fulfillment.
package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/auth"
	"github.com/safar/cartstore/internal/cache"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/pricing"
	"github.com/safar/cartstore/internal/stock"
	"github.com/safar/cartstore/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MaterializeRequest carries the client's view of the cart. Items must
// match the live cart line for line.
type MaterializeRequest struct {
	CartID        string
	Shipping      models.ShippingDetails
	Items         []models.LineRef
	PaymentMethod string
}

type Materializer struct {
	db     *sql.DB
	cache  cache.CartCache
	logger *zap.Logger
}

func NewMaterializer(db *sql.DB, c cache.CartCache, logger *zap.Logger) *Materializer {
	if c == nil {
		c = cache.Noop{}
	}
	return &Materializer{db: db, cache: c, logger: logger.Named("checkout")}
}

// OrderCreated is the payload of the order.created outbox event.
type OrderCreated struct {
	OrderID     uuid.UUID        `json:"orderId"`
	OrderNumber string           `json:"orderNumber"`
	CustomerID  uuid.UUID        `json:"customerId"`
	Items       []models.LineRef `json:"items"`
	Subtotal    string           `json:"subtotal"`
	Shipping    string           `json:"shipping"`
	Total       string           `json:"total"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Materialize validates the cart against the request and current stock,
// then in one transaction writes the order, takes the stock, deletes the
// cart and records an order.created event. Any validation failure aborts
// before the first write.
func (m *Materializer) Materialize(ctx context.Context, id auth.Identity, req MaterializeRequest) (*models.Order, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	cartID, err := uuid.Parse(req.CartID)
	if err != nil {
		return nil, apperr.Validation("cart %q not found", req.CartID)
	}
	if err := ValidateShipping(req.Shipping); err != nil {
		return nil, err
	}

	var order *models.Order
	err = database.WithRetry(ctx, m.db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		cart, err := store.LockCartByID(ctx, tx, cartID)
		if errors.Is(err, apperr.ErrCartNotFound) || (err == nil && cart.CustomerID != id.CustomerID) {
			return apperr.Validation("cart %s not found", cartID)
		}
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return apperr.Validation("cart %s is empty", cartID)
		}

		exists, err := store.UserExists(ctx, tx, cart.CustomerID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.Validation("customer %s does not exist", cart.CustomerID)
		}

		if err := ValidateSnapshot(cart.Items, req.Items); err != nil {
			return err
		}

		for _, line := range cart.Items {
			product, err := store.LockProduct(ctx, tx, line.ProductID)
			if errors.Is(err, apperr.ErrProductNotFound) {
				return apperr.Validation("product %s no longer exists", line.ProductID)
			}
			if err != nil {
				return err
			}
			if err := stock.Check(product, line.Quantity); err != nil {
				return apperr.Validation("%v", err)
			}
		}

		totals := pricing.Calculate(cart.Items)
		order, err = store.InsertOrder(ctx, tx, &models.Order{
			CustomerID:    cart.CustomerID,
			CartID:        cart.ID,
			Shipping:      req.Shipping,
			Items:         cart.Items,
			Subtotal:      totals.Subtotal,
			ShippingCost:  totals.Shipping,
			TotalAmount:   totals.Total,
			ItemCount:     totals.ItemCount,
			PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		})
		if err != nil {
			return err
		}

		for _, line := range cart.Items {
			if err := store.DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		if err := store.DeleteCart(ctx, tx, cart.ID); err != nil {
			return err
		}

		payload, err := json.Marshal(OrderCreated{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			Items:       order.Items.Refs(),
			Subtotal:    pricing.Format(order.Subtotal),
			Shipping:    pricing.Format(order.ShippingCost),
			Total:       pricing.Format(order.TotalAmount),
			CreatedAt:   order.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("marshal order event: %w", err)
		}
		return store.InsertOutboxEvent(ctx, tx, order.ID, models.EventTypeOrderCreated, payload)
	})
	if err != nil {
		return nil, err
	}

	if err := m.cache.Delete(ctx, order.CustomerID); err != nil {
		m.logger.Warn("cache invalidation failed",
			zap.String("customer_id", order.CustomerID.String()), zap.Error(err))
	}

	m.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", order.CustomerID.String()),
		zap.String("total", pricing.Format(order.TotalAmount)),
		zap.Int("item_count", order.ItemCount))
	return order, nil
}

// AdvanceStatus moves an order to next, which must be the following
// fulfillment step or cancelled.
func (m *Materializer) AdvanceStatus(ctx context.Context, id auth.Identity, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperr.Invalid("unknown order status %q", next)
	}

	var updated *models.Order
	err := database.WithRetry(ctx, m.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		order, err := store.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s to %s", apperr.ErrInvalidTransition, order.Status, next)
		}
		updated, err = store.UpdateOrderStatus(ctx, tx, order.ID, next, order.Version)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("order status changed",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// MarkPaid records payment. Cancelled or already paid orders are rejected.
func (m *Materializer) MarkPaid(ctx context.Context, id auth.Identity, orderID uuid.UUID, method string) (*models.Order, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, apperr.Invalid("payment method is required")
	}

	var updated *models.Order
	err := database.WithRetry(ctx, m.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		order, err := store.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		switch {
		case order.Status == models.OrderStatusCancelled:
			return fmt.Errorf("%w: order is cancelled", apperr.ErrInvalidTransition)
		case order.PaymentStatus == models.PaymentStatusPaid:
			return fmt.Errorf("%w: order is already paid", apperr.ErrInvalidTransition)
		}
		updated, err = store.MarkOrderPaid(ctx, tx, order.ID, method, order.Version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetOrder returns an order owned by the caller. Admins see every order;
// other customers' orders are reported as not found.
func (m *Materializer) GetOrder(ctx context.Context, id auth.Identity, orderID uuid.UUID) (*models.Order, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}

	order, err := store.GetOrder(ctx, m.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != id.CustomerID && !id.Admin {
		return nil, apperr.ErrOrderNotFound
	}
	return order, nil
}

type ListOrdersRequest struct {
	Cursor string
	Limit  int
	// AllCustomers lists every customer's orders; admin only.
	AllCustomers bool
}

func (m *Materializer) ListOrders(ctx context.Context, id auth.Identity, req ListOrdersRequest) (*store.CursorPage, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}

	customerID := id.CustomerID
	if req.AllCustomers {
		if err := requireAdmin(id); err != nil {
			return nil, err
		}
		customerID = uuid.Nil
	}

	limit := req.Limit
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return store.ListOrdersCursor(ctx, m.db, customerID, req.Cursor, limit)
}

func requireAdmin(id auth.Identity) error {
	if err := id.Require(); err != nil {
		return err
	}
	if !id.Admin {
		return fmt.Errorf("%w: admin role required", apperr.ErrForbidden)
	}
	return nil
}
