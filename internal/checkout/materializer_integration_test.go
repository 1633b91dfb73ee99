package checkout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/auth"
	"github.com/safar/cartstore/internal/cart"
	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/store"
	"github.com/safar/cartstore/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var shipping = models.ShippingDetails{
	Name:    "Asha Gurung",
	Email:   "asha@example.com",
	Phone:   "9800000000",
	Address: "Lakeside 4",
	Country: "np",
	City:    "pokhara",
}

type env struct {
	db    *sql.DB
	carts *cart.Service
	m     *Materializer
}

func newEnv(t *testing.T) *env {
	db := testutil.PostgresDB(t)
	return &env{
		db:    db,
		carts: cart.NewService(db, nil, zap.NewNop()),
		m:     NewMaterializer(db, nil, zap.NewNop()),
	}
}

func (e *env) customer(t *testing.T) auth.Identity {
	return auth.Identity{CustomerID: testutil.NewCustomer(t, e.db).ID}
}

func (e *env) fill(t *testing.T, id auth.Identity, lines map[*models.Product]int, order ...*models.Product) *models.Cart {
	t.Helper()
	var c *models.Cart
	for _, p := range order {
		var err error
		c, err = e.carts.AddItem(context.Background(), id, cart.AddItemRequest{ProductID: p.ID.String(), Quantity: lines[p]})
		require.NoError(t, err)
	}
	return c
}

func (e *env) stockOf(t *testing.T, p *models.Product) int {
	t.Helper()
	got, err := store.GetProduct(context.Background(), e.db, p.ID)
	require.NoError(t, err)
	return got.Stock
}

func (e *env) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestMaterialize_Success(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.customer(t)

	a := testutil.NewProduct(t, e.db, "10", 5)
	b := testutil.NewProduct(t, e.db, "600", 3)
	c := e.fill(t, id, map[*models.Product]int{a: 2, b: 1}, a, b)

	order, err := e.m.Materialize(ctx, id, MaterializeRequest{
		CartID:        c.ID.String(),
		Shipping:      shipping,
		Items:         c.Items.Refs(),
		PaymentMethod: "cod",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, c.ID, order.CartID)
	assert.Equal(t, id.CustomerID, order.CustomerID)
	assert.Equal(t, c.Items.Refs(), order.Items.Refs())
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(620)))
	assert.True(t, order.ShippingCost.Equal(decimal.NewFromInt(50)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(670)))
	assert.Equal(t, 3, order.ItemCount)
	assert.Equal(t, "pokhara", order.Shipping.City)

	assert.Equal(t, 3, e.stockOf(t, a))
	assert.Equal(t, 2, e.stockOf(t, b))

	got, err := e.carts.GetCart(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got, "checkout deletes the cart")

	var payload []byte
	require.NoError(t, e.db.QueryRow(
		`SELECT payload FROM outbox_events WHERE aggregate_id = $1 AND event_type = $2`,
		order.ID, models.EventTypeOrderCreated).Scan(&payload))
	var event OrderCreated
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, order.OrderNumber, event.OrderNumber)
	assert.Equal(t, "670.00", event.Total)
}

func TestMaterialize_FreeShipping(t *testing.T) {
	e := newEnv(t)
	id := e.customer(t)

	a := testutil.NewProduct(t, e.db, "10", 5)
	b := testutil.NewProduct(t, e.db, "600", 3)
	c := e.fill(t, id, map[*models.Product]int{a: 2, b: 2}, a, b)

	order, err := e.m.Materialize(context.Background(), id, MaterializeRequest{
		CartID: c.ID.String(), Shipping: shipping, Items: c.Items.Refs(),
	})
	require.NoError(t, err)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(1220)))
	assert.True(t, order.ShippingCost.IsZero())
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1220)))
}

func TestMaterialize_ValidationFailuresWriteNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.customer(t)

	a := testutil.NewProduct(t, e.db, "10", 5)
	b := testutil.NewProduct(t, e.db, "20", 5)
	c := e.fill(t, id, map[*models.Product]int{a: 2, b: 1}, a, b)
	refs := c.Items.Refs()

	cases := map[string]MaterializeRequest{
		"unknown cart": {CartID: uuid.NewString(), Items: refs},
		"empty items":  {CartID: c.ID.String()},
		"omitted line": {CartID: c.ID.String(), Items: refs[:1]},
		"reordered":    {CartID: c.ID.String(), Items: []models.LineRef{refs[1], refs[0]}},
		"qty drift":    {CartID: c.ID.String(), Items: []models.LineRef{refs[0], {ProductID: b.ID, Quantity: 2}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			req.Shipping = shipping
			_, err := e.m.Materialize(ctx, id, req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	other := e.customer(t)
	_, err := e.m.Materialize(ctx, other, MaterializeRequest{CartID: c.ID.String(), Shipping: shipping, Items: refs})
	assert.ErrorIs(t, err, apperr.ErrValidation, "another customer's cart")

	assert.Equal(t, 0, e.count(t, "orders"))
	assert.Equal(t, 0, e.count(t, "outbox_events"))
	assert.Equal(t, 5, e.stockOf(t, a))
	got, err := e.carts.GetCart(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestMaterialize_RechecksStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.customer(t)

	a := testutil.NewProduct(t, e.db, "10", 5)
	c := e.fill(t, id, map[*models.Product]int{a: 4}, a)

	_, err := e.db.ExecContext(ctx, `UPDATE products SET stock = 3 WHERE id = $1`, a.ID)
	require.NoError(t, err)

	_, err = e.m.Materialize(ctx, id, MaterializeRequest{CartID: c.ID.String(), Shipping: shipping, Items: c.Items.Refs()})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, e.count(t, "orders"))
	assert.Equal(t, 3, e.stockOf(t, a))

	_, err = e.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, a.ID)
	require.NoError(t, err)
	_, err = e.m.Materialize(ctx, id, MaterializeRequest{CartID: c.ID.String(), Shipping: shipping, Items: c.Items.Refs()})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMaterialize_LastUnitRace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := testutil.NewProduct(t, e.db, "10", 1)

	const buyers = 4
	type attempt struct {
		id   auth.Identity
		cart *models.Cart
	}
	attempts := make([]attempt, buyers)
	for i := range attempts {
		id := e.customer(t)
		attempts[i] = attempt{id: id, cart: e.fill(t, id, map[*models.Product]int{p: 1}, p)}
	}

	var wg sync.WaitGroup
	errs := make(chan error, buyers)
	for _, a := range attempts {
		wg.Add(1)
		go func(a attempt) {
			defer wg.Done()
			_, err := e.m.Materialize(ctx, a.id, MaterializeRequest{
				CartID: a.cart.ID.String(), Shipping: shipping, Items: a.cart.Items.Refs(),
			})
			errs <- err
		}(a)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, apperr.ErrValidation):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, e.stockOf(t, p))
	assert.Equal(t, 1, e.count(t, "orders"))
}

func TestOrderLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.customer(t)
	admin := auth.Identity{CustomerID: uuid.New(), Admin: true}

	p := testutil.NewProduct(t, e.db, "10", 5)
	c := e.fill(t, id, map[*models.Product]int{p: 1}, p)
	order, err := e.m.Materialize(ctx, id, MaterializeRequest{CartID: c.ID.String(), Shipping: shipping, Items: c.Items.Refs()})
	require.NoError(t, err)

	_, err = e.m.AdvanceStatus(ctx, admin, order.ID, models.OrderStatusProcessing)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "skipping a step")

	for _, next := range []models.OrderStatus{models.OrderStatusConfirm, models.OrderStatusProcessing, models.OrderStatusPickup} {
		order, err = e.m.AdvanceStatus(ctx, admin, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, order.Status)
	}

	order, err = e.m.MarkPaid(ctx, admin, order.ID, "esewa")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "esewa", order.PaymentMethod)

	_, err = e.m.MarkPaid(ctx, admin, order.ID, "esewa")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	order, err = e.m.AdvanceStatus(ctx, admin, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)

	_, err = e.m.AdvanceStatus(ctx, admin, order.ID, models.OrderStatusOnTheWay)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition, "cancelled is terminal")

	_, err = e.m.AdvanceStatus(ctx, admin, uuid.New(), models.OrderStatusConfirm)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
}

func TestGetAndListOrders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.customer(t)
	stranger := e.customer(t)
	admin := auth.Identity{CustomerID: uuid.New(), Admin: true}

	p := testutil.NewProduct(t, e.db, "10", 50)
	var last *models.Order
	for i := 0; i < 3; i++ {
		c := e.fill(t, owner, map[*models.Product]int{p: 1}, p)
		var err error
		last, err = e.m.Materialize(ctx, owner, MaterializeRequest{CartID: c.ID.String(), Shipping: shipping, Items: c.Items.Refs()})
		require.NoError(t, err)
	}

	got, err := e.m.GetOrder(ctx, owner, last.ID)
	require.NoError(t, err)
	assert.Equal(t, last.OrderNumber, got.OrderNumber)

	_, err = e.m.GetOrder(ctx, stranger, last.ID)
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)

	_, err = e.m.GetOrder(ctx, admin, last.ID)
	require.NoError(t, err)

	page, err := e.m.ListOrders(ctx, owner, ListOrdersRequest{Limit: 2})
	require.NoError(t, err)
	orders := page.Items.([]models.Order)
	require.Len(t, orders, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, last.ID, orders[0].ID, "newest first")

	page, err = e.m.ListOrders(ctx, stranger, ListOrdersRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Items.([]models.Order))

	page, err = e.m.ListOrders(ctx, admin, ListOrdersRequest{AllCustomers: true})
	require.NoError(t, err)
	assert.Len(t, page.Items.([]models.Order), 3)
}
