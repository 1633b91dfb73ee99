package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/auth"
	"github.com/safar/cartstore/internal/cache"
	"github.com/safar/cartstore/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOperationsRequireIdentity(t *testing.T) {
	// No database: an anonymous caller must be rejected before any query.
	svc := NewService(nil, nil, zap.NewNop())
	ctx := context.Background()
	anon := auth.Identity{}

	_, err := svc.AddItem(ctx, anon, AddItemRequest{ProductID: "bad", Quantity: 0})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.UpdateItem(ctx, anon, UpdateItemRequest{ProductID: uuid.NewString(), Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.RemoveItem(ctx, anon, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.GetCart(ctx, anon)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	assert.ErrorIs(t, svc.ClearCart(ctx, anon), apperr.ErrUnauthenticated)
}

func TestInputValidatedBeforeQuery(t *testing.T) {
	svc := NewService(nil, nil, zap.NewNop())
	ctx := context.Background()
	id := auth.Identity{CustomerID: uuid.New()}

	cases := []AddItemRequest{
		{ProductID: "", Quantity: 1},
		{ProductID: "42", Quantity: 1},
		{ProductID: uuid.Nil.String(), Quantity: 1},
		{ProductID: uuid.NewString(), Quantity: 0},
		{ProductID: uuid.NewString(), Quantity: 101},
	}
	for _, req := range cases {
		_, err := svc.AddItem(ctx, id, req)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "%+v", req)

		_, err = svc.UpdateItem(ctx, id, req)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "%+v", req)
	}

	_, err := svc.RemoveItem(ctx, id, "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestResolveOptions(t *testing.T) {
	product := &models.Product{
		ID: uuid.New(),
		Options: models.ProductOptions{
			Sizes:   []models.SizeOption{{ID: "m", Label: "M", Surcharge: decimal.Zero}, {ID: "xl", Label: "XL", Surcharge: decimal.NewFromInt(3)}},
			Designs: []models.DesignOption{{Label: "Wave", Surcharge: decimal.NewFromInt(5)}},
		},
	}

	size, design, err := resolveOptions(product, "", "")
	require.NoError(t, err)
	assert.Nil(t, size)
	assert.Nil(t, design)

	size, design, err = resolveOptions(product, "xl", "Wave")
	require.NoError(t, err)
	assert.Equal(t, "XL", size.Label)
	assert.True(t, design.Surcharge.Equal(decimal.NewFromInt(5)))

	_, _, err = resolveOptions(product, "xxl", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, _, err = resolveOptions(product, "", "Stripes")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

// ctxCache serves a hit unless the context it is handed is already done,
// the way the redis client fails on a cancelled context.
type ctxCache struct {
	cache.Noop
	cart *models.Cart
}

func (c ctxCache) Get(ctx context.Context, _ uuid.UUID) (*models.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.cart, nil
}

func TestGetCart_SharedLoadIgnoresCallerCancellation(t *testing.T) {
	id := auth.Identity{CustomerID: uuid.New()}
	cached := &models.Cart{ID: uuid.New(), CustomerID: id.CustomerID, Version: 2}
	svc := NewService(nil, ctxCache{cart: cached}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := svc.GetCart(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, cached.ID, got.ID)
}
