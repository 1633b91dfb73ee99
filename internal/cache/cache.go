package cache

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/models"
)

// CartCache holds each customer's cart keyed by customer id. Implementations
// may drop entries at any time; the database stays authoritative.
//
// Readers take a Generation before loading from the database and pass it to
// Set. Delete advances the generation, so a load that raced with a write is
// never stored.
type CartCache interface {
	Get(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	Generation(ctx context.Context, customerID uuid.UUID) (int64, error)
	Set(ctx context.Context, customerID uuid.UUID, cart *models.Cart, generation int64) error
	Delete(ctx context.Context, customerID uuid.UUID) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStale is returned by Set when the generation moved since it was read.
	ErrStale = errors.New("cache generation changed")
)

// Noop is used when no redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, uuid.UUID) (*models.Cart, error) { return nil, ErrCacheMiss }
func (Noop) Generation(context.Context, uuid.UUID) (int64, error) { return 0, nil }
func (Noop) Set(context.Context, uuid.UUID, *models.Cart, int64) error { return nil }
func (Noop) Delete(context.Context, uuid.UUID) error { return nil }
