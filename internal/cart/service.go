// Package cart keeps one cart per customer. Every mutation checks live
// stock and writes the cart in a single transaction; reads go through the
// cart cache.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/auth"
	"github.com/safar/cartstore/internal/cache"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/stock"
	"github.com/safar/cartstore/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type AddItemRequest struct {
	ProductID   string
	Quantity    int
	SizeID      string
	DesignLabel string
}

type UpdateItemRequest = AddItemRequest

// cartLoadTimeout bounds a shared cart load once it no longer follows the
// caller's context.
const cartLoadTimeout = 5 * time.Second

type Service struct {
	db     *sql.DB
	cache  cache.CartCache
	logger *zap.Logger
	sfg    singleflight.Group
	now    func() time.Time
}

func NewService(db *sql.DB, c cache.CartCache, logger *zap.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		db:     db,
		cache:  c,
		logger: logger.Named("cart"),
		now:    time.Now,
	}
}

// AddItem adds quantity units of a product, creating the cart on first use.
// A product already in the cart has its quantity raised, saturating at
// models.MaxQuantity.
func (s *Service) AddItem(ctx context.Context, id auth.Identity, req AddItemRequest) (*models.Cart, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	productID, err := parseProductID(req.ProductID)
	if err != nil {
		return nil, err
	}
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}

	var saved *models.Cart
	err = database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		product, err := stock.CheckAvailability(ctx, tx, productID, req.Quantity)
		if err != nil {
			return err
		}
		size, design, err := resolveOptions(product, req.SizeID, req.DesignLabel)
		if err != nil {
			return err
		}

		cart, err := store.LockCartByCustomer(ctx, tx, id.CustomerID)
		isNew := errors.Is(err, apperr.ErrCartNotFound)
		if err != nil && !isNew {
			return err
		}
		if isNew {
			cart = &models.Cart{CustomerID: id.CustomerID}
		}

		err = cart.AddLine(models.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.PrimaryImage(),
			UnitPrice: product.Price,
			Quantity:  req.Quantity,
			Size:      size,
			Design:    design,
			AddedAt:   s.now().UTC(),
		})
		if err != nil {
			return err
		}

		if isNew {
			saved, err = store.InsertCart(ctx, tx, id.CustomerID, cart.Items)
		} else {
			saved, err = store.SaveCart(ctx, tx, cart)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id.CustomerID)
	s.logger.Debug("item added",
		zap.String("customer_id", id.CustomerID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", req.Quantity))
	return saved, nil
}

// UpdateItem sets the quantity of a product already in the cart and
// refreshes its name, image and price from the current product.
func (s *Service) UpdateItem(ctx context.Context, id auth.Identity, req UpdateItemRequest) (*models.Cart, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	productID, err := parseProductID(req.ProductID)
	if err != nil {
		return nil, err
	}
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}

	var saved *models.Cart
	err = database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		product, err := stock.CheckAvailability(ctx, tx, productID, req.Quantity)
		if err != nil {
			return err
		}
		size, design, err := resolveOptions(product, req.SizeID, req.DesignLabel)
		if err != nil {
			return err
		}

		cart, err := store.LockCartByCustomer(ctx, tx, id.CustomerID)
		if err != nil {
			return err
		}
		if err := cart.SetLine(product, req.Quantity, size, design); err != nil {
			return err
		}

		saved, err = store.SaveCart(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id.CustomerID)
	return saved, nil
}

// RemoveItem drops a product from the cart. Removing the last line deletes
// the cart, in which case the returned cart is nil.
func (s *Service) RemoveItem(ctx context.Context, id auth.Identity, rawProductID string) (*models.Cart, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}
	productID, err := parseProductID(rawProductID)
	if err != nil {
		return nil, err
	}

	var saved *models.Cart
	err = database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		saved = nil

		cart, err := store.LockCartByCustomer(ctx, tx, id.CustomerID)
		if err != nil {
			return err
		}
		if err := cart.RemoveLine(productID); err != nil {
			return err
		}

		if cart.IsEmpty() {
			return store.DeleteCart(ctx, tx, cart.ID)
		}
		saved, err = store.SaveCart(ctx, tx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id.CustomerID)
	return saved, nil
}

// GetCart returns the customer's cart, or nil if there is none. Concurrent
// cache misses for one customer share a single database read.
func (s *Service) GetCart(ctx context.Context, id auth.Identity) (*models.Cart, error) {
	if err := id.Require(); err != nil {
		return nil, err
	}

	key := id.CustomerID.String()
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		// Shared by every waiting caller, so one caller going away must not
		// fail the others.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cartLoadTimeout)
		defer cancel()

		cart, err := s.cache.Get(ctx, id.CustomerID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("customer_id", key), zap.Error(err))
		}

		gen, genErr := s.cache.Generation(ctx, id.CustomerID)
		if genErr != nil {
			s.logger.Warn("cache generation failed", zap.String("customer_id", key), zap.Error(genErr))
		}

		cart, err = store.GetCartByCustomer(ctx, s.db, id.CustomerID)
		if errors.Is(err, apperr.ErrCartNotFound) {
			return (*models.Cart)(nil), nil
		}
		if err != nil {
			return nil, err
		}

		if genErr == nil {
			switch err := s.cache.Set(ctx, id.CustomerID, cart, gen); {
			case errors.Is(err, cache.ErrStale):
				s.logger.Debug("cart changed during load, not caching", zap.String("customer_id", key))
			case err != nil:
				s.logger.Warn("cache set failed", zap.String("customer_id", key), zap.Error(err))
			}
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*models.Cart), nil
}

// ClearCart deletes the customer's cart. Clearing a missing cart succeeds.
func (s *Service) ClearCart(ctx context.Context, id auth.Identity) error {
	if err := id.Require(); err != nil {
		return err
	}

	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		cart, err := store.LockCartByCustomer(ctx, tx, id.CustomerID)
		if errors.Is(err, apperr.ErrCartNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return store.DeleteCart(ctx, tx, cart.ID)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id.CustomerID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, customerID uuid.UUID) {
	if err := s.cache.Delete(ctx, customerID); err != nil {
		s.logger.Warn("cache invalidation failed",
			zap.String("customer_id", customerID.String()), zap.Error(err))
	}
}

func parseProductID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apperr.Invalid("malformed product id %q", raw)
	}
	return id, nil
}

func validateQuantity(q int) error {
	if !models.ValidQuantity(q) {
		return apperr.Invalid("quantity must be between %d and %d", models.MinQuantity, models.MaxQuantity)
	}
	return nil
}

// resolveOptions looks up the requested size and design on the product.
// Empty selectors select nothing.
func resolveOptions(product *models.Product, sizeID, designLabel string) (*models.SizeOption, *models.DesignOption, error) {
	var (
		size   *models.SizeOption
		design *models.DesignOption
	)
	if sizeID != "" {
		opt, ok := product.Options.Size(sizeID)
		if !ok {
			return nil, nil, apperr.Invalid("product %s has no size %q", product.ID, sizeID)
		}
		size = &opt
	}
	if designLabel != "" {
		opt, ok := product.Options.Design(designLabel)
		if !ok {
			return nil, nil, apperr.Invalid("product %s has no design %q", product.ID, designLabel)
		}
		design = &opt
	}
	return size, design, nil
}
