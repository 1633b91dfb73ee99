// Package catalog is the admin surface over products and customers. The
// cart and checkout packages only read what it writes.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/store"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) CreateProduct(ctx context.Context, req store.CreateProductRequest) (*models.Product, error) {
	if err := ValidateProduct(&req); err != nil {
		return nil, err
	}
	return store.CreateProduct(ctx, s.db, req)
}

// ValidateProduct trims text fields in place and checks amounts.
func ValidateProduct(req *store.CreateProductRequest) error {
	req.SKU = strings.TrimSpace(req.SKU)
	req.Name = strings.TrimSpace(req.Name)

	switch {
	case req.SKU == "":
		return apperr.Invalid("sku is required")
	case req.Name == "":
		return apperr.Invalid("name is required")
	case req.Price.IsNegative():
		return apperr.Invalid("price must not be negative")
	case req.Stock < 0:
		return apperr.Invalid("stock must not be negative")
	}

	seen := map[string]bool{}
	for _, size := range req.Options.Sizes {
		if size.ID == "" || seen[size.ID] {
			return apperr.Invalid("size ids must be unique and non-empty")
		}
		seen[size.ID] = true
		if err := validSurcharge(size.Surcharge); err != nil {
			return err
		}
	}
	seen = map[string]bool{}
	for _, design := range req.Options.Designs {
		if design.Label == "" || seen[design.Label] {
			return apperr.Invalid("design labels must be unique and non-empty")
		}
		seen[design.Label] = true
		if err := validSurcharge(design.Surcharge); err != nil {
			return err
		}
	}
	return nil
}

func validSurcharge(d decimal.Decimal) error {
	if d.IsNegative() {
		return apperr.Invalid("surcharge must not be negative")
	}
	return nil
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return store.GetProduct(ctx, s.db, id)
}

func (s *Service) ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = normalizePage(page, pageSize)
	return store.ListProducts(ctx, s.db, page, pageSize)
}

// SetStock overwrites a product's stock if version is still current. A
// product locked by a checkout in flight is reported as a conflict at once
// rather than waiting for that checkout to finish.
func (s *Service) SetStock(ctx context.Context, id uuid.UUID, stock, version int) (*models.Product, error) {
	if stock < 0 {
		return nil, apperr.Invalid("stock must not be negative")
	}

	var product *models.Product
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if _, err := store.LockProductNoWait(ctx, tx, id); err != nil {
			return err
		}

		var err error
		product, err = store.UpdateStockOptimistic(ctx, tx, id, stock, version)
		return err
	})
	switch {
	case errors.Is(err, database.ErrLockTimeout):
		return nil, fmt.Errorf("%w: product %s is being checked out, retry shortly", apperr.ErrConflict, id)
	case errors.Is(err, database.ErrOptimisticLockFailed):
		return nil, fmt.Errorf("%w: product %s changed since version %d", apperr.ErrConflict, id, version)
	case err != nil:
		return nil, err
	}
	return product, nil
}

func (s *Service) CreateUser(ctx context.Context, email, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return nil, apperr.Invalid("email %q is not valid", email)
	}
	return store.CreateUser(ctx, s.db, strings.ToLower(addr.Address), name)
}

func (s *Service) ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = normalizePage(page, pageSize)
	return store.ListUsers(ctx, s.db, page, pageSize)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}
