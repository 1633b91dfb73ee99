package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/store"
	"github.com/shopspring/decimal"
)

func NewCustomer(t testing.TB, db *sql.DB) *models.User {
	t.Helper()

	id := uuid.NewString()[:8]
	user, err := store.CreateUser(context.Background(), db, fmt.Sprintf("customer-%s@example.com", id), "Customer "+id)
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return user
}

// NewProduct creates a product with the given price and stock and a
// generated SKU.
func NewProduct(t testing.TB, db *sql.DB, price string, stock int, opts ...func(*store.CreateProductRequest)) *models.Product {
	t.Helper()

	req := store.CreateProductRequest{
		SKU:    "SKU-" + uuid.NewString()[:8],
		Name:   "Product " + price,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Images: []string{"https://cdn.example.com/p.png"},
	}
	for _, opt := range opts {
		opt(&req)
	}

	product, err := store.CreateProduct(context.Background(), db, req)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func WithOptions(options models.ProductOptions) func(*store.CreateProductRequest) {
	return func(req *store.CreateProductRequest) {
		req.Options = options
	}
}
