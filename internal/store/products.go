package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/database"
	"github.com/safar/cartstore/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, sku, name, description, price, stock, images, options, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Images,
		&product.Options,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

type CreateProductRequest struct {
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Images      []string
	Options     models.ProductOptions
}

func CreateProduct(ctx context.Context, q database.Querier, req CreateProductRequest) (*models.Product, error) {
	query := `
		INSERT INTO products (id, sku, name, description, price, stock, images, options, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query,
		uuid.New(), req.SKU, req.Name, req.Description, req.Price, req.Stock, pq.StringArray(req.Images), req.Options))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Product, error) {
	return getProduct(ctx, q, id, "")
}

// GetProductForShare reads a product and holds a share lock until the
// surrounding transaction ends, so stock cannot be decremented between a
// stock check and the write that depends on it.
func GetProductForShare(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Product, error) {
	return getProduct(ctx, tx, id, "FOR SHARE")
}

// LockProduct reads a product FOR UPDATE.
func LockProduct(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Product, error) {
	return getProduct(ctx, tx, id, "FOR UPDATE")
}

// LockProductNoWait fails fast with ErrLockTimeout instead of queueing
// behind another writer.
func LockProductNoWait(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Product, error) {
	product, err := getProduct(ctx, tx, id, "FOR UPDATE NOWAIT")
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
			return nil, database.ErrLockTimeout
		}
		return nil, err
	}
	return product, nil
}

func getProduct(ctx context.Context, q database.Querier, id uuid.UUID, lock string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 ` + lock

	product, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// UpdateStockOptimistic sets stock only if the row still has the given version.
func UpdateStockOptimistic(ctx context.Context, q database.Querier, productID uuid.UUID, newStock int, version int) (*models.Product, error) {
	query := `
		UPDATE products
		SET stock = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING ` + productColumns

	product, err := scanProduct(q.QueryRowContext(ctx, query, newStock, productID, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := GetProduct(ctx, q, productID); getErr != nil {
				return nil, getErr
			}
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("update stock: %w", err)
	}

	return product, nil
}

// DecrementStock removes quantity units only if that many are available.
func DecrementStock(ctx context.Context, tx *sql.Tx, productID uuid.UUID, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperr.ErrInsufficientStock
	}

	return nil
}

func ListProducts(ctx context.Context, q database.Querier, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := q.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}
