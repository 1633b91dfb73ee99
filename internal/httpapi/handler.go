// Package httpapi exposes the cart, checkout and catalog services over
// JSON/HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
	"github.com/safar/cartstore/internal/auth"
	"github.com/safar/cartstore/internal/cart"
	"github.com/safar/cartstore/internal/checkout"
	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/store"
	"go.uber.org/zap"
)

type CartService interface {
	AddItem(ctx context.Context, id auth.Identity, req cart.AddItemRequest) (*models.Cart, error)
	UpdateItem(ctx context.Context, id auth.Identity, req cart.UpdateItemRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, id auth.Identity, productID string) (*models.Cart, error)
	GetCart(ctx context.Context, id auth.Identity) (*models.Cart, error)
	ClearCart(ctx context.Context, id auth.Identity) error
}

type OrderService interface {
	Materialize(ctx context.Context, id auth.Identity, req checkout.MaterializeRequest) (*models.Order, error)
	AdvanceStatus(ctx context.Context, id auth.Identity, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error)
	MarkPaid(ctx context.Context, id auth.Identity, orderID uuid.UUID, method string) (*models.Order, error)
	GetOrder(ctx context.Context, id auth.Identity, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, id auth.Identity, req checkout.ListOrdersRequest) (*store.CursorPage, error)
}

type Catalog interface {
	CreateProduct(ctx context.Context, req store.CreateProductRequest) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
	SetStock(ctx context.Context, id uuid.UUID, stock, version int) (*models.Product, error)
	CreateUser(ctx context.Context, email, name string) (*models.User, error)
	ListUsers(ctx context.Context, page, pageSize int) (*store.OffsetPage, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	carts   CartService
	orders  OrderService
	catalog Catalog
	db      Pinger
	logger  *zap.Logger
}

func NewHandler(carts CartService, orders OrderService, catalog Catalog, db Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		carts:   carts,
		orders:  orders,
		catalog: catalog,
		db:      db,
		logger:  logger.Named("http"),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		h.respond(w, http.StatusServiceUnavailable, "database unavailable", nil)
		return
	}
	h.respond(w, http.StatusOK, "ok", nil)
}

func identity(r *http.Request) auth.Identity {
	return auth.FromContext(r.Context())
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Invalid("%s must be a UUID", name)
	}
	return id, nil
}

// pageParams reads page and page_size; the services clamp them.
func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	return page, pageSize
}
