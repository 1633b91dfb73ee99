package httpapi

import (
	"net/http"

	"github.com/safar/cartstore/internal/models"
	"github.com/safar/cartstore/internal/store"
	"github.com/shopspring/decimal"
)

type productBody struct {
	SKU         string                `json:"sku"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Price       decimal.Decimal       `json:"price"`
	Stock       int                   `json:"stock"`
	Images      []string              `json:"images"`
	Options     models.ProductOptions `json:"options"`
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), store.CreateProductRequest{
		SKU:         body.SKU,
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
		Stock:       body.Stock,
		Images:      body.Images,
		Options:     body.Options,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, "product created", newProductView(product))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "product retrieved", newProductView(product))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	result, err := h.catalog.ListProducts(r.Context(), page, pageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "products retrieved", newOffsetPageView(result))
}

func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var body struct {
		Stock   int `json:"stock"`
		Version int `json:"version"`
	}
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	product, err := h.catalog.SetStock(r.Context(), id, body.Stock, body.Version)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "stock updated", newProductView(product))
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.catalog.CreateUser(r.Context(), body.Email, body.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, "user created", newUserView(user))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	result, err := h.catalog.ListUsers(r.Context(), page, pageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "users retrieved", newOffsetPageView(result))
}
