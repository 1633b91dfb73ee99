package httpapi

import (
	"net/http"

	"github.com/safar/cartstore/internal/cart"
)

type cartItemBody struct {
	ProductID   string `json:"productId"`
	Quantity    int    `json:"quantity"`
	SizeID      string `json:"sizeId"`
	DesignLabel string `json:"designLabel"`
}

func (b cartItemBody) request() cart.AddItemRequest {
	return cart.AddItemRequest{
		ProductID:   b.ProductID,
		Quantity:    b.Quantity,
		SizeID:      b.SizeID,
		DesignLabel: b.DesignLabel,
	}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetCart(r.Context(), identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "cart retrieved", newCartView(c))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body cartItemBody
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.carts.AddItem(r.Context(), identity(r), body.request())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, "item added to cart", newCartView(c))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var body cartItemBody
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.carts.UpdateItem(r.Context(), identity(r), body.request())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "cart item updated", newCartView(c))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID string `json:"productId"`
	}
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), identity(r), body.ProductID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "item removed from cart", newCartView(c))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.ClearCart(r.Context(), identity(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "cart cleared", nil)
}
