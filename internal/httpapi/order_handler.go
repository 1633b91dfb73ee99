package httpapi

import (
	"net/http"
	"strconv"

	"github.com/safar/cartstore/internal/checkout"
	"github.com/safar/cartstore/internal/models"
)

type checkoutBody struct {
	CartID        string                 `json:"cartId"`
	Shipping      models.ShippingDetails `json:"shipping"`
	Items         []models.LineRef       `json:"items"`
	PaymentMethod string                 `json:"paymentMethod"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var body checkoutBody
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	order, err := h.orders.Materialize(r.Context(), identity(r), checkout.MaterializeRequest{
		CartID:        body.CartID,
		Shipping:      body.Shipping,
		Items:         body.Items,
		PaymentMethod: body.PaymentMethod,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, "order placed", newOrderView(order))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), identity(r), orderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "order retrieved", newOrderView(order))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, false)
}

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, true)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, all bool) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.orders.ListOrders(r.Context(), identity(r), checkout.ListOrdersRequest{
		Cursor:       r.URL.Query().Get("cursor"),
		Limit:        limit,
		AllCustomers: all,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "orders retrieved", newOrderPageView(page))
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	order, err := h.orders.AdvanceStatus(r.Context(), identity(r), orderID, body.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "order status updated", newOrderView(order))
}

func (h *Handler) MarkOrderPaid(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var body struct {
		PaymentMethod string `json:"paymentMethod"`
	}
	if err := decode(w, r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	order, err := h.orders.MarkPaid(r.Context(), identity(r), orderID, body.PaymentMethod)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, "order marked as paid", newOrderView(order))
}
