package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/safar/cartstore/internal/auth"
	"github.com/safar/cartstore/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func NewRouter(h *Handler, authn *auth.Authenticator, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.AccessLog(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(authn.Middleware(h.fail))

		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireCustomer(h.fail))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/", h.AddItem)
				r.Patch("/", h.UpdateItem)
				r.Delete("/", h.RemoveItem)
				r.Delete("/all", h.ClearCart)
			})

			r.Post("/checkout", h.Checkout)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(h.fail))

			r.Get("/orders", h.ListAllOrders)
			r.Patch("/orders/{id}/status", h.UpdateOrderStatus)
			r.Patch("/orders/{id}/payment", h.MarkOrderPaid)

			r.Post("/products", h.CreateProduct)
			r.Get("/products", h.ListProducts)
			r.Patch("/products/{id}/stock", h.SetStock)

			r.Post("/users", h.CreateUser)
			r.Get("/users", h.ListUsers)
		})
	})

	return otelhttp.NewHandler(r, "cartstore")
}
