package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout  time.Duration
	WebhookThrottle int
}

type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Orders   *OrderHandler
	Webhook  *WebhookHandler
}

// NewRouter wires the HTTP surface. The webhook route is throttled
// separately so a burst of gateway callbacks cannot starve user traffic.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.WebhookThrottle == 0 {
		cfg.WebhookThrottle = 100
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(HeaderAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.ListProducts)
			r.Get("/{product_id}", h.Products.GetProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})

		r.Post("/checkout", h.Orders.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.ListOrders)
			r.Get("/{order_number}", h.Orders.GetOrder)
		})

		r.Route("/midtrans", func(r chi.Router) {
			r.Use(middleware.Throttle(cfg.WebhookThrottle))
			r.Post("/webhook", h.Webhook.HandleNotification)
		})
	})

	return otelhttp.NewHandler(r, "http.server")
}
