package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/service"
)

type OrderHandler struct {
	checkout *service.CheckoutService
	orders   *service.OrderService
}

func NewOrderHandler(checkout *service.CheckoutService, orders *service.OrderService) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders}
}

type CheckoutResponseDTO struct {
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	TotalPrice  string `json:"total_price"`
	SnapToken   string `json:"snap_token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

func checkoutResponse(order *domain.Order) CheckoutResponseDTO {
	return CheckoutResponseDTO{
		OrderNumber: order.OrderNumber,
		Status:      order.Status.String(),
		TotalPrice:  order.TotalPrice.StringFixed(2),
		SnapToken:   order.SnapToken,
		RedirectURL: order.RedirectURL,
	}
}

// POST /api/v1/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	order, err := h.checkout.Checkout(r.Context(), userID)
	if err != nil {
		var oos *service.OutOfStockError
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			respondError(w, http.StatusUnprocessableEntity, "empty_cart", "cart is empty")
		case errors.As(err, &oos):
			respondError(w, http.StatusUnprocessableEntity, "out_of_stock", err.Error())
		case errors.Is(err, service.ErrPaymentSessionFailed):
			// The order exists but has no payment session yet; the client
			// may retry once the gateway recovers.
			respondJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":        "payment session could not be created, retry later",
				"code":         "payment_session_failed",
				"order_number": order.OrderNumber,
			})
		default:
			respondError(w, http.StatusInternalServerError, "internal_error", "checkout failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, checkoutResponse(order))
}

// GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	q := r.URL.Query()
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 15
	}

	orders, err := h.orders.History(r.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"page":   page,
	})
}

// GET /api/v1/orders/{order_number}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderNumber := chi.URLParam(r, "order_number")
	order, err := h.orders.GetByNumber(r.Context(), orderNumber)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load order")
		return
	}
	if order.UserID != userID {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	respondJSON(w, http.StatusOK, order)
}
