package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
)

// Enqueuer hands a raw notification payload to the reconciliation queue.
type Enqueuer interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type WebhookHandler struct {
	queue Enqueuer
}

func NewWebhookHandler(queue Enqueuer) *WebhookHandler {
	return &WebhookHandler{queue: queue}
}

// POST /api/v1/midtrans/webhook
//
// Accepts the gateway callback, checks its shape and queues it for
// asynchronous reconciliation. Signature and amount verification happen
// in the worker, not here.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	var n domain.PaymentNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !n.Valid() {
		respondError(w, http.StatusUnprocessableEntity, "invalid_notification", "missing required notification fields")
		return
	}

	payload, err := json.Marshal(&n)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if err := h.queue.Publish(r.Context(), n.OrderID, payload); err != nil {
		log.Printf("failed to queue notification for order %s (request %s): %v",
			n.OrderID, getRequestID(r.Context()), err)
		respondError(w, http.StatusServiceUnavailable, "queue_unavailable", "notification could not be queued")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "queued"})
}
