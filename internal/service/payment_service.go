package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/midtrans"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

// PaymentService reconciles gateway payment notifications against orders.
// It tolerates duplicated and out-of-order deliveries: the idempotency
// ledger and the terminal-state short-circuit make the final order state
// independent of delivery order.
type PaymentService struct {
	store     repository.Store
	serverKey string
}

func NewPaymentService(store repository.Store, serverKey string) *PaymentService {
	return &PaymentService{
		store:     store,
		serverKey: serverKey,
	}
}

// ApplyNotification runs the reconciliation gates in order. A malformed or
// inauthentic notification is a normal input, rejected with a sentinel
// error, never a panic or an unstructured failure. Duplicate deliveries
// and already-final orders return the current order with a nil error.
func (s *PaymentService) ApplyNotification(ctx context.Context, n *domain.PaymentNotification) (*domain.Order, error) {
	// Gate 1: authenticity. Nothing is touched on a mismatch.
	if !midtrans.VerifySignature(n, s.serverKey) {
		log.Printf("invalid signature key for order_id %s", n.OrderID)
		return nil, ErrInvalidSignature
	}

	// Gate 2: order lookup by external reference.
	order, err := s.store.GetOrderByNumber(ctx, n.OrderID)
	if err != nil {
		return nil, fmt.Errorf("lookup order %s: %w", n.OrderID, err)
	}

	// Gate 3: amount cross-check on canonical fixed-point strings. A
	// mismatch with a valid signature is a tampering signal, logged
	// distinctly.
	claimed, err := decimal.NewFromString(n.GrossAmount)
	if err != nil || claimed.StringFixed(2) != order.TotalPrice.StringFixed(2) {
		log.Printf("SECURITY gross amount mismatch for order %s: claimed %q, stored %s",
			order.OrderNumber, n.GrossAmount, order.TotalPrice.StringFixed(2))
		return nil, ErrAmountMismatch
	}

	// Gate 4: terminal states are immutable. Success, not an error.
	if order.Status.IsTerminal() {
		log.Printf("order %s already in final state %s, notification ignored", order.OrderNumber, order.Status)
		return order, nil
	}

	newStatus := domain.MapTransactionStatus(n.TransactionStatus, n.FraudStatus)

	payloadJSON, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification payload: %w", err)
	}
	rec := &repository.NotificationRecord{
		PayloadHash:       n.Hash(),
		OrderNumber:       order.OrderNumber,
		TransactionStatus: n.TransactionStatus,
		SignatureKey:      n.SignatureKey,
		Payload:           payloadJSON,
	}

	// Gates 5-8 share one transaction: ledger append, status transition
	// and (on paid) the stock decrement commit or roll back together.
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		current, err := tx.GetOrderForUpdate(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("lock order %d: %w", order.ID, err)
		}
		// Re-check under the lock; another delivery may have won the race.
		if current.Status.IsTerminal() {
			order.Status = current.Status
			return nil
		}

		recorded, err := tx.RecordNotification(ctx, rec)
		if err != nil {
			return err
		}
		if !recorded {
			// Exact payload seen before: duplicate delivery, no-op.
			log.Printf("duplicate notification for order %s (hash %s)", order.OrderNumber, rec.PayloadHash)
			return nil
		}

		if err := tx.UpdateOrderStatus(ctx, order.ID, newStatus); err != nil {
			return err
		}
		order.Status = newStatus

		if newStatus == domain.OrderStatusPaid {
			return s.commitStock(ctx, tx, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// commitStock decrements stock for every line of a freshly paid order,
// under the same lock-for-update discipline as checkout. Payment already
// succeeded, so an insufficient balance is clamped at zero and flagged
// rather than failing the transition.
func (s *PaymentService) commitStock(ctx context.Context, tx repository.Tx, order *domain.Order) error {
	for _, item := range order.Items {
		product, err := tx.GetProductForUpdate(ctx, item.ProductID)
		if err != nil {
			return fmt.Errorf("lock product %d: %w", item.ProductID, err)
		}

		quantity := item.Quantity
		if product.Stock < quantity {
			log.Printf("ALERT stock for product %d would go negative (%d - %d) on order %s, clamping to zero",
				product.ID, product.Stock, quantity, order.OrderNumber)
			quantity = product.Stock
		}
		if quantity == 0 {
			continue
		}
		if err := tx.DecrementStock(ctx, item.ProductID, quantity); err != nil {
			return fmt.Errorf("decrement stock for product %d: %w", item.ProductID, err)
		}
	}
	return nil
}
