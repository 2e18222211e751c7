package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

// orderNumberAttempts bounds regeneration retries on a unique-constraint
// collision.
const orderNumberAttempts = 3

// PaymentGateway creates payment sessions for committed orders.
type PaymentGateway interface {
	CreateTransaction(ctx context.Context, order *domain.Order, customer *domain.User) (*domain.PaymentSession, error)
}

type CheckoutService struct {
	store   repository.Store
	gateway PaymentGateway
}

func NewCheckoutService(store repository.Store, gateway PaymentGateway) *CheckoutService {
	return &CheckoutService{
		store:   store,
		gateway: gateway,
	}
}

// Checkout converts the user's cart into a pending order. Stock is
// verified under row locks but NOT decremented here; decrement happens
// only when the payment is confirmed, so an abandoned checkout needs no
// compensating stock restore.
//
// The gateway call happens after the transaction commits, so no database
// lock is held across the network. If that call fails the order is
// returned alongside an error wrapping ErrPaymentSessionFailed: the order
// exists in pending state and the caller should treat the failure as
// retryable.
func (s *CheckoutService) Checkout(ctx context.Context, userID int64) (*domain.Order, error) {
	// Fast path: an empty cart is a defined no-op outcome, no transaction
	// needed.
	cart, err := s.store.GetUserCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	order, err := s.createOrder(ctx, userID)
	if err != nil {
		return nil, err
	}

	customer, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return order, fmt.Errorf("%w: load customer: %v", ErrPaymentSessionFailed, err)
	}

	session, err := s.gateway.CreateTransaction(ctx, order, customer)
	if err != nil {
		log.Printf("payment session creation failed for order %s: %v", order.OrderNumber, err)
		return order, fmt.Errorf("%w: %v", ErrPaymentSessionFailed, err)
	}

	if err := s.store.SetPaymentSession(ctx, order.ID, session.Token, session.RedirectURL); err != nil {
		log.Printf("failed to persist payment session for order %s: %v", order.OrderNumber, err)
		return order, fmt.Errorf("%w: persist session: %v", ErrPaymentSessionFailed, err)
	}

	order.SnapToken = session.Token
	order.RedirectURL = session.RedirectURL
	return order, nil
}

// createOrder runs the transactional part of checkout: lock and verify
// stock for every cart line, snapshot prices, persist order plus items,
// clear the cart. A colliding order number restarts the whole transaction
// with a fresh one.
func (s *CheckoutService) createOrder(ctx context.Context, userID int64) (*domain.Order, error) {
	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order := &domain.Order{
			UserID:      userID,
			OrderNumber: newOrderNumber(),
			Status:      domain.OrderStatusPending,
		}

		err := s.store.InTx(ctx, func(tx repository.Tx) error {
			// Authoritative cart read with the cart rows locked. A
			// concurrent checkout of the same cart blocks on this read
			// until the winner commits, then finds the cart empty, so
			// the same cart can never produce two orders.
			cart, err := tx.GetUserCart(ctx, userID)
			if err != nil {
				return fmt.Errorf("load cart: %w", err)
			}
			if cart.IsEmpty() {
				return ErrEmptyCart
			}

			total := decimal.Zero
			items := make([]domain.OrderItem, 0, len(cart.Items))
			for _, line := range cart.Items {
				product, err := tx.GetProductForUpdate(ctx, line.ProductID)
				if err != nil {
					return fmt.Errorf("lock product %d: %w", line.ProductID, err)
				}
				if product.Stock < line.Quantity {
					return &OutOfStockError{
						ProductID:   product.ID,
						ProductName: product.Name,
						Requested:   line.Quantity,
						Available:   product.Stock,
					}
				}

				item := domain.OrderItem{
					ProductID:   product.ID,
					ProductName: product.Name,
					Quantity:    line.Quantity,
					Price:       product.Price,
				}
				total = total.Add(item.Subtotal())
				items = append(items, item)
			}

			order.TotalPrice = total
			order.Items = items

			if err := tx.CreateOrder(ctx, order); err != nil {
				return err
			}
			return tx.ClearCart(ctx, userID)
		})

		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return order, nil
	}
	return nil, fmt.Errorf("could not generate a unique order number after %d attempts: %w",
		orderNumberAttempts, lastErr)
}

// newOrderNumber builds the gateway-facing order reference: timestamp plus
// a random suffix. Uniqueness is ultimately enforced by the database
// constraint.
func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}
