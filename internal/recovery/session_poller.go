package recovery

import (
	"context"
	"log"
	"time"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/service"
)

// SessionPoller closes the checkout inconsistency window: an order can be
// committed in pending state and then lose the gateway call that would
// have given it a payment session. The poller periodically re-requests
// sessions for such orders.
type SessionPoller struct {
	store   repository.Store
	gateway service.PaymentGateway
	tick    time.Duration
	minAge  time.Duration
	limit   int
}

func NewSessionPoller(store repository.Store, gateway service.PaymentGateway) *SessionPoller {
	return &SessionPoller{
		store:   store,
		gateway: gateway,
		tick:    time.Minute,
		minAge:  time.Minute,
		limit:   50,
	}
}

func (p *SessionPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.recoverSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *SessionPoller) recoverSessions(ctx context.Context) {
	// minAge keeps the poller off orders whose original checkout call may
	// still be in flight.
	orders, err := p.store.ListPendingWithoutSession(ctx, p.minAge, p.limit)
	if err != nil {
		log.Printf("failed to list sessionless orders: %v", err)
		return
	}

	for _, order := range orders {
		log.Printf("recovering payment session for order %s", order.OrderNumber)

		customer, err := p.store.GetUser(ctx, order.UserID)
		if err != nil {
			log.Printf("failed to load customer for order %s: %v", order.OrderNumber, err)
			continue
		}

		session, err := p.gateway.CreateTransaction(ctx, order, customer)
		if err != nil {
			log.Printf("failed to recover session for order %s: %v", order.OrderNumber, err)
			continue
		}

		if err := p.store.SetPaymentSession(ctx, order.ID, session.Token, session.RedirectURL); err != nil {
			log.Printf("failed to persist recovered session for order %s: %v", order.OrderNumber, err)
			continue
		}

		log.Printf("payment session recovered for order %s", order.OrderNumber)
	}
}
