package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/cache"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

// fakeStore implements repository.Store and repository.Tx on in-memory
// maps. InTx snapshots the state and restores it when fn fails, so tests
// can assert rollback behavior.
type fakeStore struct {
	mu sync.Mutex

	Products map[int64]*domain.Product
	Users    map[int64]*domain.User
	Carts    map[int64][]domain.CartItem
	Orders   map[int64]*domain.Order
	Ledger   map[string]*repository.NotificationRecord

	nextOrderID int64

	InTxErr          error
	CreateOrderCalls int
	LockHeld         bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		Products: make(map[int64]*domain.Product),
		Users:    make(map[int64]*domain.User),
		Carts:    make(map[int64][]domain.CartItem),
		Orders:   make(map[int64]*domain.Order),
		Ledger:   make(map[string]*repository.NotificationRecord),
	}
}

func (s *fakeStore) snapshot() *fakeStore {
	snap := newFakeStore()
	for id, p := range s.Products {
		c := *p
		snap.Products[id] = &c
	}
	for id, items := range s.Carts {
		snap.Carts[id] = append([]domain.CartItem(nil), items...)
	}
	for id, o := range s.Orders {
		c := *o
		c.Items = append([]domain.OrderItem(nil), o.Items...)
		snap.Orders[id] = &c
	}
	for h, rec := range s.Ledger {
		snap.Ledger[h] = rec
	}
	return snap
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.Products = snap.Products
	s.Carts = snap.Carts
	s.Orders = snap.Orders
	s.Ledger = snap.Ledger
}

func (s *fakeStore) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if s.InTxErr != nil {
		return s.InTxErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *fakeStore) GetUserCart(_ context.Context, userID int64) (*domain.Cart, error) {
	items := append([]domain.CartItem(nil), s.Carts[userID]...)
	for i := range items {
		if p, ok := s.Products[items[i].ProductID]; ok {
			c := *p
			items[i].Product = &c
		}
	}
	return &domain.Cart{UserID: userID, Items: items}, nil
}

func (s *fakeStore) UpsertCartItem(_ context.Context, userID, productID int64, quantity int) error {
	for i, item := range s.Carts[userID] {
		if item.ProductID == productID {
			s.Carts[userID][i].Quantity = quantity
			return nil
		}
	}
	s.Carts[userID] = append(s.Carts[userID], domain.CartItem{
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   time.Now(),
	})
	return nil
}

func (s *fakeStore) RemoveCartItem(_ context.Context, userID, productID int64) error {
	items := s.Carts[userID]
	for i, item := range items {
		if item.ProductID == productID {
			s.Carts[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (s *fakeStore) ClearCart(_ context.Context, userID int64) error {
	delete(s.Carts, userID)
	return nil
}

func (s *fakeStore) GetProduct(_ context.Context, productID int64) (*domain.Product, error) {
	p, ok := s.Products[productID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	c := *p
	return &c, nil
}

func (s *fakeStore) GetProductForUpdate(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.GetProduct(ctx, productID)
}

func (s *fakeStore) DecrementStock(_ context.Context, productID int64, quantity int) error {
	p, ok := s.Products[productID]
	if !ok || p.Stock < quantity {
		return repository.ErrProductNotFound
	}
	p.Stock -= quantity
	return nil
}

func (s *fakeStore) ListProducts(_ context.Context, _ repository.ProductFilter) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range s.Products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakeStore) GetUser(_ context.Context, userID int64) (*domain.User, error) {
	u, ok := s.Users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeStore) CreateOrder(_ context.Context, order *domain.Order) error {
	s.CreateOrderCalls++
	for _, existing := range s.Orders {
		if existing.OrderNumber == order.OrderNumber {
			return repository.ErrDuplicateOrderNumber
		}
	}
	s.nextOrderID++
	order.ID = s.nextOrderID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	stored.Items = append([]domain.OrderItem(nil), order.Items...)
	s.Orders[order.ID] = &stored
	return nil
}

func (s *fakeStore) GetOrderByNumber(_ context.Context, orderNumber string) (*domain.Order, error) {
	for _, o := range s.Orders {
		if o.OrderNumber == orderNumber {
			c := *o
			c.Items = append([]domain.OrderItem(nil), o.Items...)
			return &c, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (s *fakeStore) GetOrderWithItems(_ context.Context, orderID int64) (*domain.Order, error) {
	o, ok := s.Orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	return &c, nil
}

func (s *fakeStore) GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.GetOrderWithItems(ctx, orderID)
}

func (s *fakeStore) UpdateOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus) error {
	o, ok := s.Orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

func (s *fakeStore) RecordNotification(_ context.Context, rec *repository.NotificationRecord) (bool, error) {
	if _, exists := s.Ledger[rec.PayloadHash]; exists {
		return false, nil
	}
	s.Ledger[rec.PayloadHash] = rec
	return true, nil
}

func (s *fakeStore) ListOrdersByUser(_ context.Context, userID int64, _, _ int) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range s.Orders {
		if o.UserID == userID {
			c := *o
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *fakeStore) SetPaymentSession(_ context.Context, orderID int64, token, redirectURL string) error {
	o, ok := s.Orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.SnapToken = token
	o.RedirectURL = redirectURL
	return nil
}

func (s *fakeStore) ListPendingOlderThan(_ context.Context, age time.Duration, limit int) ([]*domain.Order, error) {
	cutoff := time.Now().Add(-age)
	var out []*domain.Order
	for _, o := range s.Orders {
		if o.Status == domain.OrderStatusPending && o.CreatedAt.Before(cutoff) {
			c := *o
			out = append(out, &c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) ListPendingWithoutSession(_ context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error) {
	cutoff := time.Now().Add(-olderThan)
	var out []*domain.Order
	for _, o := range s.Orders {
		if o.Status == domain.OrderStatusPending && o.SnapToken == "" && o.CreatedAt.Before(cutoff) {
			c := *o
			out = append(out, &c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) TryAdvisoryLock(_ context.Context, _ int64) (func(), bool, error) {
	if s.LockHeld {
		return nil, false, nil
	}
	s.LockHeld = true
	return func() { s.LockHeld = false }, true, nil
}

func (s *fakeStore) RunMigrations(*repository.Credentials) error { return nil }

func (s *fakeStore) Close() error { return nil }

// mockGateway implements PaymentGateway for testing
type mockGateway struct {
	Session *domain.PaymentSession
	Err     error
	Calls   int
}

func (m *mockGateway) CreateTransaction(_ context.Context, _ *domain.Order, _ *domain.User) (*domain.PaymentSession, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Session, nil
}

// mockCache implements cache.CartCache for testing
type mockCache struct {
	mu      sync.Mutex
	carts   map[int64]*domain.Cart
	Deletes int
	GetErr  error
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[int64]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, userID int64) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *mockCache) Set(_ context.Context, userID int64, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = cart
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	delete(m.carts, userID)
	return nil
}

var errGatewayDown = errors.New("gateway unavailable")
