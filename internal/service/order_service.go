package service

import (
	"context"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

type OrderService struct {
	store repository.Store
}

func NewOrderService(store repository.Store) *OrderService {
	return &OrderService{store: store}
}

func (s *OrderService) History(ctx context.Context, userID int64, limit, offset int) ([]*domain.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID, limit, offset)
}

func (s *OrderService) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.store.GetOrderByNumber(ctx, orderNumber)
}
