package service

import (
	"context"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

type ProductService struct {
	store repository.Store
}

func NewProductService(store repository.Store) *ProductService {
	return &ProductService{store: store}
}

func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	return s.store.ListProducts(ctx, filter)
}

func (s *ProductService) Get(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.store.GetProduct(ctx, productID)
}
