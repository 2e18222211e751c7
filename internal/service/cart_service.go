package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/cache"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

type CartService struct {
	store repository.Store
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewCartService(store repository.Store, cartCache cache.CartCache) *CartService {
	return &CartService{
		store: store,
		cache: cartCache,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(fmt.Sprint(userID), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.store.GetUserCart(ctx, userID)
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(cacheCtx, userID, cart); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem validates the product and quantity before writing: the product
// must exist, the quantity must be positive and must not exceed current
// stock. The stock check here is advisory; the binding check happens under
// locks at checkout.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	if quantity > product.Stock {
		return &OutOfStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Available:   product.Stock,
		}
	}

	if errAdd := s.store.UpsertCartItem(ctx, userID, productID, quantity); errAdd != nil {
		log.Printf("repo add item error: %v", errAdd)
		return errAdd
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	if errRemove := s.store.RemoveCartItem(ctx, userID, productID); errRemove != nil {
		return errRemove
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	if errClear := s.store.ClearCart(ctx, userID); errClear != nil {
		log.Printf("repo clear cart error: %v", errClear)
		return errClear
	}

	s.invalidateCache(userID)
	return nil
}

// InvalidateCart drops the cached cart; checkout calls this after the
// transactional cart clear.
func (s *CartService) InvalidateCart(userID int64) {
	s.invalidateCache(userID)
}

func (s *CartService) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
