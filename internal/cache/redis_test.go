package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cartCache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cartCache, mr, cleanup
}

func TestGet_Success(t *testing.T) {
	cartCache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	var userID int64 = 7

	cart := &domain.Cart{
		UserID: userID,
		Items: []domain.CartItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 3},
		},
	}

	cartJSON, _ := json.Marshal(cart)
	mr.Set(cacheKey(userID), string(cartJSON))

	result, err := cartCache.Get(ctx, userID)

	require.NoError(t, err)
	assert.Equal(t, userID, result.UserID)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(1), result.Items[0].ProductID)
}

func TestGet_Miss(t *testing.T) {
	cartCache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := cartCache.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_CorruptedEntry(t *testing.T) {
	cartCache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Set(cacheKey(7), "{not valid json")

	_, err := cartCache.Get(context.Background(), 7)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_AppliesTTLWithJitter(t *testing.T) {
	cartCache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cart := &domain.Cart{UserID: 7, Items: []domain.CartItem{{ProductID: 1, Quantity: 1}}}

	require.NoError(t, cartCache.Set(ctx, 7, cart))

	ttl := mr.TTL(cacheKey(7))
	assert.GreaterOrEqual(t, ttl, cartCache.baseTTL)

	got, err := cartCache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, cart.Items, got.Items)
}

func TestDelete(t *testing.T) {
	cartCache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	cart := &domain.Cart{UserID: 7}
	require.NoError(t, cartCache.Set(ctx, 7, cart))
	require.True(t, mr.Exists(cacheKey(7)))

	require.NoError(t, cartCache.Delete(ctx, 7))
	assert.False(t, mr.Exists(cacheKey(7)))

	// Deleting an absent key is not an error.
	require.NoError(t, cartCache.Delete(ctx, 7))
}
