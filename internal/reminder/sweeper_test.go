package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

// sweeperStore stubs the two Store methods the sweeper touches.
type sweeperStore struct {
	repository.Store

	orders   []*domain.Order
	listErr  error
	lockHeld bool
	lockErr  error

	gotAge   time.Duration
	gotLimit int
}

func (s *sweeperStore) TryAdvisoryLock(_ context.Context, _ int64) (func(), bool, error) {
	if s.lockErr != nil {
		return nil, false, s.lockErr
	}
	if s.lockHeld {
		return nil, false, nil
	}
	s.lockHeld = true
	return func() { s.lockHeld = false }, true, nil
}

func (s *sweeperStore) ListPendingOlderThan(_ context.Context, age time.Duration, limit int) ([]*domain.Order, error) {
	s.gotAge = age
	s.gotLimit = limit
	return s.orders, s.listErr
}

type recordingNotifier struct {
	notified []string
	failFor  map[string]error
}

func (n *recordingNotifier) NotifyUnpaidOrder(_ context.Context, orderNumber string) error {
	if err, ok := n.failFor[orderNumber]; ok {
		return err
	}
	n.notified = append(n.notified, orderNumber)
	return nil
}

func TestSweeperRun_EmitsOneReminderPerUnpaidOrder(t *testing.T) {
	store := &sweeperStore{
		orders: []*domain.Order{
			{OrderNumber: "ORD-1", Status: domain.OrderStatusPending},
			{OrderNumber: "ORD-2", Status: domain.OrderStatusPending},
		},
	}
	notifier := &recordingNotifier{}
	sweeper := NewSweeper(store, notifier)

	count, err := sweeper.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"ORD-1", "ORD-2"}, notifier.notified)
	assert.Equal(t, DefaultUnpaidAge, store.gotAge)
	assert.Equal(t, DefaultBatchLimit, store.gotLimit)
	assert.False(t, store.lockHeld, "lock must be released after the sweep")
}

func TestSweeperRun_SkipsWhenLockHeld(t *testing.T) {
	store := &sweeperStore{
		lockHeld: true,
		orders:   []*domain.Order{{OrderNumber: "ORD-1"}},
	}
	notifier := &recordingNotifier{}
	sweeper := NewSweeper(store, notifier)

	count, err := sweeper.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, notifier.notified)
}

func TestSweeperRun_ContinuesPastNotifyFailure(t *testing.T) {
	store := &sweeperStore{
		orders: []*domain.Order{
			{OrderNumber: "ORD-1"},
			{OrderNumber: "ORD-2"},
			{OrderNumber: "ORD-3"},
		},
	}
	notifier := &recordingNotifier{
		failFor: map[string]error{"ORD-2": errors.New("broker unavailable")},
	}
	sweeper := NewSweeper(store, notifier)

	count, err := sweeper.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"ORD-1", "ORD-3"}, notifier.notified)
}

func TestSweeperRun_ListError(t *testing.T) {
	store := &sweeperStore{listErr: errors.New("connection refused")}
	sweeper := NewSweeper(store, &recordingNotifier{})

	count, err := sweeper.Run(context.Background())

	assert.Error(t, err)
	assert.Zero(t, count)
	assert.False(t, store.lockHeld)
}
