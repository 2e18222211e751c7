package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPermanent = errors.New("permanent rejection")

func isPermanent(err error) bool {
	return errors.Is(err, errPermanent)
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		Backoff:     []time.Duration{time.Millisecond},
	}
}

func TestRetryRun_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Run(context.Background(), isPermanent, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRun_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Run(context.Background(), isPermanent, func() error {
		calls++
		return errPermanent
	})

	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
}

func TestRetryRun_TransientErrorRetriedUntilSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Run(context.Background(), isPermanent, func() error {
		calls++
		if calls < 3 {
			return errors.New("broker hiccup")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryRun_ExhaustsBudget(t *testing.T) {
	transient := errors.New("db down")
	calls := 0
	err := fastPolicy(3).Run(context.Background(), isPermanent, func() error {
		calls++
		return transient
	})

	assert.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestRetryRun_ContextCancelled(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{time.Minute},
	}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- policy.Run(ctx, isPermanent, func() error {
			return errors.New("transient")
		})
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	policy := DefaultWebhookRetry()

	assert.Equal(t, 10*time.Second, policy.Delay(1))
	assert.Equal(t, 30*time.Second, policy.Delay(2))
	assert.Equal(t, 60*time.Second, policy.Delay(3))
	// Past the table the last delay repeats.
	assert.Equal(t, 60*time.Second, policy.Delay(7))
	// Out-of-range attempts are clamped, never panic.
	assert.Equal(t, 10*time.Second, policy.Delay(0))

	assert.Equal(t, time.Duration(0), RetryPolicy{MaxAttempts: 1}.Delay(1))
}
