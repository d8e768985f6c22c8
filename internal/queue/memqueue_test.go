package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemQueue_DeliversPublishedMessages(t *testing.T) {
	q := NewMemQueue(3)
	require.NoError(t, q.Publish(context.Background(), []byte("one")))
	require.NoError(t, q.Publish(context.Background(), []byte("two")))

	var received int32
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = q.Subscribe(ctx, 2, func(_ context.Context, msg Message) error {
			atomic.AddInt32(&received, 1)
			if atomic.LoadInt32(&received) == 2 {
				cancel()
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&received) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestMemQueue_RequeuesOnHandlerError(t *testing.T) {
	q := NewMemQueue(3)
	require.NoError(t, q.Publish(context.Background(), []byte("poison")))

	var attempts int32
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var seenAttempts []int

	go func() {
		_ = q.Subscribe(ctx, 1, func(_ context.Context, msg Message) error {
			n := atomic.AddInt32(&attempts, 1)
			mu.Lock()
			seenAttempts = append(seenAttempts, msg.DeliveryAttempt)
			mu.Unlock()
			if n < 3 {
				return assert.AnError
			}
			cancel()
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, seenAttempts)
}

func TestMemQueue_PublishAfterStopFails(t *testing.T) {
	q := NewMemQueue(1)
	q.Stop()
	err := q.Publish(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrStopped)
}
