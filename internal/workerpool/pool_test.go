package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunProcessesAllItems(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)

	err := Run(context.Background(), []int{1, 2, 3, 4, 5}, 2,
		func(_ context.Context, n int) error {
			mu.Lock()
			seen[n] = true
			mu.Unlock()
			return nil
		})

	require.NoError(t, err)
	assert.Len(t, seen, 5)
}

func TestRunReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")

	err := Run(context.Background(), []int{1, 2, 3}, 3,
		func(_ context.Context, n int) error {
			if n == 2 {
				return boom
			}
			return nil
		})

	assert.ErrorIs(t, err, boom)
}

func TestRunBoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32

	items := make([]int, 20)
	err := Run(context.Background(), items, 3,
		func(_ context.Context, _ int) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			defer current.Add(-1)
			return nil
		})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRunEmptyItems(t *testing.T) {
	called := false
	err := Run(context.Background(), nil, 4,
		func(_ context.Context, _ int) error {
			called = true
			return nil
		})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRunStopsSchedulingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var count atomic.Int32
	_ = Run(ctx, make([]int, 50), 2,
		func(_ context.Context, _ int) error {
			count.Add(1)
			return nil
		})

	assert.Zero(t, count.Load())
}
