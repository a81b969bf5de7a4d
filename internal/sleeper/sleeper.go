// Package sleeper provides a cancellable delay primitive. All pending
// sleeps share one broadcast cancellation signal: CancelAll aborts every
// in-flight Sleep at once, and the signal is recreated lazily on the next
// Sleep call so a later restart is unaffected by an earlier cancellation.
package sleeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrCanceled is returned by Sleep when CancelAll fires while the sleep is
// pending.
var ErrCanceled = errors.New("sleep canceled")

// Sleeper issues cancellable sleeps against an injectable clock.
type Sleeper struct {
	mu     sync.Mutex
	clk    clock.Clock
	signal chan struct{}
}

// New creates a Sleeper backed by the given clock. Pass clock.New() for
// wall time or a *clock.Mock in tests.
func New(clk clock.Clock) *Sleeper {
	return &Sleeper{clk: clk}
}

// Sleep blocks for d, or until CancelAll fires or the context is done.
// Non-positive durations return immediately.
func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	signal := s.currentSignal()

	timer := s.clk.Timer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-signal:
		return ErrCanceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelAll aborts every pending Sleep. The fired signal is discarded; the
// next Sleep call creates a fresh one.
func (s *Sleeper) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signal != nil {
		close(s.signal)
		s.signal = nil
	}
}

// currentSignal returns the shared cancellation channel, creating it if the
// previous one was consumed by CancelAll.
func (s *Sleeper) currentSignal() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signal == nil {
		s.signal = make(chan struct{})
	}
	return s.signal
}
