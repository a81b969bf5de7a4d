// Package tracker owns the online/offline/watching state transitions for
// watched channels. Online transitions are gated by an anti-flapping
// debounce; offline transitions are immediate.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
)

// ErrOffline is the distinguished "channel is offline" condition. It is an
// expected domain state, not a failure: callers match it with errors.Is to
// drive the offline transition and must not log it as an error.
var ErrOffline = errors.New("channel is offline")

// IsOffline reports whether err carries the offline condition.
func IsOffline(err error) bool {
	return errors.Is(err, ErrOffline)
}

// BroadcastResolver resolves the live broadcast id for a channel. An empty
// id with a nil error means the channel is not live.
type BroadcastResolver interface {
	GetBroadcastID(ctx context.Context, channelID string) (string, error)
}

// Tracker applies status transitions to channels.
type Tracker struct {
	resolver BroadcastResolver
	log      *logger.Logger
	debounce time.Duration
}

// New creates a Tracker using the default offline debounce window.
func New(resolver BroadcastResolver, log *logger.Logger) *Tracker {
	return &Tracker{
		resolver: resolver,
		log:      log,
		debounce: constants.OfflineDebounce,
	}
}

// CheckOnline re-verifies a channel's live status.
//
// If the channel went offline less than the debounce window ago the check
// returns immediately with no side effects: the platform API keeps
// reporting a channel live for a short while after a broadcast ends, and
// re-checking too soon produces false positives. A channel already marked
// online is left alone. Otherwise the live broadcast id is resolved; a live
// channel is marked online with its progress payload primed, a non-live
// channel is marked offline and ErrOffline returned. Any other failure
// propagates unchanged and leaves the status untouched.
func (t *Tracker) CheckOnline(ctx context.Context, ch *model.Channel) error {
	ch.Mu.RLock()
	login := ch.Login
	channelID := ch.ChannelID
	debounced := ch.RecentlyOffline(t.debounce)
	alreadyOnline := ch.IsOnline
	ch.Mu.RUnlock()

	if debounced || alreadyOnline {
		return nil
	}

	broadcastID, err := t.resolver.GetBroadcastID(ctx, channelID)
	if err != nil {
		return fmt.Errorf("checking online status for %s: %w", login, err)
	}

	if broadcastID == "" {
		t.markOffline(ch)
		return fmt.Errorf("%s: %w", login, ErrOffline)
	}

	ch.Mu.Lock()
	ch.SetOnline()
	ch.BroadcastID = broadcastID
	ch.Mu.Unlock()

	t.log.Debug("Channel verified online", "channel", login, "broadcast_id", broadcastID)
	return nil
}

// SetOffline marks the channel offline unconditionally: status offline,
// lastOfflineAt stamped to now, watching cleared.
func (t *Tracker) SetOffline(ch *model.Channel) {
	t.markOffline(ch)
}

// Reset clears online/watching state for all channels. Used on watcher
// stop; it does not stamp lastOfflineAt, so a restart re-checks freely.
func (t *Tracker) Reset(channels []*model.Channel) {
	for _, ch := range channels {
		ch.Mu.Lock()
		ch.IsOnline = false
		ch.Watching = false
		ch.BroadcastID = ""
		ch.Mu.Unlock()
	}
}

func (t *Tracker) markOffline(ch *model.Channel) {
	ch.Mu.Lock()
	ch.IsOnline = false
	ch.OfflineAt = time.Now()
	ch.Watching = false
	ch.BroadcastID = ""
	ch.Mu.Unlock()
}
