package watcher

import (
	"context"
	"time"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/sleeper"
)

// runLoop is the polling cycle. Every iteration picks up to MaxWatch
// online channels in registration order, spends an equal slice of the
// watch interval on each, and sends one progress event per slice. With no
// online channel the loop sleeps a flat interval and retries.
func (w *Watcher) runLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil || w.State() != model.StateRunning {
			return
		}

		selected := w.selectWatchable()
		if len(selected) == 0 {
			if !w.sleepUntil(ctx, time.Now().Add(constants.WatchInterval)) {
				return
			}
			continue
		}

		slice := constants.WatchInterval / time.Duration(len(selected))
		for _, ch := range selected {
			deadline := time.Now().Add(slice)

			w.watchTick(ctx, ch)

			if !w.sleepUntil(ctx, deadline) {
				return
			}
		}
	}
}

// selectWatchable returns up to the configured maximum of online channels,
// in stable registration order so the same streams keep priority.
func (w *Watcher) selectWatchable() []*model.Channel {
	max := w.cfg.Watcher.MaxWatch
	if max <= 0 {
		max = constants.MaxWatchChannels
	}

	var selected []*model.Channel
	for _, ch := range w.Channels() {
		ch.Mu.RLock()
		online := ch.IsOnline
		ch.Mu.RUnlock()

		if online {
			selected = append(selected, ch)
			if len(selected) == max {
				break
			}
		}
	}
	return selected
}

// watchTick sends one progress event for the channel. The channel may
// have gone offline between selection and now; in that case the tick is
// skipped and the next iteration reselects.
func (w *Watcher) watchTick(ctx context.Context, ch *model.Channel) {
	ch.Mu.RLock()
	online := ch.IsOnline
	watching := ch.Watching
	login := ch.Login
	ch.Mu.RUnlock()

	if !online {
		return
	}

	if !watching {
		ch.Mu.Lock()
		ch.Watching = true
		ch.Mu.Unlock()
		w.log.Event(model.EventWatching, "Watching channel", "channel", login)
	}

	if err := w.relay.SendMinuteWatched(ctx, ch); err != nil {
		// A failed progress event costs at most one minute of credit;
		// the loop keeps going.
		w.log.Debug("Progress event failed", "channel", login, "error", err)
	}
}

// sleepUntil sleeps until the deadline through the cancellable sleeper.
// It returns false when the sleep was cancelled or the context ended,
// which means the loop should exit.
func (w *Watcher) sleepUntil(ctx context.Context, deadline time.Time) bool {
	err := w.sleep.Sleep(ctx, time.Until(deadline))
	if err != nil {
		if err != sleeper.ErrCanceled && ctx.Err() == nil {
			w.log.Debug("Sleep interrupted", "error", err)
		}
		return false
	}
	return true
}
