package watcher

import (
	"context"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/pubsub"
)

// HandlePointsEarned applies a balance change to the tracked channel and
// records it in the points history.
func (w *Watcher) HandlePointsEarned(e pubsub.PointsEarned) {
	ch := w.channelByID(e.ChannelID)
	if ch == nil {
		return
	}

	ch.Mu.Lock()
	if e.NewBalance > 0 {
		ch.Balance = e.NewBalance
	} else {
		ch.Balance += e.Earned
	}
	ch.UpdateHistory(e.ReasonCode, e.Earned)
	balance := ch.Balance
	ch.Mu.Unlock()

	w.log.Event(model.MapReasonToEvent(e.ReasonCode), "Points earned",
		"channel", e.Login,
		"earned", e.Earned,
		"balance", balance,
		"reason", e.ReasonCode)

	w.saveHistory(ch)
}

// HandleClaimAvailable claims the announced bonus without blocking the
// routing goroutine.
func (w *Watcher) HandleClaimAvailable(e pubsub.ClaimAvailable) {
	go w.claimBonus(w.runContext(), e.Login, e.ChannelID, e.ClaimID)
}

// HandleChannelOffline drives the immediate offline transition.
func (w *Watcher) HandleChannelOffline(e pubsub.ChannelOffline) {
	ch := w.channelByID(e.ChannelID)
	if ch == nil {
		return
	}

	ch.Mu.RLock()
	wasOnline := ch.IsOnline
	login := ch.Login
	ch.Mu.RUnlock()

	w.trk.SetOffline(ch)

	if wasOnline {
		w.log.Event(model.EventChannelOffline, "Channel offline", "channel", login)
	}
}

// HandleLivenessSignal re-verifies online status on platform activity.
// The signal alone never flips a channel online; the tracker's debounced
// check is the authority.
func (w *Watcher) HandleLivenessSignal(e pubsub.LivenessSignal) {
	ch := w.channelByID(e.ChannelID)
	if ch == nil {
		return
	}

	if e.Viewers > 0 {
		ch.Mu.Lock()
		ch.Viewers = e.Viewers
		ch.Mu.Unlock()
	}

	go w.checkChannel(w.runContext(), ch)
}

// HandleRaidUpdate joins an announced raid once, when raid following is
// enabled.
func (w *Watcher) HandleRaidUpdate(e pubsub.RaidUpdate) {
	if !w.cfg.Watcher.JoinRaids {
		return
	}

	r := w.raids.GetOrCreate(e.RaidID, e.TargetLogin)

	w.heldRaidsMu.Lock()
	if _, held := w.heldRaids[e.RaidID]; held {
		// Already holding a reference from an earlier update frame;
		// drop the extra one.
		w.heldRaidsMu.Unlock()
		w.raids.Release(e.RaidID)
		return
	}
	w.heldRaids[e.RaidID] = struct{}{}
	w.heldRaidsMu.Unlock()

	if !r.TryJoin() {
		return
	}

	go func() {
		if err := w.gql.JoinRaid(w.runContext(), e.RaidID); err != nil {
			r.ResetJoin()
			w.log.Warn("Failed to join raid",
				"channel", e.Login, "raid_id", e.RaidID, "error", err)
			return
		}
		w.log.Event(model.EventJoinRaid, "Joined raid",
			"channel", e.Login, "target", e.TargetLogin)
	}()
}

// runContext returns the context of the current run, or a background
// context when no run is active (events racing a teardown).
func (w *Watcher) runContext() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.runCtx != nil {
		return w.runCtx
	}
	return context.Background()
}
