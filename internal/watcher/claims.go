package watcher

import (
	"context"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/workerpool"
)

// claimBonus fires the claim request for a bonus. Claims are fire and
// forget: a failed claim is logged and the loop moves on, the next bonus
// window comes around on its own.
func (w *Watcher) claimBonus(ctx context.Context, login, channelID, claimID string) {
	if claimID == "" {
		return
	}

	if err := w.gql.ClaimCommunityPoints(ctx, claimID, channelID); err != nil {
		w.log.Warn("Failed to claim bonus", "channel", login, "error", err)
		return
	}

	w.log.Event(model.EventBonusClaim, "Claimed bonus", "channel", login)
}

// loadInitialContext fetches the points context for every channel in
// parallel: the current balance is recorded, and a bonus already sitting
// unclaimed from before boot is claimed right away.
func (w *Watcher) loadInitialContext(ctx context.Context) {
	_ = workerpool.Run(ctx, w.Channels(), constants.StartupWorkers,
		func(ctx context.Context, ch *model.Channel) error {
			ch.Mu.RLock()
			login := ch.Login
			channelID := ch.ChannelID
			ch.Mu.RUnlock()

			pc, err := w.gql.GetPointsContext(ctx, login)
			if err != nil {
				w.log.Debug("Failed to load points context",
					"channel", login, "error", err)
				return nil
			}

			ch.Mu.Lock()
			ch.Balance = pc.Balance
			ch.Mu.Unlock()

			w.log.Debug("Points context loaded",
				"channel", login, "balance", pc.Balance)

			if pc.AvailableClaimID != "" {
				w.claimBonus(ctx, login, channelID, pc.AvailableClaimID)
			}
			return nil
		})
}
