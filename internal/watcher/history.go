package watcher

import (
	"encoding/json"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
)

const historyKeyPrefix = "history."

// loadHistory restores persisted points history into the channel models.
// Missing or unreadable entries start the channel fresh.
func (w *Watcher) loadHistory() {
	for _, ch := range w.Channels() {
		raw, ok := w.store.Get(historyKeyPrefix + ch.Login)
		if !ok {
			continue
		}

		var saved savedHistory
		if err := json.Unmarshal([]byte(raw), &saved); err != nil {
			w.log.Warn("Discarding unreadable history",
				"channel", ch.Login, "error", err)
			continue
		}

		ch.Mu.Lock()
		if saved.History != nil {
			ch.History = saved.History
		}
		ch.PointsEarned = saved.PointsEarned
		ch.MinutesWatched = saved.MinutesWatched
		ch.Mu.Unlock()
	}
}

// saveHistory persists one channel's points history.
func (w *Watcher) saveHistory(ch *model.Channel) {
	ch.Mu.RLock()
	saved := savedHistory{
		History:        ch.History,
		PointsEarned:   ch.PointsEarned,
		MinutesWatched: ch.MinutesWatched,
	}
	login := ch.Login
	data, err := json.Marshal(saved)
	ch.Mu.RUnlock()

	if err != nil {
		w.log.Warn("Failed to encode history", "channel", login, "error", err)
		return
	}
	if err := w.store.Set(historyKeyPrefix+login, string(data)); err != nil {
		w.log.Warn("Failed to persist history", "channel", login, "error", err)
	}
}

type savedHistory struct {
	History        map[string]*model.HistoryEntry `json:"history"`
	PointsEarned   int                            `json:"points_earned"`
	MinutesWatched int                            `json:"minutes_watched"`
}
