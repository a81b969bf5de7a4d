package model

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Channel represents a Twitch channel being watched for points.
// Fields that may be accessed concurrently are protected by Mu.
type Channel struct {
	Mu sync.RWMutex `json:"-"`

	Login       string `json:"login"`
	ChannelID   string `json:"channel_id"`
	DisplayName string `json:"display_name,omitempty"`

	IsOnline  bool      `json:"is_online"`
	Watching  bool      `json:"watching"`
	OnlineAt  time.Time `json:"online_at"`
	OfflineAt time.Time `json:"offline_at"`
	Viewers   int       `json:"viewers"`

	// BroadcastID identifies the live broadcast the progress payload is
	// attributed to. Empty while the channel is offline.
	BroadcastID string `json:"broadcast_id,omitempty"`

	Balance        int `json:"balance"`
	MinutesWatched int `json:"minutes_watched"`
	PointsEarned   int `json:"points_earned"`

	History map[string]*HistoryEntry `json:"history,omitempty"`

	ChannelURL string `json:"channel_url"`
}

// HistoryEntry tracks cumulative points earned for one reason code.
type HistoryEntry struct {
	Counter int `json:"counter"`
	Amount  int `json:"amount"`
}

// NewChannel creates a Channel with sensible defaults.
func NewChannel(login string) *Channel {
	return &Channel{
		Login:      login,
		History:    make(map[string]*HistoryEntry),
		ChannelURL: fmt.Sprintf("https://www.twitch.tv/%s", login),
	}
}

// SetOnline marks the channel as online. Must be called with Mu held.
func (c *Channel) SetOnline() {
	if !c.IsOnline {
		c.OnlineAt = time.Now()
		c.IsOnline = true
	}
}

// SetOffline marks the channel as offline and clears the watching flag and
// broadcast id. Must be called with Mu held.
func (c *Channel) SetOffline() {
	if c.IsOnline {
		c.OfflineAt = time.Now()
		c.IsOnline = false
	}
	c.Watching = false
	c.BroadcastID = ""
}

// RecentlyOffline reports whether the channel went offline less than the
// given debounce window ago. Must be called with Mu held (at least RLock).
func (c *Channel) RecentlyOffline(debounce time.Duration) bool {
	return !c.OfflineAt.IsZero() && time.Since(c.OfflineAt) < debounce
}

// UpdateHistory adds earned points under a reason code.
// Must be called with Mu held.
func (c *Channel) UpdateHistory(reasonCode string, earned int) {
	if _, ok := c.History[reasonCode]; !ok {
		c.History[reasonCode] = &HistoryEntry{}
	}
	c.History[reasonCode].Counter++
	c.History[reasonCode].Amount += earned
	c.PointsEarned += earned
}

// String returns a human-readable representation of the channel.
func (c *Channel) String() string {
	return fmt.Sprintf("Channel(login=%s, channel_id=%s, balance=%d)",
		c.Login, c.ChannelID, c.Balance)
}

// MarshalJSON implements custom JSON marshaling to handle the mutex.
func (c *Channel) MarshalJSON() ([]byte, error) {
	type Alias Channel
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return json.Marshal((*Alias)(c))
}
