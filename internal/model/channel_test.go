package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelOnlineOfflineTransitions(t *testing.T) {
	ch := NewChannel("streamer")

	ch.Mu.Lock()
	ch.SetOnline()
	ch.Mu.Unlock()
	assert.True(t, ch.IsOnline)
	assert.False(t, ch.OnlineAt.IsZero())

	onlineAt := ch.OnlineAt

	// A second SetOnline must not restamp the transition time.
	ch.Mu.Lock()
	ch.SetOnline()
	ch.Mu.Unlock()
	assert.Equal(t, onlineAt, ch.OnlineAt)

	ch.Mu.Lock()
	ch.Watching = true
	ch.BroadcastID = "b-1"
	ch.SetOffline()
	ch.Mu.Unlock()

	assert.False(t, ch.IsOnline)
	assert.False(t, ch.Watching)
	assert.Empty(t, ch.BroadcastID)
	assert.False(t, ch.OfflineAt.IsZero())
}

func TestRecentlyOffline(t *testing.T) {
	ch := NewChannel("streamer")
	assert.False(t, ch.RecentlyOffline(time.Minute))

	ch.OfflineAt = time.Now().Add(-10 * time.Second)
	assert.True(t, ch.RecentlyOffline(time.Minute))

	ch.OfflineAt = time.Now().Add(-2 * time.Minute)
	assert.False(t, ch.RecentlyOffline(time.Minute))
}

func TestUpdateHistory(t *testing.T) {
	ch := NewChannel("streamer")

	ch.Mu.Lock()
	ch.UpdateHistory("WATCH", 10)
	ch.UpdateHistory("WATCH", 10)
	ch.UpdateHistory("CLAIM", 50)
	ch.Mu.Unlock()

	assert.Equal(t, 2, ch.History["WATCH"].Counter)
	assert.Equal(t, 20, ch.History["WATCH"].Amount)
	assert.Equal(t, 1, ch.History["CLAIM"].Counter)
	assert.Equal(t, 50, ch.History["CLAIM"].Amount)
	assert.Equal(t, 70, ch.PointsEarned)
}

func TestChannelMarshalJSON(t *testing.T) {
	ch := NewChannel("streamer")
	ch.ChannelID = "123"
	ch.Balance = 500

	data, err := json.Marshal(ch)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "streamer", decoded["login"])
	assert.Equal(t, "123", decoded["channel_id"])
	assert.Equal(t, float64(500), decoded["balance"])
	assert.NotContains(t, decoded, "Mu")
}
