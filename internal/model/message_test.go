package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessagePointsEarned(t *testing.T) {
	raw := []byte(`{
		"type": "points-earned",
		"data": {
			"balance": {"channel_id": "111", "balance": 1500},
			"point_gain": {"total_points": 50, "reason_code": "WATCH"}
		}
	}`)

	now := time.Now()
	msg, err := ParseMessage("community-points-user-v1.999", raw, now)
	require.NoError(t, err)

	assert.Equal(t, "community-points-user-v1", msg.Topic)
	assert.Equal(t, "999", msg.TargetID)
	assert.Equal(t, MsgTypePointsEarned, msg.Type)
	assert.Equal(t, "111", msg.ChannelID())
	assert.Equal(t, now, msg.ReceivedAt)
	assert.Equal(t, "points-earned.community-points-user-v1.111", msg.Identifier)
}

func TestParseMessageClaimChannelID(t *testing.T) {
	raw := []byte(`{
		"type": "claim-available",
		"data": {"claim": {"id": "claim-1", "channel_id": "222"}}
	}`)

	msg, err := ParseMessage("community-points-user-v1.999", raw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "222", msg.ChannelID())
}

func TestParseMessageFallsBackToTarget(t *testing.T) {
	raw := []byte(`{"type": "stream-down", "server_time": 1}`)

	msg, err := ParseMessage("video-playback-by-id.333", raw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, MsgTypeStreamDown, msg.Type)
	assert.Equal(t, "333", msg.ChannelID())
}

func TestParseMessageMalformed(t *testing.T) {
	_, err := ParseMessage("video-playback-by-id.333", []byte("{not json"), time.Now())
	assert.Error(t, err)
}

func TestIdentifierStableAcrossConnections(t *testing.T) {
	raw := []byte(`{"type": "viewcount", "viewers": 100}`)

	a, err := ParseMessage("video-playback-by-id.42", raw, time.Now())
	require.NoError(t, err)
	b, err := ParseMessage("video-playback-by-id.42", raw, time.Now().Add(time.Microsecond))
	require.NoError(t, err)

	assert.Equal(t, a.Identifier, b.Identifier)
}
