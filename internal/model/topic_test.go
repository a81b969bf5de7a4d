package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicString(t *testing.T) {
	topic := NewChannelTopic(TopicVideoPlayback, "12345")
	assert.Equal(t, "video-playback-by-id.12345", topic.String())

	topic = NewUserTopic(TopicCommunityPoints, "67890")
	assert.Equal(t, "community-points-user-v1.67890", topic.String())
}

func TestSplitTopic(t *testing.T) {
	tests := []struct {
		full       string
		wantName   string
		wantTarget string
	}{
		{"video-playback-by-id.12345", "video-playback-by-id", "12345"},
		{"community-points-user-v1.67890", "community-points-user-v1", "67890"},
		{"raid.555", "raid", "555"},
		{"no-target", "no-target", ""},
	}

	for _, tt := range tests {
		name, target := SplitTopic(tt.full)
		assert.Equal(t, tt.wantName, name, tt.full)
		assert.Equal(t, tt.wantTarget, target, tt.full)
	}
}

func TestTopicRoundTrip(t *testing.T) {
	topic := NewChannelTopic(TopicRaid, "424242")
	name, target := SplitTopic(topic.String())
	assert.Equal(t, TopicRaid.String(), name)
	assert.Equal(t, "424242", target)
}

func TestIsUserTopic(t *testing.T) {
	assert.True(t, NewUserTopic(TopicCommunityPoints, "1").IsUserTopic())
	assert.False(t, NewChannelTopic(TopicVideoPlayback, "1").IsUserTopic())
}
