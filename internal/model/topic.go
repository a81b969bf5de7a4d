package model

import (
	"fmt"
	"strings"
)

// TopicType identifies the category of a PubSub topic.
type TopicType int

const (
	// TopicVideoPlayback tracks stream up/down and viewer count.
	TopicVideoPlayback TopicType = iota
	// TopicCommunityPoints tracks the user's channel points events.
	TopicCommunityPoints
	// TopicRaid tracks raid events on a channel.
	TopicRaid
)

var topicNames = map[TopicType]string{
	TopicVideoPlayback:   "video-playback-by-id",
	TopicCommunityPoints: "community-points-user-v1",
	TopicRaid:            "raid",
}

// String returns the Twitch topic string prefix for this topic type.
func (t TopicType) String() string {
	if name, ok := topicNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseTopicType resolves a topic name back to its TopicType.
func ParseTopicType(name string) (TopicType, bool) {
	for t, n := range topicNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Topic is a PubSub subscription topic. A Topic with an empty ChannelID is
// scoped to the authenticated user via UserID instead of a channel.
type Topic struct {
	Type      TopicType `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
}

// NewUserTopic creates a Topic scoped to the authenticated user.
func NewUserTopic(topicType TopicType, userID string) Topic {
	return Topic{Type: topicType, UserID: userID}
}

// NewChannelTopic creates a Topic scoped to a specific channel.
func NewChannelTopic(topicType TopicType, channelID string) Topic {
	return Topic{Type: topicType, ChannelID: channelID}
}

// IsUserTopic reports whether the topic targets the user rather than a channel.
func (t Topic) IsUserTopic() bool {
	return t.ChannelID == ""
}

// TargetID returns the numeric id the topic is addressed to.
func (t Topic) TargetID() string {
	if t.IsUserTopic() {
		return t.UserID
	}
	return t.ChannelID
}

// String returns the wire-format topic string "name.target_id".
func (t Topic) String() string {
	return fmt.Sprintf("%s.%s", t.Type, t.TargetID())
}

// SplitTopic splits a wire-format topic string into its name and target id.
// The target is everything after the last dot; topic names may themselves
// contain dots in principle, target ids never do.
func SplitTopic(full string) (name, targetID string) {
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		return full[:i], full[i+1:]
	}
	return full, ""
}
