package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the "type" field of a decoded PubSub message body.
type MessageType string

// Message types the watcher reacts to.
const (
	MsgTypePointsEarned   MessageType = "points-earned"
	MsgTypePointsSpent    MessageType = "points-spent"
	MsgTypeClaimAvailable MessageType = "claim-available"
	MsgTypeClaimClaimed   MessageType = "claim-claimed"

	MsgTypeStreamUp   MessageType = "stream-up"
	MsgTypeStreamDown MessageType = "stream-down"
	MsgTypeViewCount  MessageType = "viewcount"

	MsgTypeRaidUpdate MessageType = "raid_update_v2"
	MsgTypeRaidGo     MessageType = "raid_go_v2"
	MsgTypeRaidCancel MessageType = "raid_cancel_v2"
)

// Message is a parsed PubSub message.
type Message struct {
	Topic      string         `json:"topic"`
	TargetID   string         `json:"target_id"`
	Type       MessageType    `json:"type"`
	Data       map[string]any `json:"data,omitempty"`
	RawMessage map[string]any `json:"message"`

	// ReceivedAt is the local receipt time, used to detect duplicates
	// delivered on overlapping connections.
	ReceivedAt time.Time `json:"received_at"`

	// Identifier names the message for log lines: type, topic and the
	// channel it concerns.
	Identifier string `json:"identifier"`
}

// ParseMessage decodes the inner message JSON of a MESSAGE frame.
func ParseMessage(topicFull string, rawMessageJSON []byte, receivedAt time.Time) (*Message, error) {
	topic, targetID := SplitTopic(topicFull)

	var body map[string]any
	if err := json.Unmarshal(rawMessageJSON, &body); err != nil {
		return nil, fmt.Errorf("parsing message body: %w", err)
	}

	msgType, _ := body["type"].(string)
	data, _ := body["data"].(map[string]any)

	msg := &Message{
		Topic:      topic,
		TargetID:   targetID,
		Type:       MessageType(msgType),
		Data:       data,
		RawMessage: body,
		ReceivedAt: receivedAt,
	}
	msg.Identifier = fmt.Sprintf("%s.%s.%s", msg.Type, msg.Topic, msg.resolveChannelID())

	return msg, nil
}

// ChannelID returns the channel the message concerns, falling back to the
// topic's target id when the payload carries no channel reference.
func (m *Message) ChannelID() string {
	return m.resolveChannelID()
}

func (m *Message) resolveChannelID() string {
	if m.Data == nil {
		return m.TargetID
	}
	if claim, ok := m.Data["claim"].(map[string]any); ok {
		if cid, ok := claim["channel_id"].(string); ok {
			return cid
		}
	}
	if cid, ok := m.Data["channel_id"].(string); ok {
		return cid
	}
	if balance, ok := m.Data["balance"].(map[string]any); ok {
		if cid, ok := balance["channel_id"].(string); ok {
			return cid
		}
	}
	return m.TargetID
}

// String returns a compact representation for logging.
func (m *Message) String() string {
	return fmt.Sprintf("Message(type=%s, topic=%s, channel_id=%s)", m.Type, m.Topic, m.ChannelID())
}
