package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
)

// idleConnection builds a Connection that has not dialed and whose run
// loop is not active, so Listen queues topics pending.
func idleConnection(t *testing.T) *Connection {
	t.Helper()
	log, err := logger.Setup(logger.Config{Level: slog.LevelError})
	require.NoError(t, err)

	return &Connection{
		topics:       make([]model.Topic, 0, constants.MaxTopicsPerConn),
		messages:     make(chan *model.Message, 32),
		writeCh:      make(chan []byte, 64),
		done:         make(chan struct{}),
		auth:         stubAuth{},
		log:          log,
		nonceToTopic: make(map[string]string),
	}
}

func TestListenEnforcesTopicCap(t *testing.T) {
	c := idleConnection(t)

	for i := 0; i < constants.MaxTopicsPerConn; i++ {
		topic := model.NewChannelTopic(model.TopicVideoPlayback, fmt.Sprintf("%d", i))
		require.NoError(t, c.Listen([]model.Topic{topic}))
	}
	assert.Equal(t, constants.MaxTopicsPerConn, c.TopicCount())
	assert.False(t, c.HasCapacity())

	over := model.NewChannelTopic(model.TopicVideoPlayback, "overflow")
	err := c.Listen([]model.Topic{over})
	assert.Error(t, err)
	assert.Equal(t, constants.MaxTopicsPerConn, c.TopicCount())
}

func TestListenSkipsHeldTopic(t *testing.T) {
	c := idleConnection(t)
	topic := model.NewChannelTopic(model.TopicVideoPlayback, "111")

	require.NoError(t, c.Listen([]model.Topic{topic}))
	require.NoError(t, c.Listen([]model.Topic{topic}))

	assert.Equal(t, 1, c.TopicCount())
	assert.True(t, c.HasTopic(topic))
}

func TestTopicsReturnsCopy(t *testing.T) {
	c := idleConnection(t)
	require.NoError(t, c.Listen([]model.Topic{model.NewChannelTopic(model.TopicRaid, "1")}))

	got := c.Topics()
	got[0] = model.NewChannelTopic(model.TopicRaid, "mutated")

	assert.Equal(t, "1", c.Topics()[0].ChannelID)
}

func TestCloseIsIdempotent(t *testing.T) {
	c := idleConnection(t)

	c.Close()
	c.Close()

	assert.True(t, c.ClosedIntentionally())
	select {
	case <-c.done:
	default:
		t.Fatal("done signal not raised by Close")
	}
}

// A Close racing inbound traffic must release a delivery blocked on a
// full messages channel instead of panicking the sender.
func TestCloseReleasesBlockedDelivery(t *testing.T) {
	c := idleConnection(t)

	for i := 0; i < cap(c.messages); i++ {
		c.messages <- &model.Message{}
	}

	raw := []byte(`{"topic": "video-playback-by-id.111", "message": "{\"type\": \"viewcount\"}"}`)
	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		c.handleMessage(context.Background(), raw)
	}()

	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("delivery still blocked after Close")
	}
}
