package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/auth"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
)

// Connection is a single WebSocket connection to the PubSub server. Each
// connection listens on at most constants.MaxTopicsPerConn topics.
type Connection struct {
	mu sync.Mutex

	index int
	conn  *websocket.Conn

	topics        []model.Topic
	pendingTopics []model.Topic

	opened              bool
	closedIntentionally bool
	lastPong            time.Time

	// messages is closed by Run when the read loop exits, never by Close:
	// the read goroutine may be mid-send, and only the sender's side can
	// know when no more sends will happen.
	messages  chan *model.Message
	writeCh   chan []byte
	done      chan struct{}
	closeOnce sync.Once

	auth auth.Provider
	log  *logger.Logger

	nonceToTopic map[string]string
}

// NewConnection dials the PubSub server at url. The returned connection is
// open but idle until Run is called; topics registered before Run are
// queued pending and flushed as LISTENs when the run loop starts. The dial
// is bounded by the listen deadline: the server drops connections whose
// first LISTEN does not arrive within that window, so a dial eating the
// whole window is already a lost cause.
func NewConnection(ctx context.Context, index int, url string, authProvider auth.Provider, log *logger.Logger) (*Connection, error) {
	dialCtx, cancel := context.WithTimeout(ctx, constants.PubSubListenDeadline)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{})
	if err != nil {
		return nil, fmt.Errorf("dialing PubSub server: %w", err)
	}

	conn.SetReadLimit(128 << 10) // 128 KB

	return &Connection{
		index:        index,
		conn:         conn,
		topics:       make([]model.Topic, 0, constants.MaxTopicsPerConn),
		messages:     make(chan *model.Message, 32),
		writeCh:      make(chan []byte, 64),
		done:         make(chan struct{}),
		auth:         authProvider,
		log:          log,
		nonceToTopic: make(map[string]string),
		lastPong:     time.Now(),
	}, nil
}

// Listen registers interest in the topics. Topics already held are skipped.
// Until the run loop is active the topic is queued pending; afterwards a
// LISTEN frame is sent immediately.
func (c *Connection) Listen(topics []model.Topic) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, topic := range topics {
		if c.hasTopicLocked(topic) {
			continue
		}
		if len(c.topics) >= constants.MaxTopicsPerConn {
			return fmt.Errorf("connection #%d is at the %d-topic limit", c.index, constants.MaxTopicsPerConn)
		}
		c.topics = append(c.topics, topic)

		if !c.opened {
			c.pendingTopics = append(c.pendingTopics, topic)
			continue
		}

		if err := c.sendListenLocked(topic); err != nil {
			return fmt.Errorf("listening on topic %s: %w", topic, err)
		}
	}
	return nil
}

// Run drives the connection: it starts the write loop, sends the initial
// PING, flushes pending LISTENs, starts the heartbeat, and then blocks in
// the read loop until the context is cancelled or the socket dies. Run is
// called at most once per connection; when it returns, the messages
// channel is closed so downstream readers drain and exit.
func (c *Connection) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer close(c.messages)

	go c.writeLoop(ctx)

	c.enqueuePing()

	c.mu.Lock()
	c.opened = true
	for _, topic := range c.pendingTopics {
		if err := c.sendListenLocked(topic); err != nil {
			c.log.Error("Failed to listen on pending topic",
				"conn", c.index, "topic", topic, "error", err)
		}
	}
	c.pendingTopics = nil
	c.mu.Unlock()

	go c.heartbeatLoop(ctx)

	return c.readLoop(ctx)
}

// Close shuts the connection down intentionally. Idempotent: a second call
// is a no-op, and a closed connection is never reconnected by the pool.
// The messages channel stays open for Run to close; a send in flight when
// Close fires unblocks via the done signal instead.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closedIntentionally = true
		c.opened = false
		c.mu.Unlock()

		close(c.done)
		if c.conn != nil {
			c.conn.Close(websocket.StatusNormalClosure, "closing")
		}
	})
}

// ClosedIntentionally reports whether Close was called, as opposed to the
// socket dying on its own.
func (c *Connection) ClosedIntentionally() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closedIntentionally
}

// Messages returns the channel of parsed inbound messages.
func (c *Connection) Messages() <-chan *model.Message {
	return c.messages
}

// TopicCount returns the number of registered topics.
func (c *Connection) TopicCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.topics)
}

// HasCapacity reports whether the connection can take more topics.
func (c *Connection) HasCapacity() bool {
	return c.TopicCount() < constants.MaxTopicsPerConn
}

// HasTopic reports whether the topic is already registered here.
func (c *Connection) HasTopic(topic model.Topic) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasTopicLocked(topic)
}

// IsOpen reports whether the run loop is active and the socket healthy.
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

// Topics returns a copy of the registered topics.
func (c *Connection) Topics() []model.Topic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Topic, len(c.topics))
	copy(out, c.topics)
	return out
}

func (c *Connection) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var resp Response
		err := wsjson.Read(ctx, c.conn, &resp)
		if err != nil {
			c.mu.Lock()
			c.opened = false
			c.mu.Unlock()

			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read error on conn #%d: %w", c.index, err)
		}

		if done, err := c.handleResponse(ctx, &resp); done {
			return err
		}
	}
}

func (c *Connection) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.writeCh:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
				c.log.Error("WebSocket write error", "conn", c.index, "error", err)
			}
		}
	}
}

// heartbeatLoop sends a PING every PubSubPingInterval, strictly under the
// server's 5-minute keepalive ceiling. A missing PONG is logged but not
// treated as fatal: the authoritative failure signal is the socket's own
// close/error event.
func (c *Connection) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(constants.PubSubPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			elapsed := time.Since(c.lastPong)
			open := c.opened
			c.mu.Unlock()

			if !open {
				return
			}
			if elapsed > 5*time.Minute {
				c.log.Warn("No PONG in over 5 minutes",
					"conn", c.index, "elapsed", elapsed.Round(time.Second))
			}
			c.enqueuePing()
		}
	}
}

// handleResponse processes one inbound frame. It returns done=true when the
// connection must stop reading (server-initiated RECONNECT).
func (c *Connection) handleResponse(ctx context.Context, resp *Response) (bool, error) {
	switch resp.Type {
	case TypePong:
		c.mu.Lock()
		c.lastPong = time.Now()
		c.mu.Unlock()

	case TypeReconnect:
		c.log.Info("Reconnect requested by server", "conn", c.index)
		c.mu.Lock()
		c.opened = false
		c.mu.Unlock()
		return true, fmt.Errorf("server requested reconnect on conn #%d", c.index)

	case TypeResponse:
		c.mu.Lock()
		failedTopic := c.nonceToTopic[resp.Nonce]
		delete(c.nonceToTopic, resp.Nonce)
		c.mu.Unlock()

		// LISTEN errors are recoverable: the connection stays up and
		// keeps serving its other topics.
		if resp.Error != "" {
			c.log.Error("PubSub LISTEN error",
				"conn", c.index,
				"error", resp.Error,
				"topic", failedTopic,
				"nonce", resp.Nonce)
		}

	case TypeMessage:
		c.handleMessage(ctx, resp.Data)

	default:
		c.log.Warn("Unknown PubSub frame type", "conn", c.index, "type", resp.Type)
	}
	return false, nil
}

func (c *Connection) handleMessage(ctx context.Context, rawData json.RawMessage) {
	var msgData MessageData
	if err := json.Unmarshal(rawData, &msgData); err != nil {
		c.log.Warn("Malformed MESSAGE frame dropped", "conn", c.index, "error", err)
		return
	}

	msg, err := model.ParseMessage(msgData.Topic, []byte(msgData.Message), time.Now())
	if err != nil {
		c.log.Warn("Malformed PubSub message dropped",
			"conn", c.index, "topic", msgData.Topic, "error", err)
		return
	}

	select {
	case c.messages <- msg:
	case <-c.done:
	case <-ctx.Done():
	}
}

// sendListenLocked sends a LISTEN frame for one topic. The auth token is
// attached only for user-scoped topics. Caller must hold c.mu.
func (c *Connection) sendListenLocked(topic model.Topic) error {
	nonce := newNonce()
	topicStr := topic.String()
	c.nonceToTopic[nonce] = topicStr

	token := ""
	if topic.IsUserTopic() {
		token = c.auth.AuthToken()
	}

	req := Request{
		Type:  TypeListen,
		Nonce: nonce,
		Data: &RequestData{
			Topics:    []string{topicStr},
			AuthToken: token,
		},
	}

	c.log.Debug("Listening on topic", "conn", c.index, "topic", topicStr)
	return c.sendRequest(req)
}

func (c *Connection) sendRequest(req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	select {
	case c.writeCh <- data:
		return nil
	default:
		return fmt.Errorf("write channel full on conn #%d", c.index)
	}
}

func (c *Connection) enqueuePing() {
	data, err := json.Marshal(Request{Type: TypePing})
	if err != nil {
		c.log.Error("Failed to marshal PING", "conn", c.index, "error", err)
		return
	}

	select {
	case c.writeCh <- data:
		c.log.Debug("Sent PING", "conn", c.index)
	default:
		c.log.Warn("Write channel full, dropping PING", "conn", c.index)
	}
}

func (c *Connection) hasTopicLocked(topic model.Topic) bool {
	for _, t := range c.topics {
		if t == topic {
			return true
		}
	}
	return false
}
