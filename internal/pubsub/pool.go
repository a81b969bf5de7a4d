package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/auth"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/jsonutil"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/registry"
)

// Pool manages the PubSub WebSocket connections. Topics are placed on the
// first connection with spare capacity; when every connection holds the
// 50-topic maximum a new one is dialed (incremental pooling — existing
// connections keep serving their topics, no rotation). Messages from all
// connections are merged, de-duplicated, and dispatched as typed events.
type Pool struct {
	mu sync.Mutex

	conns   []*Connection
	auth    auth.Provider
	reg     *registry.Registry
	log     *logger.Logger
	handler EventHandler

	merged chan *model.Message

	runCtx  context.Context
	stopped bool

	// Duplicate suppression across overlapping connections: a message of
	// the same type received within a millisecond of the previous one is
	// dropped, whatever connection or channel it arrived on.
	lastType       model.MessageType
	lastReceivedAt time.Time

	url              string
	reconnectBackoff time.Duration
	maxConns         int
}

// NewPool creates a PubSub connection pool for the server at url. No
// connection is dialed until the first Submit.
func NewPool(url string, a auth.Provider, reg *registry.Registry, log *logger.Logger, handler EventHandler) *Pool {
	return &Pool{
		conns:            make([]*Connection, 0, constants.MaxPubSubConns),
		auth:             a,
		reg:              reg,
		log:              log,
		handler:          handler,
		merged:           make(chan *model.Message, 256),
		url:              url,
		reconnectBackoff: constants.PubSubReconnectBackoff,
		maxConns:         constants.MaxPubSubConns,
	}
}

// Submit registers interest in a topic. A topic already held by some
// connection is a no-op. If no connection has capacity a new one is dialed,
// so no connection is ever asked to exceed the 50-topic limit.
func (p *Pool) Submit(ctx context.Context, topic model.Topic) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return fmt.Errorf("pool is stopped")
	}

	for _, conn := range p.conns {
		if conn.HasTopic(topic) {
			return nil
		}
	}

	for _, conn := range p.conns {
		if conn.HasCapacity() {
			return conn.Listen([]model.Topic{topic})
		}
	}

	if len(p.conns) >= p.maxConns {
		return fmt.Errorf("maximum number of PubSub connections (%d) reached", p.maxConns)
	}

	conn, err := NewConnection(ctx, len(p.conns), p.url, p.auth, p.log)
	if err != nil {
		return fmt.Errorf("creating new PubSub connection: %w", err)
	}

	p.conns = append(p.conns, conn)
	p.startConnLocked(conn)
	p.log.Info("Created new PubSub connection",
		"conn", conn.index, "total_connections", len(p.conns))

	return conn.Listen([]model.Topic{topic})
}

// Run starts routing messages to the handler and drives every connection,
// including ones created by later Submit calls. It blocks until the context
// is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	p.mu.Lock()
	p.runCtx = ctx
	for _, conn := range p.conns {
		p.startConnLocked(conn)
	}
	p.mu.Unlock()

	g.Go(func() error {
		return p.routeMessages(ctx)
	})

	g.Go(func() error {
		return p.healthMonitor(ctx)
	})

	return g.Wait()
}

// Stop marks the pool intentionally closed and closes every connection.
// Idempotent: calling it twice, or before any Submit, does nothing extra
// and never schedules a reconnect.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	conns := make([]*Connection, len(p.conns))
	copy(conns, p.conns)
	p.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	p.log.Info("PubSub pool stopped", "connections", len(conns))
}

// ConnectionCount returns the number of pool connections.
func (p *Pool) ConnectionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// TotalTopicCount returns the number of topics held across all connections.
func (p *Pool) TotalTopicCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, conn := range p.conns {
		total += conn.TopicCount()
	}
	return total
}

// startConnLocked starts the forwarder and runner goroutines for a
// connection once the pool itself is running. Connections created before
// Run are started when Run begins. Caller must hold p.mu.
func (p *Pool) startConnLocked(conn *Connection) {
	if p.runCtx == nil {
		return
	}
	p.startForwarder(p.runCtx, conn)
	go p.runConnection(p.runCtx, conn)
}

// runConnection drives one connection and replaces it after an unexpected
// close or a server RECONNECT notice. Each replacement waits out a fixed
// backoff window; Stop during the window abandons the reconnect. A dead
// connection is never re-run: once its run loop exits it is only a source
// of topics for the replacement, and it is closed once the replacement is
// live so its socket and goroutines are released.
func (p *Pool) runConnection(ctx context.Context, conn *Connection) {
	for {
		err := conn.Run(ctx)
		if ctx.Err() != nil || conn.ClosedIntentionally() || p.isStopped() {
			return
		}

		p.log.Warn("PubSub connection lost, reconnecting",
			"conn", conn.index, "error", err,
			"backoff", p.reconnectBackoff)

		var newConn *Connection
		for newConn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.reconnectBackoff):
			}

			if p.isStopped() {
				p.log.Info("Reconnect abandoned, pool stopped", "conn", conn.index)
				return
			}

			newConn, err = p.reconnect(ctx, conn)
			if err != nil {
				p.log.Error("Reconnection failed", "conn", conn.index, "error", err)
				newConn = nil
			}
		}

		conn.Close()
		conn = newConn
		p.log.Info("PubSub connection re-established", "conn", conn.index)
	}
}

// reconnect dials a fresh connection, swaps it into the pool in place of
// the dead one, and re-submits every topic the old connection listened on.
func (p *Pool) reconnect(ctx context.Context, old *Connection) (*Connection, error) {
	topics := old.Topics()

	newConn, err := NewConnection(ctx, old.index, p.url, p.auth, p.log)
	if err != nil {
		return nil, fmt.Errorf("dialing PubSub for reconnection: %w", err)
	}

	p.mu.Lock()
	for i, c := range p.conns {
		if c == old {
			p.conns[i] = newConn
			break
		}
	}
	p.startForwarder(p.runCtx, newConn)
	p.mu.Unlock()

	if err := newConn.Listen(topics); err != nil {
		return nil, fmt.Errorf("re-submitting topics after reconnection: %w", err)
	}

	return newConn, nil
}

func (p *Pool) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// startForwarder reads one connection's message channel into the pool's
// merged fan-in channel. It exits when the connection channel closes.
func (p *Pool) startForwarder(ctx context.Context, conn *Connection) {
	go func() {
		for {
			select {
			case msg, ok := <-conn.Messages():
				if !ok {
					return
				}
				select {
				case p.merged <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *Pool) routeMessages(ctx context.Context) error {
	for {
		select {
		case msg, ok := <-p.merged:
			if !ok {
				return nil
			}
			if p.isDuplicate(msg) {
				p.log.Debug("Dropped duplicate message", "identifier", msg.Identifier)
				continue
			}
			p.dispatch(msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// isDuplicate applies the cross-connection dedup check: a message of the
// same type as the previous one, arriving within a millisecond, means two
// connections delivered the same event. Only the type takes part in the
// key; distinct events of the same type never land that close together.
func (p *Pool) isDuplicate(msg *model.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	dup := msg.Type == p.lastType &&
		msg.ReceivedAt.Sub(p.lastReceivedAt) < time.Millisecond
	if !dup {
		p.lastType = msg.Type
		p.lastReceivedAt = msg.ReceivedAt
	}
	return dup
}

// dispatch converts a parsed message into a typed event. Messages for
// channels absent from the identity registry are dropped: the channel is
// not currently tracked.
func (p *Pool) dispatch(msg *model.Message) {
	if p.handler == nil {
		return
	}

	switch msg.Topic {
	case model.TopicCommunityPoints.String():
		p.dispatchPoints(msg)
	case model.TopicVideoPlayback.String():
		p.dispatchPlayback(msg)
	case model.TopicRaid.String():
		p.dispatchRaid(msg)
	default:
		p.log.Debug("Unhandled PubSub topic", "topic", msg.Topic, "type", string(msg.Type))
	}
}

func (p *Pool) dispatchPoints(msg *model.Message) {
	if msg.Data == nil {
		return
	}

	switch msg.Type {
	case model.MsgTypePointsEarned:
		channelID := msg.ChannelID()
		login, ok := p.reg.LoginForID(channelID)
		if !ok {
			p.log.Debug("Points message for untracked channel", "channel_id", channelID)
			return
		}

		pointGain := jsonutil.MapFromAny(msg.Data["point_gain"])
		if pointGain == nil {
			return
		}

		p.handler.HandlePointsEarned(PointsEarned{
			ChannelID:  channelID,
			Login:      login,
			Earned:     jsonutil.IntFromAny(pointGain["total_points"]),
			NewBalance: jsonutil.NestedInt(msg.Data, "balance", "balance"),
			ReasonCode: jsonutil.StringFromAny(pointGain["reason_code"]),
		})

	case model.MsgTypeClaimAvailable:
		claim := jsonutil.MapFromAny(msg.Data["claim"])
		if claim == nil {
			return
		}

		channelID := jsonutil.StringFromAny(claim["channel_id"])
		login, ok := p.reg.LoginForID(channelID)
		if !ok {
			p.log.Debug("Claim message for untracked channel", "channel_id", channelID)
			return
		}

		claimID := jsonutil.StringFromAny(claim["id"])
		if claimID == "" {
			return
		}

		p.handler.HandleClaimAvailable(ClaimAvailable{
			ChannelID: channelID,
			Login:     login,
			ClaimID:   claimID,
		})

	default:
		p.log.Debug("Unhandled community-points message type", "type", string(msg.Type))
	}
}

func (p *Pool) dispatchPlayback(msg *model.Message) {
	channelID := msg.TargetID
	login, ok := p.reg.LoginForID(channelID)
	if !ok {
		p.log.Debug("Playback message for untracked channel", "channel_id", channelID)
		return
	}

	switch msg.Type {
	case model.MsgTypeStreamDown:
		p.handler.HandleChannelOffline(ChannelOffline{
			ChannelID: channelID,
			Login:     login,
		})

	case model.MsgTypeViewCount, model.MsgTypeStreamUp:
		// Neither asserts "online" by itself; the handler re-verifies
		// through the tracker's debounced check.
		p.handler.HandleLivenessSignal(LivenessSignal{
			ChannelID: channelID,
			Login:     login,
			Viewers:   jsonutil.IntFromAny(msg.RawMessage["viewers"]),
		})
	}
}

func (p *Pool) dispatchRaid(msg *model.Message) {
	if msg.Type != model.MsgTypeRaidUpdate {
		return
	}

	channelID := msg.TargetID
	login, ok := p.reg.LoginForID(channelID)
	if !ok {
		return
	}

	raidData := jsonutil.MapFromAny(msg.RawMessage["raid"])
	if raidData == nil {
		return
	}

	raidID := jsonutil.StringFromAny(raidData["id"])
	if raidID == "" {
		return
	}

	p.handler.HandleRaidUpdate(RaidUpdate{
		ChannelID:   channelID,
		Login:       login,
		RaidID:      raidID,
		TargetLogin: jsonutil.StringFromAny(raidData["target_login"]),
	})
}

func (p *Pool) healthMonitor(ctx context.Context) error {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.mu.Lock()
			for _, conn := range p.conns {
				if !conn.IsOpen() {
					p.log.Warn("Connection is not open",
						"conn", conn.index, "topics", conn.TopicCount())
				}
			}
			p.mu.Unlock()
		}
	}
}
