package pubsub

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
)

// fakePubSubServer speaks just enough of the PubSub protocol for pool
// tests: PING gets a PONG, LISTEN gets an ok RESPONSE, and the topics
// registered on each accepted connection are recorded.
type fakePubSubServer struct {
	mu    sync.Mutex
	conns []*fakeServerConn
}

type fakeServerConn struct {
	ws *websocket.Conn

	wmu sync.Mutex // serializes frame writes

	mu     sync.Mutex
	topics map[string]bool
}

func newFakePubSubServer(t *testing.T) (*fakePubSubServer, string) {
	t.Helper()

	s := &fakePubSubServer{}
	srv := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(srv.Close)

	return s, "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func (s *fakePubSubServer) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	fc := &fakeServerConn{ws: ws, topics: make(map[string]bool)}
	s.mu.Lock()
	s.conns = append(s.conns, fc)
	s.mu.Unlock()

	for {
		var req Request
		if err := wsjson.Read(r.Context(), ws, &req); err != nil {
			return
		}

		switch req.Type {
		case TypePing:
			fc.write(Response{Type: TypePong})
		case TypeListen:
			fc.mu.Lock()
			if req.Data != nil {
				for _, topic := range req.Data.Topics {
					fc.topics[topic] = true
				}
			}
			fc.mu.Unlock()
			fc.write(Response{Type: TypeResponse, Nonce: req.Nonce})
		}
	}
}

func (fc *fakeServerConn) write(resp Response) {
	fc.wmu.Lock()
	defer fc.wmu.Unlock()
	_ = wsjson.Write(context.Background(), fc.ws, resp)
}

func (s *fakePubSubServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *fakePubSubServer) hasTopic(i int, topic string) bool {
	s.mu.Lock()
	if i >= len(s.conns) {
		s.mu.Unlock()
		return false
	}
	fc := s.conns[i]
	s.mu.Unlock()

	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.topics[topic]
}

func (s *fakePubSubServer) sendReconnect(i int) {
	s.mu.Lock()
	fc := s.conns[i]
	s.mu.Unlock()
	fc.write(Response{Type: TypeReconnect})
}

func TestSubmitSpillsToSecondConnection(t *testing.T) {
	_, url := newFakePubSubServer(t)
	p, _, _ := testPoolAt(t, url)
	t.Cleanup(p.Stop)

	ctx := context.Background()
	for i := 0; i < constants.MaxTopicsPerConn+1; i++ {
		topic := model.NewChannelTopic(model.TopicVideoPlayback, fmt.Sprintf("%d", i))
		require.NoError(t, p.Submit(ctx, topic))
	}

	assert.Equal(t, 2, p.ConnectionCount())
	assert.Equal(t, constants.MaxTopicsPerConn+1, p.TotalTopicCount())

	p.mu.Lock()
	for _, conn := range p.conns {
		assert.LessOrEqual(t, conn.TopicCount(), constants.MaxTopicsPerConn)
	}
	p.mu.Unlock()
}

func TestReconnectResubmitsTopics(t *testing.T) {
	srv, url := newFakePubSubServer(t)
	p, _, _ := testPoolAt(t, url)
	p.reconnectBackoff = 10 * time.Millisecond
	t.Cleanup(p.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topic := model.NewChannelTopic(model.TopicVideoPlayback, "111")
	require.NoError(t, p.Submit(ctx, topic))

	go func() { _ = p.Run(ctx) }()

	require.Eventually(t, func() bool {
		return srv.hasTopic(0, topic.String())
	}, 2*time.Second, 10*time.Millisecond)

	p.mu.Lock()
	old := p.conns[0]
	p.mu.Unlock()

	srv.sendReconnect(0)

	// The replacement dials within the backoff window and carries the
	// dead connection's topics over.
	require.Eventually(t, func() bool {
		return srv.connCount() == 2 && srv.hasTopic(1, topic.String())
	}, 2*time.Second, 10*time.Millisecond)

	// The dead connection is released once the replacement is live.
	require.Eventually(t, func() bool {
		return old.ClosedIntentionally()
	}, time.Second, 10*time.Millisecond)
}
