package tracker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
)

type fakeResolver struct {
	broadcastID string
	err         error
	calls       int
}

func (f *fakeResolver) GetBroadcastID(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.broadcastID, f.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.Setup(logger.Config{Level: slog.LevelError})
	require.NoError(t, err)
	return log
}

func newTestChannel() *model.Channel {
	ch := model.NewChannel("streamer")
	ch.ChannelID = "123"
	return ch
}

func TestCheckOnlineMarksLiveChannel(t *testing.T) {
	resolver := &fakeResolver{broadcastID: "b-1"}
	trk := New(resolver, testLogger(t))
	ch := newTestChannel()

	require.NoError(t, trk.CheckOnline(context.Background(), ch))

	assert.True(t, ch.IsOnline)
	assert.Equal(t, "b-1", ch.BroadcastID)
	assert.Equal(t, 1, resolver.calls)
}

func TestCheckOnlineOfflineChannel(t *testing.T) {
	resolver := &fakeResolver{broadcastID: ""}
	trk := New(resolver, testLogger(t))
	ch := newTestChannel()

	err := trk.CheckOnline(context.Background(), ch)
	assert.ErrorIs(t, err, ErrOffline)
	assert.True(t, IsOffline(err))

	assert.False(t, ch.IsOnline)
	assert.False(t, ch.OfflineAt.IsZero())
}

func TestCheckOnlineDebounceSkipsResolver(t *testing.T) {
	resolver := &fakeResolver{broadcastID: "b-1"}
	trk := New(resolver, testLogger(t))

	ch := newTestChannel()
	ch.OfflineAt = time.Now().Add(-time.Second)

	require.NoError(t, trk.CheckOnline(context.Background(), ch))
	assert.Zero(t, resolver.calls)
	assert.False(t, ch.IsOnline)
}

func TestCheckOnlineAlreadyOnlineSkipsResolver(t *testing.T) {
	resolver := &fakeResolver{broadcastID: "b-2"}
	trk := New(resolver, testLogger(t))

	ch := newTestChannel()
	ch.IsOnline = true
	ch.BroadcastID = "b-1"

	require.NoError(t, trk.CheckOnline(context.Background(), ch))
	assert.Zero(t, resolver.calls)
	assert.Equal(t, "b-1", ch.BroadcastID)
}

func TestCheckOnlineResolverErrorLeavesStatus(t *testing.T) {
	boom := errors.New("api down")
	resolver := &fakeResolver{err: boom}
	trk := New(resolver, testLogger(t))
	ch := newTestChannel()

	err := trk.CheckOnline(context.Background(), ch)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsOffline(err))
	assert.False(t, ch.IsOnline)
	assert.True(t, ch.OfflineAt.IsZero())
}

func TestSetOffline(t *testing.T) {
	trk := New(&fakeResolver{}, testLogger(t))

	ch := newTestChannel()
	ch.IsOnline = true
	ch.Watching = true
	ch.BroadcastID = "b-1"

	trk.SetOffline(ch)

	assert.False(t, ch.IsOnline)
	assert.False(t, ch.Watching)
	assert.Empty(t, ch.BroadcastID)
	assert.False(t, ch.OfflineAt.IsZero())
}

func TestResetDoesNotStampOfflineAt(t *testing.T) {
	trk := New(&fakeResolver{}, testLogger(t))

	ch := newTestChannel()
	ch.IsOnline = true
	ch.Watching = true
	ch.BroadcastID = "b-1"

	trk.Reset([]*model.Channel{ch})

	assert.False(t, ch.IsOnline)
	assert.False(t, ch.Watching)
	assert.Empty(t, ch.BroadcastID)
	assert.True(t, ch.OfflineAt.IsZero())
}
