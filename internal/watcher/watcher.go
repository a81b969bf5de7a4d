// Package watcher implements the watch loop: it keeps the PubSub pool
// listening for points and playback events, round-robins progress events
// across the currently-online channels, and claims bonuses as they appear.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/auth"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/config"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/gql"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/pubsub"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/raid"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/registry"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/relay"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/sleeper"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/storage"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/tracker"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/workerpool"
)

// Deps collects the collaborators a Watcher needs. All fields are required
// except Store, which defaults to in-memory history, and PubSubURL, which
// defaults to the production PubSub endpoint.
type Deps struct {
	Config   *config.Config
	Log      *logger.Logger
	Auth     auth.Provider
	GQL      gql.Operations
	Relay    *relay.Sender
	Registry *registry.Registry
	Tracker  *tracker.Tracker
	Sleeper  *sleeper.Sleeper
	Store    storage.Storage

	PubSubURL string
}

// Watcher owns the watch loop lifecycle. It implements pubsub.EventHandler
// so the pool routes events directly to it.
type Watcher struct {
	cfg   *config.Config
	log   *logger.Logger
	auth  auth.Provider
	gql   gql.Operations
	relay *relay.Sender
	reg   *registry.Registry
	trk   *tracker.Tracker
	sleep *sleeper.Sleeper
	store storage.Storage
	raids *raid.Registry

	pubsubURL string

	state atomic.Int32

	channels   []*model.Channel
	channelsMu sync.RWMutex

	// Per-run fields, replaced on every Start.
	mu        sync.Mutex
	pool      *pubsub.Pool
	runCtx    context.Context
	runCancel context.CancelFunc
	runDone   chan struct{}

	heldRaids   map[string]struct{}
	heldRaidsMu sync.Mutex
}

// New creates a Watcher in the Init state with one Channel per configured
// entry.
func New(deps Deps) *Watcher {
	store := deps.Store
	if store == nil {
		store = storage.NewMemory()
	}
	url := deps.PubSubURL
	if url == "" {
		url = constants.PubSubURL
	}

	w := &Watcher{
		cfg:       deps.Config,
		log:       deps.Log,
		auth:      deps.Auth,
		gql:       deps.GQL,
		relay:     deps.Relay,
		reg:       deps.Registry,
		trk:       deps.Tracker,
		sleep:     deps.Sleeper,
		store:     store,
		raids:     raid.NewRegistry(),
		pubsubURL: url,
		heldRaids: make(map[string]struct{}),
	}
	w.state.Store(int32(model.StateInit))

	for _, cc := range deps.Config.Channels {
		ch := model.NewChannel(cc.Login)
		ch.DisplayName = cc.DisplayName
		w.channels = append(w.channels, ch)
	}

	return w
}

// State returns the current run state.
func (w *Watcher) State() model.RunState {
	return model.RunState(w.state.Load())
}

// Channels returns a snapshot of the tracked channels.
func (w *Watcher) Channels() []*model.Channel {
	w.channelsMu.RLock()
	defer w.channelsMu.RUnlock()
	out := make([]*model.Channel, len(w.channels))
	copy(out, w.channels)
	return out
}

// Start boots the watcher: it resolves channel identities, submits PubSub
// topics, runs the initial status and claim-context sweep to completion,
// and only then goes Running and launches the polling cycle. Legal only
// from Init or Stopped.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.transition(model.StateInit, model.StateBooting) &&
		!w.transition(model.StateStopped, model.StateBooting) {
		return fmt.Errorf("cannot start watcher from state %s", w.State())
	}

	w.log.Info("Starting watcher", "channels", len(w.Channels()))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	pool := pubsub.NewPool(w.pubsubURL, w.auth, w.reg, w.log, w)

	w.mu.Lock()
	w.pool = pool
	w.runCtx = runCtx
	w.runCancel = cancel
	w.runDone = make(chan struct{})
	w.mu.Unlock()

	if err := w.resolveChannelIDs(ctx); err != nil {
		cancel()
		w.state.Store(int32(model.StateStopped))
		return fmt.Errorf("resolving channel ids: %w", err)
	}

	if err := w.submitTopics(ctx, pool); err != nil {
		cancel()
		pool.Stop()
		w.state.Store(int32(model.StateStopped))
		return fmt.Errorf("submitting topics: %w", err)
	}

	w.loadHistory()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return pool.Run(gctx)
	})

	// The initial sweep finishes before the watcher goes Running: the
	// first polling tick must already see which channels are online, or
	// it sleeps out a whole interval watching nobody. The sweep itself
	// fans out across channels, so booting dozens of them stays quick.
	w.initialSweep(ctx)

	// The polling loop only runs in StateRunning, so the transition must
	// happen before the loop goroutine starts.
	w.state.Store(int32(model.StateRunning))

	g.Go(func() error {
		w.runLoop(gctx)
		return nil
	})

	go func() {
		defer close(w.runDone)
		if err := g.Wait(); err != nil && runCtx.Err() == nil {
			w.log.Error("Watcher run group failed", "error", err)
		}
	}()

	w.log.Info("Watcher running",
		"channels", len(w.Channels()),
		"pubsub_topics", pool.TotalTopicCount())
	return nil
}

// Stop tears the watcher down: cancels every pending sleep at once, stops
// the PubSub pool, resets tracked status, and returns once the run
// goroutines have exited. Legal only from Running.
func (w *Watcher) Stop() error {
	if !w.transition(model.StateRunning, model.StateStopping) {
		return fmt.Errorf("cannot stop watcher from state %s", w.State())
	}

	w.log.Info("Stopping watcher")

	w.mu.Lock()
	cancel := w.runCancel
	pool := w.pool
	done := w.runDone
	w.mu.Unlock()

	w.sleep.CancelAll()
	cancel()
	pool.Stop()
	<-done

	w.releaseRaids()
	w.trk.Reset(w.Channels())

	w.state.Store(int32(model.StateStopped))
	w.log.Info("Watcher stopped")
	return nil
}

func (w *Watcher) transition(from, to model.RunState) bool {
	return w.state.CompareAndSwap(int32(from), int32(to))
}

// resolveChannelIDs fills in the numeric id for every channel and primes
// the identity registry used by topic addressing and event dispatch.
func (w *Watcher) resolveChannelIDs(ctx context.Context) error {
	return workerpool.Run(ctx, w.Channels(), constants.StartupWorkers,
		func(ctx context.Context, ch *model.Channel) error {
			ch.Mu.RLock()
			login := ch.Login
			known := ch.ChannelID
			ch.Mu.RUnlock()

			if known != "" {
				w.reg.Put(login, known)
				return nil
			}

			id, err := w.gql.GetUserID(ctx, login)
			if err != nil {
				return fmt.Errorf("resolving id for %s: %w", login, err)
			}

			ch.Mu.Lock()
			ch.ChannelID = id
			ch.Mu.Unlock()
			w.reg.Put(login, id)
			return nil
		})
}

// submitTopics registers the self topic plus one playback topic (and,
// when raid following is on, one raid topic) per channel.
func (w *Watcher) submitTopics(ctx context.Context, pool *pubsub.Pool) error {
	if err := pool.Submit(ctx, model.NewUserTopic(model.TopicCommunityPoints, w.auth.UserID())); err != nil {
		return err
	}

	for _, ch := range w.Channels() {
		ch.Mu.RLock()
		channelID := ch.ChannelID
		ch.Mu.RUnlock()

		if err := pool.Submit(ctx, model.NewChannelTopic(model.TopicVideoPlayback, channelID)); err != nil {
			return err
		}
		if w.cfg.Watcher.JoinRaids {
			if err := pool.Submit(ctx, model.NewChannelTopic(model.TopicRaid, channelID)); err != nil {
				return err
			}
		}
	}
	return nil
}

// initialSweep checks online status and loads the claim context for every
// channel, concurrently. A failure for one channel never blocks another.
func (w *Watcher) initialSweep(ctx context.Context) {
	channels := w.Channels()

	_ = workerpool.Run(ctx, channels, constants.StartupWorkers,
		func(ctx context.Context, ch *model.Channel) error {
			w.checkChannel(ctx, ch)
			return nil
		})

	w.loadInitialContext(ctx)
}

// checkChannel runs a debounced online re-check and logs the transition
// when the channel comes online.
func (w *Watcher) checkChannel(ctx context.Context, ch *model.Channel) {
	ch.Mu.RLock()
	wasOnline := ch.IsOnline
	login := ch.Login
	ch.Mu.RUnlock()

	err := w.trk.CheckOnline(ctx, ch)
	if err != nil {
		if tracker.IsOffline(err) {
			return
		}
		w.log.Debug("Online check failed", "channel", login, "error", err)
		return
	}

	ch.Mu.RLock()
	isOnline := ch.IsOnline
	ch.Mu.RUnlock()

	if !wasOnline && isOnline {
		w.log.Event(model.EventChannelOnline, "Channel online", "channel", login)
	}
}

func (w *Watcher) channelByID(channelID string) *model.Channel {
	w.channelsMu.RLock()
	defer w.channelsMu.RUnlock()
	for _, ch := range w.channels {
		ch.Mu.RLock()
		id := ch.ChannelID
		ch.Mu.RUnlock()
		if id == channelID {
			return ch
		}
	}
	return nil
}

func (w *Watcher) releaseRaids() {
	w.heldRaidsMu.Lock()
	defer w.heldRaidsMu.Unlock()
	for id := range w.heldRaids {
		w.raids.Release(id)
		delete(w.heldRaids, id)
	}
}
