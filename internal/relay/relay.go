// Package relay sends minute-watched progress events to the trusted relay,
// which forwards them to the platform's ingest endpoint. The per-channel
// ingest URL is scraped from the channel page and cached with a TTL.
package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/auth"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/model"
)

var (
	settingsURLRegex = regexp.MustCompile(`(https://static\.twitchcdn\.net/config/settings.*?js|https://assets\.twitch\.tv/config/settings.*?\.js)`)
	ingestURLRegex   = regexp.MustCompile(`"spade_url":"(.*?)"`)
)

// Sender posts minute-watched events to the relay endpoint.
type Sender struct {
	endpoint   string
	httpClient *http.Client
	auth       auth.Provider
	log        *logger.Logger

	ingestURLs *ttlcache.Cache[string, string]
}

// relayBody is the JSON body the relay expects: the ingest URL to forward
// to and the base64-encoded event payload.
type relayBody struct {
	URL     string       `json:"url"`
	Payload relayPayload `json:"payload"`
}

type relayPayload struct {
	Data string `json:"data"`
}

// minuteWatchedEvent is one entry of the JSON array that gets base64
// encoded into the relay payload.
type minuteWatchedEvent struct {
	Event      string          `json:"event"`
	Properties eventProperties `json:"properties"`
}

type eventProperties struct {
	ChannelID   string `json:"channel_id"`
	BroadcastID string `json:"broadcast_id"`
	Player      string `json:"player"`
	UserID      int64  `json:"user_id"`
}

// NewSender creates a Sender that shares the given HTTP client's
// connection pool.
func NewSender(endpoint string, httpClient *http.Client, authProvider auth.Provider, log *logger.Logger) *Sender {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](constants.IngestURLTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go cache.Start()

	return &Sender{
		endpoint:   endpoint,
		httpClient: httpClient,
		auth:       authProvider,
		log:        log,
		ingestURLs: cache,
	}
}

// Close stops the ingest URL cache janitor.
func (s *Sender) Close() {
	s.ingestURLs.Stop()
}

// SendMinuteWatched posts one minute-watched event for the channel. On
// success the channel's minutes-watched counter is incremented.
func (s *Sender) SendMinuteWatched(ctx context.Context, ch *model.Channel) error {
	ch.Mu.RLock()
	login := ch.Login
	channelID := ch.ChannelID
	broadcastID := ch.BroadcastID
	ch.Mu.RUnlock()

	if broadcastID == "" {
		return fmt.Errorf("no broadcast id for %s", login)
	}

	ingestURL, err := s.resolveIngestURL(ctx, login)
	if err != nil {
		return fmt.Errorf("resolving ingest URL for %s: %w", login, err)
	}

	userID, err := strconv.ParseInt(s.auth.UserID(), 10, 64)
	if err != nil {
		return fmt.Errorf("parsing user id %q: %w", s.auth.UserID(), err)
	}

	events := []minuteWatchedEvent{{
		Event: "minute-watched",
		Properties: eventProperties{
			ChannelID:   channelID,
			BroadcastID: broadcastID,
			Player:      "site",
			UserID:      userID,
		},
	}}

	eventJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshaling minute-watched payload: %w", err)
	}

	body, err := json.Marshal(relayBody{
		URL:     ingestURL,
		Payload: relayPayload{Data: base64.StdEncoding.EncodeToString(eventJSON)},
	})
	if err != nil {
		return fmt.Errorf("marshaling relay body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", constants.DefaultUserAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending minute-watched for %s: %w", login, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("relay returned status %d for %s", resp.StatusCode, login)
	}

	ch.Mu.Lock()
	ch.MinutesWatched++
	ch.Mu.Unlock()

	s.log.Debug("Sent minute-watched event", "channel", login, "status", resp.StatusCode)
	return nil
}

// resolveIngestURL finds the ingest (spade) URL for a channel by scraping
// its page for the settings script, then extracting the URL from it.
// Results are cached; the URL rarely changes during a broadcast.
func (s *Sender) resolveIngestURL(ctx context.Context, login string) (string, error) {
	if item := s.ingestURLs.Get(login); item != nil {
		return item.Value(), nil
	}

	pageURL := fmt.Sprintf("%s/%s", constants.TwitchURL, login)
	pageBody, err := s.fetch(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("fetching channel page: %w", err)
	}

	settingsMatch := settingsURLRegex.FindString(string(pageBody))
	if settingsMatch == "" {
		return "", fmt.Errorf("no settings script found on channel page")
	}

	settingsBody, err := s.fetch(ctx, settingsMatch)
	if err != nil {
		return "", fmt.Errorf("fetching settings script: %w", err)
	}

	matches := ingestURLRegex.FindStringSubmatch(string(settingsBody))
	if len(matches) < 2 {
		return "", fmt.Errorf("no ingest URL in settings script")
	}

	s.ingestURLs.Set(login, matches[1], ttlcache.DefaultTTL)
	return matches[1], nil
}

func (s *Sender) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", constants.DefaultUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
