// Package constants defines the Twitch API endpoints, client identifiers,
// persisted GQL operation hashes, PubSub protocol limits, and default
// timing values used throughout the watcher.
package constants

import "time"

const (
	// TwitchURL is the base Twitch web URL.
	TwitchURL = "https://www.twitch.tv"
	// PubSubURL is the Twitch PubSub WebSocket endpoint.
	PubSubURL = "wss://pubsub-edge.twitch.tv/v1"
	// GQLURL is the Twitch GraphQL API endpoint.
	GQLURL = "https://gql.twitch.tv/gql"
)

const (
	// ClientID is the Twitch client ID presented on GQL requests.
	ClientID = "kimne78kx3ncx6brgo4mv6wki5h1ko"
	// ClientVersion is the Twitch web client version string.
	ClientVersion = "ef928475-9403-42f2-8a34-55784bd08e16"
)

// DefaultUserAgent is the user-agent string used for API requests.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	// MaxTopicsPerConn is the hard Twitch limit on LISTENed topics per
	// PubSub WebSocket connection.
	MaxTopicsPerConn = 50
	// MaxPubSubConns bounds how many PubSub connections the pool may open.
	MaxPubSubConns = 10
	// MaxWatchChannels is how many online channels receive progress events
	// per polling cycle. Tunable: two channels at 30 s spacing still yield
	// one minute-watched signal per channel per minute.
	MaxWatchChannels = 2
	// NonceLength is the length of LISTEN correlation nonces.
	NonceLength = 15
)

const (
	// PubSubPingInterval is the interval between client PINGs. Twitch
	// drops connections that stay silent for 5 minutes.
	PubSubPingInterval = 4 * time.Minute
	// PubSubListenDeadline is how long after connecting the first LISTEN
	// must be sent. Twitch closes connections that never listen.
	PubSubListenDeadline = 15 * time.Second
	// PubSubReconnectBackoff is the wait before dialing again after a
	// RECONNECT notice or an unexpected close. Twitch announces it will
	// disconnect within 30 s of a RECONNECT, so this matches that window.
	PubSubReconnectBackoff = 30 * time.Second
	// WatchInterval is the accounting window for minute-watched events.
	WatchInterval = 60 * time.Second
	// OfflineDebounce is the minimum gap between a channel going offline
	// and the next online re-check. The Twitch API keeps reporting a
	// channel live for a short while after the broadcast ends.
	OfflineDebounce = 60 * time.Second
	// DefaultHTTPTimeout is the timeout for one-shot HTTP requests.
	DefaultHTTPTimeout = 15 * time.Second
	// DefaultMaxRetries is the retry count for GQL requests.
	DefaultMaxRetries = 3
	// StartupWorkers bounds concurrency for per-channel startup work.
	StartupWorkers = 5
	// IngestURLTTL is how long a cached ingest (spade) URL stays valid.
	IngestURLTTL = 6 * time.Hour
)

// GQLOperation is a persisted GQL query identified by operation name and
// SHA256 hash.
type GQLOperation struct {
	OperationName string
	SHA256Hash    string
}

var (
	GQLWithIsStreamLiveQuery = GQLOperation{
		OperationName: "WithIsStreamLiveQuery",
		SHA256Hash:    "04e46329a6786ff3a81c01c50bfa5d725902507a0deb83b0edbf7abe7a3716ea",
	}
	GQLClaimCommunityPoints = GQLOperation{
		OperationName: "ClaimCommunityPoints",
		SHA256Hash:    "46aaeebe02c99afdf4fc97c7c0cba964124bf6b0af229395f1f6d1feed05b3d0",
	}
	GQLChannelPointsContext = GQLOperation{
		OperationName: "ChannelPointsContext",
		SHA256Hash:    "1530a003a7d374b0380b79db0be0534f30ff46e61cffa2bc0e2468a909fbc024",
	}
	GQLJoinRaid = GQLOperation{
		OperationName: "JoinRaid",
		SHA256Hash:    "c6a332a86d1087fbbb1a8623aa01bd1313d2386e7c63be60fdb2d1901f01a4ae",
	}
	GQLGetIDFromLogin = GQLOperation{
		OperationName: "GetIDFromLogin",
		SHA256Hash:    "94e82a7b1e3c21e186daa73ee2afc4b8f23bade1fbbff6fe8ac133f50a2f58ca",
	}
)
