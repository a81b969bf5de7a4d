// Package pubsub implements the Twitch PubSub WebSocket protocol: a pool
// of connections each capped at 50 listened topics, ping/pong keepalive,
// reconnection with a fixed backoff window, duplicate suppression across
// overlapping connections, and typed event dispatch.
package pubsub

import "encoding/json"

// Protocol frame types exchanged with the PubSub server.
const (
	// TypePing is sent by the client to keep the connection alive.
	TypePing = "PING"
	// TypePong is the server's response to a PING.
	TypePong = "PONG"
	// TypeListen subscribes to one or more topics.
	TypeListen = "LISTEN"
	// TypeUnlisten unsubscribes from one or more topics.
	TypeUnlisten = "UNLISTEN"
	// TypeMessage is a server-pushed message for a subscribed topic.
	TypeMessage = "MESSAGE"
	// TypeResponse is the server's acknowledgement of a LISTEN/UNLISTEN.
	TypeResponse = "RESPONSE"
	// TypeReconnect is sent by the server before it drops the connection;
	// the client has 30 seconds to re-establish.
	TypeReconnect = "RECONNECT"
)

// Request is a frame sent from the client to the PubSub server.
type Request struct {
	Type  string       `json:"type"`
	Nonce string       `json:"nonce,omitempty"`
	Data  *RequestData `json:"data,omitempty"`
}

// RequestData carries the topics and auth token of LISTEN/UNLISTEN frames.
// The auth token is empty for topics not scoped to the user.
type RequestData struct {
	Topics    []string `json:"topics"`
	AuthToken string   `json:"auth_token"`
}

// Response is a frame received from the PubSub server.
type Response struct {
	Type  string          `json:"type"`
	Nonce string          `json:"nonce,omitempty"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MessageData is the payload within a MESSAGE frame. Message is itself a
// JSON-encoded string of shape {"type": ..., "data": ...}.
type MessageData struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
}
