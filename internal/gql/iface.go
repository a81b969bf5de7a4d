package gql

import (
	"context"
	"net/http"
)

// Operations is the interface for the GQL methods the watcher uses.
// *Client satisfies this interface.
type Operations interface {
	HTTPClient() *http.Client

	GetUserID(ctx context.Context, login string) (string, error)
	GetBroadcastID(ctx context.Context, channelID string) (string, error)
	GetPointsContext(ctx context.Context, channelLogin string) (*PointsContext, error)
	ClaimCommunityPoints(ctx context.Context, claimID, channelID string) error
	JoinRaid(ctx context.Context, raidID string) error
}
