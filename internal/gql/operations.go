package gql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
)

// PointsContext holds the parsed response from the ChannelPointsContext
// query: the current balance and any claim waiting to be taken.
type PointsContext struct {
	Balance          int
	AvailableClaimID string
}

// GetUserID fetches the Twitch user ID for a login name.
func (c *Client) GetUserID(ctx context.Context, login string) (string, error) {
	vars := map[string]any{"login": login}
	data, err := c.PostGQL(ctx, constants.GQLGetIDFromLogin, vars)
	if err != nil {
		return "", fmt.Errorf("GetUserID for %s: %w", login, err)
	}

	var resp struct {
		User *struct {
			ID string `json:"id"`
		} `json:"user"`
	}

	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parsing GetUserID response: %w", err)
	}

	if resp.User == nil || resp.User.ID == "" {
		return "", fmt.Errorf("user %s not found", login)
	}

	return resp.User.ID, nil
}

// GetBroadcastID fetches the live broadcast ID for a channel.
// Returns empty string if the channel is not live.
func (c *Client) GetBroadcastID(ctx context.Context, channelID string) (string, error) {
	vars := map[string]any{"id": channelID}
	data, err := c.PostGQL(ctx, constants.GQLWithIsStreamLiveQuery, vars)
	if err != nil {
		return "", fmt.Errorf("GetBroadcastID: %w", err)
	}

	var resp struct {
		User *struct {
			Stream *struct {
				ID string `json:"id"`
			} `json:"stream"`
		} `json:"user"`
	}

	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parsing GetBroadcastID response: %w", err)
	}

	if resp.User == nil || resp.User.Stream == nil {
		return "", nil
	}

	return resp.User.Stream.ID, nil
}

// GetPointsContext fetches the channel points balance and any available
// claim for a channel.
func (c *Client) GetPointsContext(ctx context.Context, channelLogin string) (*PointsContext, error) {
	vars := map[string]any{"channelLogin": channelLogin}
	data, err := c.PostGQL(ctx, constants.GQLChannelPointsContext, vars)
	if err != nil {
		return nil, fmt.Errorf("ChannelPointsContext for %s: %w", channelLogin, err)
	}

	var resp struct {
		Community *struct {
			Channel struct {
				Self struct {
					CommunityPoints struct {
						Balance        int `json:"balance"`
						AvailableClaim *struct {
							ID string `json:"id"`
						} `json:"availableClaim"`
					} `json:"communityPoints"`
				} `json:"self"`
			} `json:"channel"`
		} `json:"community"`
	}

	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing ChannelPointsContext response: %w", err)
	}

	if resp.Community == nil {
		return nil, fmt.Errorf("channel %s not found (community is null)", channelLogin)
	}

	result := &PointsContext{
		Balance: resp.Community.Channel.Self.CommunityPoints.Balance,
	}
	if claim := resp.Community.Channel.Self.CommunityPoints.AvailableClaim; claim != nil {
		result.AvailableClaimID = claim.ID
	}
	return result, nil
}

// ClaimCommunityPoints claims a channel points bonus. Duplicate claims for
// the same id no-op server-side.
func (c *Client) ClaimCommunityPoints(ctx context.Context, claimID, channelID string) error {
	vars := map[string]any{
		"input": map[string]any{
			"channelID": channelID,
			"claimID":   claimID,
		},
	}
	if _, err := c.PostGQL(ctx, constants.GQLClaimCommunityPoints, vars); err != nil {
		return fmt.Errorf("ClaimCommunityPoints: %w", err)
	}
	return nil
}

// JoinRaid joins a raid by its ID.
func (c *Client) JoinRaid(ctx context.Context, raidID string) error {
	vars := map[string]any{
		"input": map[string]any{"raidID": raidID},
	}
	if _, err := c.PostGQL(ctx, constants.GQLJoinRaid, vars); err != nil {
		return fmt.Errorf("JoinRaid: %w", err)
	}
	return nil
}
