// Package gql provides a typed client for the Twitch GQL API. It handles
// persisted-query request building, rate limiting, retries on transient
// failures, and unauthorized detection.
package gql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mwalkiewicz/twitch-pointwatch/internal/auth"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/constants"
	"github.com/mwalkiewicz/twitch-pointwatch/internal/logger"
)

// ErrUnauthorized is returned when the API rejects the auth token. The
// client signs the provider out before returning it; callers must not retry.
var ErrUnauthorized = errors.New("unauthorized: auth token rejected")

// Client is the Twitch GQL HTTP client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	auth       auth.Provider
	log        *logger.Logger
	maxRetries int

	// url is the GQL endpoint, overridable in tests.
	url string
}

// NewClient creates a GQL Client with a pooled HTTP transport and a rate
// limiter that keeps request bursts within what the web client produces.
func NewClient(authProvider auth.Provider, log *logger.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   constants.DefaultHTTPTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		auth:       authProvider,
		log:        log,
		maxRetries: constants.DefaultMaxRetries,
		url:        constants.GQLURL,
	}
}

// HTTPClient returns the underlying *http.Client so other packages (the
// relay sender) can share its connection pool.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

type gqlRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    *gqlExtensions `json:"extensions,omitempty"`
}

type gqlExtensions struct {
	PersistedQuery *persistedQuery `json:"persistedQuery"`
}

type persistedQuery struct {
	Version    int    `json:"version"`
	SHA256Hash string `json:"sha256Hash"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

// PostGQL sends a single persisted GQL operation and returns the "data"
// portion of the response.
func (c *Client) PostGQL(ctx context.Context, op constants.GQLOperation, variables map[string]any) (json.RawMessage, error) {
	reqBody := gqlRequest{
		OperationName: op.OperationName,
		Variables:     variables,
		Extensions: &gqlExtensions{
			PersistedQuery: &persistedQuery{
				Version:    1,
				SHA256Hash: op.SHA256Hash,
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling GQL request: %w", err)
	}

	respBody, err := c.doHTTPRequest(ctx, jsonBody, op.OperationName)
	if err != nil {
		return nil, err
	}

	var response gqlResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("parsing GQL response for %s: %w", op.OperationName, err)
	}

	if len(response.Errors) > 0 {
		c.log.Warn("GQL operation returned errors",
			"operation", op.OperationName,
			"error", response.Errors[0].Message)
	}

	return response.Data, nil
}

// doHTTPRequest performs the HTTP POST with auth headers and retries on
// transient failures (network errors, 429, 5xx). A 401 is terminal: the
// provider is signed out and ErrUnauthorized returned.
func (c *Client) doHTTPRequest(ctx context.Context, jsonBody []byte, opName string) ([]byte, error) {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			c.log.Debug("Retrying GQL request",
				"operation", opName,
				"attempt", fmt.Sprintf("%d/%d", attempt, c.maxRetries),
				"backoff", backoff)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url,
			bytes.NewReader(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("creating GQL request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		for k, v := range c.auth.GetAuthHeaders() {
			req.Header.Set(k, v)
		}
		req.Header.Set("Client-Version", constants.ClientVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				c.log.Debug("GQL request failed, will retry",
					"operation", opName, "error", err)
				continue
			}
			return nil, fmt.Errorf("GQL request for %s failed: %w", opName, err)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()

		if readErr != nil {
			if attempt < c.maxRetries {
				continue
			}
			return nil, fmt.Errorf("reading GQL response for %s: %w", opName, readErr)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			c.auth.SignOut()
			return nil, fmt.Errorf("GQL request for %s: %w", opName, ErrUnauthorized)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if attempt < c.maxRetries {
				c.log.Debug("GQL request returned retryable status, will retry",
					"operation", opName, "status", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("GQL request for %s returned status %d after %d retries",
				opName, resp.StatusCode, c.maxRetries)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GQL request for %s returned status %d: %s",
				opName, resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, fmt.Errorf("GQL request for %s exhausted retries", opName)
}
