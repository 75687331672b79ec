// Package apifootball is a client for the API-Football v3 REST API.
// It fetches finished-match history, upcoming fixtures and live match
// snapshots for a single tracked team.
package apifootball

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the API-Football v3 base URL.
	DefaultBaseURL = "https://v3.football.api-sports.io"

	// Free-tier allowance is well under this; keep a margin anyway.
	defaultRateLimit = 5.0 // requests per second
	defaultBurst     = 3
)

// ErrUnavailable marks any transport or provider failure. Callers treat
// it as a per-team or per-fixture skip, never as a batch abort.
var ErrUnavailable = errors.New("apifootball: data source unavailable")

// Client is an API-Football client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a new API-Football client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SeasonFixtures fetches all finished fixtures for a team in one season.
func (c *Client) SeasonFixtures(ctx context.Context, teamID, season int) ([]MatchRecord, error) {
	params := url.Values{}
	params.Set("team", strconv.Itoa(teamID))
	params.Set("season", strconv.Itoa(season))
	params.Set("status", "FT")

	var env fixturesEnvelope
	if err := c.get(ctx, "/fixtures", params, &env); err != nil {
		return nil, err
	}

	records := make([]MatchRecord, 0, len(env.Response))
	for _, raw := range env.Response {
		records = append(records, ParseMatch(raw, teamID))
	}
	return records, nil
}

// TeamHistory fetches the rolling multi-year window of finished matches
// for a team, oldest season first. A failed season is skipped so one
// provider hiccup does not lose the whole window; an entirely empty
// result is reported as unavailable.
func (c *Client) TeamHistory(ctx context.Context, teamID, years int) ([]MatchRecord, error) {
	currentYear := time.Now().Year()

	var all []MatchRecord
	var lastErr error
	for season := currentYear - years; season <= currentYear; season++ {
		records, err := c.SeasonFixtures(ctx, teamID, season)
		if err != nil {
			lastErr = err
			continue
		}
		all = append(all, records...)
	}

	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}

// UpcomingFixtures fetches not-started fixtures for a team in the next
// N days.
func (c *Client) UpcomingFixtures(ctx context.Context, teamID, days int) ([]Fixture, error) {
	now := time.Now()
	params := url.Values{}
	params.Set("team", strconv.Itoa(teamID))
	params.Set("from", now.Format("2006-01-02"))
	params.Set("to", now.AddDate(0, 0, days).Format("2006-01-02"))
	params.Set("status", "NS")

	var env fixturesEnvelope
	if err := c.get(ctx, "/fixtures", params, &env); err != nil {
		return nil, err
	}

	fixtures := make([]Fixture, 0, len(env.Response))
	for _, raw := range env.Response {
		fixtures = append(fixtures, ParseFixture(raw, teamID))
	}
	return fixtures, nil
}

// LiveFixtures fetches in-play fixtures for a team.
func (c *Client) LiveFixtures(ctx context.Context, teamID int) ([]LiveMatch, error) {
	params := url.Values{}
	params.Set("team", strconv.Itoa(teamID))
	params.Set("live", "all")

	var env fixturesEnvelope
	if err := c.get(ctx, "/fixtures", params, &env); err != nil {
		return nil, err
	}

	live := make([]LiveMatch, 0, len(env.Response))
	for _, raw := range env.Response {
		live = append(live, ParseLiveMatch(raw, teamID))
	}
	return live, nil
}

// get performs a GET request with rate limiting.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	// Build URL
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-apisports-key", c.apiKey)

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// Check status
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: api error %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	// Decode response
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	return nil
}
