// Package spotify provides a client for the Spotify Web API using the
// two-legged client-credentials flow.
package spotify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	// DefaultTokenURL is the Spotify accounts token endpoint.
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	// DefaultBaseURL is the Spotify Web API base.
	DefaultBaseURL = "https://api.spotify.com/v1"

	defaultTimeout        = 20 * time.Second
	defaultRequestsPerSec = 10

	// artistBatchLimit is the provider's per-request cap on the batch
	// artist endpoint.
	artistBatchLimit = 50

	// trackPageSize is the page size used when walking an album's tracks.
	trackPageSize = 50

	// tokenLifetimeFraction controls proactive refresh: a cached token is
	// replaced once 90% of its reported lifetime has elapsed, so requests
	// never race an expiry boundary.
	tokenLifetimeFraction = 0.9

	fallbackTokenLifetime = time.Hour
)

// APIError is a non-2xx response from the provider. Provider errors are
// never retried here; callers decide what to do with them.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify: %s returned status %d", e.URL, e.StatusCode)
}

// Config holds client construction parameters. Zero values fall back to
// the Spotify production endpoints and default limits.
type Config struct {
	ClientID       string
	ClientSecret   string
	TokenURL       string
	BaseURL        string
	DefaultMarket  string
	Timeout        time.Duration
	RequestsPerSec float64
}

// Client is a Spotify Web API client. It caches the bearer credential and
// refreshes it proactively; data requests are single-attempt with a fixed
// timeout. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	market     string
	limiter    *rate.Limiter
	creds      *clientcredentials.Config

	mu          sync.Mutex
	accessToken string
	refreshAt   time.Time
	now         func() time.Time
}

// New creates a Spotify client from the given configuration.
func New(cfg Config) *Client {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RequestsPerSec
	if rps == 0 {
		rps = defaultRequestsPerSec
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		market:     cfg.DefaultMarket,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		creds: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		},
		now: time.Now,
	}
}

// token returns a valid bearer token, exchanging client credentials when
// the cached one has passed 90% of its lifetime. A failed exchange is a
// hard error and is not retried.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.accessToken != "" && now.Before(c.refreshAt) {
		return c.accessToken, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.creds.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("exchanging client credentials: %w", err)
	}

	lifetime := tok.Expiry.Sub(now)
	if lifetime <= 0 {
		lifetime = fallbackTokenLifetime
	}

	c.accessToken = tok.AccessToken
	c.refreshAt = now.Add(time.Duration(float64(lifetime) * tokenLifetimeFraction))
	return c.accessToken, nil
}

// get issues an authenticated GET and decodes the JSON response into dst.
// rawURL may already carry a query string (provider "next" pointers do);
// params, when non-nil, replace it.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	if len(params) > 0 {
		rawURL = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, URL: rawURL, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}
	return nil
}

// marketOr returns the explicit market when given, else the configured
// default (possibly empty).
func (c *Client) marketOr(market string) string {
	if market != "" {
		return market
	}
	return c.market
}
