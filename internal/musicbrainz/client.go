// Package musicbrainz is a client for the MusicBrainz WS/2 JSON API.
package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public MusicBrainz API.
const DefaultBaseURL = "https://musicbrainz.org/ws/2"

// maxResponseSize caps provider responses. Lookups with media are a few hundred KB at most.
const maxResponseSize = 5 * 1024 * 1024

var (
	// ErrNotFound is returned when MusicBrainz answers 404.
	ErrNotFound = errors.New("musicbrainz: not found")
	// ErrUnavailable is returned for 503, which MusicBrainz uses for rate limiting and maintenance.
	ErrUnavailable = errors.New("musicbrainz: service unavailable (503), rate limit exceeded or maintenance")
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	AppName           string
	AppVersion        string
	Contact           string
	RequestsPerSecond float64
	Timeout           time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	HTTPClient  *http.Client
}

// Client provides access to the MusicBrainz API.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[[]byte]
	logger      *slog.Logger
}

// New creates a new MusicBrainz client.
// MusicBrainz allows one request per second per application.
func New(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		baseURL:     opts.BaseURL,
		userAgent:   UserAgent(opts.AppName, opts.AppVersion, opts.Contact),
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:      logger,
	}

	threshold := opts.FailureThreshold
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "musicbrainz",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return c
}

// UserAgent formats the identification string MusicBrainz asks clients to send.
func UserAgent(app, version, contact string) string {
	return fmt.Sprintf("%s/%s ( %s )", app, version, contact)
}

// get fetches path with params and decodes the JSON body into dest.
func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("fmt", "json")
	reqURL := c.baseURL + path + "?" + params.Encode()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	c.logger.Debug("musicbrainz request", "url", reqURL)

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, reqURL)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, ErrUnavailable
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("musicbrainz: unexpected status %d: %s", resp.StatusCode, snippet)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("musicbrainz: response exceeds %d bytes", maxResponseSize)
	}
	return body, nil
}

// State reports the circuit breaker state: "closed", "half-open" or "open".
func (c *Client) State() string {
	return c.breaker.State().String()
}
