// Package recaptcha verifies reCAPTCHA response tokens.
package recaptcha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultVerifyURL is Google's siteverify endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Verifier checks a human-verification token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

type siteVerifyResponse struct {
	Success     bool     `json:"success"`
	Hostname    string   `json:"hostname"`
	ChallengeTS string   `json:"challenge_ts"`
	ErrorCodes  []string `json:"error-codes"`
}

// Client verifies tokens against the siteverify API.
type Client struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new siteverify client.
func New(secret, verifyURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		secret:     secret,
		verifyURL:  verifyURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Verify reports whether token is a valid response for remoteIP.
// A rejected token is not an error; transport and decode failures are.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var result siteVerifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&result); err != nil {
		return false, fmt.Errorf("decode siteverify response: %w", err)
	}

	if !result.Success {
		c.logger.Info("recaptcha rejected",
			"remote_ip", remoteIP,
			"error_codes", result.ErrorCodes,
		)
		return false, nil
	}
	return true, nil
}

// AlwaysPass accepts every token. Used when verification is disabled
// outside production.
type AlwaysPass struct{}

// Verify always succeeds.
func (AlwaysPass) Verify(context.Context, string, string) (bool, error) {
	return true, nil
}
