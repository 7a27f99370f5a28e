// Package coverart fetches release artwork from the Cover Art Archive.
package coverart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

const (
	// DefaultBaseURL is the public Cover Art Archive.
	DefaultBaseURL = "https://coverartarchive.org"

	// maxImageSize limits download size to prevent memory exhaustion.
	maxImageSize = 10 * 1024 * 1024 // 10MB

	// maxIndexSize limits the JSON listing of a release's images.
	maxIndexSize = 1024 * 1024
)

var (
	// ErrNotFound is returned when a release has no artwork.
	ErrNotFound = errors.New("coverart: not found")
	// ErrTooLarge is returned when an image exceeds the download cap.
	ErrTooLarge = errors.New("coverart: image exceeds size limit")
)

// Artwork lists every image the archive holds for a release.
type Artwork struct {
	Release string  `json:"release"`
	Images  []Image `json:"images"`
}

// Image is one archived image.
type Image struct {
	ID         ImageID           `json:"id"`
	Front      bool              `json:"front"`
	Back       bool              `json:"back"`
	Approved   bool              `json:"approved"`
	Types      []string          `json:"types"`
	Image      string            `json:"image"`
	Thumbnails map[string]string `json:"thumbnails"`
}

// ImageID is the archive's image id. Older responses send it as a string,
// newer ones as a number.
type ImageID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ImageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ImageID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("coverart: invalid image id %s", data)
	}
	*id = ImageID(data)
	return nil
}

// Front returns the image flagged front, else the first image, else nil.
func (a *Artwork) Front() *Image {
	if a == nil {
		return nil
	}
	for i := range a.Images {
		if a.Images[i].Front {
			return &a.Images[i]
		}
	}
	if len(a.Images) > 0 {
		return &a.Images[0]
	}
	return nil
}

// Client provides access to the Cover Art Archive.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new Cover Art Archive client.
func New(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Release lists the artwork of a release.
// Returns ErrNotFound when the archive has none.
func (c *Client) Release(ctx context.Context, mbid string) (*Artwork, error) {
	body, err := c.download(ctx, c.baseURL+"/release/"+url.PathEscape(mbid), maxIndexSize)
	if err != nil {
		return nil, fmt.Errorf("artwork for %s: %w", mbid, err)
	}

	var artwork Artwork
	if err := json.Unmarshal(body, &artwork); err != nil {
		return nil, fmt.Errorf("parse artwork for %s: %w", mbid, err)
	}

	c.logger.Debug("cover art listed", "mbid", mbid, "images", len(artwork.Images))
	return &artwork, nil
}

// FetchImage downloads image bytes, refusing anything over 10MB.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if imageURL == "" {
		return nil, errors.New("coverart: empty image URL")
	}
	return c.download(ctx, imageURL, maxImageSize)
}

func (c *Client) download(ctx context.Context, target string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
