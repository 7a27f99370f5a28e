package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// SearchParams selects the search mode. Barcode wins over Album, which wins
// over Artist. Artist is not sent to the provider when Album is set.
type SearchParams struct {
	Barcode string
	Album   string
	Artist  string
}

// SearchReleases searches by barcode, by album title, or by artist.
// Artist-only searches look up the best matching artist and return its
// releases and release groups; no matching artist yields an empty result.
func (c *Client) SearchReleases(ctx context.Context, p SearchParams) (*SearchResult, error) {
	switch {
	case p.Barcode != "":
		return c.searchRelease(ctx, "barcode:"+p.Barcode)
	case p.Album != "":
		return c.searchRelease(ctx, p.Album)
	case p.Artist != "":
		return c.searchByArtist(ctx, p.Artist)
	default:
		return nil, errors.New("musicbrainz: empty search")
	}
}

func (c *Client) searchRelease(ctx context.Context, query string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)

	var result SearchResult
	if err := c.get(ctx, "/release/", params, &result); err != nil {
		return nil, fmt.Errorf("search releases %q: %w", query, err)
	}

	c.logger.Debug("musicbrainz search results",
		"query", query,
		"count", result.Count,
		"returned", len(result.Releases),
	)
	return &result, nil
}

func (c *Client) searchByArtist(ctx context.Context, name string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("query", name)

	var artists artistSearchResponse
	if err := c.get(ctx, "/artist/", params, &artists); err != nil {
		return nil, fmt.Errorf("search artists %q: %w", name, err)
	}
	if len(artists.Artists) == 0 {
		c.logger.Debug("musicbrainz: no artist found", "query", name)
		return &SearchResult{}, nil
	}

	artist, err := c.LookupArtist(ctx, artists.Artists[0].ID)
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Count:         len(artist.Releases),
		Releases:      artist.Releases,
		ReleaseGroups: artist.ReleaseGroups,
	}, nil
}

// LookupArtist fetches an artist with its releases, release groups and media.
func (c *Client) LookupArtist(ctx context.Context, mbid string) (*Artist, error) {
	if mbid == "" {
		return nil, errors.New("musicbrainz: empty artist id")
	}

	params := url.Values{}
	// Encoded as releases+release-groups+media.
	params.Set("inc", strings.Join([]string{"releases", "release-groups", "media"}, " "))

	var artist Artist
	if err := c.get(ctx, "/artist/"+url.PathEscape(mbid), params, &artist); err != nil {
		return nil, fmt.Errorf("lookup artist %s: %w", mbid, err)
	}
	return &artist, nil
}

// LookupRelease fetches one release with its artist credits.
func (c *Client) LookupRelease(ctx context.Context, mbid string) (*Release, error) {
	if mbid == "" {
		return nil, errors.New("musicbrainz: empty release id")
	}

	params := url.Values{}
	params.Set("inc", "artists")

	var release Release
	if err := c.get(ctx, "/release/"+url.PathEscape(mbid), params, &release); err != nil {
		return nil, fmt.Errorf("lookup release %s: %w", mbid, err)
	}
	return &release, nil
}

// FirstReleaseInGroup returns the id of the first release in a release group.
func (c *Client) FirstReleaseInGroup(ctx context.Context, groupID string) (string, error) {
	params := url.Values{}
	params.Set("release-group", groupID)
	params.Set("limit", "1")

	var browse releaseBrowseResponse
	if err := c.get(ctx, "/release", params, &browse); err != nil {
		return "", fmt.Errorf("browse release group %s: %w", groupID, err)
	}
	if len(browse.Releases) == 0 {
		return "", fmt.Errorf("release group %s: %w", groupID, ErrNotFound)
	}
	return browse.Releases[0].ID, nil
}
