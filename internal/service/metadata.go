package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jthaw/cdrack/internal/catalog"
	"github.com/jthaw/cdrack/internal/coverart"
	domainerrors "github.com/jthaw/cdrack/internal/errors"
	"github.com/jthaw/cdrack/internal/media/palette"
	"github.com/jthaw/cdrack/internal/musicbrainz"
	"github.com/jthaw/cdrack/internal/search"
)

// ReleaseProvider is the release metadata source.
type ReleaseProvider interface {
	SearchReleases(ctx context.Context, p musicbrainz.SearchParams) (*musicbrainz.SearchResult, error)
	LookupRelease(ctx context.Context, mbid string) (*musicbrainz.Release, error)
	FirstReleaseInGroup(ctx context.Context, groupID string) (string, error)
}

// ArtworkProvider is the cover art source.
type ArtworkProvider interface {
	Release(ctx context.Context, mbid string) (*coverart.Artwork, error)
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// Thumbnail sizes tried for palette extraction, smallest first.
var paletteThumbnails = []string{"small", "250"}

// MetadataService fetches releases and enriches them with artwork and color.
// Artwork and color are best effort: their failures never fail a lookup.
type MetadataService struct {
	releases    ReleaseProvider
	artwork     ArtworkProvider
	callTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewMetadataService creates a new metadata service.
func NewMetadataService(
	releases ReleaseProvider,
	artwork ArtworkProvider,
	callTimeout time.Duration,
	logger *slog.Logger,
) *MetadataService {
	return &MetadataService{
		releases:    releases,
		artwork:     artwork,
		callTimeout: callTimeout,
		now:         time.Now,
		logger:      logger,
	}
}

// call bounds a single provider call by the configured timeout.
func (s *MetadataService) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

// GetRelease fetches a release by MBID with artwork, color and blurhash.
func (s *MetadataService) GetRelease(ctx context.Context, mbid string) (*catalog.Release, error) {
	lookupCtx, cancel := s.call(ctx)
	raw, err := s.releases.LookupRelease(lookupCtx, mbid)
	cancel()
	if err != nil {
		if errors.Is(err, musicbrainz.ErrNotFound) {
			return nil, domainerrors.NotFoundf("release %s not found", mbid).WithCause(err)
		}
		return nil, domainerrors.Upstream(err, "release lookup failed")
	}

	release := toCatalogRelease(raw)
	s.enrich(ctx, release)
	return release, nil
}

// enrich attaches artwork, color and blurhash to release, logging and
// skipping whatever cannot be fetched.
func (s *MetadataService) enrich(ctx context.Context, release *catalog.Release) {
	artCtx, cancel := s.call(ctx)
	art, err := s.artwork.Release(artCtx, release.ID)
	cancel()
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, coverart.ErrNotFound) {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "artwork unavailable",
			"mbid", release.ID,
			"error", err,
		)
		return
	}

	release.Images = toCoverImages(art.Images)
	front := art.Front()
	if front == nil {
		return
	}

	src := front.Image
	for _, size := range paletteThumbnails {
		if thumb := front.Thumbnails[size]; thumb != "" {
			src = thumb
			break
		}
	}
	if src == "" {
		return
	}

	imgCtx, cancel := s.call(ctx)
	data, err := s.artwork.FetchImage(imgCtx, src)
	cancel()
	if err != nil {
		s.logger.Warn("artwork download failed",
			"mbid", release.ID,
			"url", src,
			"error", err,
		)
		return
	}

	img, err := palette.Decode(data)
	if err != nil {
		s.logger.Warn("artwork decode failed", "mbid", release.ID, "error", err)
		return
	}

	if p, err := palette.FromImage(img); err != nil {
		s.logger.Warn("palette extraction failed", "mbid", release.ID, "error", err)
	} else if !p.Empty() {
		release.Color = toCatalogPalette(p)
	}

	if hash, err := palette.BlurHashFromImage(img); err != nil {
		s.logger.Debug("blurhash failed", "mbid", release.ID, "error", err)
	} else {
		release.BlurHash = hash
	}
}

// SearchReleases runs a provider search and returns candidates in provider
// order. Release groups are used only when the provider returned no releases.
func (s *MetadataService) SearchReleases(ctx context.Context, q search.Query) ([]search.Candidate, error) {
	s.logger.Debug("searching MusicBrainz",
		"barcode", q.Barcode,
		"album", q.Album,
		"artist", q.Artist,
	)

	callCtx, cancel := s.call(ctx)
	defer cancel()

	result, err := s.releases.SearchReleases(callCtx, musicbrainz.SearchParams{
		Barcode: q.Barcode,
		Album:   q.Album,
		Artist:  q.Artist,
	})
	if err != nil {
		return nil, domainerrors.Upstream(err, "release search failed")
	}
	if result.Empty() {
		return nil, nil
	}

	if len(result.Releases) > 0 {
		out := make([]search.Candidate, 0, len(result.Releases))
		for _, r := range result.Releases {
			out = append(out, search.Candidate{ID: r.ID, Title: r.Title, Artists: creditNames(r.ArtistCredit)})
		}
		return out, nil
	}

	out := make([]search.Candidate, 0, len(result.ReleaseGroups))
	for _, g := range result.ReleaseGroups {
		out = append(out, search.Candidate{ID: g.ID, Title: g.Title, Artists: creditNames(g.ArtistCredit), Group: true})
	}
	return out, nil
}

// FetchAlbum resolves a candidate to a release and normalizes it.
func (s *MetadataService) FetchAlbum(ctx context.Context, c search.Candidate) (*catalog.Album, error) {
	mbid := c.ID
	if c.Group {
		callCtx, cancel := s.call(ctx)
		id, err := s.releases.FirstReleaseInGroup(callCtx, c.ID)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("resolve release group: %w", err)
		}
		mbid = id
	}

	release, err := s.GetRelease(ctx, mbid)
	if err != nil {
		return nil, err
	}
	return catalog.PrepareAlbum(release, catalog.Extras{}, s.now())
}

// creditNames lists both the credited and canonical names so a fuzzy
// artist match sees either spelling.
func creditNames(credits []musicbrainz.ArtistCredit) []string {
	names := make([]string, 0, len(credits)*2)
	for _, c := range credits {
		if c.Name != "" {
			names = append(names, c.Name)
		}
		if c.Artist.Name != "" && c.Artist.Name != c.Name {
			names = append(names, c.Artist.Name)
		}
	}
	return names
}

func toCatalogRelease(r *musicbrainz.Release) *catalog.Release {
	out := &catalog.Release{
		ID:      r.ID,
		Title:   r.Title,
		Barcode: r.Barcode,
		Date:    r.Date,
		Status:  r.Status,
	}
	for _, c := range r.ArtistCredit {
		name := c.Artist.Name
		if name == "" {
			name = c.Name
		}
		out.ArtistCredit = append(out.ArtistCredit, catalog.ArtistCredit{
			Name:     c.Name,
			ArtistID: c.Artist.ID,
			Artist:   name,
		})
	}
	for _, m := range r.Media {
		if m.Format != "" {
			out.Formats = append(out.Formats, m.Format)
		}
	}
	return out
}

func toCoverImages(images []coverart.Image) []catalog.CoverImage {
	out := make([]catalog.CoverImage, 0, len(images))
	for _, img := range images {
		out = append(out, catalog.CoverImage{
			ID:         string(img.ID),
			Front:      img.Front,
			Image:      img.Image,
			Thumbnails: img.Thumbnails,
		})
	}
	return out
}

func toCatalogPalette(p *palette.Palette) *catalog.Palette {
	return &catalog.Palette{
		Vibrant:    p.Vibrant,
		Dark:       p.DarkVibrant,
		Light:      p.LightVibrant,
		Muted:      p.Muted,
		DarkMuted:  p.DarkMuted,
		LightMuted: p.LightMuted,
	}
}
