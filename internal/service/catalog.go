package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jthaw/cdrack/internal/catalog"
	domainerrors "github.com/jthaw/cdrack/internal/errors"
	"github.com/jthaw/cdrack/internal/search"
	"github.com/jthaw/cdrack/internal/store"
)

// ReleaseGetter fetches an enriched release by MBID.
type ReleaseGetter interface {
	GetRelease(ctx context.Context, mbid string) (*catalog.Release, error)
}

// CatalogService adds albums to the rack and reads them back.
type CatalogService struct {
	releases ReleaseGetter
	albums   *store.Entity[catalog.Album]
	pipeline *search.Pipeline
	now      func() time.Time
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	releases ReleaseGetter,
	albums *store.Entity[catalog.Album],
	pipeline *search.Pipeline,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		releases: releases,
		albums:   albums,
		pipeline: pipeline,
		now:      time.Now,
		logger:   logger,
	}
}

// Search runs the search pipeline. Albums is nil when nothing was found,
// whether the provider returned nothing or every candidate was filtered out.
func (s *CatalogService) Search(ctx context.Context, q search.Query) ([]catalog.Album, error) {
	result, err := s.pipeline.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	s.logger.Info("search completed",
		"mode", q.Normalize().Mode().String(),
		"outcome", result.Outcome.String(),
		"albums", len(result.Albums),
	)

	if result.Outcome != search.OutcomeFound || len(result.Albums) == 0 {
		return nil, nil
	}
	return result.Albums, nil
}

// Add looks up a release, normalizes it with extras and stores it.
// An album already stored under the same barcode is replaced.
func (s *CatalogService) Add(ctx context.Context, mbid string, extras catalog.Extras) (*catalog.Album, error) {
	release, err := s.releases.GetRelease(ctx, mbid)
	if err != nil {
		return nil, err
	}

	album, err := catalog.PrepareAlbum(release, extras, s.now())
	if err != nil {
		if errors.Is(err, catalog.ErrNoArtist) {
			return nil, domainerrors.Validation(domainerrors.KeyError{Key: "mbid", Message: "No artist"}).WithCause(err)
		}
		return nil, fmt.Errorf("prepare album: %w", err)
	}

	existed, err := s.albums.Put(ctx, album)
	if err != nil {
		return nil, fmt.Errorf("store album: %w", err)
	}

	if existed {
		s.logger.Info("album replaced",
			"barcode", album.Barcode,
			"mbid", mbid,
		)
	} else {
		s.logger.Info("album added",
			"barcode", album.Barcode,
			"mbid", mbid,
			"title", album.Title,
		)
	}
	return album, nil
}

// List returns every stored album, grouped and sorted for display.
func (s *CatalogService) List(ctx context.Context) ([]catalog.ListingAlbum, error) {
	albums, err := s.albums.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan albums: %w", err)
	}
	return catalog.Listing(albums), nil
}

// Get returns one stored album by barcode.
func (s *CatalogService) Get(ctx context.Context, barcode string) (*catalog.Album, error) {
	return s.albums.Get(ctx, barcode)
}

// Ping checks that the album store is usable.
func (s *CatalogService) Ping(ctx context.Context) error {
	return s.albums.Ping(ctx)
}
