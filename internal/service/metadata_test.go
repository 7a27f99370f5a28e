package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jthaw/cdrack/internal/coverart"
	domainerrors "github.com/jthaw/cdrack/internal/errors"
	"github.com/jthaw/cdrack/internal/musicbrainz"
	"github.com/jthaw/cdrack/internal/search"
)

type fakeReleases struct {
	result   *musicbrainz.SearchResult
	err      error
	releases map[string]*musicbrainz.Release
	groups   map[string]string
	params   musicbrainz.SearchParams
}

func (f *fakeReleases) SearchReleases(_ context.Context, p musicbrainz.SearchParams) (*musicbrainz.SearchResult, error) {
	f.params = p
	return f.result, f.err
}

func (f *fakeReleases) LookupRelease(_ context.Context, mbid string) (*musicbrainz.Release, error) {
	r, ok := f.releases[mbid]
	if !ok {
		return nil, musicbrainz.ErrNotFound
	}
	return r, nil
}

func (f *fakeReleases) FirstReleaseInGroup(_ context.Context, groupID string) (string, error) {
	id, ok := f.groups[groupID]
	if !ok {
		return "", musicbrainz.ErrNotFound
	}
	return id, nil
}

type fakeArtwork struct {
	mu       sync.Mutex
	artwork  map[string]*coverart.Artwork
	artErr   error
	image    []byte
	imageErr error
	fetched  []string
}

func (f *fakeArtwork) Release(_ context.Context, mbid string) (*coverart.Artwork, error) {
	if f.artErr != nil {
		return nil, f.artErr
	}
	a, ok := f.artwork[mbid]
	if !ok {
		return nil, coverart.ErrNotFound
	}
	return a, nil
}

func (f *fakeArtwork) FetchImage(_ context.Context, imageURL string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, imageURL)
	f.mu.Unlock()
	return f.image, f.imageErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func redPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func okComputer() *musicbrainz.Release {
	return &musicbrainz.Release{
		ID:      "rel-1",
		Title:   "OK Computer",
		Barcode: "0724385522925",
		Date:    "1997-06-16",
		Status:  "Official",
		ArtistCredit: []musicbrainz.ArtistCredit{
			{Name: "Radiohead", Artist: musicbrainz.Artist{ID: "art-1", Name: "Radiohead"}},
		},
		Media: []musicbrainz.Medium{{Format: "CD", TrackCount: 12}},
	}
}

func frontArtwork() *coverart.Artwork {
	return &coverart.Artwork{Images: []coverart.Image{
		{ID: "back", Image: "https://img/back.jpg"},
		{
			ID:    "front",
			Front: true,
			Image: "https://img/front.jpg",
			Thumbnails: map[string]string{
				"small": "https://img/front-250.jpg",
				"large": "https://img/front-500.jpg",
			},
		},
	}}
}

func TestGetRelease_Enriched(t *testing.T) {
	releases := &fakeReleases{releases: map[string]*musicbrainz.Release{"rel-1": okComputer()}}
	artwork := &fakeArtwork{
		artwork: map[string]*coverart.Artwork{"rel-1": frontArtwork()},
		image:   redPNG(t),
	}
	svc := NewMetadataService(releases, artwork, 0, discardLogger())

	rel, err := svc.GetRelease(context.Background(), "rel-1")
	require.NoError(t, err)

	assert.Equal(t, "OK Computer", rel.Title)
	assert.Equal(t, []string{"CD"}, rel.Formats)
	require.Len(t, rel.ArtistCredit, 1)
	assert.Equal(t, "art-1", rel.ArtistCredit[0].ArtistID)
	require.Len(t, rel.Images, 2)
	assert.Equal(t, []string{"https://img/front-250.jpg"}, artwork.fetched)
	require.NotNil(t, rel.Color)
	assert.Equal(t, "#ff0000", rel.Color.Vibrant)
	assert.NotEmpty(t, rel.BlurHash)
}

func TestGetRelease_ImageChoice(t *testing.T) {
	tests := []struct {
		name       string
		thumbnails map[string]string
		want       string
	}{
		{"small", map[string]string{"small": "s", "250": "q", "large": "l"}, "s"},
		{"250", map[string]string{"250": "q", "500": "l"}, "q"},
		{"full image", nil, "https://img/full.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			releases := &fakeReleases{releases: map[string]*musicbrainz.Release{"rel-1": okComputer()}}
			artwork := &fakeArtwork{
				artwork: map[string]*coverart.Artwork{"rel-1": {Images: []coverart.Image{
					{ID: "1", Front: true, Image: "https://img/full.jpg", Thumbnails: tt.thumbnails},
				}}},
				image: redPNG(t),
			}
			svc := NewMetadataService(releases, artwork, 0, discardLogger())

			_, err := svc.GetRelease(context.Background(), "rel-1")
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, artwork.fetched)
		})
	}
}

func TestGetRelease_DownloadsFlaggedFront(t *testing.T) {
	releases := &fakeReleases{releases: map[string]*musicbrainz.Release{"rel-1": okComputer()}}
	artwork := &fakeArtwork{
		artwork: map[string]*coverart.Artwork{"rel-1": {Images: []coverart.Image{
			{ID: "1", Back: true, Image: "https://img/back.jpg"},
			{ID: "2", Front: true, Image: "https://img/front.jpg"},
		}}},
		image: redPNG(t),
	}
	svc := NewMetadataService(releases, artwork, 0, discardLogger())

	rel, err := svc.GetRelease(context.Background(), "rel-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/front.jpg"}, artwork.fetched)
	assert.Len(t, rel.Images, 2)
}

func TestGetRelease_ArtworkFailureDegrades(t *testing.T) {
	releases := &fakeReleases{releases: map[string]*musicbrainz.Release{"rel-1": okComputer()}}
	artwork := &fakeArtwork{artErr: errors.New("connection reset")}
	svc := NewMetadataService(releases, artwork, 0, discardLogger())

	rel, err := svc.GetRelease(context.Background(), "rel-1")
	require.NoError(t, err)
	assert.Empty(t, rel.Images)
	assert.Nil(t, rel.Color)
	assert.Empty(t, rel.BlurHash)
}

func TestGetRelease_ColorFailureKeepsArtwork(t *testing.T) {
	releases := &fakeReleases{releases: map[string]*musicbrainz.Release{"rel-1": okComputer()}}
	artwork := &fakeArtwork{
		artwork:  map[string]*coverart.Artwork{"rel-1": frontArtwork()},
		imageErr: coverart.ErrTooLarge,
	}
	svc := NewMetadataService(releases, artwork, 0, discardLogger())

	rel, err := svc.GetRelease(context.Background(), "rel-1")
	require.NoError(t, err)
	assert.Len(t, rel.Images, 2)
	assert.Nil(t, rel.Color)

	artwork.imageErr = nil
	artwork.image = []byte("not an image")
	rel, err = svc.GetRelease(context.Background(), "rel-1")
	require.NoError(t, err)
	assert.Len(t, rel.Images, 2)
	assert.Nil(t, rel.Color)
}

func TestGetRelease_NotFound(t *testing.T) {
	svc := NewMetadataService(&fakeReleases{}, &fakeArtwork{}, 0, discardLogger())

	_, err := svc.GetRelease(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound))
	assert.ErrorIs(t, err, musicbrainz.ErrNotFound)
}

func TestSearchReleases_Candidates(t *testing.T) {
	releases := &fakeReleases{result: &musicbrainz.SearchResult{
		Releases: []musicbrainz.Release{
			{
				ID:    "r1",
				Title: "Homogenic",
				ArtistCredit: []musicbrainz.ArtistCredit{
					{Name: "Bjork", Artist: musicbrainz.Artist{Name: "Björk"}},
				},
			},
		},
		ReleaseGroups: []musicbrainz.ReleaseGroup{{ID: "g1", Title: "ignored"}},
	}}
	svc := NewMetadataService(releases, &fakeArtwork{}, 0, discardLogger())

	got, err := svc.SearchReleases(context.Background(), search.Query{Album: "Homogenic", Artist: "bjork"})
	require.NoError(t, err)

	assert.Equal(t, musicbrainz.SearchParams{Album: "Homogenic", Artist: "bjork"}, releases.params)
	assert.Equal(t, []search.Candidate{
		{ID: "r1", Title: "Homogenic", Artists: []string{"Bjork", "Björk"}},
	}, got)
}

func TestSearchReleases_ReleaseGroups(t *testing.T) {
	releases := &fakeReleases{result: &musicbrainz.SearchResult{
		ReleaseGroups: []musicbrainz.ReleaseGroup{{ID: "g1", Title: "Debut"}},
	}}
	svc := NewMetadataService(releases, &fakeArtwork{}, 0, discardLogger())

	got, err := svc.SearchReleases(context.Background(), search.Query{Artist: "Björk"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Group)
	assert.Equal(t, "g1", got[0].ID)
}

func TestSearchReleases_EmptyAndError(t *testing.T) {
	svc := NewMetadataService(&fakeReleases{result: &musicbrainz.SearchResult{}}, &fakeArtwork{}, 0, discardLogger())
	got, err := svc.SearchReleases(context.Background(), search.Query{Album: "x"})
	require.NoError(t, err)
	assert.Empty(t, got)

	upstream := errors.New("503")
	svc = NewMetadataService(&fakeReleases{err: upstream}, &fakeArtwork{}, 0, discardLogger())
	_, err = svc.SearchReleases(context.Background(), search.Query{Album: "x"})
	assert.ErrorIs(t, err, upstream)
	assert.ErrorIs(t, err, domainerrors.ErrUpstream)
}

func TestFetchAlbum_ResolvesGroup(t *testing.T) {
	releases := &fakeReleases{
		releases: map[string]*musicbrainz.Release{"rel-1": okComputer()},
		groups:   map[string]string{"g1": "rel-1"},
	}
	svc := NewMetadataService(releases, &fakeArtwork{}, 0, discardLogger())

	album, err := svc.FetchAlbum(context.Background(), search.Candidate{ID: "g1", Group: true})
	require.NoError(t, err)
	assert.Equal(t, "0724385522925", album.Barcode)
	assert.Equal(t, "rel-1", album.Data.MBID)
	assert.Equal(t, "OK Computer-Radiohead", album.Title)
}

func TestSearchPipeline_BarcodeExample(t *testing.T) {
	release := okComputer()
	release.Barcode = "5099750442227"
	releases := &fakeReleases{
		result:   &musicbrainz.SearchResult{Releases: []musicbrainz.Release{*release}},
		releases: map[string]*musicbrainz.Release{"rel-1": release},
	}
	svc := NewMetadataService(releases, &fakeArtwork{}, 0, discardLogger())
	pipeline := search.NewPipeline(svc, svc, search.DefaultOptions(), discardLogger())

	res, err := pipeline.Search(context.Background(), search.Query{Barcode: "5099750442227"})
	require.NoError(t, err)
	require.Len(t, res.Albums, 1)
	assert.Equal(t, "5099750442227", res.Albums[0].Barcode)
	assert.Equal(t, "5099750442227", releases.params.Barcode)
}
