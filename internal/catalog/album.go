// Package catalog contains the CD rack's domain types: releases as the
// metadata provider describes them, albums as the rack stores them, and the
// grouped listing served to the front-end.
package catalog

import (
	"errors"
	"strings"
	"time"
)

// NoBarcodePrefix prefixes the synthesized key of a release without a barcode.
const NoBarcodePrefix = "nobarcode-"

// ErrNoArtist is returned by PrepareAlbum for a release without artist credits.
var ErrNoArtist = errors.New("release has no artist credit")

// Release is a provider release enriched with artwork and color.
type Release struct {
	ID           string
	Title        string
	Barcode      string
	Date         string // partial ISO date: "1994" or "1994-03-01"
	Status       string
	ArtistCredit []ArtistCredit
	Formats      []string
	Images       []CoverImage
	Color        *Palette
	BlurHash     string
}

// ArtistCredit is one credited artist, in credit order.
type ArtistCredit struct {
	Name     string // as credited on this release
	ArtistID string
	Artist   string // canonical artist name
}

// CoverImage is one image of a release's cover art.
type CoverImage struct {
	ID         string
	Front      bool
	Image      string
	Thumbnails map[string]string
}

// FrontImage picks the front cover: the image flagged front, else the first
// image, else nil.
func FrontImage(images []CoverImage) *CoverImage {
	for i := range images {
		if images[i].Front {
			return &images[i]
		}
	}
	if len(images) > 0 {
		return &images[0]
	}
	return nil
}

// Palette holds six named swatches as #rrggbb. Empty swatches are omitted.
type Palette struct {
	Vibrant    string `json:"vibrant,omitempty"`
	Dark       string `json:"dark,omitempty"`
	Light      string `json:"light,omitempty"`
	Muted      string `json:"muted,omitempty"`
	DarkMuted  string `json:"darkMuted,omitempty"`
	LightMuted string `json:"lightMuted,omitempty"`
}

// Album is the persisted catalog entry, keyed by Barcode.
type Album struct {
	Barcode  string    `json:"barcode"`
	Title    string    `json:"title"`
	SortName string    `json:"sortName"`
	Added    int64     `json:"added"`
	Date     string    `json:"date,omitempty"`
	Data     AlbumData `json:"data"`
}

// AlbumData is the structured part of an Album.
type AlbumData struct {
	Title    string           `json:"title"`
	Artists  []ArtistRef      `json:"artists"`
	MBID     string           `json:"mbid"`
	Color    OrFalse[Palette] `json:"color"`
	Artwork  OrFalse[Artwork] `json:"artwork"`
	Images   *Images          `json:"images,omitempty"`
	BlurHash string           `json:"blurhash,omitempty"`
}

// ArtistRef names a credited artist.
type ArtistRef struct {
	Title string `json:"title"`
	ID    string `json:"id"`
}

// Artwork is the normalized front cover.
type Artwork struct {
	ID         string            `json:"id"`
	Src        string            `json:"src"`
	Thumbnails map[string]string `json:"thumbnails,omitempty"`
}

// Images is an operator-supplied artwork override.
type Images struct {
	Small string `json:"small,omitempty"`
	Large string `json:"large,omitempty"`
}

// Extras are caller-supplied fields merged into AlbumData.
// Nil fields leave the derived values alone.
type Extras struct {
	Color  *Palette
	Images *Images
}

// PrepareAlbum converts an enriched release into a catalog album stamped
// with now. It performs no I/O.
func PrepareAlbum(r *Release, extras Extras, now time.Time) (*Album, error) {
	if r == nil || len(r.ArtistCredit) == 0 {
		return nil, ErrNoArtist
	}

	barcode := r.Barcode
	if barcode == "" {
		barcode = NoBarcodePrefix + r.ID
	}

	parts := make([]string, 0, len(r.ArtistCredit)+1)
	parts = append(parts, r.Title)
	artists := make([]ArtistRef, 0, len(r.ArtistCredit))
	for _, credit := range r.ArtistCredit {
		parts = append(parts, credit.Name)
		artists = append(artists, ArtistRef{Title: credit.Artist, ID: credit.ArtistID})
	}

	data := AlbumData{
		Title:    r.Title,
		Artists:  artists,
		MBID:     r.ID,
		BlurHash: r.BlurHash,
	}
	if front := FrontImage(r.Images); front != nil {
		data.Artwork = Some(Artwork{ID: front.ID, Src: front.Image, Thumbnails: front.Thumbnails})
	}
	if r.Color != nil {
		data.Color = Some(*r.Color)
	}

	if extras.Color != nil {
		data.Color = Some(*extras.Color)
	}
	if extras.Images != nil {
		images := *extras.Images
		data.Images = &images
	}

	return &Album{
		Barcode:  barcode,
		Title:    strings.Join(parts, "-"),
		SortName: SortName(r.ArtistCredit[0].Name),
		Added:    now.UnixMilli(),
		Date:     r.Date,
		Data:     data,
	}, nil
}

// SortName lowercases an artist name and strips a leading "the ".
func SortName(artist string) string {
	lower := strings.ToLower(artist)
	return strings.TrimPrefix(lower, "the ")
}
