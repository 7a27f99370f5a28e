package catalog

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ListingAlbum is the display shape of an album on the rack.
type ListingAlbum struct {
	ID      string           `json:"id"`
	Date    string           `json:"date"`
	Artists []string         `json:"artists"`
	Title   string           `json:"title"`
	Color   OrFalse[Palette] `json:"color"`
	Artwork *ListingArtwork  `json:"artwork"`
}

// ListingArtwork holds the two image sizes the rack renders.
type ListingArtwork struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

// Year returns the numeric year leading a partial ISO date, or 0.
func Year(date string) int {
	head, _, _ := strings.Cut(strings.TrimSpace(date), "-")
	year, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return year
}

// Listing groups albums by their first credited artist, orders the groups
// alphabetically using English collation, orders each group by year, and
// flattens the result. The output does not depend on input order.
func Listing(albums []Album) []ListingAlbum {
	groups := make(map[string][]*Album)
	for i := range albums {
		key := groupKey(&albums[i])
		groups[key] = append(groups[key], &albums[i])
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	coll := collate.New(language.English)
	slices.SortFunc(keys, func(a, b string) int {
		if c := coll.CompareString(a, b); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	out := make([]ListingAlbum, 0, len(albums))
	for _, k := range keys {
		group := groups[k]
		slices.SortFunc(group, compareInGroup)
		for _, a := range group {
			out = append(out, toListing(a))
		}
	}
	return out
}

func groupKey(a *Album) string {
	if len(a.Data.Artists) == 0 {
		return ""
	}
	return a.Data.Artists[0].Title
}

// compareInGroup orders by year, breaking ties on title, mbid and barcode so
// that equal years never depend on scan order.
func compareInGroup(a, b *Album) int {
	if c := Year(a.Date) - Year(b.Date); c != 0 {
		return c
	}
	if c := strings.Compare(a.Data.Title, b.Data.Title); c != 0 {
		return c
	}
	if c := strings.Compare(a.Data.MBID, b.Data.MBID); c != 0 {
		return c
	}
	return strings.Compare(a.Barcode, b.Barcode)
}

func toListing(a *Album) ListingAlbum {
	artists := make([]string, 0, len(a.Data.Artists))
	for _, artist := range a.Data.Artists {
		artists = append(artists, artist.Title)
	}
	return ListingAlbum{
		ID:      a.Data.MBID,
		Date:    strconv.Itoa(Year(a.Date)),
		Artists: artists,
		Title:   a.Data.Title,
		Color:   a.Data.Color,
		Artwork: listingArtwork(a.Data),
	}
}

// listingArtwork prefers the explicit images override per size, then the
// stored thumbnails, then the full-size source.
func listingArtwork(d AlbumData) *ListingArtwork {
	var small, large string
	if d.Images != nil {
		small, large = d.Images.Small, d.Images.Large
	}
	if art, ok := d.Artwork.Get(); ok {
		if small == "" {
			small = firstNonEmpty(art.Thumbnails["small"], art.Thumbnails["250"], art.Src)
		}
		if large == "" {
			large = firstNonEmpty(art.Thumbnails["large"], art.Thumbnails["500"], art.Src)
		}
	}
	if small == "" && large == "" {
		return nil
	}
	if small == "" {
		small = large
	}
	if large == "" {
		large = small
	}
	return &ListingArtwork{Small: small, Large: large}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
