package musicbrainz

// SearchResult is the provider's answer to a release search. Release
// searches fill Releases; artist lookups may fill either field.
type SearchResult struct {
	Count         int            `json:"count"`
	Offset        int            `json:"offset"`
	Releases      []Release      `json:"releases"`
	ReleaseGroups []ReleaseGroup `json:"release-groups"`
}

// Empty reports whether the provider returned nothing to work with.
func (r *SearchResult) Empty() bool {
	return r == nil || (len(r.Releases) == 0 && len(r.ReleaseGroups) == 0)
}

// Release is one release as returned by search or lookup.
type Release struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Barcode      string         `json:"barcode"`
	Date         string         `json:"date"`
	Status       string         `json:"status"`
	Country      string         `json:"country"`
	Score        int            `json:"score"`
	ArtistCredit []ArtistCredit `json:"artist-credit"`
	Media        []Medium       `json:"media"`
	ReleaseGroup *ReleaseGroup  `json:"release-group,omitempty"`
}

// ReleaseGroup groups the releases of one album.
type ReleaseGroup struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	PrimaryType      string         `json:"primary-type"`
	FirstReleaseDate string         `json:"first-release-date"`
	ArtistCredit     []ArtistCredit `json:"artist-credit"`
}

// ArtistCredit is one entry of an artist credit, in credit order.
type ArtistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
	Artist     Artist `json:"artist"`
}

// Artist is a MusicBrainz artist.
type Artist struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	SortName       string         `json:"sort-name"`
	Score          int            `json:"score"`
	Disambiguation string         `json:"disambiguation"`
	Releases       []Release      `json:"releases"`
	ReleaseGroups  []ReleaseGroup `json:"release-groups"`
}

// Medium is one disc or other physical unit of a release.
type Medium struct {
	Format     string `json:"format"`
	TrackCount int    `json:"track-count"`
}

type artistSearchResponse struct {
	Count   int      `json:"count"`
	Artists []Artist `json:"artists"`
}

type releaseBrowseResponse struct {
	ReleaseCount int       `json:"release-count"`
	Releases     []Release `json:"releases"`
}
