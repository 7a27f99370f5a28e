package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jthaw/cdrack/internal/catalog"
)

// Mode is the kind of query the pipeline runs.
type Mode int

// Query modes, in precedence order.
const (
	ModeNone Mode = iota
	ModeBarcode
	ModeAlbum
	ModeArtist
)

func (m Mode) String() string {
	switch m {
	case ModeBarcode:
		return "barcode"
	case ModeAlbum:
		return "album"
	case ModeArtist:
		return "artist"
	default:
		return "none"
	}
}

// Query is a user search. Barcode wins over Album; Artist alone searches
// by artist, and alongside Album it filters the album results.
type Query struct {
	Barcode string
	Album   string
	Artist  string
}

// Normalize trims every field.
func (q Query) Normalize() Query {
	return Query{
		Barcode: strings.TrimSpace(q.Barcode),
		Album:   strings.TrimSpace(q.Album),
		Artist:  strings.TrimSpace(q.Artist),
	}
}

// Mode reports which search the query selects.
func (q Query) Mode() Mode {
	switch {
	case q.Barcode != "":
		return ModeBarcode
	case q.Album != "":
		return ModeAlbum
	case q.Artist != "":
		return ModeArtist
	default:
		return ModeNone
	}
}

// Candidate is a provider search hit awaiting detail fetch.
type Candidate struct {
	ID      string
	Title   string
	Artists []string
	// Group marks a release-group id rather than a release id.
	Group bool
}

// Searcher runs the provider search for a query.
// A nil or empty slice means the provider returned nothing.
type Searcher interface {
	SearchReleases(ctx context.Context, q Query) ([]Candidate, error)
}

// Fetcher fetches full detail for a candidate and normalizes it.
type Fetcher interface {
	FetchAlbum(ctx context.Context, c Candidate) (*catalog.Album, error)
}

// Outcome distinguishes the ways a search can end.
type Outcome int

// Outcomes. NoResult and Filtered both reach clients as albums: false.
const (
	OutcomeFound Outcome = iota
	OutcomeNoResult
	OutcomeFiltered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoResult:
		return "no_result"
	case OutcomeFiltered:
		return "filtered"
	default:
		return "found"
	}
}

// Result is the pipeline's answer.
type Result struct {
	Albums  []catalog.Album
	Outcome Outcome
}

// Options tunes the pipeline.
type Options struct {
	ArtistThreshold float64
	TitleThreshold  float64
	MaxResults      int
	MaxInFlight     int
	// Deadline bounds the whole detail fan-out. Zero means no deadline.
	Deadline time.Duration
}

// DefaultOptions are the thresholds and limits the rack has always used.
func DefaultOptions() Options {
	return Options{
		ArtistThreshold: 0.75,
		TitleThreshold:  0.80,
		MaxResults:      6,
		MaxInFlight:     3,
		Deadline:        20 * time.Second,
	}
}

// Pipeline orchestrates provider search, filtering and detail fetch.
type Pipeline struct {
	searcher Searcher
	fetcher  Fetcher
	opts     Options
	logger   *slog.Logger
}

// NewPipeline creates a pipeline over the given capabilities.
func NewPipeline(searcher Searcher, fetcher Fetcher, opts Options, logger *slog.Logger) *Pipeline {
	if opts.MaxResults < 1 {
		opts.MaxResults = DefaultOptions().MaxResults
	}
	if opts.MaxInFlight < 1 {
		opts.MaxInFlight = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{searcher: searcher, fetcher: fetcher, opts: opts, logger: logger}
}

// Search runs a query end to end.
func (p *Pipeline) Search(ctx context.Context, q Query) (*Result, error) {
	q = q.Normalize()
	mode := q.Mode()
	if mode == ModeNone {
		return nil, fmt.Errorf("search: empty query")
	}

	candidates, err := p.searcher.SearchReleases(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search releases: %w", err)
	}
	if len(candidates) == 0 {
		p.logger.Debug("search returned nothing", "mode", mode.String())
		return &Result{Outcome: OutcomeNoResult}, nil
	}
	found := len(candidates)

	if mode == ModeAlbum {
		if q.Artist != "" {
			candidates = FilterByArtist(candidates, q.Artist, p.opts.ArtistThreshold)
		}
		candidates = RankByTitle(candidates, q.Album, p.opts.TitleThreshold)
	}
	candidates = Truncate(Dedup(candidates), p.opts.MaxResults)

	p.logger.Debug("search candidates",
		"mode", mode.String(),
		"found", found,
		"kept", len(candidates),
	)

	if len(candidates) == 0 {
		return &Result{Outcome: OutcomeFiltered}, nil
	}

	albums, err := p.fetchAll(ctx, candidates)
	if err != nil {
		return nil, err
	}

	if q.Barcode != "" {
		albums = ShortCircuit(albums, q.Barcode)
	}
	return &Result{Albums: albums, Outcome: OutcomeFound}, nil
}

// fetchAll fetches every candidate with bounded concurrency. Results keep
// candidate order. Any failure cancels the rest and fails the search.
func (p *Pipeline) fetchAll(ctx context.Context, candidates []Candidate) ([]catalog.Album, error) {
	if p.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Deadline)
		defer cancel()
	}

	results := make([]*catalog.Album, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxInFlight)

	for i, c := range candidates {
		g.Go(func() error {
			album, err := p.fetcher.FetchAlbum(gctx, c)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", c.ID, err)
			}
			results[i] = album
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	albums := make([]catalog.Album, 0, len(results))
	for _, a := range results {
		if a != nil {
			albums = append(albums, *a)
		}
	}
	return albums, nil
}

// FilterByArtist keeps candidates with at least one credited artist whose
// similarity to artist reaches threshold. Order is preserved.
func FilterByArtist(candidates []Candidate, artist string, threshold float64) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		for _, name := range c.Artists {
			if Similarity(name, artist) >= threshold {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// RankByTitle keeps candidates whose title similarity to album reaches
// threshold, best match first. Equal scores keep their input order.
func RankByTitle(candidates []Candidate, album string, threshold float64) []Candidate {
	type scored struct {
		c     Candidate
		score float64
	}
	kept := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if s := Similarity(c.Title, album); s >= threshold {
			kept = append(kept, scored{c, s})
		}
	}
	slices.SortStableFunc(kept, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	out := make([]Candidate, len(kept))
	for i, k := range kept {
		out[i] = k.c
	}
	return out
}

// Dedup drops candidates whose title exactly equals an earlier one.
func Dedup(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.Title]; ok {
			continue
		}
		seen[c.Title] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Truncate keeps the first n candidates.
func Truncate(candidates []Candidate, n int) []Candidate {
	if len(candidates) <= n {
		return candidates
	}
	return candidates[:n]
}

// ShortCircuit collapses albums to the first whose barcode equals barcode.
// Without an exact match albums are returned unchanged.
func ShortCircuit(albums []catalog.Album, barcode string) []catalog.Album {
	for _, a := range albums {
		if a.Barcode == barcode {
			return []catalog.Album{a}
		}
	}
	return albums
}
