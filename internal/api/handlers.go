package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/jthaw/cdrack/internal/catalog"
	domainerrors "github.com/jthaw/cdrack/internal/errors"
	"github.com/jthaw/cdrack/internal/http/response"
	"github.com/jthaw/cdrack/internal/search"
)

// maxBodySize caps request bodies. Requests are a token and a few fields.
const maxBodySize = 64 * 1024

type searchRequest struct {
	Token   string `json:"token" validate:"present"`
	Barcode string `json:"barcode"`
	Album   string `json:"album"`
	Artist  string `json:"artist"`
}

func (r *searchRequest) query() search.Query {
	return search.Query{Barcode: r.Barcode, Album: r.Album, Artist: r.Artist}.Normalize()
}

type addRequest struct {
	Token  string           `json:"token" validate:"present"`
	MBID   string           `json:"mbid" validate:"present"`
	Color  *catalog.Palette `json:"color,omitempty"`
	Images *catalog.Images  `json:"images,omitempty"`
}

// handlePing always answers; a store failure is only logged.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) error {
	if err := s.catalog.Ping(r.Context()); err != nil {
		s.logger.Error("Store health check failed", "error", err)
	}

	response.Success(w, response.Body{
		"ping": s.now().UnixMilli(),
		"name": s.opts.Name,
	}, s.logger)
	return nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) error {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}

	q := req.query()
	var extra []domainerrors.KeyError
	if q.Mode() == search.ModeNone {
		extra = append(extra, domainerrors.KeyError{Key: "query", Message: "missing"})
	}
	if err := s.validate(&req, extra...); err != nil {
		return err
	}
	if err := s.verify(r, req.Token); err != nil {
		return err
	}

	albums, err := s.catalog.Search(r.Context(), q)
	if err != nil {
		return err
	}

	// Nothing found and everything filtered out look the same to clients.
	var body any = false
	if len(albums) > 0 {
		body = albums
	}
	response.Success(w, response.Body{"albums": body}, s.logger)
	return nil
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) error {
	var req addRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if err := s.validate(&req); err != nil {
		return err
	}
	if err := s.verify(r, req.Token); err != nil {
		return err
	}

	album, err := s.catalog.Add(r.Context(), strings.TrimSpace(req.MBID), catalog.Extras{
		Color:  req.Color,
		Images: req.Images,
	})
	if err != nil {
		return err
	}

	response.Success(w, response.Body{
		"success": true,
		"album":   album,
	}, s.logger)
	return nil
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) error {
	albums, err := s.catalog.List(r.Context())
	if err != nil {
		return err
	}
	if albums == nil {
		albums = []catalog.ListingAlbum{}
	}

	response.Success(w, response.Body{"albums": albums}, s.logger)
	return nil
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) error {
	album, err := s.catalog.Get(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		return err
	}

	response.Success(w, response.Body{"album": album}, s.logger)
	return nil
}

func (s *Server) handleNotFound(_ http.ResponseWriter, _ *http.Request) error {
	return domainerrors.ErrNotFound
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	response.Error(w, http.StatusMethodNotAllowed, "Method not allowed", s.logger)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("Rate limit exceeded",
		"ip", clientIP(r),
		"path", r.URL.Path,
	)
	response.Error(w, http.StatusTooManyRequests, "Too many requests", s.logger)
}

// decodeBody decodes a JSON request body into dst. A malformed body is a
// validation failure on the "body" key.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		return domainerrors.Validation(domainerrors.KeyError{Key: "body", Message: "invalid"}).WithCause(err)
	}
	return nil
}

// validate runs struct validation and appends extra key failures.
func (s *Server) validate(req any, extra ...domainerrors.KeyError) error {
	var keys []domainerrors.KeyError
	if err := s.validator.Validate(req); err != nil {
		var domainErr *domainerrors.Error
		if !errors.As(err, &domainErr) {
			return err
		}
		keys = append(keys, domainErr.Keys...)
	}
	keys = append(keys, extra...)

	if len(keys) > 0 {
		return domainerrors.Validation(keys...)
	}
	return nil
}

// verify checks the human-verification token for the calling IP.
func (s *Server) verify(r *http.Request, token string) error {
	ok, err := s.verifier.Verify(r.Context(), token, clientIP(r))
	if err != nil {
		return err
	}
	if !ok {
		return domainerrors.Verification()
	}
	return nil
}
