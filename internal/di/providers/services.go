package providers

import (
	"github.com/samber/do/v2"

	"github.com/jthaw/cdrack/internal/config"
	"github.com/jthaw/cdrack/internal/logger"
	"github.com/jthaw/cdrack/internal/recaptcha"
	"github.com/jthaw/cdrack/internal/search"
	"github.com/jthaw/cdrack/internal/service"
	"github.com/jthaw/cdrack/internal/validation"
)

// ProvideSearchPipeline provides the album search pipeline.
func ProvideSearchPipeline(i do.Injector) (*search.Pipeline, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	meta := do.MustInvoke[*service.MetadataService](i)

	opts := search.Options{
		ArtistThreshold: cfg.Search.ArtistThreshold,
		TitleThreshold:  cfg.Search.TitleThreshold,
		MaxResults:      cfg.Search.MaxResults,
		MaxInFlight:     cfg.Search.MaxInFlight,
		Deadline:        cfg.Search.FanoutTimeout,
	}

	log.Info("Search pipeline initialized",
		"artist_threshold", opts.ArtistThreshold,
		"title_threshold", opts.TitleThreshold,
		"max_results", opts.MaxResults,
		"max_in_flight", opts.MaxInFlight,
	)

	return search.NewPipeline(meta, meta, opts, log.Logger), nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	meta := do.MustInvoke[*service.MetadataService](i)
	pipeline := do.MustInvoke[*search.Pipeline](i)

	return service.NewCatalogService(meta, storeHandle.Albums, pipeline, log.Logger), nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideVerifier provides the human-verification check.
func ProvideVerifier(i do.Injector) (recaptcha.Verifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Recaptcha.Disabled {
		log.Warn("reCAPTCHA verification disabled", "environment", cfg.App.Environment)
		return recaptcha.AlwaysPass{}, nil
	}

	return recaptcha.New(cfg.Recaptcha.Secret, cfg.Recaptcha.VerifyURL, cfg.MusicBrainz.Timeout, log.Logger), nil
}
