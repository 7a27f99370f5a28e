// Package di provides dependency injection configuration for the CD rack server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/jthaw/cdrack/internal/config"
	"github.com/jthaw/cdrack/internal/coverart"
	"github.com/jthaw/cdrack/internal/di/providers"
	"github.com/jthaw/cdrack/internal/logger"
	"github.com/jthaw/cdrack/internal/musicbrainz"
	"github.com/jthaw/cdrack/internal/recaptcha"
	"github.com/jthaw/cdrack/internal/search"
	"github.com/jthaw/cdrack/internal/service"
	"github.com/jthaw/cdrack/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Metadata layer
	do.Provide(injector, providers.ProvideMusicBrainzClient)
	do.Provide(injector, providers.ProvideCoverArtClient)
	do.Provide(injector, providers.ProvideMetadataService)

	// Business services
	do.Provide(injector, providers.ProvideSearchPipeline)
	do.Provide(injector, providers.ProvideCatalogService)

	// Request checks
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideVerifier)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services.
// This triggers lazy initialization, so configuration and database errors
// surface here rather than on the first request.
func Bootstrap(injector *do.RootScope) (err error) {
	// MustInvoke panics on provider failure; report it as an error instead.
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = e
				return
			}
			panic(rec)
		}
	}()

	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*musicbrainz.Client](injector)
	_ = do.MustInvoke[*coverart.Client](injector)
	_ = do.MustInvoke[*service.MetadataService](injector)
	_ = do.MustInvoke[*search.Pipeline](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[recaptcha.Verifier](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
