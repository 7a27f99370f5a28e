package providers

import (
	"github.com/samber/do/v2"

	"github.com/jthaw/cdrack/internal/config"
	"github.com/jthaw/cdrack/internal/coverart"
	"github.com/jthaw/cdrack/internal/logger"
	"github.com/jthaw/cdrack/internal/musicbrainz"
	"github.com/jthaw/cdrack/internal/service"
)

// ProvideMusicBrainzClient provides the MusicBrainz API client.
func ProvideMusicBrainzClient(i do.Injector) (*musicbrainz.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	mb := cfg.MusicBrainz
	client := musicbrainz.New(musicbrainz.Options{
		BaseURL:           mb.BaseURL,
		AppName:           mb.AppName,
		AppVersion:        mb.AppVersion,
		Contact:           mb.Contact,
		RequestsPerSecond: mb.RequestsPerSecond,
		Timeout:           mb.Timeout,
	}, log.Logger)

	log.Info("MusicBrainz client initialized",
		"base_url", mb.BaseURL,
		"requests_per_second", mb.RequestsPerSecond,
	)

	return client, nil
}

// ProvideCoverArtClient provides the Cover Art Archive client.
func ProvideCoverArtClient(i do.Injector) (*coverart.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	mb := cfg.MusicBrainz
	userAgent := musicbrainz.UserAgent(mb.AppName, mb.AppVersion, mb.Contact)
	return coverart.New(mb.CoverArtURL, userAgent, mb.Timeout, log.Logger), nil
}

// ProvideMetadataService provides the metadata service.
func ProvideMetadataService(i do.Injector) (*service.MetadataService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	mb := do.MustInvoke[*musicbrainz.Client](i)
	art := do.MustInvoke[*coverart.Client](i)

	return service.NewMetadataService(mb, art, cfg.Search.CallTimeout, log.Logger), nil
}
