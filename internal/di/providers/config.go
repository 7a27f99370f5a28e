// Package providers contains dependency injection providers for the CD rack server.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/jthaw/cdrack/internal/config"
	"github.com/jthaw/cdrack/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig(os.Args[1:])
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting CD rack server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Store.Path,
		"musicbrainz_url", cfg.MusicBrainz.BaseURL,
		"recaptcha_disabled", cfg.Recaptcha.Disabled,
	)

	return log, nil
}
