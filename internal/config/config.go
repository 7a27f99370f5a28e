// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Server      ServerConfig
	Store       StoreConfig
	MusicBrainz MusicBrainzConfig
	Recaptcha   RecaptchaConfig
	Search      SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name              string        // Reported by the ping endpoint
	Port              string        // default: 8080
	ReadTimeout       time.Duration // default: 15s
	WriteTimeout      time.Duration // default: 60s, covers a full search fan-out
	IdleTimeout       time.Duration // default: 60s
	AllowedOrigins    []string      // CORS origins, default: *
	RateLimitRequests int           // per IP per window on search/add; 0 disables
	RateLimitWindow   time.Duration
}

// StoreConfig holds catalog persistence configuration.
type StoreConfig struct {
	Path string
}

// MusicBrainzConfig holds metadata provider configuration.
type MusicBrainzConfig struct {
	BaseURL           string
	CoverArtURL       string
	AppName           string
	AppVersion        string
	Contact           string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// RecaptchaConfig holds human-verification configuration.
type RecaptchaConfig struct {
	Secret    string
	VerifyURL string
	// Disabled skips verification entirely. Only allowed outside production.
	Disabled bool
}

// SearchConfig holds the search pipeline tuning knobs.
type SearchConfig struct {
	ArtistThreshold float64
	TitleThreshold  float64
	MaxResults      int
	MaxInFlight     int
	FanoutTimeout   time.Duration
	CallTimeout     time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("cdrack", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	serviceName := fs.String("name", "", "Service name reported by /ping")
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	origins := fs.String("allowed-origins", "", "Comma separated CORS origins (default: *)")
	dataPath := fs.String("data-path", "", "Directory for the catalog database")
	mbURL := fs.String("musicbrainz-url", "", "MusicBrainz WS/2 base URL")
	caURL := fs.String("coverart-url", "", "Cover Art Archive base URL")
	recaptchaDisabled := fs.String("recaptcha-disabled", "", "Skip human verification (not allowed in production)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Missing .env is fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Name:              getConfigValue(*serviceName, "SERVICE_NAME", "cd-rack"),
			Port:              getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins:    splitList(getConfigValue(*origins, "ALLOWED_ORIGINS", "*")),
			RateLimitRequests: getIntConfigValue("", "RATE_LIMIT_REQUESTS", 30),
		},
		Store: StoreConfig{
			Path: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		MusicBrainz: MusicBrainzConfig{
			BaseURL:           getConfigValue(*mbURL, "MUSICBRAINZ_URL", "https://musicbrainz.org/ws/2"),
			CoverArtURL:       getConfigValue(*caURL, "COVERART_URL", "https://coverartarchive.org"),
			AppName:           getConfigValue("", "MUSICBRAINZ_APP_NAME", "jt-virtual-cd-rack"),
			AppVersion:        getConfigValue("", "MUSICBRAINZ_APP_VERSION", "0.0.1"),
			Contact:           getConfigValue("", "MUSICBRAINZ_CONTACT", "hi+mb@jthaw.me"),
			RequestsPerSecond: getFloatConfigValue("MUSICBRAINZ_RPS", 1),
		},
		Recaptcha: RecaptchaConfig{
			Secret:    getConfigValue("", "RECAPTCHA_SECRET_KEY", ""),
			VerifyURL: getConfigValue("", "RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
			Disabled:  getBoolConfigValue(*recaptchaDisabled, "RECAPTCHA_DISABLED", false),
		},
		Search: SearchConfig{
			ArtistThreshold: getFloatConfigValue("SEARCH_ARTIST_THRESHOLD", 0.75),
			TitleThreshold:  getFloatConfigValue("SEARCH_TITLE_THRESHOLD", 0.80),
			MaxResults:      getIntConfigValue("", "SEARCH_MAX_RESULTS", 6),
			MaxInFlight:     getIntConfigValue("", "SEARCH_MAX_IN_FLIGHT", 3),
		},
	}

	durations := []struct {
		flagValue, envKey, def string
		dest                   *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{"", "RATE_LIMIT_WINDOW", "1m", &cfg.Server.RateLimitWindow},
		{"", "MUSICBRAINZ_TIMEOUT", "15s", &cfg.MusicBrainz.Timeout},
		{"", "SEARCH_FANOUT_TIMEOUT", "20s", &cfg.Search.FanoutTimeout},
		{"", "SEARCH_CALL_TIMEOUT", "10s", &cfg.Search.CallTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandStorePath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Store.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Recaptcha.Disabled && c.App.Environment == "production" {
		return errors.New("recaptcha cannot be disabled in production")
	}
	if !c.Recaptcha.Disabled && c.Recaptcha.Secret == "" {
		return errors.New("RECAPTCHA_SECRET_KEY is required unless verification is disabled")
	}

	if c.MusicBrainz.RequestsPerSecond <= 0 {
		return errors.New("MUSICBRAINZ_RPS must be positive")
	}

	s := c.Search
	if s.ArtistThreshold < 0 || s.ArtistThreshold > 1 || s.TitleThreshold < 0 || s.TitleThreshold > 1 {
		return errors.New("search thresholds must be within [0, 1]")
	}
	if s.MaxResults < 1 {
		return errors.New("SEARCH_MAX_RESULTS must be at least 1")
	}
	if s.MaxInFlight < 1 {
		return errors.New("SEARCH_MAX_IN_FLIGHT must be at least 1")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as-is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandStorePath defaults the database directory to ~/cdrack/db.
func (c *Config) expandStorePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Store.Path, filepath.Join(homeDir, "cdrack", "db"))
	if err != nil {
		return err
	}
	c.Store.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from env var or default.
func getFloatConfigValue(envKey string, defaultValue float64) float64 {
	strValue := os.Getenv(envKey)
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments). Existing variables win.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}

	return scanner.Err()
}
