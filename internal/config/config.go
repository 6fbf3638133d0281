package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/vallemsec/spectra-web/internal/shared/constants"
	sharedErrors "github.com/vallemsec/spectra-web/internal/shared/errors"
)

// Mode selects where scan results come from.
type Mode string

const (
	// ModeLive calls the remote scanner.
	ModeLive Mode = "live"
	// ModeFixture serves the bundled fixture documents.
	ModeFixture Mode = "fixture"
)

// AppName is used for the config directory and the default config file name.
const AppName = "spectra-web"

const (
	defaultBlogPosts   = 3
	defaultLogLevel    = "info"
	defaultLogFormat   = "json"
	defaultLogMaxSize  = 50
	defaultLogBackups  = 3
	defaultLogMaxAge   = 28
	legacyModeEnv      = "SPECTRA_ENVIRONMENT"
	legacyEndpointEnv  = "SPECTRA_SCANNER_DOMAIN"
	envPrefix          = "SPECTRA"
	productionModeName = "production"
)

// ParseMode resolves an environment discriminator. Only "production" and
// "live" select the live scanner; anything else, including an empty or
// unknown value, falls back to fixtures.
func ParseMode(value string) Mode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case productionModeName, string(ModeLive):
		return ModeLive
	default:
		return ModeFixture
	}
}

// Config is the explicit runtime configuration handed to the scan source and
// the renderer. It is built once at startup and never mutated afterwards.
type Config struct {
	Mode            Mode          `yaml:"mode"`
	ScannerEndpoint string        `yaml:"scanner_endpoint"`
	CMSEndpoint     string        `yaml:"cms_endpoint"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	FixtureDir      string        `yaml:"fixture_dir,omitempty"`
	BlogPosts       int           `yaml:"blog_posts"`
	Log             LogConfig     `yaml:"log"`
}

// LogConfig configures the zap logger and its optional rotating file sink.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Live reports whether the live scanner should be used.
func (c Config) Live() bool {
	return c.Mode == ModeLive
}

// SetDefaults registers default values and environment bindings on v.
// The legacy SPECTRA_ENVIRONMENT and SPECTRA_SCANNER_DOMAIN variables are
// accepted as aliases of mode and scanner_endpoint.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeFixture))
	v.SetDefault("scanner_endpoint", "")
	v.SetDefault("cms_endpoint", "")
	v.SetDefault("request_timeout", constants.DefaultRequestTimeout)
	v.SetDefault("fixture_dir", "")
	v.SetDefault("blog_posts", defaultBlogPosts)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", defaultLogMaxSize)
	v.SetDefault("log.max_backups", defaultLogBackups)
	v.SetDefault("log.max_age_days", defaultLogMaxAge)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("mode", envPrefix+"_MODE", legacyModeEnv)
	_ = v.BindEnv("scanner_endpoint", envPrefix+"_SCANNER_ENDPOINT", legacyEndpointEnv)
}

// FromViper snapshots v into a Config.
func FromViper(v *viper.Viper) Config {
	cfg := Config{
		Mode:            ParseMode(v.GetString("mode")),
		ScannerEndpoint: strings.TrimSpace(v.GetString("scanner_endpoint")),
		CMSEndpoint:     strings.TrimSpace(v.GetString("cms_endpoint")),
		RequestTimeout:  v.GetDuration("request_timeout"),
		FixtureDir:      v.GetString("fixture_dir"),
		BlogPosts:       v.GetInt("blog_posts"),
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.DefaultRequestTimeout
	}
	if cfg.BlogPosts < 0 {
		cfg.BlogPosts = 0
	}
	return cfg
}

// Validate checks the settings that would otherwise fail on first use.
func (c Config) Validate() error {
	if c.Live() {
		if c.ScannerEndpoint == "" {
			return fmt.Errorf("%w: live mode requires scanner_endpoint", sharedErrors.ErrInvalidConfig)
		}
		if err := validateEndpoint(c.ScannerEndpoint); err != nil {
			return fmt.Errorf("scanner_endpoint: %w", err)
		}
	}
	if c.CMSEndpoint != "" {
		if err := validateEndpoint(c.CMSEndpoint); err != nil {
			return fmt.Errorf("cms_endpoint: %w", err)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: log.format must be json or console", sharedErrors.ErrInvalidConfig)
	}
	return nil
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrInvalidEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q needs an http or https scheme", sharedErrors.ErrInvalidEndpoint, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", sharedErrors.ErrInvalidEndpoint, raw)
	}
	return nil
}
