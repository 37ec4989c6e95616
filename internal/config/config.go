package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration
type Config struct {
	// Catalog API
	TMDb TMDbConfig `yaml:"tmdb"`

	// Transport settings shared by the catalog and image requests
	HTTP HTTPConfig `yaml:"http"`

	// Browser behaviour
	Browse BrowseConfig `yaml:"browse"`

	// Application settings
	App AppConfig `yaml:"app"`
}

// TMDbConfig holds TMDb API configuration
type TMDbConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url,omitempty"`
	ImageBaseURL string `yaml:"image_base_url,omitempty"`
	PosterSize   string `yaml:"poster_size,omitempty"` // "w92", "w185", "w342", "w500", "original"
}

// HTTPConfig holds outbound HTTP settings
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	UserAgent string        `yaml:"user_agent,omitempty"`
}

// BrowseConfig holds settings for the interactive browser
type BrowseConfig struct {
	DefaultEndpoint string        `yaml:"default_endpoint,omitempty"` // "now_playing" or "top_rated"
	FadeDuration    time.Duration `yaml:"fade_duration,omitempty"`
	PreloadPosters  int           `yaml:"preload_posters,omitempty"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"
}

// Defaults applied by Validate.
const (
	DefaultBaseURL        = "https://api.themoviedb.org/3"
	DefaultImageBaseURL   = "https://image.tmdb.org/t/p/"
	DefaultPosterSize     = "w342"
	DefaultEndpoint       = "now_playing"
	DefaultTimeout        = 30 * time.Second
	DefaultFadeDuration   = 600 * time.Millisecond
	DefaultPreloadPosters = 4
	DefaultUserAgent      = "flicks/0.1"
	maxPreloadPosters     = 32
)

var validPosterSizes = []string{"w92", "w154", "w185", "w342", "w500", "w780", "original"}

// Load loads configuration from a YAML file with environment variable overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a configuration from environment variables only, for runs
// without a config file.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides overrides config values with environment variables
func (c *Config) applyEnvOverrides() error {
	// TMDb
	if v := os.Getenv("FLICKS_TMDB_API_KEY"); v != "" {
		c.TMDb.APIKey = v
	}
	if v := os.Getenv("FLICKS_TMDB_BASE_URL"); v != "" {
		c.TMDb.BaseURL = v
	}

	// HTTP
	if v := os.Getenv("FLICKS_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FLICKS_HTTP_TIMEOUT: %w", err)
		}
		c.HTTP.Timeout = d
	}

	// App
	if v := os.Getenv("FLICKS_LOG_LEVEL"); v != "" {
		c.App.LogLevel = v
	}
	return nil
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.TMDb.APIKey == "" {
		return fmt.Errorf("tmdb.api_key is required")
	}

	if c.TMDb.BaseURL == "" {
		c.TMDb.BaseURL = DefaultBaseURL
	}
	if err := validateURL(c.TMDb.BaseURL); err != nil {
		return fmt.Errorf("tmdb.base_url %w", err)
	}
	if c.TMDb.ImageBaseURL == "" {
		c.TMDb.ImageBaseURL = DefaultImageBaseURL
	}
	if err := validateURL(c.TMDb.ImageBaseURL); err != nil {
		return fmt.Errorf("tmdb.image_base_url %w", err)
	}
	if c.TMDb.PosterSize == "" {
		c.TMDb.PosterSize = DefaultPosterSize
	}
	if !contains(validPosterSizes, c.TMDb.PosterSize) {
		return fmt.Errorf("tmdb.poster_size must be one of %s", strings.Join(validPosterSizes, ", "))
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultTimeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = DefaultUserAgent
	}

	if c.Browse.DefaultEndpoint == "" {
		c.Browse.DefaultEndpoint = DefaultEndpoint
	}
	if c.Browse.DefaultEndpoint != "now_playing" && c.Browse.DefaultEndpoint != "top_rated" {
		return fmt.Errorf("browse.default_endpoint must be 'now_playing' or 'top_rated'")
	}
	if c.Browse.FadeDuration < 0 {
		return fmt.Errorf("browse.fade_duration must not be negative")
	}
	if c.Browse.FadeDuration == 0 {
		c.Browse.FadeDuration = DefaultFadeDuration
	}
	if c.Browse.PreloadPosters < 0 || c.Browse.PreloadPosters > maxPreloadPosters {
		return fmt.Errorf("browse.preload_posters must be between 0 and %d", maxPreloadPosters)
	}
	if c.Browse.PreloadPosters == 0 {
		c.Browse.PreloadPosters = DefaultPreloadPosters
	}

	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug, info, warn, error")
	}

	return nil
}

// validateURL checks that raw is an absolute http(s) URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("is missing host")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
