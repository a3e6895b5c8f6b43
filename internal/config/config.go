// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.schoolscout/config.yaml or ./config.yaml)
//  3. Default values
//
// Sensitive values (API keys) are never logged; String and MarshalJSON
// mask them.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mvidal-dev/schoolscout/internal/crawler"
)

// Sentinel validation errors, checked with errors.Is.
var (
	ErrMissingAPIKey      = errors.New("missing OpenAI API key")
	ErrMissingArea        = errors.New("missing service area")
	ErrInvalidModelName   = errors.New("invalid model name")
	ErrInvalidTemperature = errors.New("invalid temperature")
	ErrInvalidMaxTokens   = errors.New("invalid max tokens")
	ErrInvalidExpiryDays  = errors.New("invalid cache expiry days")
	ErrInvalidMaxPages    = errors.New("invalid crawl page budget")
	ErrInvalidTimeout     = errors.New("invalid request timeout")
	ErrMissingIndexURL    = errors.New("missing index URL")
	ErrInvalidSchool      = errors.New("invalid school entry")
)

// School is one known school: its name, homepage, and any extra pages
// worth indexing directly.
type School struct {
	Name            string   `mapstructure:"name" json:"name"`
	Homepage        string   `mapstructure:"homepage" json:"homepage"`
	AdditionalLinks []string `mapstructure:"additional_links" json:"additional_links"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON. When adding new
// secrets, update that method.
type Config struct {
	// Service area the assistant covers, e.g. "the South Bay Area".
	Area string `mapstructure:"area" json:"area"`

	// Model configuration
	Model       string  `mapstructure:"model" json:"model"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens" json:"max_tokens"`

	// OpenAI-compatible endpoint
	OpenAIAPIKey  string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenAIBaseURL string `mapstructure:"openai_base_url" json:"openai_base_url"`

	// Google Maps Distance Matrix API. Empty disables travel tools.
	MapsAPIKey string `mapstructure:"maps_api_key" json:"maps_api_key"` // SENSITIVE: masked in MarshalJSON

	// Vector index service
	IndexURL string `mapstructure:"index_url" json:"index_url"`

	// Local state
	CacheDir   string `mapstructure:"cache_dir" json:"cache_dir"`
	SessionDir string `mapstructure:"session_dir" json:"session_dir"`
	PDFDir     string `mapstructure:"pdf_dir" json:"pdf_dir"`

	// Cache expiry windows, in days
	DocumentExpiryDays int `mapstructure:"document_expiry_days" json:"document_expiry_days"`
	CrawlExpiryDays    int `mapstructure:"crawl_expiry_days" json:"crawl_expiry_days"`

	// Crawl page budget per site
	CrawlMaxPages int `mapstructure:"crawl_max_pages" json:"crawl_max_pages"`

	// HTTP timeout for page fetches, in seconds
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" json:"request_timeout_seconds"`

	// Schools known to the assistant
	Schools []School `mapstructure:"schools" json:"schools"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".schoolscout")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("area", "")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("temperature", 0.3)
	v.SetDefault("max_tokens", 2000)

	v.SetDefault("index_url", "http://localhost:8001")

	v.SetDefault("cache_dir", filepath.Join(configDir, "cache"))
	v.SetDefault("session_dir", filepath.Join(configDir, "sessions"))
	v.SetDefault("pdf_dir", "data")

	v.SetDefault("document_expiry_days", 30)
	v.SetDefault("crawl_expiry_days", 14)
	v.SetDefault("crawl_max_pages", crawler.DefaultMaxPages)
	v.SetDefault("request_timeout_seconds", 30)
}

// bindEnvVariables binds environment overrides explicitly. Secrets are
// env-only; they have no place in the config file.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("openai_base_url", "OPENAI_ENDPOINT")
	mustBind("maps_api_key", "MAPS_API_KEY")
	mustBind("area", "CONFIG_AREA_STRING")
	mustBind("model", "SCHOOLSCOUT_MODEL")
	mustBind("index_url", "SCHOOLSCOUT_INDEX_URL")
}

// Validate fails fast on out-of-range or missing values.
func (c *Config) Validate() error {
	if c.Area == "" {
		return ErrMissingArea
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
	}
	if c.Model == "" {
		return ErrInvalidModelName
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v not in [0, 2]", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.DocumentExpiryDays <= 0 || c.CrawlExpiryDays <= 0 {
		return ErrInvalidExpiryDays
	}
	if c.CrawlMaxPages <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxPages, c.CrawlMaxPages)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTimeout, c.RequestTimeoutSeconds)
	}
	if c.IndexURL == "" {
		return ErrMissingIndexURL
	}
	for i, school := range c.Schools {
		if school.Name == "" || school.Homepage == "" {
			return fmt.Errorf("%w: entry %d needs name and homepage", ErrInvalidSchool, i)
		}
	}
	return nil
}

// SchoolNames returns the configured school names in order.
func (c *Config) SchoolNames() []string {
	names := make([]string, len(c.Schools))
	for i, s := range c.Schools {
		names[i] = s.Name
	}
	return names
}

const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debug
// utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	a.MapsAPIKey = maskSecret(a.MapsAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
