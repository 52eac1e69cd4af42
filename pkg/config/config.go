package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the config reads
const EnvPrefix = "IGPICKER_"

// Config holds all configuration options for igpicker
type Config struct {
	// Scraping provider access
	Provider ProviderConfig `yaml:"provider" json:"provider" envPrefix:"PROVIDER_"`

	// Pacing of provider calls
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit" envPrefix:"RATE_LIMIT_"`

	// Retry policy for provider calls
	Retry RetryConfig `yaml:"retry" json:"retry" envPrefix:"RETRY_"`

	// Export file settings
	Export ExportConfig `yaml:"export" json:"export" envPrefix:"EXPORT_"`

	// Web front end
	Server ServerConfig `yaml:"server" json:"server" envPrefix:"SERVER_"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications" envPrefix:"NOTIFICATIONS_"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging" envPrefix:"LOG_"`
}

// ProviderConfig holds the scraping provider settings
type ProviderConfig struct {
	Token        string        `yaml:"token" json:"token" env:"TOKEN"`
	BaseURL      string        `yaml:"base_url" json:"base_url" env:"BASE_URL"`
	Actor        string        `yaml:"actor" json:"actor" env:"ACTOR"`
	ResultsLimit int           `yaml:"results_limit" json:"results_limit" env:"RESULTS_LIMIT"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
}

// RetryConfig holds the retry policy. Disabled by default: each username
// gets exactly one request.
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled" env:"ENABLED"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts" env:"MAX_ATTEMPTS"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay" env:"INITIAL_DELAY"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay" env:"MAX_DELAY"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier" env:"MULTIPLIER"`
}

// ExportConfig holds export file configuration
type ExportConfig struct {
	Format            string `yaml:"format" json:"format" env:"FORMAT"`
	FileName          string `yaml:"file_name" json:"file_name" env:"FILE_NAME"`
	OutputDirectory   string `yaml:"output_directory" json:"output_directory" env:"OUTPUT_DIR"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing" env:"OVERWRITE"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host              string        `yaml:"host" json:"host" env:"HOST"`
	Port              int           `yaml:"port" json:"port" env:"PORT"`
	Mode              string        `yaml:"mode" json:"mode" env:"MODE"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Burst             int           `yaml:"burst" json:"burst" env:"BURST"`
	SessionTTL        time.Duration `yaml:"session_ttl" json:"session_ttl" env:"SESSION_TTL"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled  bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
	OnExport bool `yaml:"on_export" json:"on_export" env:"ON_EXPORT"`
	OnError  bool `yaml:"on_error" json:"on_error" env:"ON_ERROR"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LEVEL"`
	Format string `yaml:"format" json:"format" env:"FORMAT"`
	File   string `yaml:"file" json:"file" env:"FILE"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:      "https://api.apify.com",
			Actor:        "apify~instagram-scraper",
			ResultsLimit: 5,
			Timeout:      120 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
		},
		Retry: RetryConfig{
			Enabled:      false,
			MaxAttempts:  3,
			InitialDelay: 2 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		Export: ExportConfig{
			Format:            "csv",
			FileName:          "instagram_photos",
			OutputDirectory:   ".",
			OverwriteExisting: false,
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8501,
			Mode:              "release",
			RequestsPerSecond: 2,
			Burst:             5,
			SessionTTL:        30 * time.Minute,
		},
		Notifications: NotificationConfig{
			Enabled:  false,
			OnExport: true,
			OnError:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv overlays IGPICKER_* environment variables onto the config.
// Unset variables leave the current values untouched. APIFY_TOKEN is
// honoured when no prefixed token is present.
func (c *Config) LoadFromEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	if c.Provider.Token == "" {
		c.Provider.Token = os.Getenv("APIFY_TOKEN")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igpicker.yaml",
		".igpicker.yml",
		filepath.Join(home, ".config", "igpicker", "config.yaml"),
		filepath.Join(home, ".config", "igpicker", "config.yml"),
		filepath.Join(home, ".igpicker.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. The provider token is not
// checked here: it may come from the credential store or a form field and
// is validated when a fetch starts.
func (c *Config) Validate() error {
	var errs []error

	if c.Provider.BaseURL == "" {
		errs = append(errs, errors.New("provider base URL is required"))
	} else if u, err := url.Parse(c.Provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid provider base URL: %q", c.Provider.BaseURL))
	}
	if c.Provider.Actor == "" {
		errs = append(errs, errors.New("provider actor is required"))
	}
	if c.Provider.ResultsLimit < 1 || c.Provider.ResultsLimit > 50 {
		errs = append(errs, errors.New("results limit must be between 1 and 50"))
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, errors.New("provider timeout must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts < 1 {
			errs = append(errs, errors.New("retry max attempts must be at least 1"))
		}
		if c.Retry.Multiplier < 1 {
			errs = append(errs, errors.New("retry multiplier must be at least 1"))
		}
		if c.Retry.InitialDelay <= 0 || c.Retry.MaxDelay < c.Retry.InitialDelay {
			errs = append(errs, errors.New("retry delays must be positive and max delay must not be below initial delay"))
		}
	}

	switch strings.ToLower(c.Export.Format) {
	case "csv", "xlsx":
	default:
		errs = append(errs, fmt.Errorf("invalid export format: %q", c.Export.Format))
	}
	if c.Export.FileName == "" {
		errs = append(errs, errors.New("export file name is required"))
	}
	if c.Export.OutputDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}
	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		errs = append(errs, fmt.Errorf("invalid server mode: %q", c.Server.Mode))
	}
	if c.Server.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("server requests per second must be positive"))
	}
	if c.Server.Burst <= 0 {
		errs = append(errs, errors.New("server burst must be positive"))
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, errors.New("session TTL must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, errors.New("invalid log format"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Zero values are ignored so unset flags never clobber other sources.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["token"].(string); ok && token != "" {
		c.Provider.Token = token
	}
	if limit, ok := flags["limit"].(int); ok && limit > 0 {
		c.Provider.ResultsLimit = limit
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Provider.Timeout = timeout
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Export.OutputDirectory = outputDir
	}
	if format, ok := flags["format"].(string); ok && format != "" {
		c.Export.Format = strings.ToLower(format)
	}
	if overwrite, ok := flags["overwrite"].(bool); ok && overwrite {
		c.Export.OverwriteExisting = true
	}
	if host, ok := flags["host"].(string); ok && host != "" {
		c.Server.Host = host
	}
	if port, ok := flags["port"].(int); ok && port > 0 {
		c.Server.Port = port
	}
	if notify, ok := flags["notify"].(bool); ok && notify {
		c.Notifications.Enabled = true
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igpicker.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
