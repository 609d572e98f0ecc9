package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the tool reads.
const EnvPrefix = "BSKYFOLLOW_"

// Config holds all configuration options for bskyfollow
type Config struct {
	// Bluesky service and account
	Bluesky BlueskyConfig `yaml:"bluesky" json:"bluesky"`

	// Write quotas and pacing
	Limits LimitsConfig `yaml:"limits" json:"limits"`

	// HTTP transport settings
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Profile enrichment settings
	Enrichment EnrichmentConfig `yaml:"enrichment" json:"enrichment"`

	// Whitelist storage
	Whitelist WhitelistConfig `yaml:"whitelist" json:"whitelist"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BlueskyConfig holds the PDS endpoint and login identity
type BlueskyConfig struct {
	Service     string `yaml:"service" json:"service"`
	AppURL      string `yaml:"app_url" json:"app_url"`
	Identifier  string `yaml:"identifier" json:"identifier"`
	AppPassword string `yaml:"app_password" json:"-"`
}

// QuotaConfig bounds one direction of bulk writes. Zero disables a ceiling.
type QuotaConfig struct {
	PerMinute int           `yaml:"per_minute" json:"per_minute"`
	PerHour   int           `yaml:"per_hour" json:"per_hour"`
	PerDay    int           `yaml:"per_day" json:"per_day"`
	Delay     time.Duration `yaml:"delay" json:"delay"`
}

// LimitsConfig holds write quotas and request pacing
type LimitsConfig struct {
	Follow            QuotaConfig   `yaml:"follow" json:"follow"`
	Unfollow          QuotaConfig   `yaml:"unfollow" json:"unfollow"`
	ListItemDelay     time.Duration `yaml:"list_item_delay" json:"list_item_delay"`
	RequestsPerWindow int           `yaml:"requests_per_window" json:"requests_per_window"`
	Window            time.Duration `yaml:"window" json:"window"`
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// EnrichmentConfig holds profile enrichment settings
type EnrichmentConfig struct {
	Workers      int           `yaml:"workers" json:"workers"`
	ProfileDelay time.Duration `yaml:"profile_delay" json:"profile_delay"`
}

// WhitelistConfig holds the whitelist location
type WhitelistConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnRateLimit      bool   `yaml:"on_rate_limit" json:"on_rate_limit"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Bluesky: BlueskyConfig{
			Service: "https://bsky.social",
			AppURL:  "https://bsky.app",
		},
		Limits: LimitsConfig{
			Follow: QuotaConfig{
				PerMinute: 60,
				PerHour:   1600,
				PerDay:    10000,
				Delay:     time.Second,
			},
			Unfollow: QuotaConfig{
				PerMinute: 60,
				PerHour:   3000,
				PerDay:    30000,
				Delay:     time.Second,
			},
			ListItemDelay:     25 * time.Millisecond,
			RequestsPerWindow: 2500,
			Window:            5 * time.Minute,
		},
		HTTP: HTTPConfig{
			Timeout:     30 * time.Second,
			MaxAttempts: 3,
			RetryDelay:  time.Second,
		},
		Enrichment: EnrichmentConfig{
			Workers:      4,
			ProfileDelay: 25 * time.Millisecond,
		},
		Whitelist: WhitelistConfig{
			Directory: defaultDataDir(),
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnRateLimit:      true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "bskyfollow")
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := env("SERVICE"); v != "" {
		c.Bluesky.Service = v
	}
	if v := env("IDENTIFIER"); v != "" {
		c.Bluesky.Identifier = v
	}
	if v := env("APP_PASSWORD"); v != "" {
		c.Bluesky.AppPassword = v
	}

	errs = append(errs,
		envInt("FOLLOWS_PER_MINUTE", &c.Limits.Follow.PerMinute),
		envInt("FOLLOWS_PER_HOUR", &c.Limits.Follow.PerHour),
		envInt("FOLLOWS_PER_DAY", &c.Limits.Follow.PerDay),
		envInt("UNFOLLOWS_PER_MINUTE", &c.Limits.Unfollow.PerMinute),
		envInt("UNFOLLOWS_PER_HOUR", &c.Limits.Unfollow.PerHour),
		envInt("UNFOLLOWS_PER_DAY", &c.Limits.Unfollow.PerDay),
		envDuration("FOLLOW_DELAY", &c.Limits.Follow.Delay),
		envDuration("UNFOLLOW_DELAY", &c.Limits.Unfollow.Delay),
		envInt("ENRICH_WORKERS", &c.Enrichment.Workers),
	)

	if v := env("WHITELIST_DIR"); v != "" {
		c.Whitelist.Directory = v
	}
	if v := env("NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := env("LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

func env(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func envInt(key string, dst *int) error {
	raw := env(key)
	if raw == "" {
		return nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = val
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	raw := env(key)
	if raw == "" {
		return nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = val
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
		".bskyfollow.yaml",
		".bskyfollow.yml",
		filepath.Join(home, ".config", "bskyfollow", "config.yaml"),
		filepath.Join(home, ".config", "bskyfollow", "config.yml"),
		filepath.Join(home, ".bskyfollow.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials are not
// required here since they may come from the credential store.
func (c *Config) Validate() error {
	var errs []error

	if c.Bluesky.Service == "" {
		errs = append(errs, errors.New("bluesky service URL is required"))
	} else if !strings.HasPrefix(c.Bluesky.Service, "http://") && !strings.HasPrefix(c.Bluesky.Service, "https://") {
		errs = append(errs, fmt.Errorf("bluesky service URL must be http(s): %q", c.Bluesky.Service))
	}

	errs = append(errs, c.Limits.Follow.validate("follow"), c.Limits.Unfollow.validate("unfollow"))
	if c.Limits.ListItemDelay < 0 {
		errs = append(errs, errors.New("list item delay cannot be negative"))
	}
	if c.Limits.RequestsPerWindow <= 0 {
		errs = append(errs, errors.New("requests per window must be positive"))
	}
	if c.Limits.Window <= 0 {
		errs = append(errs, errors.New("request window must be positive"))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http timeout must be positive"))
	}
	if c.HTTP.MaxAttempts <= 0 {
		errs = append(errs, errors.New("http max attempts must be positive"))
	}

	if c.Enrichment.Workers <= 0 {
		errs = append(errs, errors.New("enrichment workers must be positive"))
	}
	if c.Enrichment.Workers > 16 {
		errs = append(errs, errors.New("enrichment workers should not exceed 16"))
	}

	if c.Whitelist.Directory == "" {
		errs = append(errs, errors.New("whitelist directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	return errors.Join(errs...)
}

func (q QuotaConfig) validate(name string) error {
	var errs []error
	if q.PerMinute < 0 || q.PerHour < 0 || q.PerDay < 0 {
		errs = append(errs, fmt.Errorf("%s limits cannot be negative", name))
	}
	if q.PerMinute > 0 && q.PerHour > 0 && q.PerMinute > q.PerHour {
		errs = append(errs, fmt.Errorf("%s per-minute limit exceeds per-hour limit", name))
	}
	if q.Delay < 0 {
		errs = append(errs, fmt.Errorf("%s delay cannot be negative", name))
	}
	return errors.Join(errs...)
}

// HasCredentials reports whether both identifier and app password are set.
func (c *Config) HasCredentials() bool {
	return c.Bluesky.Identifier != "" && c.Bluesky.AppPassword != ""
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

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["service"].(string); ok && v != "" {
		c.Bluesky.Service = v
	}
	if v, ok := flags["identifier"].(string); ok && v != "" {
		c.Bluesky.Identifier = v
	}
	if v, ok := flags["whitelist-dir"].(string); ok && v != "" {
		c.Whitelist.Directory = v
	}
	if v, ok := flags["per-minute"].(int); ok && v >= 0 {
		c.Limits.Follow.PerMinute = v
		c.Limits.Unfollow.PerMinute = v
	}
	if v, ok := flags["delay"].(time.Duration); ok && v >= 0 {
		c.Limits.Follow.Delay = v
		c.Limits.Unfollow.Delay = v
	}
	if v, ok := flags["workers"].(int); ok && v > 0 {
		c.Enrichment.Workers = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".bskyfollow.env"))

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
