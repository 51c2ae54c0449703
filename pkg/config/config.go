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

// Config holds all configuration options for the client
type Config struct {
	// Remote token service that produces x-s / x-s-common values
	TokenServer TokenServerConfig `yaml:"token_server" json:"token_server"`

	// Target platform web API
	Platform PlatformConfig `yaml:"platform" json:"platform"`

	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Raw response logging
	ResponseLog ResponseLogConfig `yaml:"response_log" json:"response_log"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TokenServerConfig holds token service connection settings
type TokenServerConfig struct {
	URL                string        `yaml:"url" json:"url"`
	APIKey             string        `yaml:"api_key" json:"api_key"`
	CacheXSCommon      bool          `yaml:"cache_xs_common" json:"cache_xs_common"`
	Timeout            time.Duration `yaml:"timeout" json:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// PlatformConfig holds settings for requests to the platform API
type PlatformConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Origin      string        `yaml:"origin" json:"origin"`
	Referer     string        `yaml:"referer" json:"referer"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	CookiesPath string        `yaml:"cookies_path" json:"cookies_path"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds client-side rate limiting configuration
type RateLimitConfig struct {
	PlatformRequestsPerMinute int `yaml:"platform_requests_per_minute" json:"platform_requests_per_minute"`
	TokenRequestsPerHour      int `yaml:"token_requests_per_hour" json:"token_requests_per_hour"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// ResponseLogConfig controls where raw API responses are written
type ResponseLogConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Directory string `yaml:"directory" json:"directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

const (
	DefaultTokenServerURL = "https://31.97.132.244:8443"
	DefaultPlatformURL    = "https://edith.xiaohongshu.com"
	DefaultOrigin         = "https://www.xiaohongshu.com"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		TokenServer: TokenServerConfig{
			URL:           DefaultTokenServerURL,
			CacheXSCommon: true,
			Timeout:       5 * time.Second,
		},
		Platform: PlatformConfig{
			BaseURL:     DefaultPlatformURL,
			Origin:      DefaultOrigin,
			Referer:     DefaultOrigin + "/",
			UserAgent:   DefaultUserAgent,
			CookiesPath: "cookies.json",
			Timeout:     10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			PlatformRequestsPerMinute: 30,
			TokenRequestsPerHour:      1000,
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
		ResponseLog: ResponseLogConfig{
			Enabled:   true,
			Directory: "api_logs",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("XHS_TOKEN_SERVER_URL"); v != "" {
		c.TokenServer.URL = v
	}
	if v := os.Getenv("XHS_TOKEN_API_KEY"); v != "" {
		c.TokenServer.APIKey = v
	}
	if v := os.Getenv("XHS_TOKEN_INSECURE"); v != "" {
		c.TokenServer.InsecureSkipVerify = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("XHS_CACHE_XS_COMMON"); v != "" {
		c.TokenServer.CacheXSCommon = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("XHS_PLATFORM_URL"); v != "" {
		c.Platform.BaseURL = v
	}
	if v := os.Getenv("XHS_COOKIES_PATH"); v != "" {
		c.Platform.CookiesPath = v
	}
	if v := os.Getenv("XHS_USER_AGENT"); v != "" {
		c.Platform.UserAgent = v
	}

	if v := os.Getenv("XHS_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("XHS_REQUESTS_PER_MINUTE: %w", err))
		} else if n > 0 {
			c.RateLimit.PlatformRequestsPerMinute = n
		}
	}
	if v := os.Getenv("XHS_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("XHS_MAX_RETRIES: %w", err))
		} else {
			c.Retry.MaxAttempts = n
		}
	}

	if v := os.Getenv("XHS_RESPONSE_LOG_DIR"); v != "" {
		c.ResponseLog.Directory = v
	}
	if v := os.Getenv("XHS_RESPONSE_LOG_ENABLED"); v != "" {
		c.ResponseLog.Enabled = strings.ToLower(v) == "true"
	}

	if v := os.Getenv("XHS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("XHS_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // nothing to load
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
		".xhsclient.yaml",
		".xhsclient.yml",
		filepath.Join(home, ".config", "xhsclient", "config.yaml"),
		filepath.Join(home, ".config", "xhsclient", "config.yml"),
		filepath.Join(home, ".xhsclient.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.TokenServer.URL == "" {
		errs = append(errs, errors.New("token server URL is required"))
	} else if !strings.HasPrefix(c.TokenServer.URL, "http://") && !strings.HasPrefix(c.TokenServer.URL, "https://") {
		errs = append(errs, errors.New("token server URL must be http or https"))
	}
	if c.TokenServer.APIKey == "" {
		errs = append(errs, errors.New("token server API key is required"))
	}
	if c.TokenServer.Timeout <= 0 {
		errs = append(errs, errors.New("token server timeout must be positive"))
	}

	if c.Platform.BaseURL == "" {
		errs = append(errs, errors.New("platform base URL is required"))
	}
	if c.Platform.CookiesPath == "" {
		errs = append(errs, errors.New("cookies path is required"))
	}
	if c.Platform.Timeout <= 0 {
		errs = append(errs, errors.New("platform timeout must be positive"))
	}

	if c.RateLimit.PlatformRequestsPerMinute < 0 {
		errs = append(errs, errors.New("platform requests per minute cannot be negative"))
	}
	if c.RateLimit.TokenRequestsPerHour < 0 {
		errs = append(errs, errors.New("token requests per hour cannot be negative"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}
	if c.Retry.Enabled && c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.ResponseLog.Enabled && c.ResponseLog.Directory == "" {
		errs = append(errs, errors.New("response log directory is required when logging is enabled"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
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

	// may contain the API key
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Keys mirror the CLI flag names.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["token-server"].(string); ok && v != "" {
		c.TokenServer.URL = v
	}
	if v, ok := flags["api-key"].(string); ok && v != "" {
		c.TokenServer.APIKey = v
	}
	if v, ok := flags["insecure"].(bool); ok && v {
		c.TokenServer.InsecureSkipVerify = true
	}
	if v, ok := flags["cookies"].(string); ok && v != "" {
		c.Platform.CookiesPath = v
	}
	if v, ok := flags["log-dir"].(string); ok && v != "" {
		c.ResponseLog.Directory = v
	}
	if v, ok := flags["no-response-log"].(bool); ok && v {
		c.ResponseLog.Enabled = false
	}
	if v, ok := flags["max-retries"].(int); ok && v >= 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v > 0 {
		c.RateLimit.PlatformRequestsPerMinute = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment (including .env) > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	cfg, err := LoadUnvalidated(configPath, flags)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadUnvalidated resolves configuration like Load but skips Validate, for
// commands that inspect or repair configuration.
func LoadUnvalidated(configPath string, flags map[string]interface{}) (*Config, error) {
	// missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xhsclient.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	return cfg, nil
}
