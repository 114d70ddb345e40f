// Package config loads prompter settings from the environment. A .env file
// in the working directory is read first; variables use the PROMPTER_ prefix.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jwulff/prompter/internal/answer"
)

const envPrefix = "PROMPTER"

// Config holds all runtime settings.
type Config struct {
	// OpenAIAPIKey is read from PROMPTER_OPENAI_API_KEY, then OPENAI_API_KEY.
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	Endpoint       string        `default:"https://api.openai.com/v1/chat/completions"`
	Model          string        `default:"gpt-4o-mini"`
	SystemPrompt   string        `split_words:"true"`
	MaxTokens      int           `split_words:"true" default:"300"`
	Temperature    float64       `default:"0.3"`
	Stream         bool          `default:"true"`
	RequestTimeout time.Duration `split_words:"true" default:"60s"`

	// SocketPath is the recognizer daemon socket. CaptureURL, when set,
	// selects a websocket recognizer instead.
	SocketPath  string `split_words:"true"`
	CaptureURL  string `split_words:"true"`
	Locale      string `default:"en-US"`
	MaxRestarts int    `split_words:"true" default:"5"`

	DBPath string `split_words:"true"`

	CacheSize int           `split_words:"true" default:"128"`
	CacheTTL  time.Duration `split_words:"true" default:"30m"`

	Log LogConfig
}

// LogConfig controls the log level and the optional rotated log file.
type LogConfig struct {
	Level      string `default:"info"`
	Dir        string
	MaxSizeMB  int  `split_words:"true" default:"10"`
	MaxBackups int  `split_words:"true" default:"3"`
	MaxAgeDays int  `split_words:"true" default:"7"`
	Compress   bool `default:"true"`
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// Validate checks ranges. A missing API key is not an error here; it is
// reported when an answer is requested.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive: %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature out of range [0,2]: %v", c.Temperature)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout is negative: %v", c.RequestTimeout)
	}
	if u, err := url.Parse(c.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid endpoint: %q", c.Endpoint)
	}
	if c.CaptureURL != "" {
		u, err := url.Parse(c.CaptureURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("capture url must be ws:// or wss://: %q", c.CaptureURL)
		}
	}
	if c.MaxRestarts < 0 {
		return fmt.Errorf("max restarts is negative: %d", c.MaxRestarts)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive: %d", c.CacheSize)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive: %v", c.CacheTTL)
	}
	return nil
}

// HasAPIKey reports whether an answer can be requested.
func (c *Config) HasAPIKey() bool {
	return strings.TrimSpace(c.OpenAIAPIKey) != ""
}

// AnswerConfig maps the settings onto the answer client's configuration.
func (c *Config) AnswerConfig() answer.Config {
	return answer.Config{
		APIKey:       strings.TrimSpace(c.OpenAIAPIKey),
		Endpoint:     c.Endpoint,
		Model:        c.Model,
		SystemPrompt: c.SystemPrompt,
		MaxTokens:    c.MaxTokens,
		Temperature:  c.Temperature,
		Stream:       c.Stream,
	}
}

// LogEnvStatus logs the effective settings with the key masked.
func LogEnvStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Debug(
		"env_status",
		"api_key", maskSecret(cfg.OpenAIAPIKey),
		"endpoint", cfg.Endpoint,
		"model", cfg.Model,
		"stream", cfg.Stream,
		"capture_url", cfg.CaptureURL,
		"socket_path", cfg.SocketPath,
		"db_path", cfg.DBPath,
		"cache_size", cfg.CacheSize,
	)
}

func maskSecret(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
