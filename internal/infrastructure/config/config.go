package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Chat      ChatConfig
	Weather   WeatherConfig
	Desktop   DesktopConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string   `envconfig:"LOG_LEVEL" default:"info"`
	Development bool     `envconfig:"LOG_DEV" default:"false"`
	Format      string   `envconfig:"LOG_FORMAT"` // json or console; empty follows LOG_DEV
	Outputs     []string `envconfig:"LOG_OUTPUT" default:"stdout"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CORSConfig lists the browser origins allowed to call the API.
// "*" allows every origin.
type CORSConfig struct {
	Origins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// ChatConfig holds the chat completion upstream settings.
type ChatConfig struct {
	APIKey  string        `envconfig:"OPENAI_API_KEY"`
	BaseURL string        `envconfig:"CHAT_BASE_URL" default:"https://api.openai.com/v1"`
	Model   string        `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"CHAT_TIMEOUT" default:"30s"`
}

// WeatherConfig holds the weather upstream settings.
type WeatherConfig struct {
	APIKey      string        `envconfig:"WEATHER_API_KEY"`
	BaseURL     string        `envconfig:"WEATHER_BASE_URL" default:"https://api.weatherapi.com/v1"`
	DefaultCity string        `envconfig:"WEATHER_DEFAULT_CITY" default:"New York"`
	Timeout     time.Duration `envconfig:"WEATHER_TIMEOUT" default:"30s"`
}

// DesktopConfig holds desktop session limits.
type DesktopConfig struct {
	AppsFile     string        `envconfig:"APPS_FILE"`
	SessionTTL   time.Duration `envconfig:"DESKTOP_SESSION_TTL" default:"30m"`
	ReapInterval time.Duration `envconfig:"DESKTOP_REAP_INTERVAL" default:"1m"`
	MaxSessions  int           `envconfig:"DESKTOP_MAX_SESSIONS" default:"1000"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
			Outputs:     []string{"stdout"},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		CORS: CORSConfig{
			Origins: []string{"*"},
		},
		Chat: ChatConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL:     "https://api.weatherapi.com/v1",
			DefaultCity: "New York",
			Timeout:     30 * time.Second,
		},
		Desktop: DesktopConfig{
			SessionTTL:   30 * time.Minute,
			ReapInterval: time.Minute,
			MaxSessions:  1000,
		},
	}
}
