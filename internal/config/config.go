package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the recommender service
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	NewsAPI NewsAPIConfig `yaml:"newsapi"`
	Storage StorageConfig `yaml:"storage"`
	Source  SourceConfig  `yaml:"source"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Port              string        `yaml:"port"`
	CORSOrigins       []string      `yaml:"cors_origins"`
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	RateLimitDisabled bool          `yaml:"rate_limit_disabled"`
}

// NewsAPIConfig holds headline API client configuration
type NewsAPIConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Country         string        `yaml:"country"`
	PageSize        int           `yaml:"page_size"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MinDelay        time.Duration `yaml:"min_delay"`
	MaxConcurrency  int           `yaml:"max_concurrency"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
	BreakerInterval time.Duration `yaml:"breaker_interval"`
	UserAgent       string        `yaml:"user_agent"`
}

// StorageConfig selects and configures the users/likes backend
type StorageConfig struct {
	Backend    string `yaml:"backend"` // memory, file or sqlite
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

// SourceConfig selects where candidate articles come from
type SourceConfig struct {
	Provider       string `yaml:"provider"` // newsapi or static
	CandidatesFile string `yaml:"candidates_file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              "5001",
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		NewsAPI: NewsAPIConfig{
			BaseURL:         "https://newsapi.org/v2",
			Country:         "us",
			PageSize:        100,
			RequestTimeout:  10 * time.Second,
			MinDelay:        200 * time.Millisecond,
			MaxConcurrency:  4,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
			BreakerInterval: time.Minute,
			UserAgent:       "NewsRecommender/1.0",
		},
		Storage: StorageConfig{
			Backend:    "memory",
			Dir:        "./data",
			SQLitePath: "./data/recommender.db",
			BcryptCost: 10,
		},
		Source: SourceConfig{
			Provider: "newsapi",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()
	if path := GetStringEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = GetStringEnv("PORT", c.Server.Port)
	c.Server.CORSOrigins = GetStringSliceEnv("CORS_ALLOWED_ORIGINS", c.Server.CORSOrigins)
	c.Server.RateLimitRequests = GetIntEnv("RATE_LIMIT_REQUESTS", c.Server.RateLimitRequests)
	c.Server.RateLimitWindow = GetDurationEnv("RATE_LIMIT_WINDOW", c.Server.RateLimitWindow)
	c.Server.RateLimitDisabled = GetBoolEnv("RATE_LIMIT_DISABLED", c.Server.RateLimitDisabled)

	c.NewsAPI.APIKey = GetStringEnv("NEWS_API_KEY", c.NewsAPI.APIKey)
	c.NewsAPI.BaseURL = GetStringEnv("NEWS_API_BASE_URL", c.NewsAPI.BaseURL)
	c.NewsAPI.Country = GetStringEnv("NEWS_API_COUNTRY", c.NewsAPI.Country)
	c.NewsAPI.PageSize = GetIntEnv("NEWS_API_PAGE_SIZE", c.NewsAPI.PageSize)
	c.NewsAPI.RequestTimeout = GetDurationEnv("NEWS_API_TIMEOUT", c.NewsAPI.RequestTimeout)
	c.NewsAPI.MinDelay = GetDurationEnv("NEWS_API_MIN_DELAY", c.NewsAPI.MinDelay)
	c.NewsAPI.MaxConcurrency = GetIntEnv("NEWS_API_MAX_CONCURRENCY", c.NewsAPI.MaxConcurrency)
	c.NewsAPI.BreakerFailures = uint32(GetIntEnv("NEWS_API_BREAKER_FAILURES", int(c.NewsAPI.BreakerFailures)))
	c.NewsAPI.BreakerTimeout = GetDurationEnv("NEWS_API_BREAKER_TIMEOUT", c.NewsAPI.BreakerTimeout)
	c.NewsAPI.BreakerInterval = GetDurationEnv("NEWS_API_BREAKER_INTERVAL", c.NewsAPI.BreakerInterval)
	c.NewsAPI.UserAgent = GetStringEnv("NEWS_API_USER_AGENT", c.NewsAPI.UserAgent)

	c.Storage.Backend = GetStringEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Dir = GetStringEnv("STORAGE_DIR", c.Storage.Dir)
	c.Storage.SQLitePath = GetStringEnv("STORAGE_SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.BcryptCost = GetIntEnv("STORAGE_BCRYPT_COST", c.Storage.BcryptCost)

	c.Source.Provider = GetStringEnv("CANDIDATE_SOURCE", c.Source.Provider)
	c.Source.CandidatesFile = GetStringEnv("CANDIDATES_FILE", c.Source.CandidatesFile)

	c.Log.Level = GetStringEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = GetStringEnv("LOG_FORMAT", c.Log.Format)
}

// Addr returns the listen address for the API server
func (s ServerConfig) Addr() string {
	if strings.Contains(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetStringSliceEnv splits a comma separated value, dropping empty items
func GetStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
