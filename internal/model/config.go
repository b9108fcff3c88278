package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete TruthLens configuration.
// Hierarchy (highest first): CLI flags, TRUTHLENS_* env vars, config file, defaults.
type Config struct {
	Server       ServerConfig   `yaml:"server" mapstructure:"server"`
	Analysis     ProviderConfig `yaml:"analysis" mapstructure:"analysis"`
	Verification VerifyConfig   `yaml:"verification" mapstructure:"verification"`
	Pipeline     PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Fetch        FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	History      HistoryConfig  `yaml:"history" mapstructure:"history"`
	Cache        CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Events       EventsConfig   `yaml:"events" mapstructure:"events"`
	Log          LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr       string  `yaml:"addr" mapstructure:"addr"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second per client
	RateBurst  int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigin string  `yaml:"cors_origin" mapstructure:"cors_origin"`
}

// ProviderConfig selects and configures one upstream LLM
type ProviderConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, perplexity
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// VerifyConfig configures the search-augmented fact-check service
type VerifyConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	SearchRecency  string `yaml:"search_recency" mapstructure:"search_recency"`
	ProviderConfig `yaml:",inline" mapstructure:",squash"`
}

// PipelineConfig controls how the two upstream calls are sequenced
type PipelineConfig struct {
	Parallel    bool          `yaml:"parallel" mapstructure:"parallel"`
	StepTimeout time.Duration `yaml:"step_timeout" mapstructure:"step_timeout"`
}

// FetchConfig controls optional page extraction for URL submissions
type FetchConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent       string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxExcerptChars int           `yaml:"max_excerpt_chars" mapstructure:"max_excerpt_chars"`
	RespectRobots   bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy       string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy      string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// HistoryConfig selects the durable backend for analysis history
type HistoryConfig struct {
	Backend string   `yaml:"backend" mapstructure:"backend"` // sqlite, s3, none
	Path    string   `yaml:"path" mapstructure:"path"`
	Key     string   `yaml:"key" mapstructure:"key"`
	S3      S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config locates the history object in S3 or an S3-compatible store
type S3Config struct {
	Bucket       string `yaml:"bucket" mapstructure:"bucket"`
	Prefix       string `yaml:"prefix" mapstructure:"prefix"`
	Region       string `yaml:"region,omitempty" mapstructure:"region"`
	Profile      string `yaml:"profile,omitempty" mapstructure:"profile"`
	UsePathStyle bool   `yaml:"use_path_style" mapstructure:"use_path_style"`
}

// CacheConfig controls result caching
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend       string        `yaml:"backend" mapstructure:"backend"` // memory, layered, redis
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir           string        `yaml:"dir" mapstructure:"dir"`
	RedisAddr     string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// EventsConfig controls publishing completed analyses to Kafka
type EventsConfig struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// LogConfig controls the logger
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	dataDir := DataDir()

	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			RateLimit:  2,
			RateBurst:  5,
			CORSOrigin: "*",
		},
		Analysis: ProviderConfig{
			Provider:  "openai",
			Model:     "google/gemini-2.5-flash",
			BaseURL:   "https://ai.gateway.lovable.dev/v1",
			Timeout:   30 * time.Second,
			MaxTokens: 1500,
		},
		Verification: VerifyConfig{
			Enabled:       true,
			SearchRecency: "month",
			ProviderConfig: ProviderConfig{
				Provider: "perplexity",
				Model:    "sonar",
				BaseURL:  "https://api.perplexity.ai",
				Timeout:  30 * time.Second,
			},
		},
		Pipeline: PipelineConfig{
			Parallel:    false,
			StepTimeout: 30 * time.Second,
		},
		Fetch: FetchConfig{
			Enabled:         false,
			Timeout:         15 * time.Second,
			UserAgent:       "TruthLens/0.1 (+https://github.com/ppiankov/truthlens)",
			MaxBodyBytes:    2_000_000,
			MaxExcerptChars: 4000,
			RespectRobots:   true,
		},
		History: HistoryConfig{
			Backend: "sqlite",
			Path:    filepath.Join(dataDir, "history.db"),
			Key:     "crisis-verifier-history",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "memory",
			TTL:       10 * time.Minute,
			Dir:       filepath.Join(dataDir, "cache"),
			RedisAddr: "localhost:6379",
		},
		Events: EventsConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "truthlens.analyses",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DataDir is where TruthLens keeps its config and local state
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".truthlens"
	}
	return filepath.Join(home, ".truthlens")
}
