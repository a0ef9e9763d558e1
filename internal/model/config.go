package model

import "time"

// Config is the complete runtime configuration for casestrength.
// Field tags serve both yaml.v3 (config init/show) and viper (mapstructure).
type Config struct {
	Schemas      SchemasConfig      `yaml:"schemas" mapstructure:"schemas"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Sessions     SessionsConfig     `yaml:"sessions" mapstructure:"sessions"`
	Analytics    AnalyticsConfig    `yaml:"analytics" mapstructure:"analytics"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// SchemasConfig selects where question schemas come from
type SchemasConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // Empty = built-in schemas
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	AllowedOrigins  string        `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	TrustedProxies  []string      `yaml:"trusted_proxies" mapstructure:"trusted_proxies"` // Addresses or CIDRs allowed to set X-Forwarded-For
}

// SessionsConfig configures the in-flight session store of the HTTP API
type SessionsConfig struct {
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	Dir             string        `yaml:"dir" mapstructure:"dir"` // Optional disk layer
}

// AnalyticsConfig configures the event-tracking sink
type AnalyticsConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"` // Empty = log events instead of posting
	APIKey     string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	HTTPProxy  string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// LLMConfig configures the optional narrative summary
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "" disables, "openai", "ollama"
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ConcurrencyConfig configures batch scoring
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig applies to API clients and to analytics delivery
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig configures how results are printed
type OutputConfig struct {
	Format        string `yaml:"format" mapstructure:"format"` // console, json, yaml, markdown
	Verbose       bool   `yaml:"verbose" mapstructure:"verbose"`
	LogLevel      string `yaml:"log_level" mapstructure:"log_level"`
	Contributions bool   `yaml:"contributions" mapstructure:"contributions"` // Include per-question breakdown
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigins:  "*",
		},
		Sessions: SessionsConfig{
			TTL:             30 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 400,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 10,
			BurstSize:         20,
		},
		Output: OutputConfig{
			Format:   "console",
			LogLevel: "info",
		},
	}
}
