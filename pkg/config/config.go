package config

import (
	"time"
)

// Config represents the complete configuration for the Pulss gating service.
// It provides type-safe access to all configuration values with validation.
type Config struct {
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Database  DatabaseConfig  `koanf:"database"  validate:"required"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Audit     AuditConfig     `koanf:"audit"`
	Runtime   RuntimeConfig   `koanf:"runtime"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host        string        `koanf:"host"         validate:"required"`
	Port        int           `koanf:"port"         validate:"min=1,max=65535"`
	// BaseDomain is the platform suffix used to extract tenant subdomain
	// slugs, e.g. "pulss.io" for hosts like "acme.pulss.io".
	BaseDomain  string        `koanf:"base_domain"`
	Timeout     time.Duration `koanf:"timeout"`
	CORSEnabled bool          `koanf:"cors_enabled"`
	CORS        CORSConfig    `koanf:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

// DatabaseConfig contains database connection configuration.
type DatabaseConfig struct {
	ConnString string          `koanf:"conn_string"`
	Host       string          `koanf:"host"`
	Port       string          `koanf:"port"`
	User       string          `koanf:"user"`
	Password   SensitiveString `koanf:"password"    sensitive:"true"`
	DBName     string          `koanf:"name"`
	SSLMode    string          `koanf:"ssl_mode"`
}

// RedisConfig contains the cache and counter-store connection settings.
type RedisConfig struct {
	URL         string          `koanf:"url"`
	Host        string          `koanf:"host"`
	Port        string          `koanf:"port"`
	Password    SensitiveString `koanf:"password"     sensitive:"true"`
	DB          int             `koanf:"db"`
	PingTimeout time.Duration   `koanf:"ping_timeout"`
}

// AuthConfig contains credential validation configuration.
type AuthConfig struct {
	Enabled        bool          `koanf:"enabled"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	ExcludedPaths  []string      `koanf:"excluded_paths"`
	BcryptCost     int           `koanf:"bcrypt_cost"     validate:"min=4,max=31"`
	BackgroundSlot int           `koanf:"background_slot" validate:"min=1"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `koanf:"enabled"`
	// Store selects the window counter backend. Redis is the hot-path
	// default; postgres keeps counters queryable for analytics.
	Store string `koanf:"store" validate:"omitempty,oneof=redis postgres"`
	// GlobalIPRate caps unauthenticated traffic per client IP.
	GlobalIPRate  RateConfig `koanf:"global_ip_rate"`
	Prefix        string     `koanf:"prefix"`
	FailOpen      bool       `koanf:"fail_open"`
	ExcludedPaths []string   `koanf:"excluded_paths"`
}

// RateConfig represents a single rate limit configuration.
type RateConfig struct {
	Period   time.Duration `koanf:"period"`
	Limit    int64         `koanf:"limit"`
	Disabled bool          `koanf:"disabled"`
}

// AuditConfig contains the async audit recorder configuration.
type AuditConfig struct {
	Enabled      bool          `koanf:"enabled"`
	QueueSize    int           `koanf:"queue_size"    validate:"min=1"`
	Workers      int           `koanf:"workers"       validate:"min=1"`
	DrainTimeout time.Duration `koanf:"drain_timeout"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error"`
	LogJSON     bool   `koanf:"log_json"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			BaseDomain: "pulss.io",
			Timeout:    30 * time.Second,
			CORS: CORSConfig{
				AllowedOrigins: []string{},
				MaxAge:         3600,
			},
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "pulss",
			DBName:  "pulss",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Host:        "localhost",
			Port:        "6379",
			DB:          0,
			PingTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			Enabled:        true,
			CacheTTL:       30 * time.Second,
			ExcludedPaths:  []string{"/health", "/metrics"},
			BcryptCost:     10,
			BackgroundSlot: 10,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Store:   "redis",
			GlobalIPRate: RateConfig{
				Limit:  300,
				Period: 1 * time.Minute,
			},
			Prefix:        "pulss:ratelimit:",
			FailOpen:      true,
			ExcludedPaths: []string{"/health", "/metrics"},
		},
		Audit: AuditConfig{
			Enabled:      true,
			QueueSize:    1024,
			Workers:      2,
			DrainTimeout: 5 * time.Second,
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
	}
}
