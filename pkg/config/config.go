package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Failure policies accepted by FAILURE_POLICY.
const (
	FailurePolicyAbort = "abort"
	FailurePolicySkip  = "skip"
)

// Browser drivers accepted by BROWSER_DRIVER.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     string `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	BrowserDriver  string   `mapstructure:"BROWSER_DRIVER"`
	BrowserProxies []string `mapstructure:"BROWSER_PROXIES"`
	UserAgent      string   `mapstructure:"USER_AGENT"`

	NavigationTimeout time.Duration `mapstructure:"NAVIGATION_TIMEOUT"`
	CrawlDeadline     time.Duration `mapstructure:"CRAWL_DEADLINE"`

	DefaultDepth     int    `mapstructure:"DEFAULT_DEPTH"`
	MaxDepth         int    `mapstructure:"MAX_DEPTH"`
	MaxPages         int    `mapstructure:"MAX_PAGES"`
	ExtractWorkers   int    `mapstructure:"EXTRACT_WORKERS"`
	FailurePolicy    string `mapstructure:"FAILURE_POLICY"`
	SameHostOnly     bool   `mapstructure:"SAME_HOST_ONLY"`
	CanonicalizeURLs bool   `mapstructure:"CANONICALIZE_URLS"`

	RespectRobots  bool          `mapstructure:"RESPECT_ROBOTS"`
	RobotsCacheTTL time.Duration `mapstructure:"ROBOTS_CACHE_TTL"`
	ResultCacheTTL time.Duration `mapstructure:"RESULT_CACHE_TTL"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing .env is fine; production is configured through the environment.
	_ = v.ReadInConfig()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "user")
	v.SetDefault("POSTGRES_PASSWORD", "password")
	v.SetDefault("POSTGRES_DB", "crawler")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("BROWSER_DRIVER", DriverChromedp)
	v.SetDefault("BROWSER_PROXIES", []string{})
	v.SetDefault("USER_AGENT", "")
	v.SetDefault("NAVIGATION_TIMEOUT", 30*time.Second)
	v.SetDefault("CRAWL_DEADLINE", 5*time.Minute)
	v.SetDefault("DEFAULT_DEPTH", 2)
	v.SetDefault("MAX_DEPTH", 5)
	v.SetDefault("MAX_PAGES", 500)
	v.SetDefault("EXTRACT_WORKERS", 1)
	v.SetDefault("FAILURE_POLICY", FailurePolicySkip)
	v.SetDefault("SAME_HOST_ONLY", true)
	v.SetDefault("CANONICALIZE_URLS", false)
	v.SetDefault("RESPECT_ROBOTS", false)
	v.SetDefault("ROBOTS_CACHE_TTL", time.Hour)
	v.SetDefault("RESULT_CACHE_TTL", 10*time.Minute)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the crawler cannot run with.
func (c *Config) Validate() error {
	switch c.BrowserDriver {
	case DriverChromedp, DriverRod:
	default:
		return fmt.Errorf("invalid BROWSER_DRIVER %q", c.BrowserDriver)
	}
	switch c.FailurePolicy {
	case FailurePolicyAbort, FailurePolicySkip:
	default:
		return fmt.Errorf("invalid FAILURE_POLICY %q", c.FailurePolicy)
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("NAVIGATION_TIMEOUT must be positive")
	}
	if c.CrawlDeadline <= 0 {
		return fmt.Errorf("CRAWL_DEADLINE must be positive")
	}
	if c.MaxDepth < 0 || c.DefaultDepth < 0 || c.DefaultDepth > c.MaxDepth {
		return fmt.Errorf("DEFAULT_DEPTH must be between 0 and MAX_DEPTH (%d)", c.MaxDepth)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be at least 1")
	}
	if c.ExtractWorkers < 1 {
		return fmt.Errorf("EXTRACT_WORKERS must be at least 1")
	}
	return nil
}

// PostgresDSN builds the pgx connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}
