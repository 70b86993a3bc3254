// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/afl-job-crawler/internal/taxonomy"
)

// EnvPrefix prefixes every environment override, e.g. AFL_DB_DSN.
const EnvPrefix = "AFL"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	DB          DBConfig          `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Platsbanken PlatsbankenConfig `mapstructure:"platsbanken"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Crawl       CrawlConfig       `mapstructure:"crawl"`
	PubSub      PubSubConfig      `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// DBConfig controls access to Postgres. An empty DSN selects the in-memory store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig locates the crawl queue and run lock. An empty URL keeps both in memory.
type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	QueueKey string        `mapstructure:"queue_key"`
	LockKey  string        `mapstructure:"lock_key"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// PlatsbankenConfig configures the job search API client.
type PlatsbankenConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// GeminiConfig configures the extraction model.
type GeminiConfig struct {
	Tokens         []string `mapstructure:"tokens"`
	Model          string   `mapstructure:"model"`
	MaxAttempts    int      `mapstructure:"max_attempts"`
	BackoffSeconds int      `mapstructure:"backoff_seconds"`
}

// CrawlConfig sets the crawl matrix and schedule.
type CrawlConfig struct {
	Fields                []string `mapstructure:"fields"`
	Regions               []string `mapstructure:"regions"`
	Schedule              string   `mapstructure:"schedule"`
	RunOnStart            bool     `mapstructure:"run_on_start"`
	MaxCombinationsPerRun int      `mapstructure:"max_combinations_per_run"`
}

// PubSubConfig holds metadata for job.created notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Load builds a Config from an optional .env file, an optional config file
// and the environment, in increasing precedence.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "jobs")
	v.SetDefault("db.max_conns", 0)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.queue_key", "crawl:queue")
	v.SetDefault("redis.lock_key", "crawl:lock")
	v.SetDefault("redis.lock_ttl", 2*time.Hour)
	v.SetDefault("platsbanken.base_url", "https://platsbanken-api.arbetsformedlingen.se/jobs/v1")
	v.SetDefault("platsbanken.timeout_seconds", 30)
	v.SetDefault("platsbanken.requests_per_second", 0)
	v.SetDefault("gemini.tokens", []string{})
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.max_attempts", 32)
	v.SetDefault("gemini.backoff_seconds", 60)
	v.SetDefault("crawl.fields", taxonomy.FieldCodes())
	v.SetDefault("crawl.regions", taxonomy.RegionCodes())
	v.SetDefault("crawl.schedule", "@every 1h")
	v.SetDefault("crawl.run_on_start", true)
	v.SetDefault("crawl.max_combinations_per_run", 0)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
}

func (c *Config) normalize() {
	c.Gemini.Tokens = splitList(c.Gemini.Tokens)
	c.Crawl.Fields = splitList(c.Crawl.Fields)
	c.Crawl.Regions = splitList(c.Crawl.Regions)
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Platsbanken.TimeoutSeconds <= 0 {
		return fmt.Errorf("platsbanken.timeout_seconds must be > 0")
	}
	if c.Platsbanken.RequestsPerSecond < 0 {
		return fmt.Errorf("platsbanken.requests_per_second must be >= 0")
	}
	if c.Gemini.MaxAttempts <= 0 {
		return fmt.Errorf("gemini.max_attempts must be > 0")
	}
	if c.Gemini.BackoffSeconds < 0 {
		return fmt.Errorf("gemini.backoff_seconds must be >= 0")
	}
	if c.Crawl.Schedule == "" {
		return fmt.Errorf("crawl.schedule is required")
	}
	if c.Crawl.MaxCombinationsPerRun < 0 {
		return fmt.Errorf("crawl.max_combinations_per_run must be >= 0")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.Topic == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic must be set together")
	}
	return nil
}

// ValidateCrawl adds the requirements that only apply when crawling.
func (c Config) ValidateCrawl() error {
	if len(c.Gemini.Tokens) == 0 {
		return fmt.Errorf("gemini.tokens is required to crawl")
	}
	if len(c.Crawl.Fields) == 0 || len(c.Crawl.Regions) == 0 {
		return fmt.Errorf("crawl.fields and crawl.regions must not be empty")
	}
	return nil
}

// PlatsbankenTimeout returns the API client timeout.
func (c Config) PlatsbankenTimeout() time.Duration {
	return time.Duration(c.Platsbanken.TimeoutSeconds) * time.Second
}

// GeminiBackoff returns the wait applied after an unstructured rate limit.
func (c Config) GeminiBackoff() time.Duration {
	return time.Duration(c.Gemini.BackoffSeconds) * time.Second
}
