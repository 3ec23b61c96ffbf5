// Package config loads the service configuration: built-in defaults, then an
// optional YAML file, then NINJA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NINJA_"

// Store backends accepted by cache.store.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Duration is a time.Duration written as a Go duration string ("90s", "1h").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type CacheConfig struct {
	TTL          Duration `yaml:"ttl"`
	Store        string   `yaml:"store"`
	Path         string   `yaml:"path"`
	Codec        string   `yaml:"codec"`
	SingleFlight bool     `yaml:"single_flight"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type UpstreamConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Timeout        Duration `yaml:"timeout"`
	Rate           float64  `yaml:"rate"`
	Burst          int      `yaml:"burst"`
	UserAgent      string   `yaml:"user_agent"`
	ItemFetchLimit int      `yaml:"item_fetch_limit"`
}

type WarmConfig struct {
	// Schedule is a standard five-field cron expression. Empty disables warming.
	Schedule string   `yaml:"schedule"`
	Leagues  []string `yaml:"leagues"`
}

type Config struct {
	Listen   string         `yaml:"listen"`
	League   string         `yaml:"league"`
	// Leagues lists the leagues clients may query. Empty means league plus
	// warm.leagues.
	Leagues  []string       `yaml:"leagues"`
	LogLevel string         `yaml:"log_level"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Warm     WarmConfig     `yaml:"warm"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		League:   "Standard",
		LogLevel: "info",
		Cache: CacheConfig{
			TTL:   Duration(time.Hour),
			Store: StoreMemory,
			Codec: "json",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "ninja:",
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://poe.ninja",
			Timeout:        Duration(30 * time.Second),
			Rate:           2,
			Burst:          4,
			UserAgent:      "go-ninja",
			ItemFetchLimit: 8,
		},
	}
}

// Load builds the configuration. envFiles are loaded with godotenv before the
// environment is read; when none are given a .env in the working directory is
// used if present. An empty path skips the YAML file.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("reading env files: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.League == "" {
		return fmt.Errorf("league is required")
	}
	if len(c.Leagues) > 0 {
		if !slices.Contains(c.Leagues, c.League) {
			return fmt.Errorf("league %q is not listed in leagues", c.League)
		}
		for _, l := range c.Warm.Leagues {
			if !slices.Contains(c.Leagues, l) {
				return fmt.Errorf("warm league %q is not listed in leagues", l)
			}
		}
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL.Std())
	}
	switch c.Cache.Store {
	case StoreMemory, StoreFile, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("cache.store must be one of memory, file, sqlite, redis, got %q", c.Cache.Store)
	}
	switch c.Cache.Codec {
	case "", "json", "msgpack":
	default:
		return fmt.Errorf("cache.codec must be json or msgpack, got %q", c.Cache.Codec)
	}
	if c.Cache.Store == StoreSQLite && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required by the sqlite store")
	}
	if c.Upstream.Rate < 0 {
		return fmt.Errorf("upstream.rate must not be negative")
	}
	if c.Warm.Schedule != "" {
		if _, err := cron.ParseStandard(c.Warm.Schedule); err != nil {
			return fmt.Errorf("warm.schedule: %w", err)
		}
	}
	return nil
}

// AllowedLeagues returns the leagues clients may query.
func (c *Config) AllowedLeagues() []string {
	if len(c.Leagues) > 0 {
		return c.Leagues
	}
	out := []string{c.League}
	for _, l := range c.Warm.Leagues {
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = Duration(d)
		}
	}

	str("LISTEN", &c.Listen)
	str("LEAGUE", &c.League)
	str("LOG_LEVEL", &c.LogLevel)
	if v, ok := lookup("LEAGUES"); ok {
		c.Leagues = splitList(v)
	}

	dur("CACHE_TTL", &c.Cache.TTL)
	str("CACHE_STORE", &c.Cache.Store)
	str("CACHE_PATH", &c.Cache.Path)
	str("CACHE_CODEC", &c.Cache.Codec)
	if v, ok := lookup("CACHE_SINGLE_FLIGHT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCACHE_SINGLE_FLIGHT: %w", EnvPrefix, err))
		} else {
			c.Cache.SingleFlight = b
		}
	}

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)
	str("REDIS_PREFIX", &c.Redis.Prefix)

	str("UPSTREAM_BASE_URL", &c.Upstream.BaseURL)
	dur("UPSTREAM_TIMEOUT", &c.Upstream.Timeout)
	if v, ok := lookup("UPSTREAM_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sUPSTREAM_RATE: %w", EnvPrefix, err))
		} else {
			c.Upstream.Rate = f
		}
	}
	num("UPSTREAM_BURST", &c.Upstream.Burst)
	str("UPSTREAM_USER_AGENT", &c.Upstream.UserAgent)
	num("UPSTREAM_ITEM_FETCH_LIMIT", &c.Upstream.ItemFetchLimit)

	str("WARM_SCHEDULE", &c.Warm.Schedule)
	if v, ok := lookup("WARM_LEAGUES"); ok {
		c.Warm.Leagues = splitList(v)
	}

	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
