// Package config loads application settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "MEDIUMPLUS"

type Config struct {
	Env     string        `mapstructure:"env"`
	Server  ServerConfig  `mapstructure:"server"`
	Content ContentConfig `mapstructure:"content"`
	Sanity  SanityConfig  `mapstructure:"sanity"`
	Pages   PagesConfig   `mapstructure:"pages"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// ContentConfig selects where posts come from. The memory source is seeded
// with SeedPosts generated posts.
type ContentConfig struct {
	Source    string `mapstructure:"source"`
	SeedPosts int    `mapstructure:"seedPosts"`
}

type SanityConfig struct {
	ProjectID  string `mapstructure:"projectId"`
	Dataset    string `mapstructure:"dataset"`
	APIVersion string `mapstructure:"apiVersion"`
	UseCDN     bool   `mapstructure:"useCdn"`
	Token      string `mapstructure:"token"`
}

type PagesConfig struct {
	Revalidate       time.Duration `mapstructure:"revalidate"`
	PrebuildSchedule string        `mapstructure:"prebuildSchedule"`
}

type CacheConfig struct {
	Backend       string `mapstructure:"backend"`
	BadgerPath    string `mapstructure:"badgerPath"`
	InMemory      bool   `mapstructure:"inMemory"`
	RedisAddr     string `mapstructure:"redisAddr"`
	RedisPassword string `mapstructure:"redisPassword"`
	RedisDB       int    `mapstructure:"redisDb"`
}

// KafkaConfig enables comment events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Content sources.
const (
	SourceSanity = "sanity"
	SourceMemory = "memory"
)

// Page store backends.
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

var defaults = map[string]interface{}{
	"env":                    "development",
	"server.addr":            ":8080",
	"server.shutdownTimeout": "5s",
	"content.source":         SourceSanity,
	"content.seedPosts":      5,
	"sanity.projectId":       "",
	"sanity.dataset":         "production",
	"sanity.apiVersion":      "2021-10-21",
	"sanity.token":           "",
	"pages.revalidate":       "60s",
	"pages.prebuildSchedule": "@every 10m",
	"cache.backend":          BackendBadger,
	"cache.badgerPath":       "data/pages",
	"cache.inMemory":         false,
	"cache.redisAddr":        "",
	"cache.redisPassword":    "",
	"cache.redisDb":          0,
	"kafka.brokers":          []string{},
	"kafka.topic":            "blog.comment.submitted",
	"log.level":              "info",
	"log.development":        false,
}

// Variable names the CMS tooling and the previous front end already use,
// accepted after the MEDIUMPLUS_ ones in the listed order.
var legacyEnv = map[string][]string{
	"sanity.projectId":  {"SANITY_PROJECT_ID", "NEXT_PUBLIC_SANITY_PROJECT_ID"},
	"sanity.dataset":    {"SANITY_DATASET", "NEXT_PUBLIC_SANITY_DATASET"},
	"sanity.apiVersion": {"SANITY_API_VERSION"},
	"sanity.useCdn":     {"SANITY_USE_CDN"},
	"sanity.token":      {"SANITY_API_TOKEN"},
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, legacy...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if !v.IsSet("sanity.useCdn") {
		cfg.Sanity.UseCDN = cfg.Env == "production"
	}
	return &cfg, nil
}

// Validate reports every setting that would prevent the server from starting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Content.Source {
	case SourceSanity:
		if c.Sanity.ProjectID == "" {
			errs = append(errs, errors.New("sanity.projectId is required for the sanity content source"))
		}
	case SourceMemory:
		if c.Content.SeedPosts < 0 {
			errs = append(errs, errors.New("content.seedPosts must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown content.source %q", c.Content.Source))
	}

	if c.Pages.Revalidate <= 0 {
		errs = append(errs, fmt.Errorf("pages.revalidate must be positive, got %s", c.Pages.Revalidate))
	}

	switch c.Cache.Backend {
	case BackendBadger:
		if !c.Cache.InMemory && c.Cache.BadgerPath == "" {
			errs = append(errs, errors.New("cache.badgerPath is required unless cache.inMemory is set"))
		}
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redisAddr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", c.Cache.Backend))
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	return errors.Join(errs...)
}
