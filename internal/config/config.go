// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Source  SourceConfig  `mapstructure:"source"`
	DB      DBConfig      `mapstructure:"db"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SourceConfig describes the catalog site and the crawl politeness policy.
type SourceConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	UserAgent      string   `mapstructure:"user_agent"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	DelayMs        int      `mapstructure:"delay_ms"`
	PageTemplates  []string `mapstructure:"page_templates"`
	EmptyStreak    int      `mapstructure:"empty_streak"`
	MaxPages       int      `mapstructure:"max_pages"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory store, which is enough for development and tests.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime_minutes"`
}

// StoreConfig holds query-matching behavior toggles.
type StoreConfig struct {
	CaseSensitive bool `mapstructure:"case_sensitive"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("source.base_url", "https://asst2game.ru/consoles/nintendo-switch/")
	// The site rejects default HTTP client identifiers, so we present a
	// browser user agent.
	v.SetDefault("source.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	v.SetDefault("source.timeout_seconds", 30)
	v.SetDefault("source.delay_ms", 500)
	v.SetDefault("source.page_templates", []string{"page/%d/", "?page=%d", "page-%d/"})
	v.SetDefault("source.empty_streak", 3)
	v.SetDefault("source.max_pages", 100)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("store.case_sensitive", false)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	if c.Source.EmptyStreak <= 0 {
		return fmt.Errorf("source.empty_streak must be > 0")
	}
	if c.Source.MaxPages <= 0 {
		return fmt.Errorf("source.max_pages must be > 0")
	}
	if len(c.Source.PageTemplates) == 0 {
		return fmt.Errorf("source.page_templates must not be empty")
	}
	return nil
}

// Timeout returns the per-request fetch timeout.
func (c SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Delay returns the politeness delay between outbound requests.
func (c SourceConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}
