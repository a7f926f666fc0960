// Package config loads stash configuration through Viper: defaults, an
// optional YAML file, then STASH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "STASH"

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Store       StoreConfig       `mapstructure:"store"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	ReadingList ReadingListConfig `mapstructure:"reading_list"`
	Homepage    HomepageConfig    `mapstructure:"homepage"`
}

type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`           // ex: ":8080"
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // ex: 5s
	// AllowedCIDRs restricts the import endpoints (e.g. "10.0.0.0/8, 1.2.3.4").
	// Empty allows everyone.
	AllowedCIDRs     []string `mapstructure:"allowed_cidrs"`
	TrustProxy       bool     `mapstructure:"trust_proxy"` // true => trust X-Forwarded-For headers
	ImportRatePerMin int      `mapstructure:"import_rate_per_min"`
	ImportBurst      int      `mapstructure:"import_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Pretty bool   `mapstructure:"pretty"` // true => zap dev (color), false => zap prod (JSON)
}

type StoreConfig struct {
	Backend    string `mapstructure:"backend"` // memory | redis | sqlite
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Addr             string        `mapstructure:"addr"` // ex: "localhost:6379"
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	PasswordRequired bool          `mapstructure:"password_required"`
	DB               int           `mapstructure:"db"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	PoolSize         int           `mapstructure:"pool_size"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"` // total time to retry connecting
	RetryInterval    time.Duration `mapstructure:"retry_interval"`  // initial wait, grows exponentially
	MaxWait          time.Duration `mapstructure:"max_wait"`        // cap between retries
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	WarnThreshold    int           `mapstructure:"warn_threshold"` // warn after this many attempts
}

type MaintenanceConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	LinkTimeout     time.Duration `mapstructure:"link_timeout"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	Interval        time.Duration `mapstructure:"interval"` // 0 disables periodic runs
	FaviconEndpoint string        `mapstructure:"favicon_endpoint"`
	UserAgent       string        `mapstructure:"user_agent"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
	TitleDelay      time.Duration `mapstructure:"title_delay"`
}

type ReadingListConfig struct {
	Limit int `mapstructure:"limit"`
}

type HomepageConfig struct {
	BookmarksFile  string        `mapstructure:"bookmarks_file"` // empty disables the source
	Watch          bool          `mapstructure:"watch"`
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
}

// Load builds a Config from defaults, the optional file at path and the
// environment, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Server.AllowedCIDRs = splitAndTrim(cfg.Server.AllowedCIDRs)
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.allowed_cidrs", []string{})
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.import_rate_per_min", 10)
	v.SetDefault("server.import_burst", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.sqlite_path", "stash.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.username", "default")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.password_required", false)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.connect_timeout", 30*time.Second)
	v.SetDefault("redis.retry_interval", 2*time.Second)
	v.SetDefault("redis.max_wait", 10*time.Second)
	v.SetDefault("redis.ping_timeout", 5*time.Second)
	v.SetDefault("redis.warn_threshold", 3)

	v.SetDefault("maintenance.concurrency", 6)
	v.SetDefault("maintenance.link_timeout", 10*time.Second)
	v.SetDefault("maintenance.fetch_timeout", 10*time.Second)
	v.SetDefault("maintenance.interval", 24*time.Hour)
	v.SetDefault("maintenance.favicon_endpoint", "https://www.google.com/s2/favicons?domain=%s&sz=64")
	v.SetDefault("maintenance.user_agent", "stash/1.0 (+bookmark maintenance)")
	v.SetDefault("maintenance.run_on_start", false)
	v.SetDefault("maintenance.title_delay", 600*time.Millisecond)

	v.SetDefault("reading_list.limit", 10)

	v.SetDefault("homepage.bookmarks_file", "")
	v.SetDefault("homepage.watch", true)
	v.SetDefault("homepage.reload_interval", 24*time.Hour)
}

// Validate enforces required values and sane limits.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen must be set"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be > 0"))
	}
	if c.Server.ImportRatePerMin < 0 {
		errs = append(errs, errors.New("server.import_rate_per_min must be >= 0"))
	}
	if c.Server.ImportRatePerMin > 0 && c.Server.ImportBurst <= 0 {
		errs = append(errs, errors.New("server.import_burst must be > 0 when rate limiting is on"))
	}
	for _, cidr := range c.Server.AllowedCIDRs {
		if !validIPOrCIDR(cidr) {
			errs = append(errs, fmt.Errorf("server.allowed_cidrs: invalid entry %q", cidr))
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug|info|warn|error, got %q", c.Log.Level))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path must be set for the sqlite backend"))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr must be set for the redis backend"))
		}
		if c.Redis.PasswordRequired && c.Redis.Password == "" {
			errs = append(errs, errors.New("redis.password is required when redis.password_required=true"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be memory|redis|sqlite, got %q", c.Store.Backend))
	}

	if c.Maintenance.Concurrency <= 0 {
		errs = append(errs, errors.New("maintenance.concurrency must be > 0"))
	}
	if c.Maintenance.LinkTimeout <= 0 || c.Maintenance.FetchTimeout <= 0 {
		errs = append(errs, errors.New("maintenance timeouts must be > 0"))
	}
	if c.Maintenance.Interval < 0 {
		errs = append(errs, errors.New("maintenance.interval must be >= 0"))
	}
	if strings.Count(c.Maintenance.FaviconEndpoint, "%s") != 1 {
		errs = append(errs, errors.New("maintenance.favicon_endpoint must contain exactly one %s"))
	}

	if c.ReadingList.Limit <= 0 {
		errs = append(errs, errors.New("reading_list.limit must be > 0"))
	}

	return errors.Join(errs...)
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	out := c
	if out.Redis.Password != "" {
		out.Redis.Password = "***REDACTED***"
	}
	if out.Redis.Username != "" {
		out.Redis.Username = "***REDACTED***"
	}
	return out
}

func validIPOrCIDR(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}

// splitAndTrim flattens comma separated entries and strips whitespace and
// surrounding quotes, so env values like `"10.0.0.0/8, 1.2.3.4"` work.
func splitAndTrim(in []string) []string {
	var parts []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			trimmed := strings.TrimSpace(part)
			trimmed = strings.Trim(trimmed, `"'`)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
	}
	return parts
}
