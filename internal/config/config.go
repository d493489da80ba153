package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	// Embedded zone database so Timezone resolves on minimal images.
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single subscribed iCalendar feed.
type ICSConfig struct {
	// ID names the feed in logs and marks imported events ("ics:<id>").
	ID   string `yaml:"id" json:"id"`
	URL  string `yaml:"url" json:"url"`
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// DatabaseConfig holds MySQL connection settings. An empty Host disables
// the database and the service runs on the in-memory store.
type DatabaseConfig struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	User            string        `yaml:"user" json:"user"`
	Password        string        `yaml:"password" json:"-"`
	Name            string        `yaml:"name" json:"name"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	// ConnectTimeout bounds the startup ping + migrations.
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone calendar dates are computed in
	// (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// MaxPerCell is how many events a month cell shows before "+N".
	MaxPerCell int `yaml:"max_per_cell" json:"max_per_cell"`

	Database DatabaseConfig `yaml:"database" json:"database"`

	// SeedFallback fills the in-memory store with sample events when the
	// database is disabled or unreachable.
	SeedFallback bool `yaml:"seed_fallback" json:"seed_fallback"`

	// RefreshCron is a five-field cron schedule (e.g. "*/15 * * * *") for
	// importing ICS feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the ICS download cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "UTC"
	defaultRefreshCron = "*/15 * * * *"
	defaultMaxPerCell  = 3
	defaultCacheDir    = "./var/ics-cache"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		Timezone:     defaultTimezone,
		LogLevel:     "info",
		LogFormat:    "text",
		MaxPerCell:   defaultMaxPerCell,
		SeedFallback: true,
		RefreshCron:  defaultRefreshCron,
		CacheDir:     defaultCacheDir,
		Database: DatabaseConfig{
			Port:           3306,
			Name:           "sharecal",
			ConnectTimeout: 10 * time.Second,
		},
		ICS: []ICSConfig{},
	}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
		c.LogFormat = strings.ToLower(c.LogFormat)
	default:
		c.LogFormat = "text"
	}
	if c.MaxPerCell <= 0 {
		c.MaxPerCell = defaultMaxPerCell
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.ConnectTimeout <= 0 {
		c.Database.ConnectTimeout = 10 * time.Second
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			c.ICS[i].ID = fmt.Sprintf("feed%d", i+1)
		}
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" {
		c.BasicAuth = nil
	}
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	seen := make(map[string]bool, len(c.ICS))
	for _, src := range c.ICS {
		if src.URL == "" {
			errs = append(errs, fmt.Errorf("ics %q: url is empty", src.ID))
		}
		if seen[src.ID] {
			errs = append(errs, fmt.Errorf("ics %q: duplicate id", src.ID))
		}
		seen[src.ID] = true
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from the YAML file at path and then applies
// environment overrides.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 perms and returned.
//   - A .env file next to the working directory is loaded into the
//     environment if present; variables already set win.
//   - SHARECAL_* and DB_* variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("SHARECAL_LISTEN", &c.Listen)
	str("SHARECAL_TIMEZONE", &c.Timezone)
	str("SHARECAL_LOG_FORMAT", &c.LogFormat)
	str("LOG_LEVEL", &c.LogLevel)
	str("SHARECAL_REFRESH", &c.RefreshCron)
	str("DB_HOST", &c.Database.Host)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Name)
	if err := num("DB_PORT", &c.Database.Port); err != nil {
		return err
	}

	if v, ok := lookup("SHARECAL_SEED_FALLBACK"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SHARECAL_SEED_FALLBACK: %w", err)
		}
		c.SeedFallback = b
	}

	user, hasUser := lookup("SHARECAL_BASIC_AUTH_USER")
	pass, _ := lookup("SHARECAL_BASIC_AUTH_PASSWORD")
	if hasUser && user != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}
	return nil
}

// Save writes cfg to path atomically via a temp file + rename, with 0600
// permissions. Parent directories are created with 0700.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".sharecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
