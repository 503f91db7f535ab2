// Package config loads the eapkg TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds eapkg configuration.
type Config struct {
	WHM      WHMConfig     `toml:"whm"`
	CacheDir string        `toml:"cache_dir"`
	Catalog  string        `toml:"catalog"` // local catalog file instead of WHM
	Profiles ProfileConfig `toml:"profiles"`
	Server   ServerConfig  `toml:"server"`
	Redis    RedisConfig   `toml:"redis"`
	Mongo    MongoConfig   `toml:"mongo"`
}

// WHMConfig locates the WHM API.
type WHMConfig struct {
	URL      string   `toml:"url"`
	User     string   `toml:"user"`
	Token    string   `toml:"token"`
	CacheTTL Duration `toml:"cache_ttl"`
}

// ProfileConfig locates the profile store.
type ProfileConfig struct {
	Dir     string `toml:"dir"`
	Workers int    `toml:"workers"` // parallel profile downloads
}

// ServerConfig configures `eapkg serve`.
type ServerConfig struct {
	Listen     string   `toml:"listen"`
	SessionTTL Duration `toml:"session_ttl"`
}

// RedisConfig enables the Redis session store when Addr is set.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MongoConfig enables the MongoDB profile store when URI is set.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Duration is a time.Duration written as "24h" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		WHM: WHMConfig{
			URL:      "https://127.0.0.1:2087",
			CacheTTL: Duration{24 * time.Hour},
		},
		CacheDir: defaultCacheDir(),
		Profiles: ProfileConfig{
			Dir:     "/etc/cpanel/ea4/profiles/custom",
			Workers: 4,
		},
		Server: ServerConfig{
			Listen:     "127.0.0.1:8087",
			SessionTTL: Duration{2 * time.Hour},
		},
		Mongo: MongoConfig{
			Database:   "eapkg",
			Collection: "profiles",
		},
	}
}

// DefaultPath returns ~/.config/eapkg/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "eapkg", "config.toml")
}

// Load reads the configuration at path, or DefaultPath when path is empty.
// A missing file yields the defaults; keys absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return nil, fmt.Errorf("parsing config %s: unknown key %s", path, keys[0])
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encoding config: %w", err)
	}
	return f.Close()
}

func defaultCacheDir() string {
	if dir := os.Getenv("EAPKG_CACHE_DIR"); dir != "" {
		return dir
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "eapkg")
	}
	return filepath.Join(dir, "eapkg")
}
