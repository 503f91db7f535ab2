package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()
	if cfg.WHM.URL != def.WHM.URL || cfg.Profiles.Dir != def.Profiles.Dir || cfg.Server.Listen != def.Server.Listen {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
cache_dir = "/var/cache/eapkg"

[whm]
url = "https://whm.example.com:2087"
user = "root"
token = "SECRET"
cache_ttl = "1h30m"

[server]
listen = ":9000"

[redis]
addr = "localhost:6379"
db = 2
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"whm url", cfg.WHM.URL, "https://whm.example.com:2087"},
		{"whm user", cfg.WHM.User, "root"},
		{"whm token", cfg.WHM.Token, "SECRET"},
		{"cache ttl", cfg.WHM.CacheTTL.Duration, 90 * time.Minute},
		{"cache dir", cfg.CacheDir, "/var/cache/eapkg"},
		{"listen", cfg.Server.Listen, ":9000"},
		{"session ttl default", cfg.Server.SessionTTL.Duration, 2 * time.Hour},
		{"redis addr", cfg.Redis.Addr, "localhost:6379"},
		{"redis db", cfg.Redis.DB, 2},
		{"profile dir default", cfg.Profiles.Dir, "/etc/cpanel/ea4/profiles/custom"},
		{"mongo collection default", cfg.Mongo.Collection, "profiles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"syntax", "[whm\nurl = 1", "parsing config"},
		{"bad duration", "[whm]\ncache_ttl = \"soon\"", "parsing config"},
		{"unknown key", "[whm]\nhost = \"x\"", "unknown key whm.host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.WHM.User = "reseller"
	cfg.Mongo.URI = "mongodb://localhost:27017"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.WHM.User != "reseller" || got.Mongo.URI != cfg.Mongo.URI || got.WHM.CacheTTL != cfg.WHM.CacheTTL {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}
