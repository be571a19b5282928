package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iliyamo/kronos/internal/config"
)

// sqliteEnv sets the minimum environment Load accepts.
func sqliteEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "k.db"))
}

func TestLoadDefaults(t *testing.T) {
	sqliteEnv(t)
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.AccessTTLMin != 15 || cfg.PasswordHasher != "bcrypt" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.BoxExclusive {
		t.Error("BoxExclusive should default to false")
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"mysql without host", map[string]string{"DB_DRIVER": "mysql", "DB_USER": "u", "DB_PORT": "3306", "DB_NAME": "k", "DB_HOST": ""}},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"unknown hasher", map[string]string{"PASSWORD_HASHER": "md5"}},
		{"bad int", map[string]string{"BCRYPT_COST": "high"}},
		{"zero ttl", map[string]string{"ACCESS_TOKEN_TTL_MIN": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqliteEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	sqliteEnv(t)
	path := filepath.Join(t.TempDir(), "kronos.yaml")
	yaml := `
app_port: "9000"
log_level: debug
box_exclusive: true
admin_usernames: [root]
request_timeout: 7s
access_token_ttl_min: 30
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_PORT", "9100")
	t.Setenv("ADMIN_USERNAMES", "alice, bob ,")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("Port = %q, env should win over file", cfg.Port)
	}
	if cfg.LogLevel != "debug" || !cfg.BoxExclusive || cfg.RequestTimeout != 7*time.Second || cfg.AccessTTLMin != 30 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if len(cfg.AdminUsernames) != 2 || !cfg.IsAdmin("Alice") || !cfg.IsAdmin("bob") || cfg.IsAdmin("root") {
		t.Errorf("AdminUsernames = %q", cfg.AdminUsernames)
	}
}

func TestLoadMissingFile(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestRefreshTTL(t *testing.T) {
	cfg := config.Config{RefreshTTLDays: 30, SessionTTLHours: 12}
	if got := cfg.RefreshTTL(true); got != 30*24*time.Hour {
		t.Errorf("remembered TTL = %v", got)
	}
	if got := cfg.RefreshTTL(false); got != 12*time.Hour {
		t.Errorf("session TTL = %v", got)
	}
}

func TestRateLimitClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	cfg := config.LoadRateLimitConfig()
	if cfg.Enabled {
		t.Error("Enabled should be false")
	}
	if cfg.Capacity != 1 || cfg.RefillTokens != 1 {
		t.Errorf("Capacity/RefillTokens = %d/%d, want 1/1", cfg.Capacity, cfg.RefillTokens)
	}
	if cfg.TTL != 50*time.Second {
		t.Errorf("TTL = %v, want 5 refill intervals", cfg.TTL)
	}
}

func TestCacheDefaults(t *testing.T) {
	t.Setenv("CACHE_TTL", "-1s")
	t.Setenv("CACHE_KEY_STRATEGY", "")
	cfg := config.LoadCacheConfig()
	if cfg.TTL != 30*time.Second || cfg.KeyStrategy != "route_query" || cfg.MaxBodyBytes != 1<<20 {
		t.Errorf("unexpected cache config: %+v", cfg)
	}
}

func TestRedisAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "")
	if got := config.LoadRedisConfig().Addr; got != "cache:6380" {
		t.Errorf("Addr = %q", got)
	}
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	if got := config.LoadRedisConfig().Addr; got != "redis:6379" {
		t.Errorf("Addr = %q, host and port should win", got)
	}
}
