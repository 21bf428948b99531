package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %s", cfg.Server.Port)
	}
	if cfg.Retention.Cron != "0 * * * *" || cfg.Retention.Window != 24*time.Hour {
		t.Errorf("retention = %+v", cfg.Retention)
	}
	if cfg.Notifications.CacheTTL != 24*time.Hour || cfg.Notifications.CacheLimit != 100 {
		t.Errorf("notifications = %+v", cfg.Notifications)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(lookupFrom(map[string]string{
		"PORT":                   "9090",
		"DATABASE_URL":           "postgres://localhost/ngabarin",
		"REDIS_ADDR":             "localhost:6379",
		"REDIS_DB":               "2",
		"JWT_SECRET":             "s3cret",
		"RETENTION_WINDOW":       "48h",
		"NOTIFICATION_CACHE_TTL": "1h",
		"DATABASE_MIGRATE":       "false",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.DB != 2 || cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Retention.Window != 48*time.Hour || cfg.Notifications.CacheTTL != time.Hour {
		t.Errorf("durations = %v, %v", cfg.Retention.Window, cfg.Notifications.CacheTTL)
	}
	if cfg.Database.Migrate {
		t.Error("expected migrate disabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"REDIS_DB":                 "two",
		"RETENTION_WINDOW":         "a day",
		"NOTIFICATION_CACHE_LIMIT": "many",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			err := Default().applyEnv(lookupFrom(map[string]string{key: value}))
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Retention.Cron = "every hour"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"JWT_SECRET", "DATABASE_URL", "cron"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
server:
  port: "7000"
database:
  url: postgres://yaml/db
auth:
  jwt_secret: from-yaml
retention:
  cron: "*/30 * * * *"
  window: 12h
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"PORT", "DATABASE_URL", "RETENTION_CRON", "RETENTION_WINDOW"} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7000" || cfg.Database.URL != "postgres://yaml/db" {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("env should override yaml, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.Retention.Cron != "*/30 * * * *" || cfg.Retention.Window != 12*time.Hour {
		t.Errorf("retention = %+v", cfg.Retention)
	}
	if cfg.ListenAddr() != ":7000" {
		t.Errorf("listen addr = %s", cfg.ListenAddr())
	}
}
