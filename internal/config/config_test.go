package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	for _, key := range []string{"API_ADDR", "MEMBERSHIP_SOURCE", "MEMBERSHIP_DEFAULT_USER_ID", "PAGE_SIZE_DEFAULT", "PAGE_SIZE_MAX", "S3_PRESIGN_TTL_SECONDS", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Membership.Source != "headers" || cfg.Membership.DefaultUserID != 1 {
		t.Errorf("Membership = %+v", cfg.Membership)
	}
	if cfg.Paging.DefaultSize != 20 || cfg.Paging.MaxSize != 100 {
		t.Errorf("Paging = %+v", cfg.Paging)
	}
	if cfg.S3.PresignTTL != 15*time.Minute {
		t.Errorf("PresignTTL = %v", cfg.S3.PresignTTL)
	}
	if cfg.S3.Enabled() || cfg.OTel.Enabled() {
		t.Error("optional integrations should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("MEMBERSHIP_DEFAULT_USER_ID", "0")
	t.Setenv("PAGE_SIZE_MAX", "not-a-number")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("MEMBERSHIP_TTL_SECONDS", "60")

	cfg := Load()
	if cfg.Membership.DefaultUserID != 0 {
		t.Errorf("DefaultUserID = %d", cfg.Membership.DefaultUserID)
	}
	if cfg.Paging.MaxSize != 100 {
		t.Errorf("invalid integer should fall back, got %d", cfg.Paging.MaxSize)
	}
	if !cfg.S3.UseSSL {
		t.Error("UseSSL should be true")
	}
	if cfg.Membership.TTL != time.Minute {
		t.Errorf("TTL = %v", cfg.Membership.TTL)
	}
}

func TestLoadReadsDotEnvInDevelopment(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("WORKHUB_SYNC_TOKEN=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("APP_ENV", "development")
	t.Setenv("WORKHUB_SYNC_TOKEN", "")
	os.Unsetenv("WORKHUB_SYNC_TOKEN")

	cfg := Load()
	if cfg.SyncToken != "from-dotenv" {
		t.Fatalf("SyncToken = %q, want value from .env", cfg.SyncToken)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Membership: MembershipConfig{Source: "headers", DefaultUserID: 1},
		Paging:     PagingConfig{DefaultSize: 20, MaxSize: 100},
	}

	cases := map[string]func(*Config){
		"default above max":           func(c *Config) { c.Paging.DefaultSize = 200 },
		"negative default user":       func(c *Config) { c.Membership.DefaultUserID = -1 },
		"directory without redis":     func(c *Config) { c.Membership.Source = "directory" },
		"snowflake node out of range": func(c *Config) { c.SnowflakeNode = 5000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	if !(Config{Env: "development"}).IsDevelopment() {
		t.Error("development env should report IsDevelopment")
	}
	if (Config{Env: "production"}).IsDevelopment() {
		t.Error("production env should not report IsDevelopment")
	}
}
