package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/frontline-chat/frontline/internal/engine"
	"github.com/frontline-chat/frontline/internal/protocol/wire"
	"github.com/frontline-chat/frontline/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigKeepsDefaultsForAbsentKeys(t *testing.T) {
	testlog.Start(t)

	cfg, err := loadConfig(writeConfig(t, `role = "login"`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Role != engine.RoleLogin {
		t.Fatalf("role=%q", cfg.Engine.Role)
	}
	if cfg.Engine.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("listen_addr default lost: %q", cfg.Engine.ListenAddr)
	}
	if cfg.Engine.MaxSessions != 1000 {
		t.Fatalf("max_sessions default lost: %d", cfg.Engine.MaxSessions)
	}
	if cfg.Engine.CookieTTL != engine.DefaultCookieTTL {
		t.Fatalf("cookie ttl default lost: %v", cfg.Engine.CookieTTL)
	}
	if cfg.AdminAddr != "127.0.0.1:9100" {
		t.Fatalf("admin addr default lost: %q", cfg.AdminAddr)
	}
}

func TestLoadConfigOverlaysDefinedKeys(t *testing.T) {
	testlog.Start(t)

	cfg, err := loadConfig(writeConfig(t, `
role = "chat"
listen_addr = "0.0.0.0:9500"
mode = "web"
advertise_addr = "10.0.0.9"
advertise_port = 9500
backend_addr = "10.0.0.1:11000"
admin_listen_addr = "0.0.0.0:9600"
max_sessions = 64
cookie_ttl_secs = 120
idle_timeout_secs = 15
probe_timeout_secs = 3
max_misses = 2
retry_delay_secs = 2
retry_multiplier = 1.5
retry_max_secs = 30
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Mode != wire.ProtoWeb {
		t.Fatalf("mode=%d", cfg.Engine.Mode)
	}
	if cfg.Engine.ListenAddr != "0.0.0.0:9500" || cfg.Engine.BackendAddr != "10.0.0.1:11000" {
		t.Fatalf("addresses not overlaid: %+v", cfg.Engine)
	}
	if cfg.Engine.AdvertiseAddr != "10.0.0.9" || cfg.Engine.AdvertisePort != 9500 {
		t.Fatalf("advertise endpoint not overlaid")
	}
	if cfg.Engine.MaxSessions != 64 {
		t.Fatalf("max_sessions=%d", cfg.Engine.MaxSessions)
	}
	if cfg.Engine.CookieTTL != 2*time.Minute {
		t.Fatalf("cookie ttl=%v", cfg.Engine.CookieTTL)
	}
	if cfg.Engine.IdleTimeout != 15*time.Second || cfg.Engine.ProbeTimeout != 3*time.Second {
		t.Fatalf("liveness timeouts not overlaid")
	}
	if cfg.Engine.MaxMisses != 2 {
		t.Fatalf("max_misses=%d", cfg.Engine.MaxMisses)
	}
	if cfg.Engine.Backoff.InitialDelay != 2*time.Second || cfg.Engine.Backoff.Multiplier != 1.5 {
		t.Fatalf("backoff not overlaid: %+v", cfg.Engine.Backoff)
	}
	if cfg.AdminAddr != "0.0.0.0:9600" {
		t.Fatalf("admin addr=%q", cfg.AdminAddr)
	}
}

func TestLoadConfigRejectsUnknownMode(t *testing.T) {
	testlog.Start(t)

	if _, err := loadConfig(writeConfig(t, `mode = "carrier-pigeon"`)); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	testlog.Start(t)

	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
