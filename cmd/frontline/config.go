package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/frontline-chat/frontline/internal/engine"
	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

// frontline config.toml key mapping to relay runtime settings.
type fileConfig struct {
	Role          string   `toml:"role"`
	ListenAddr    string   `toml:"listen_addr"`
	Mode          string   `toml:"mode"`
	AdvertiseAddr string   `toml:"advertise_addr"`
	AdvertisePort int32    `toml:"advertise_port"`
	BackendAddr   string   `toml:"backend_addr"`
	AdminAddr     string   `toml:"admin_listen_addr"`
	CorsOrigins   []string `toml:"cors_origins"`

	MaxSessions      int     `toml:"max_sessions"`
	CookieTTLSecs    int     `toml:"cookie_ttl_secs"`
	IdleTimeoutSecs  int     `toml:"idle_timeout_secs"`
	ProbeTimeoutSecs int     `toml:"probe_timeout_secs"`
	MaxMisses        int     `toml:"max_misses"`
	ScanEverySecs    int     `toml:"scan_every_secs"`
	RetryDelaySecs   int     `toml:"retry_delay_secs"`
	RetryMultiplier  float64 `toml:"retry_multiplier"`
	RetryMaxSecs     int     `toml:"retry_max_secs"`
}

// appConfig is the fully resolved runtime configuration.
type appConfig struct {
	Engine      engine.Config
	AdminAddr   string
	CorsOrigins []string
}

func defaultConfig() appConfig {
	return appConfig{
		Engine: engine.Config{
			Role:          engine.RoleChat,
			ListenAddr:    "0.0.0.0:9000",
			Mode:          wire.ProtoTCP,
			AdvertiseAddr: "127.0.0.1",
			AdvertisePort: 9000,
			BackendAddr:   "127.0.0.1:11000",
			Backoff:       engine.DefaultBackoff(),
			MaxSessions:   1000,
			CookieTTL:     engine.DefaultCookieTTL,
		},
		AdminAddr: "127.0.0.1:9100",
	}
}

// loadConfig reads path and overlays its keys on the defaults. Keys absent
// from the file keep their default values.
func loadConfig(path string) (appConfig, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load relay config: %w", err)
	}

	if meta.IsDefined("role") {
		cfg.Engine.Role = engine.Role(strings.TrimSpace(raw.Role))
	}
	if meta.IsDefined("listen_addr") {
		cfg.Engine.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("mode") {
		switch strings.TrimSpace(raw.Mode) {
		case "tcp":
			cfg.Engine.Mode = wire.ProtoTCP
		case "web":
			cfg.Engine.Mode = wire.ProtoWeb
		default:
			return appConfig{}, fmt.Errorf("load relay config: unknown mode %q (expected tcp or web)", raw.Mode)
		}
	}
	if meta.IsDefined("advertise_addr") {
		cfg.Engine.AdvertiseAddr = strings.TrimSpace(raw.AdvertiseAddr)
	}
	if meta.IsDefined("advertise_port") {
		cfg.Engine.AdvertisePort = raw.AdvertisePort
	}
	if meta.IsDefined("backend_addr") {
		cfg.Engine.BackendAddr = strings.TrimSpace(raw.BackendAddr)
	}
	if meta.IsDefined("admin_listen_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("max_sessions") {
		cfg.Engine.MaxSessions = raw.MaxSessions
	}
	if meta.IsDefined("cookie_ttl_secs") {
		cfg.Engine.CookieTTL = time.Duration(raw.CookieTTLSecs) * time.Second
	}
	if meta.IsDefined("idle_timeout_secs") {
		cfg.Engine.IdleTimeout = time.Duration(raw.IdleTimeoutSecs) * time.Second
	}
	if meta.IsDefined("probe_timeout_secs") {
		cfg.Engine.ProbeTimeout = time.Duration(raw.ProbeTimeoutSecs) * time.Second
	}
	if meta.IsDefined("max_misses") {
		cfg.Engine.MaxMisses = raw.MaxMisses
	}
	if meta.IsDefined("scan_every_secs") {
		cfg.Engine.ScanEvery = time.Duration(raw.ScanEverySecs) * time.Second
	}
	if meta.IsDefined("retry_delay_secs") {
		cfg.Engine.Backoff.InitialDelay = time.Duration(raw.RetryDelaySecs) * time.Second
	}
	if meta.IsDefined("retry_multiplier") {
		cfg.Engine.Backoff.Multiplier = raw.RetryMultiplier
	}
	if meta.IsDefined("retry_max_secs") {
		cfg.Engine.Backoff.MaxDelay = time.Duration(raw.RetryMaxSecs) * time.Second
	}

	return cfg, nil
}
