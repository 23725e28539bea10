package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/admin"
	"github.com/frontline-chat/frontline/internal/engine"
	"github.com/frontline-chat/frontline/internal/observability"
)

func main() {
	configPath := flag.String("config", "cmd/frontline/config.toml", "path to config.toml")
	flag.Parse()

	observability.InitLogger("frontline")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load relay config")
	}
	log.Info().Str("path", *configPath).Msg("loaded relay config")

	eng, err := engine.New(cfg.Engine)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build relay")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adminSrv := admin.New(eng, cfg.AdminAddr, cfg.CorsOrigins)
	go func() {
		if err := adminSrv.Serve(ctx); err != nil {
			log.Error().Err(err).Msg("admin server stopped")
		}
	}()

	if err := eng.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("relay stopped")
	}
}
