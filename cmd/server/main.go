package main

import (
	"github.com/GeoFlame/GeoChat/internal/chat"
	"github.com/GeoFlame/GeoChat/internal/config"
	clog "github.com/GeoFlame/GeoChat/internal/log"
	"github.com/GeoFlame/GeoChat/internal/server"

	"github.com/rs/zerolog/log"
)

func main() {
	// main 负责加载配置、初始化日志、组装核心并启动 Gin 服务。
	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		clog.Init(cfg.Env)
		log.Fatal().Err(err).Msg("config validate")
	}
	clog.Init(cfg.Env)

	svc := chat.NewService(chat.Options{
		AdminName:      cfg.AdminName,
		HistoryLimit:   cfg.HistoryLimit,
		Announce:       cfg.Announce,
		PersistentBans: cfg.PersistentBans,
	})

	r := server.SetupRouter(cfg, svc)
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
