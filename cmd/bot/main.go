package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"

	"github.com/ostrin/searchbot/internal/bot"
	"github.com/ostrin/searchbot/internal/config"
	"github.com/ostrin/searchbot/internal/domain/plans"
	"github.com/ostrin/searchbot/internal/domain/quota"
	"github.com/ostrin/searchbot/internal/infra/api"
	"github.com/ostrin/searchbot/internal/infra/db"
	httpx "github.com/ostrin/searchbot/internal/infra/http"
	"github.com/ostrin/searchbot/internal/infra/logger"
	"github.com/ostrin/searchbot/internal/infra/translate"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Error("bad timezone, falling back to UTC", "tz", cfg.App.Timezone, "err", err)
		loc = time.UTC
	}

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	planRepo := plans.NewRepo(pool)
	store := quota.NewPGStore(pool)
	engine := quota.NewEngine(store, planRepo, log, loc,
		cfg.Quota.DefaultPlanCode, cfg.Quota.DefaultDailyLimit)

	translator := translate.Default(log)
	apiHandler := api.NewHandler(log, engine, planRepo, translator)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, apiHandler.Register)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	if cfg.Telegram.Token != "" {
		tg, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Error("telegram init failed", "err", err)
			return
		}
		b := bot.New(tg, log, engine, planRepo, cfg.Telegram.AdminChatID)
		go func() {
			if err := b.Run(ctx, 30); err != nil && ctx.Err() == nil {
				log.Error("bot stopped", "err", err)
			}
		}()
		log.Info("bot started", "username", tg.Self.UserName)
	} else {
		log.Warn("telegram token empty, bot disabled")
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
