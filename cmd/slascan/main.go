package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	penaltysvc "sunvolt-backend/internal/application/penalty"
	slasvc "sunvolt-backend/internal/application/sla"
	walletsvc "sunvolt-backend/internal/application/wallet"
	"sunvolt-backend/internal/config"
	"sunvolt-backend/internal/infrastructure/database"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// slascan runs the SLA violation scan on a schedule. Multiple instances can
// run concurrently; the Redis lease keeps each scan single-flight.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse redis url")
		}
		rdb = redis.NewClient(opts)
	}

	wallet := &walletsvc.Service{DB: db}
	penalties := &penaltysvc.Service{DB: db, Wallet: wallet}
	detector := &slasvc.Detector{DB: db, Penalties: penalties, Rdb: rdb}

	runScan := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		report, err := detector.Scan(ctx, time.Now().UTC())
		if err != nil {
			log.Error().Err(err).Msg("sla scan failed")
			return
		}
		log.Info().
			Bool("skipped", report.Skipped).
			Int("quotes_scanned", report.QuotesScanned).
			Int("violations_created", report.ViolationsCreated).
			Int("penalties_applied", report.PenaltiesApplied).
			Int("penalties_queued", report.PenaltiesQueued).
			Msg("sla scan complete")
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ScanCron, runScan); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.ScanCron).Msg("invalid cron spec")
	}

	// one scan at startup so a fresh deploy doesn't wait a full interval
	runScan()
	c.Start()
	log.Info().Str("spec", cfg.ScanCron).Msg("sla scan runner started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx := c.Stop()
	<-ctx.Done()
	log.Info().Msg("sla scan runner stopped")
}
