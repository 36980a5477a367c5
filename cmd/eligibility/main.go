package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/config"
	"github.com/aman-churiwal/eligibility-engine/internal/metrics"
	"github.com/aman-churiwal/eligibility-engine/internal/server"
	"github.com/aman-churiwal/eligibility-engine/internal/service"
	"github.com/aman-churiwal/eligibility-engine/internal/storage"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.WithError(err).Error("eligibility engine failed")
		os.Exit(1)
	}
}

func run(args []string) error {
	// Load env if it exists
	_ = godotenv.Load()

	fs := flag.NewFlagSet("eligibility", flag.ContinueOnError)
	cfgPath := fs.String("config", os.Getenv(config.EnvConfigPath), "config file path (or env CONFIG_PATH)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	configureLogging(cfg)

	db, err := storage.Open(storage.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        gormLogLevel(cfg),
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		return err
	}
	log.WithField("driver", db.Dialect()).Info("connected to database")

	var redis *storage.RedisClient
	if cfg.Redis.Enabled {
		redis, err = storage.NewRedis(cfg.Redis.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer redis.Close()
		log.WithField("addr", cfg.Redis.GetRedisAddr()).Info("connected to redis")
	}

	location, err := cfg.Location()
	if err != nil {
		return err
	}

	clock := service.SystemClock()
	if pinned, ok, err := cfg.Clock(); err != nil {
		return err
	} else if ok {
		log.WithField("time", pinned.Format(time.RFC3339)).Warn("service clock is pinned")
		clock = service.FixedClock(pinned)
	}

	srv := server.New(cfg, server.Dependencies{
		DB:       db,
		Redis:    redis,
		Clock:    clock,
		Location: location,
		Metrics:  metrics.New(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(":" + cfg.Server.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutdown requested")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("server exited")
	return nil
}

func configureLogging(cfg *config.Config) {
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		if cfg.IsProduction() {
			log.SetFormatter(&log.JSONFormatter{})
		} else {
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		}
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.WithError(err).Warn("invalid log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func gormLogLevel(cfg *config.Config) logger.LogLevel {
	switch {
	case cfg.IsProduction():
		return logger.Error
	case log.IsLevelEnabled(log.DebugLevel):
		return logger.Info
	default:
		return logger.Warn
	}
}
