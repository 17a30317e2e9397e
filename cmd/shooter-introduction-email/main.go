package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"ms-scheduling/internal/cache"
	"ms-scheduling/internal/config"
	eventdb "ms-scheduling/internal/events/db"
	"ms-scheduling/internal/kafka"
	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/mail"
	"ms-scheduling/internal/notification"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Runs the shooter introduction once, for cron hosts that prefer an external scheduler.
func main() {
	log := logger.NewServiceLogger("shooter-introduction")
	defer log.Close()

	_ = godotenv.Load()
	cfg := config.Load()
	loc := cfg.Calendar.Location()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Minute)
	defer cancelTimeout()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN)))
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()
	if err := bunDB.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}

	var dispatcher mail.Dispatcher = mail.NewSender(cfg.Email, log)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.EmailJobs, log)
		defer producer.Close()
		dispatcher = producer
	}

	var lock notification.RunLock
	redisClient, err := cache.NewClient(cfg.Redis.Addr, log)
	if err != nil {
		log.Warn("REDIS", fmt.Sprintf("Running without the daily run lock: %v", err))
	} else {
		defer redisClient.Close()
		lock = cache.NewRunLock(redisClient, cfg.Redis.RunLockTTL)
	}

	owner, _ := os.Hostname()
	command := notification.NewShooterIntroduction(&eventdb.DB{Bun: bunDB}, dispatcher, lock, log, loc,
		cfg.Email.GeneralErrorGroup, owner)

	summary, err := command.Run(ctx)
	if err != nil {
		log.Error("NOTIFY", fmt.Sprintf("%s failed: %v", notification.CommandName, err))
		os.Exit(1)
	}
	log.Info("NOTIFY", fmt.Sprintf("%s done: orders=%d sent=%d failed=%d skipped=%t",
		notification.CommandName, summary.Orders, summary.Sent, summary.Failed, summary.Skipped))
}
