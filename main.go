package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"ms-scheduling/internal/auth"
	"ms-scheduling/internal/cache"
	"ms-scheduling/internal/config"
	"ms-scheduling/internal/database/migrations"
	"ms-scheduling/internal/events"
	eventdb "ms-scheduling/internal/events/db"
	"ms-scheduling/internal/events/event_api"
	"ms-scheduling/internal/invoicing"
	"ms-scheduling/internal/invoicing/invoice_api"
	"ms-scheduling/internal/kafka"
	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/mail"
	"ms-scheduling/internal/notification"
	"ms-scheduling/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func openPostgres(cfg config.DatabaseConfig, log *logger.Logger) (*sql.DB, error) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		_ = sqldb.Close()
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", maxRetries, err)
	}
	return sqldb, nil
}

func verifyConnections(cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	sqldb, err := openPostgres(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient, err := cache.NewClient(cfg.Redis.Addr, log)
	if err != nil {
		log.Fatal("REDIS", err.Error())
	}
	return bunDB, redisClient
}

// runMigrations uses its own pool because the migrator closes the database it is given.
func runMigrations(cfg *config.Config, log *logger.Logger) {
	if !cfg.Database.AutoMigrate {
		log.Info("DATABASE", "Auto migration disabled")
		return
	}
	sqldb, err := openPostgres(cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	runner := migrations.NewRunner(sqldb, migrations.DefaultOptions(), log)
	defer runner.Close()

	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}
}

// setupMail returns the dispatcher used by the notifier and the invoicing client. With Kafka
// enabled jobs are queued and a consumer in this process delivers them over SMTP.
func setupMail(ctx context.Context, cfg *config.Config, log *logger.Logger) (mail.Dispatcher, func()) {
	sender := mail.NewSender(cfg.Email, log)
	if !cfg.Kafka.Enabled {
		log.Info("MAIL", "Kafka disabled, sending email directly over SMTP")
		return sender, func() {}
	}

	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topics.EmailJobs}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		log.Info("KAFKA", "Required topics ensured successfully")
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.EmailJobs, log)
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.EmailJobs, cfg.Kafka.GroupID, log)

	consumerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.Start(consumerCtx, sender.Handle)
	}()

	return producer, func() {
		cancel()
		<-done
		if err := consumer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to close consumer: %v", err))
		}
		if err := producer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
}

func health(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
}

func main() {
	log := logger.NewServiceLogger("scheduling")
	defer log.Close()

	log.Info("APP", "Starting Scheduling Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	loc := cfg.Calendar.Location()
	ctx, stopCtx := context.WithCancel(context.Background())
	defer stopCtx()

	runMigrations(cfg, log)

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	dispatcher, closeMail := setupMail(ctx, cfg, log)
	defer closeMail()

	store := &eventdb.DB{Bun: bunDB}
	lookups := cache.NewLookupCache(redisClient, store, cfg.Redis.LookupCacheTTL, log)
	eventService := events.NewEventService(store, lookups, log, cfg.Calendar)
	xero := invoicing.NewClient(cfg.Xero, dispatcher, cfg.Email.InvoiceNotifications, log)

	var scheduler *notification.Scheduler
	if cfg.Notifier.Enabled {
		owner, _ := os.Hostname()
		command := notification.NewShooterIntroduction(store, dispatcher,
			cache.NewRunLock(redisClient, cfg.Redis.RunLockTTL), log, loc, cfg.Email.GeneralErrorGroup, owner)
		var err error
		scheduler, err = notification.NewScheduler(cfg.Notifier.Cron, command, log)
		if err != nil {
			log.Fatal("NOTIFY", err.Error())
		}
		scheduler.Start()
		log.Info("NOTIFY", fmt.Sprintf("Next shooter introduction run at %s", scheduler.Next().In(loc).Format(time.RFC1123)))
	}

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Failed to set up token verification: %v", err))
	}

	eventHandler := event_api.NewHandler(eventService, log, loc)
	invoiceHandler := invoice_api.NewHandler(xero, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// --- Public Routes ---
	r.Get("/health", health)

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, log))
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			eventHandler.Mount(r, auth.Require(auth.PermissionViewCalendar), auth.Require(auth.PermissionAdmin))
			log.Info("ROUTER", "Calendar and event routes registered under /api")

			invoiceHandler.Mount(r)
			log.Info("ROUTER", "Invoice routes registered under /api/invoices")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Scheduling Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-ctxShutdown.Done():
			log.Warn("NOTIFY", "Notifier still running at shutdown")
		}
	}
	stopCtx()
	log.Info("HTTP", "✅ Scheduling Service shutdown complete")
}
