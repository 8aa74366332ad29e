package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application Layer
	"bookingreminder/internal/application/service"
	"bookingreminder/internal/config"

	// Infrastructure Layer
	"bookingreminder/internal/infrastructure/console"
	"bookingreminder/internal/infrastructure/database/sqlite"
	"bookingreminder/internal/infrastructure/line"
	"bookingreminder/internal/infrastructure/metrics"
	"bookingreminder/internal/infrastructure/redis"
	"bookingreminder/internal/infrastructure/scheduler"

	// Interfaces Layer
	"bookingreminder/internal/interfaces/api/handler"
	"bookingreminder/internal/interfaces/api/router"

	// Packages
	appLogger "bookingreminder/internal/pkg/logger"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "booking-reminder: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Initialization ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	appLog := appLogger.New(appLogger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	appLog.Info("Logger initialized.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	db, err := sqlite.Open(sqlite.Options{DSN: cfg.DBURL, LogSQL: cfg.LogSQL})
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlite.Close(db); err != nil {
			appLog.Error("Error closing database", err)
		}
	}()
	bookingRepo := sqlite.NewBookingRepository(db)
	jobStore := sqlite.NewReminderJobStore(db, cfg.Retry())
	appLog.Info("Database and repositories initialized.")

	var transport service.MessageTransport
	if cfg.LINEEnabled() {
		lineClient, err := line.NewClient(cfg.ChannelSecret, cfg.ChannelAccessToken, appLog)
		if err != nil {
			return err
		}
		transport = lineClient
	} else {
		appLog.Warn("CHANNEL_SECRET/CHANNEL_ACCESS_TOKEN not set, reminders are written to the log")
		transport = console.NewNotifier(appLog)
	}

	var processed service.ProcessedSet
	if cfg.RedisURL != "" {
		redisClient, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		processed = redis.NewProcessedSet(redisClient, cfg.ProcessedTTL)
		appLog.Info("Delivery markers stored in Redis.")
	} else {
		processed = service.NewMemoryProcessedSet(cfg.ProcessedSetCapacity)
	}

	prom := metrics.NewPrometheus(nil)
	cronScheduler := scheduler.NewScheduler(appLog)

	// --- Application Services ---
	reminderScheduler := service.NewReminderScheduler(jobStore, cfg.Scheduler(), prom, appLog)
	bookingSvc := service.NewBookingService(bookingRepo, jobStore, reminderScheduler, prom, appLog)
	worker := service.NewReminderWorker(jobStore, transport, processed, cronScheduler, cfg.Worker(), prom, appLog)
	appLog.Info("Application services initialized.")

	if err := worker.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := worker.Close(); err != nil {
			appLog.Error("Error stopping reminder worker", err)
		}
	}()

	// --- Router ---
	echoRouter := router.NewRouter(&router.Config{
		BookingHandler: handler.NewBookingHandler(bookingSvc, appLog),
		OpsHandler:     handler.NewOpsHandler(bookingSvc, func() error { return sqlite.Ping(db) }, appLog),
		Metrics:        prom.Handler(),
		Logger:         appLog,
	})

	// --- HTTP Server ---
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      echoRouter,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLog.Info(fmt.Sprintf("Server starting on port %d", cfg.Port))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	case <-ctx.Done():
		appLog.Info("Shutting down gracefully, press Ctrl+C again to force")
	}
	stop()

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", err)
	}

	// Deferred: worker stops and waits for in-flight deliveries, then Redis and the database close.
	appLog.Info("Server exiting")
	return nil
}
