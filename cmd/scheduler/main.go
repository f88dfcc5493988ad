// The scheduler daemon applies migrations, wires the full scheduling
// engine and runs the session state reconciler. The transport driving the
// booking services is deployed separately; SIGHUP forces an immediate
// reconcile run.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/app"
	"github.com/UrrutiaTs17/TutoUIS-Project/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting tutoring scheduler",
		zap.String("environment", cfg.Environment),
		zap.Duration("reservation_quantum", cfg.ReservationQuantum),
		zap.Duration("reconcile_interval", cfg.ReconcileInterval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	engine := app.NewEngine(cfg, pool, logger)

	scheduler := app.NewScheduler(engine.States, cfg.ReconcileInterval, logger)
	scheduler.Start()

	forceRun := make(chan os.Signal, 1)
	signal.Notify(forceRun, syscall.SIGHUP)

	for {
		select {
		case <-forceRun:
			logger.Info("Manual reconcile requested")
			if _, err := scheduler.ForceRun(ctx); err != nil {
				logger.Error("Manual reconcile failed", zap.Error(err))
			}
		case <-ctx.Done():
			scheduler.Stop()
			logger.Info("Scheduler stopped, bye")
			return
		}
	}
}
