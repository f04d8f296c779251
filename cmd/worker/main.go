package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/hsewatch/internal/application/scheduler"
	"github.com/rezkam/hsewatch/internal/bootstrap"
	"github.com/rezkam/hsewatch/internal/config"
	"github.com/rezkam/hsewatch/internal/infrastructure/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tel, err := observability.Setup(ctx, observability.Config{
		Enabled:     cfg.Observability.OTelEnabled,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown telemetry", "error", err)
		}
	}()
	slog.SetDefault(tel.Logger)

	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}

	reports, closeArchive, err := bootstrap.OpenArchive(ctx, cfg.Report)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to open report archive: %w", err)
	}
	defer func() {
		if err := bootstrap.CloseAll(closeArchive, store.Close); err != nil {
			slog.Error("failed to release resources", "error", err)
		}
	}()

	gateway, err := bootstrap.NewEmailGateway(ctx, cfg.Email)
	if err != nil {
		return err
	}

	svc, err := bootstrap.NewReminderService(store, gateway, reports, tel.MeterProvider, cfg.Reminder)
	if err != nil {
		return err
	}

	loc, err := cfg.Reminder.Location()
	if err != nil {
		return err
	}

	sched, err := scheduler.New(svc,
		scheduler.WithSchedule(cfg.Schedule),
		scheduler.WithLocation(loc),
		scheduler.WithRunOnStart(cfg.RunOnStart),
		scheduler.WithOperationTimeout(cfg.OperationTimeout),
	)
	if err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("scheduler failed: %w", err)
	}

	slog.Info("worker shut down gracefully")
	return nil
}
