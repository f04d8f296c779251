package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/hsewatch/internal/bootstrap"
	"github.com/rezkam/hsewatch/internal/config"
	httpserver "github.com/rezkam/hsewatch/internal/infrastructure/http"
	"github.com/rezkam/hsewatch/internal/infrastructure/http/handler"
	"github.com/rezkam/hsewatch/internal/infrastructure/observability"
)

const defaultShutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Root context, cancelled on SIGTERM/SIGINT.
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
		// Bounded so an unreachable collector cannot hang exit.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown telemetry", "error", err)
		}
	}()
	slog.SetDefault(tel.Logger)

	slog.InfoContext(ctx, "starting hsewatch server")

	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}

	gateway, err := bootstrap.NewEmailGateway(ctx, cfg.Email)
	if err != nil {
		return err
	}

	reports, closeArchive, err := bootstrap.OpenArchive(ctx, cfg.Report)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to open report archive: %w", err)
	}
	defer newCleanup(closeArchive, store)()

	svc, err := bootstrap.NewReminderService(store, gateway, reports, tel.MeterProvider, cfg.Reminder)
	if err != nil {
		return err
	}

	server := httpserver.NewAPIServer(handler.NewReminderHandler(svc, reports,
		handler.WithRunTimeout(cfg.HTTP.TriggerTimeout)), httpserver.ServerConfig{
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		CronSecret:        cfg.Cron.Secret,
		TLSCertFile:       tlsFile(cfg.HTTP.TLSEnabled, cfg.HTTP.TLSCertFile),
		TLSKeyFile:        tlsFile(cfg.HTTP.TLSEnabled, cfg.HTTP.TLSKeyFile),
	})

	errResult := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errResult <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")

		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		// Main ctx is already cancelled; in-flight runs get a fresh window.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.WarnContext(shutdownCtx, "HTTP server shutdown timed out", "error", err)
		}
		return nil
	case err := <-errResult:
		return err
	}
}

func tlsFile(enabled bool, path string) string {
	if !enabled {
		return ""
	}
	return path
}
