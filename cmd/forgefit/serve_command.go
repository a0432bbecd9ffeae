package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	web "forgefit/internal/adapters/http"
	"forgefit/internal/adapters/http/perf"
	"forgefit/internal/config"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the notification webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

// runServer serves the webhook until SIGINT/SIGTERM, then drains in-flight requests.
// Missing storage credentials do not stop startup; the webhook reports them per request.
func runServer(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := perf.NewCollector(perf.DefaultRingSize)
	emailSender, smsSender, err := senders(cfg)
	if err != nil {
		return err
	}

	deps := web.Deps{
		Config:      cfg,
		EmailSender: emailSender,
		SMSSender:   smsSender,
		Collector:   collector,
		Now:         time.Now,
	}
	be, err := openBackend(signalCtx, cfg, collector)
	switch {
	case errors.Is(err, config.ErrStorageNotConfigured):
		slog.Warn("storage_not_configured", "driver", cfg.Storage.Driver)
	case err != nil:
		return fmt.Errorf("open storage: %w", err)
	default:
		defer be.Close()
		deps.Profiles = be.profiles
		deps.Outcomes = be.notifications
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.NewRouter(signalCtx, deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting",
			"version", version,
			"addr", cfg.Addr,
			"env", cfg.Env,
			"storage", cfg.Storage.Driver,
			"failure_policy", cfg.FailurePolicy,
			"email", cfg.Email.Complete(),
			"sms", cfg.SMS.Complete(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-signalCtx.Done():
	}

	slog.Info("server_stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server_stopped")
	return nil
}
