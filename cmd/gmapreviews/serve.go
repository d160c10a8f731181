package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/gmapreviews/api"
	"github.com/use-agent/gmapreviews/browser"
	"github.com/use-agent/gmapreviews/cache"
	"github.com/use-agent/gmapreviews/config"
	"github.com/use-agent/gmapreviews/session"
)

func newServeCmd(load func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the review scraper over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := load()
			logWarnings(cfg)
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("gmapreviews server starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"auth", cfg.Auth.Enabled,
	)

	// ── 1. Launch browser ───────────────────────────────────────────
	b, err := browser.Launch(cfg.Browser)
	if err != nil {
		return err
	}
	// b.Close() kills Chrome after the server has drained.
	defer b.Close()

	// ── 2. Session runner, cache, router ────────────────────────────
	runner := session.NewRunner(func() (session.Page, error) {
		p, err := b.NewPage()
		if err != nil {
			return nil, err
		}
		return p, nil
	}, cfg.Timeouts)
	cc := cache.New(cfg.Cache.MaxEntries)
	router := api.NewRouter(runner, cfg, cc, time.Now())

	// ── 3. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// ── 4. Graceful shutdown ────────────────────────────────────────
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// A running session may take a while; give it 30 seconds.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("gmapreviews stopped")
	return nil
}
