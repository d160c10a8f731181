// Command gmapreviews collects the reviews of a map listing into a CSV file.
//
//	gmapreviews [scrape] --url <place> [--mode true|false|hybrid]
//	gmapreviews extract <snapshot.html>
//	gmapreviews serve
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/gmapreviews/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	// loaded lazily so every subcommand sees the same .env handling
	load := func() *config.Config {
		if cfg == nil {
			cfg = config.Load()
			initLogger(cfg.Log)
		}
		return cfg
	}

	root := &cobra.Command{
		Use:           "gmapreviews",
		Short:         "gmapreviews scrapes the reviews of a map listing into a CSV file.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	scrape := newScrapeCmd(load)
	root.RunE = scrape.RunE
	bindScrapeFlags(root)

	root.AddCommand(scrape, newExtractCmd(load), newServeCmd(load))
	return root
}

// initLogger configures slog based on the LogConfig. Logs go to stderr:
// stdout carries the interactive menus.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func logWarnings(cfg *config.Config) {
	for _, w := range cfg.Warnings {
		slog.Warn(w)
	}
	cfg.Warnings = nil
}
