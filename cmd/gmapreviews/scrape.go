package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/use-agent/gmapreviews/browser"
	"github.com/use-agent/gmapreviews/config"
	"github.com/use-agent/gmapreviews/models"
	"github.com/use-agent/gmapreviews/session"
	"github.com/use-agent/gmapreviews/webhook"
)

func newScrapeCmd(load func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape a place's reviews with a live browser (default command).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := load()
			applyScrapeFlags(cmd, cfg)
			logWarnings(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runScrape(cmd.Context(), cfg)
		},
	}
	bindScrapeFlags(cmd)
	return cmd
}

func bindScrapeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("url", "", "place URL (overrides GMAP_PLACE_URL)")
	f.Int("max", 0, "maximum number of reviews (overrides MAX_REVIEWS)")
	f.String("output", "", "output CSV filename (overrides OUTPUT_FILENAME)")
	f.String("dir", "", "output directory (overrides OUTPUT_DIR)")
	f.String("mode", "", "scroll mode: true (auto), false (manual) or hybrid (overrides AUTO_SCROLL)")
	f.String("headless", "", "run the browser headless: true or false (overrides HEADLESS)")
	f.String("snapshot", "", "save the final rendered HTML to this file (overrides SNAPSHOT_PATH)")
}

// applyScrapeFlags lets explicitly set flags win over the environment.
func applyScrapeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("url") {
		cfg.Session.PlaceURL, _ = f.GetString("url")
	}
	if f.Changed("max") {
		if n, _ := f.GetInt("max"); n > 0 {
			cfg.Session.MaxReviews = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid --max %d, keeping %d", n, cfg.Session.MaxReviews))
		}
	}
	if f.Changed("output") {
		name, _ := f.GetString("output")
		cfg.Session.OutputFilename = models.EnsureCSVSuffix(name)
	}
	if f.Changed("dir") {
		cfg.Session.OutputDir, _ = f.GetString("dir")
	}
	if f.Changed("mode") {
		mode, _ := f.GetString("mode")
		cfg.ApplyMode(mode)
	}
	if f.Changed("headless") {
		h, _ := f.GetString("headless")
		cfg.Browser.Headless = config.ParseHeadless(h)
	}
	if f.Changed("snapshot") {
		cfg.Session.SnapshotPath, _ = f.GetString("snapshot")
	}
}

func runScrape(ctx context.Context, cfg *config.Config) error {
	var opts []session.Option
	if cfg.Session.Mode.Interactive() {
		term := session.NewTerminal(os.Stdin, os.Stdout)
		start, err := startMenu(ctx, term, cfg)
		if err != nil || !start {
			// exit and interrupt at the menu are both a clean exit
			fmt.Println("Exiting...")
			return nil
		}
		opts = append(opts, session.WithPrompter(term))
	}

	slog.Info("launching browser", "headless", cfg.Browser.Headless, "mode", string(cfg.Session.Mode))
	b, err := browser.Launch(cfg.Browser)
	if err != nil {
		return err
	}
	defer b.Close()

	runner := session.NewRunner(func() (session.Page, error) {
		p, err := b.NewPage()
		if err != nil {
			return nil, err
		}
		return p, nil
	}, cfg.Timeouts)

	res, err := runner.Run(ctx, cfg.Session, opts...)
	if res != nil {
		printSummary(res)
	}
	notifyCompleted(cfg, res, err)

	var se *models.ScrapeError
	if errors.As(err, &se) && se.Code == models.ErrCodePageLoad {
		slog.Error("Failed to load page", "url", cfg.Session.PlaceURL, "error", se.Err)
	}
	return err
}

// startMenu shows the configuration and asks whether to start.
func startMenu(ctx context.Context, p session.Prompter, cfg *config.Config) (bool, error) {
	t := newTable()
	t.SetTitle("Google Maps Review Scraper")
	t.AppendRows([]table.Row{
		{"Place URL", truncate(cfg.Session.PlaceURL, 60)},
		{"Max reviews", cfg.Session.MaxReviews},
		{"Headless", cfg.Browser.Headless},
		{"Output", filepath.Join(cfg.Session.OutputDir, cfg.Session.OutputFilename)},
		{"Mode", string(cfg.Session.Mode)},
	})
	t.Render()
	p.Printf("\n%s\n", cfg.Session.Mode.Description())

	choice, err := p.Choose(ctx, "Start?", []string{"Start scraping", "Exit"})
	if err != nil {
		return false, err
	}
	return choice == 0, nil
}

func printSummary(res *session.Result) {
	t := newTable()
	t.SetTitle("Session summary")
	t.AppendRows([]table.Row{
		{"Reviews saved", len(res.Reviews)},
		{"Output", res.OutputPath},
		{"Mode", string(res.Mode)},
		{"Panel opened", res.PanelOpened},
		{"Scroll region found", res.RegionFound},
		{"Iterations", res.Iterations},
		{"Stopped by", res.StopReason},
		{"Duration", res.Duration.Round(time.Second).String()},
	})
	t.Render()
}

// notifyCompleted delivers the webhook synchronously so it is not lost
// when the process exits.
func notifyCompleted(cfg *config.Config, res *session.Result, err error) {
	if cfg.Webhook.URL == "" {
		return
	}
	data := webhook.SessionData{
		PlaceURL: cfg.Session.PlaceURL,
		Mode:     string(cfg.Session.Mode),
	}
	if res != nil {
		data.Total = len(res.Reviews)
		data.OutputPath = res.OutputPath
		data.StopReason = res.StopReason
	}
	if err != nil {
		data.Error = err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := webhook.Deliver(ctx, cfg.Webhook.URL, cfg.Webhook.Secret, webhook.NewSessionCompleted(data)); err != nil {
		slog.Warn("webhook delivery failed", "url", cfg.Webhook.URL, "error", err)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
