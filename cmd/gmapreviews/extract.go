package main

import (
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/use-agent/gmapreviews/config"
	"github.com/use-agent/gmapreviews/extractor"
	"github.com/use-agent/gmapreviews/htmldoc"
	"github.com/use-agent/gmapreviews/ledger"
	"github.com/use-agent/gmapreviews/models"
	"github.com/use-agent/gmapreviews/sink"
)

func newExtractCmd(load func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <snapshot.html>",
		Short: "Extract reviews from a saved page snapshot and write them as a fresh CSV.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			applyScrapeFlags(cmd, cfg)
			logWarnings(cfg)
			return runExtract(args[0], cfg.Session)
		},
	}
	f := cmd.Flags()
	f.Int("max", 0, "maximum number of reviews (overrides MAX_REVIEWS)")
	f.String("output", "", "output CSV filename (overrides OUTPUT_FILENAME)")
	f.String("dir", "", "output directory (overrides OUTPUT_DIR)")
	return cmd
}

func runExtract(snapshot string, cfg config.SessionConfig) error {
	doc, err := htmldoc.Open(snapshot)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "cannot read snapshot", err)
	}

	var opts []ledger.Option
	if cfg.DedupIncludeText {
		opts = append(opts, ledger.WithTextKey())
	}
	l := ledger.New(opts...)
	batch := extractor.Extract(doc, 0)
	l.FilterNewUpTo(batch, cfg.MaxReviews)
	reviews := l.All()

	out := sink.NewCSV(cfg.OutputDir, cfg.OutputFilename)
	if err := out.WriteFull(reviews); err != nil {
		return models.NewScrapeError(models.ErrCodeSinkWrite, "cannot write CSV", err)
	}
	slog.Info("snapshot extracted", "snapshot", snapshot, "cards", len(batch), "reviews", len(reviews), "output", out.Path())

	t := newTable()
	t.SetTitle("Snapshot extraction")
	t.AppendRows([]table.Row{
		{"Snapshot", snapshot},
		{"Cards found", len(batch)},
		{"Reviews written", len(reviews)},
		{"Output", out.Path()},
	})
	t.Render()
	return nil
}
