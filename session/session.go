// Package session drives one scrape of a listing page: it loads the page,
// opens the review panel, then scrolls and extracts until a stop condition,
// appending every new batch to the sink as it arrives.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/use-agent/gmapreviews/config"
	"github.com/use-agent/gmapreviews/dom"
	"github.com/use-agent/gmapreviews/extractor"
	"github.com/use-agent/gmapreviews/ledger"
	"github.com/use-agent/gmapreviews/models"
)

// Page is the browser tab a session owns. Find and FindAll never wait.
type Page interface {
	dom.Root
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, q dom.Query) (dom.Element, error)
	WaitClickable(ctx context.Context, q dom.Query) (dom.Element, error)
	// ScrollToBottom and ScrollExtent act on the whole document when
	// region is nil.
	ScrollToBottom(region dom.Element) error
	ScrollExtent(region dom.Element) (int, error)
	HTML() (string, error)
	Close() error
}

// Sink receives each batch of new reviews.
type Sink interface {
	Append(reviews []models.Review) error
	Path() string
}

// Stop reasons reported in Result.
const (
	StopMaxReviews  = "max_reviews"
	StopEndOfList   = "end_of_list"
	StopIterations  = "iteration_cap"
	StopOperator    = "operator"
	StopInterrupted = "interrupted"
	StopSinkFailed  = "sink_failed"
)

// Result is the outcome of a session.
type Result struct {
	// Reviews is the accumulated set in first-seen order.
	Reviews []models.Review

	OutputPath string
	Mode       config.Mode

	// PanelOpened is false when no panel-opening strategy worked and the
	// whole page was scrolled instead.
	PanelOpened bool

	// RegionFound is false when scrolling fell back to the document.
	RegionFound bool

	Iterations int
	StopReason string
	Duration   time.Duration
}

// Controller runs one session. It owns the page and closes it when Run
// returns. Not safe for concurrent use.
type Controller struct {
	page     Page
	sink     Sink
	prompt   Prompter
	cfg      config.SessionConfig
	timeouts config.TimeoutConfig
	ledger   *ledger.Ledger

	// saved holds every record the sink accepted, in first-seen order.
	saved []models.Review
}

// Option configures a Controller.
type Option func(*Controller)

// WithPrompter sets the operator prompter used by the interactive modes.
func WithPrompter(p Prompter) Option {
	return func(c *Controller) { c.prompt = p }
}

// New returns a Controller for one session over page.
func New(page Page, sink Sink, cfg config.SessionConfig, timeouts config.TimeoutConfig, opts ...Option) *Controller {
	var lopts []ledger.Option
	if cfg.DedupIncludeText {
		lopts = append(lopts, ledger.WithTextKey())
	}
	c := &Controller{
		page:     page,
		sink:     sink,
		cfg:      cfg,
		timeouts: timeouts,
		ledger:   ledger.New(lopts...),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run executes the session. A page that never renders its main content is
// the only fatal error; operator interrupts end the session cleanly with
// what was already saved. A sink failure returns the records saved before
// it together with a SINK_WRITE_FAILED error.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	defer func() {
		if err := c.page.Close(); err != nil {
			slog.Debug("page close failed", "error", err)
		}
	}()

	if c.cfg.Mode.Interactive() && c.prompt == nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("mode %q needs an interactive prompter", c.cfg.Mode), nil)
	}

	// ── 1. Load place page ──────────────────────────────────────────
	if err := c.bootstrap(ctx); err != nil {
		return nil, err
	}

	res := &Result{
		OutputPath: c.sink.Path(),
		Mode:       c.cfg.Mode,
	}

	// ── 2. Open reviews panel ───────────────────────────────────────
	var region dom.Element
	res.PanelOpened = c.openPanel(ctx)
	if res.PanelOpened {
		c.waitForContainer(ctx)
		region = c.findRegion()
	} else {
		slog.Warn("could not open reviews panel, scrolling the whole page")
	}
	res.RegionFound = region != nil

	// ── 3. Scroll and collect ───────────────────────────────────────
	var err error
	switch c.cfg.Mode {
	case config.ModeManual:
		err = c.manualScroll(ctx, res)
	case config.ModeHybrid:
		err = c.hybridScroll(ctx, region, res)
	default:
		err = c.autoScroll(ctx, region, res)
	}

	// ── 4. Snapshot and summary ─────────────────────────────────────
	c.saveSnapshot()

	res.Reviews = c.saved
	res.Duration = time.Since(start)
	slog.Info("session finished",
		"mode", string(res.Mode),
		"reviews", len(res.Reviews),
		"iterations", res.Iterations,
		"stop", res.StopReason,
		"output", res.OutputPath,
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, err
}

// bootstrap navigates to the place page and waits for its main content.
func (c *Controller) bootstrap(ctx context.Context) error {
	slog.Info("loading place page", "url", c.cfg.PlaceURL)

	navCtx, cancel := withTimeout(ctx, c.timeouts.PageLoad)
	defer cancel()
	if err := c.page.Navigate(navCtx, c.cfg.PlaceURL); err != nil {
		return err
	}

	waitCtx, cancel := withTimeout(ctx, c.timeouts.ElementWait)
	defer cancel()
	if _, err := c.page.WaitFor(waitCtx, mainContent); err != nil {
		return models.NewScrapeError(models.ErrCodePageLoad, "failed to load page", err)
	}
	slog.Info("page loaded")

	if err := sleep(ctx, c.timeouts.RenderSettle); err != nil {
		return models.NewScrapeError(models.ErrCodeTimeout, "interrupted while page rendered", err)
	}
	slog.Info("reviews visible before opening panel", "count", extractor.Count(c.page, 0))
	return nil
}

// collect extracts the current document, keeps records not seen before (up
// to MaxReviews overall) and appends them to the sink. Only records the sink
// accepted count as saved.
//
// The extraction limit is MaxReviews, not the remaining capacity: Extract
// rescans from the top of the list, so a smaller limit would only return
// records already saved. The remaining capacity bounds the ledger filter.
func (c *Controller) collect() ([]models.Review, error) {
	batch := extractor.Extract(c.page, c.cfg.MaxReviews)
	fresh := c.ledger.FilterNewUpTo(batch, c.remaining())
	if len(fresh) == 0 {
		return nil, nil
	}
	if err := c.sink.Append(fresh); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSinkWrite,
			fmt.Sprintf("failed to append %d reviews to %s", len(fresh), c.sink.Path()), err)
	}
	c.saved = append(c.saved, fresh...)
	return fresh, nil
}

// remaining is how many more records fit under MaxReviews; 0 means unbounded.
func (c *Controller) remaining() int {
	if c.cfg.MaxReviews <= 0 {
		return 0
	}
	return max(c.cfg.MaxReviews-len(c.saved), 0)
}

func (c *Controller) full() bool {
	return c.cfg.MaxReviews > 0 && len(c.saved) >= c.cfg.MaxReviews
}

func (c *Controller) saveSnapshot() {
	if c.cfg.SnapshotPath == "" {
		return
	}
	html, err := c.page.HTML()
	if err != nil {
		slog.Warn("snapshot skipped", "error", err)
		return
	}
	if err := os.WriteFile(c.cfg.SnapshotPath, []byte(html), 0o644); err != nil {
		slog.Warn("snapshot write failed", "path", c.cfg.SnapshotPath, "error", err)
		return
	}
	slog.Info("snapshot saved", "path", c.cfg.SnapshotPath, "bytes", len(html))
}

// withTimeout bounds ctx by d; d <= 0 leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
