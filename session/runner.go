package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/use-agent/gmapreviews/config"
	"github.com/use-agent/gmapreviews/models"
	"github.com/use-agent/gmapreviews/sink"
)

// Runner serialises sessions over one browser: a session started while
// another is running fails with SESSION_BUSY instead of queueing.
type Runner struct {
	open     func() (Page, error)
	timeouts config.TimeoutConfig

	mu   sync.Mutex
	busy atomic.Bool
}

// NewRunner returns a Runner that opens a fresh page per session.
func NewRunner(open func() (Page, error), timeouts config.TimeoutConfig) *Runner {
	return &Runner{open: open, timeouts: timeouts}
}

// Run executes one session writing to cfg.OutputDir/cfg.OutputFilename.
func (r *Runner) Run(ctx context.Context, cfg config.SessionConfig, opts ...Option) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, models.NewScrapeError(models.ErrCodeSessionBusy, "a scrape session is already running", nil)
	}
	defer r.mu.Unlock()
	r.busy.Store(true)
	defer r.busy.Store(false)

	page, err := r.open()
	if err != nil {
		return nil, err
	}
	out := sink.NewCSV(cfg.OutputDir, cfg.OutputFilename)
	return New(page, out, cfg, r.timeouts, opts...).Run(ctx)
}

// Busy reports whether a session is running.
func (r *Runner) Busy() bool { return r.busy.Load() }
