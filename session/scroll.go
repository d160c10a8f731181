package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/gmapreviews/dom"
	"github.com/use-agent/gmapreviews/extractor"
)

const (
	autoMaxIterations   = 50
	autoUnchangedLimit  = 3
	hybridMaxIterations = 1000
	// hybridCheckEvery spaces out record counting, which re-parses the page.
	hybridCheckEvery       = 10
	hybridUnchangedHeights = 10
	hybridUnchangedCounts  = 3
)

// autoScroll extracts, saves and scrolls until the list stops growing, the
// cap is reached or MaxReviews records were saved.
func (c *Controller) autoScroll(ctx context.Context, region dom.Element, res *Result) error {
	lastHeight, unchanged := 0, 0
	for iter := 1; ; iter++ {
		res.Iterations = iter

		fresh, err := c.collect()
		if err != nil {
			res.StopReason = StopSinkFailed
			return err
		}
		slog.Info("batch collected", "iteration", iter, "new", len(fresh), "total", len(c.saved))

		if c.full() {
			slog.Info("reached max reviews limit", "max", c.cfg.MaxReviews)
			res.StopReason = StopMaxReviews
			return nil
		}

		height, err := c.scroll(ctx, region, c.timeouts.ScrollSettle)
		if err != nil {
			if ctx.Err() != nil {
				res.StopReason = StopInterrupted
				return nil
			}
			slog.Warn("scroll failed", "iteration", iter, "error", err)
		}
		slog.Info("scrolled", "iteration", iter, "height", height)

		if height == lastHeight {
			unchanged++
		} else {
			unchanged = 0
		}
		lastHeight = height

		switch {
		case unchanged >= autoUnchangedLimit:
			slog.Info("height unchanged, likely reached the end", "iterations", iter)
			res.StopReason = StopEndOfList
			return nil
		case iter >= autoMaxIterations:
			slog.Info("stopping after iteration cap", "iterations", iter)
			res.StopReason = StopIterations
			return nil
		}
	}
}

// manualScroll lets the operator scroll the browser and trigger each
// extraction from the terminal.
func (c *Controller) manualScroll(ctx context.Context, res *Result) error {
	c.prompt.Printf("Manual scroll mode: scroll the browser window to load more reviews,\n")
	c.prompt.Printf("then come back to this terminal to scrape them.\n")

	for {
		res.Iterations++
		c.prompt.Printf("Reviews currently visible on page: %d\n", extractor.Count(c.page, 0))
		c.prompt.Printf("Total reviews scraped so far: %d\n", len(c.saved))
		c.prompt.Printf("Target max reviews: %d\n", c.cfg.MaxReviews)

		choice, err := c.prompt.Choose(ctx, "MANUAL SCRAPING MENU", []string{
			"Start scraping current reviews",
			"Exit scraping",
		})
		if err != nil {
			res.StopReason = StopInterrupted
			return nil
		}
		if choice == 1 {
			res.StopReason = StopOperator
			return nil
		}

		fresh, err := c.collect()
		if err != nil {
			res.StopReason = StopSinkFailed
			return err
		}
		if len(fresh) == 0 {
			c.prompt.Printf("No new reviews found (all visible reviews already scraped)\n")
		} else {
			c.prompt.Printf("Saved %d new reviews to %s\n", len(fresh), c.sink.Path())
		}
		c.prompt.Printf("Total reviews collected so far: %d\n", len(c.saved))
		slog.Info("batch collected", "iteration", res.Iterations, "new", len(fresh), "total", len(c.saved))

		if c.full() {
			c.prompt.Printf("Reached max reviews limit (%d)\n", c.cfg.MaxReviews)
			res.StopReason = StopMaxReviews
			return nil
		}

		more, err := c.prompt.Confirm(ctx, "Continue scraping?")
		if err != nil {
			res.StopReason = StopInterrupted
			return nil
		}
		if !more {
			res.StopReason = StopOperator
			return nil
		}
	}
}

// hybridScroll auto-scrolls until everything is loaded, then asks the
// operator once whether to save the loaded reviews. Declining, or
// interrupting the question, saves nothing.
func (c *Controller) hybridScroll(ctx context.Context, region dom.Element, res *Result) error {
	c.prompt.Printf("Hybrid mode: auto-scrolling to load all reviews, this may take a while\n")

	lastHeight, sameHeight := 0, 0
	lastCount, sameCount := 0, 0
loading:
	for iter := 1; iter <= hybridMaxIterations; iter++ {
		res.Iterations = iter

		height, err := c.scroll(ctx, region, c.timeouts.HybridScrollSettle)
		if err != nil {
			if ctx.Err() != nil {
				res.StopReason = StopInterrupted
				return nil
			}
			slog.Warn("scroll failed", "iteration", iter, "error", err)
		}

		if iter == 1 || iter%hybridCheckEvery == 0 {
			count := extractor.Count(c.page, 0)
			if count == lastCount {
				sameCount++
			} else {
				sameCount = 0
			}
			lastCount = count
			slog.Info("loading reviews", "iteration", iter, "loaded", count, "height", height)

			switch {
			case c.cfg.MaxReviews > 0 && count >= c.cfg.MaxReviews:
				slog.Info("reached target review count", "loaded", count, "max", c.cfg.MaxReviews)
				break loading
			case sameCount >= hybridUnchangedCounts:
				slog.Info("review count unchanged, likely reached the end", "iterations", iter)
				break loading
			}
		}

		if height == lastHeight {
			sameHeight++
		} else {
			sameHeight = 0
		}
		lastHeight = height
		if sameHeight >= hybridUnchangedHeights {
			slog.Info("height unchanged, reached end of scrollable content", "iterations", iter)
			break
		}
	}

	loaded := extractor.Count(c.page, 0)
	c.prompt.Printf("Scrolling completed after %d scrolls\n", res.Iterations)
	c.prompt.Printf("Reviews ready to scrape: %d\n", loaded)
	c.prompt.Printf("Target max reviews: %d\n", c.cfg.MaxReviews)

	choice, err := c.prompt.Choose(ctx, "Phase 2: Ready to scrape!", []string{
		"Start scraping all loaded reviews",
		"Exit without scraping",
	})
	if err != nil {
		res.StopReason = StopInterrupted
		return nil
	}
	if choice == 1 {
		c.prompt.Printf("Exiting without scraping\n")
		res.StopReason = StopOperator
		return nil
	}

	fresh, err := c.collect()
	if err != nil {
		res.StopReason = StopSinkFailed
		return err
	}
	c.prompt.Printf("Saved %d reviews to %s\n", len(fresh), c.sink.Path())
	res.StopReason = StopEndOfList
	if c.full() {
		res.StopReason = StopMaxReviews
	}
	return nil
}

// scroll moves region (or the page) to its end, waits for content to
// settle and returns the new scroll extent.
func (c *Controller) scroll(ctx context.Context, region dom.Element, settle time.Duration) (int, error) {
	if err := c.page.ScrollToBottom(region); err != nil {
		return 0, err
	}
	if err := sleep(ctx, settle); err != nil {
		return 0, err
	}
	return c.page.ScrollExtent(region)
}
