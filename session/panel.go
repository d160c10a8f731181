package session

import (
	"context"
	"log/slog"

	"github.com/use-agent/gmapreviews/dom"
	"github.com/use-agent/gmapreviews/locator"
)

// mainContent marks a rendered place page.
var mainContent = dom.CSS(`div[role="main"]`)

// Panel-opening candidates, one table per strategy, tried in this order.
var (
	moreReviewsControls = dom.CSSList(
		`button[jsaction*="pane.reviewChart.moreReviews"]`,
		`button[aria-label*="reviews" i]`,
		`button[aria-label*="ulasan" i]`,
		`a[href*="reviews"]`,
		`a[href*="ulasan"]`,
	)

	ratingStarControls = dom.CSSList(
		`div[aria-label*="stars" i]`,
		`span[aria-label*="stars" i]`,
		`div[role="img"][aria-label*="stars" i]`,
	)

	reviewTextControls = []dom.Query{
		dom.XPath(`//button[contains(., 'reviews') or contains(., 'Reviews')]`),
		dom.XPath(`//button[contains(., 'ulasan') or contains(., 'Ulasan')]`),
		dom.XPath(`//a[contains(., 'reviews') or contains(., 'Reviews')]`),
		dom.XPath(`//a[contains(., 'ulasan') or contains(., 'Ulasan')]`),
		dom.XPath(`//span[contains(., 'reviews') or contains(., 'Reviews')]`),
		dom.XPath(`//span[contains(., 'ulasan') or contains(., 'Ulasan')]`),
	}

	reviewElements = dom.CSSList(
		`div[data-review-id]`,
		`div[jscontroller*="review"]`,
		`div[class*="review"]`,
		`div[class*="ulasan"]`,
	)
)

// reviewContainers are awaited after the panel opens.
var reviewContainers = dom.CSSList(
	`div.m6QErb.DxyBCb.kA9KIf.dS8AEf.XiKgde`,
	`div[role="region"] div[aria-label][jscontroller]`,
	`div[role="region"]`,
	`div[aria-label*="reviews" i]`,
)

// scrollRegions locate the element whose scrollTop drives lazy loading.
var scrollRegions = dom.CSSList(
	`div.m6QErb.DxyBCb.kA9KIf.dS8AEf.XiKgde`,
	`div[role="region"] div[aria-label][jscontroller]`,
	`div[role="region"]`,
	`div[aria-label*="reviews" i]`,
	`div.bJzME.tTVLSc`,
	`div[jscontroller]`,
)

// openPanel runs the panel-opening strategies in priority order and reports
// whether one of them clicked something.
func (c *Controller) openPanel(ctx context.Context) bool {
	q, name, ok := locator.First(
		locator.Strategy[dom.Query]{Name: "more reviews control", Probe: c.clickFirst(ctx, moreReviewsControls)},
		locator.Strategy[dom.Query]{Name: "rating stars", Probe: c.clickFirst(ctx, ratingStarControls)},
		locator.Strategy[dom.Query]{Name: "review text", Probe: c.clickFirst(ctx, reviewTextControls)},
		locator.Strategy[dom.Query]{Name: "any review element", Probe: c.clickAnyVisible(reviewElements)},
	)
	if !ok {
		return false
	}
	slog.Info("reviews panel opened", "strategy", name, "selector", q.String())
	return true
}

// clickFirst waits up to the probe timeout for each candidate to become
// clickable and clicks the first that does.
func (c *Controller) clickFirst(ctx context.Context, candidates []dom.Query) func() (dom.Query, bool) {
	return func() (dom.Query, bool) {
		for _, q := range candidates {
			if ctx.Err() != nil {
				return dom.Query{}, false
			}
			probeCtx, cancel := withTimeout(ctx, c.timeouts.Probe)
			el, err := c.page.WaitClickable(probeCtx, q)
			cancel()
			if err != nil {
				slog.Debug("panel candidate not clickable", "selector", q.String(), "error", err)
				continue
			}
			if err := el.Click(); err != nil {
				slog.Debug("panel candidate click failed", "selector", q.String(), "error", err)
				continue
			}
			return q, true
		}
		return dom.Query{}, false
	}
}

// clickAnyVisible clicks the first currently visible and enabled element
// matching any candidate, without waiting.
func (c *Controller) clickAnyVisible(candidates []dom.Query) func() (dom.Query, bool) {
	return func() (dom.Query, bool) {
		for _, q := range candidates {
			els, err := c.page.FindAll(q)
			if err != nil {
				continue
			}
			for _, el := range els {
				if visible, err := el.Visible(); err != nil || !visible {
					continue
				}
				if enabled, err := el.Enabled(); err != nil || !enabled {
					continue
				}
				if err := el.Click(); err != nil {
					continue
				}
				return q, true
			}
		}
		return dom.Query{}, false
	}
}

// waitForContainer waits for the review list to render. Failure is logged
// and the session continues.
func (c *Controller) waitForContainer(ctx context.Context) {
	for _, q := range reviewContainers {
		waitCtx, cancel := withTimeout(ctx, c.timeouts.ContainerWait)
		_, err := c.page.WaitFor(waitCtx, q)
		cancel()
		if err == nil {
			slog.Info("reviews container found", "selector", q.String())
			return
		}
	}
	slog.Warn("could not find reviews container, continuing anyway")
}

// findRegion returns the scrollable review list, or nil to scroll the page.
func (c *Controller) findRegion() dom.Element {
	el, ok := locator.Resolve(c.page, scrollRegions)
	if !ok {
		slog.Warn("could not find scrollable container, scrolling the page instead")
		return nil
	}
	return el
}
