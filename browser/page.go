package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/gmapreviews/dom"
	"github.com/use-agent/gmapreviews/models"
)

// clickTimeout bounds a single click, which otherwise waits indefinitely
// for the element to become interactable.
const clickTimeout = 10 * time.Second

// Page is one browser tab. Lookups through Find/FindAll never wait; blocking
// waits go through WaitFor and WaitClickable and are bounded by their ctx.
type Page struct {
	page   *rod.Page
	router *rod.HijackRouter
}

// Navigate loads url and waits for the load event. ctx bounds both.
func (p *Page) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return categorizeError(err, "navigation to place URL failed")
	}
	if err := pg.WaitLoad(); err != nil {
		return categorizeError(err, "page did not finish loading")
	}
	return nil
}

// WaitFor blocks until an element matching q exists or ctx is done.
func (p *Page) WaitFor(ctx context.Context, q dom.Query) (dom.Element, error) {
	el, err := p.waitElement(ctx, q)
	if err != nil {
		return nil, err
	}
	return wrap(el), nil
}

// WaitClickable blocks until the first element matching q is visible and
// enabled, or ctx is done.
func (p *Page) WaitClickable(ctx context.Context, q dom.Query) (dom.Element, error) {
	el, err := p.waitElement(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := el.Context(ctx).WaitVisible(); err != nil {
		return nil, driverError(err)
	}
	if err := el.Context(ctx).WaitEnabled(); err != nil {
		return nil, driverError(err)
	}
	return wrap(el), nil
}

func (p *Page) waitElement(ctx context.Context, q dom.Query) (*rod.Element, error) {
	pg := p.page.Context(ctx)
	var (
		el  *rod.Element
		err error
	)
	switch q.By {
	case dom.ByCSS:
		el, err = pg.Element(q.Expr)
	case dom.ByXPath:
		el, err = pg.ElementX(q.Expr)
	default:
		return nil, fmt.Errorf("browser: unsupported query %s", q)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %v", dom.ErrNotFound, q, ctx.Err())
		}
		return nil, driverError(err)
	}
	// detach from the wait deadline
	return el.Context(p.page.GetContext()), nil
}

// Find returns the first element currently matching q.
func (p *Page) Find(q dom.Query) (dom.Element, error) {
	return first(p.FindAll(q))
}

// FindAll returns the elements currently matching q.
func (p *Page) FindAll(q dom.Query) ([]dom.Element, error) {
	switch q.By {
	case dom.ByCSS:
		return wrapAll(p.page.Elements(q.Expr))
	case dom.ByXPath:
		return wrapAll(p.page.ElementsX(q.Expr))
	}
	return nil, fmt.Errorf("browser: unsupported query %s", q)
}

// ScrollToBottom scrolls region to its end, or the window when region is nil.
func (p *Page) ScrollToBottom(region dom.Element) error {
	if region == nil {
		_, err := p.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
		return driverError(err)
	}
	el, err := unwrap(region)
	if err != nil {
		return err
	}
	_, err = el.Eval(`function () { this.scrollTop = this.scrollHeight }`)
	return driverError(err)
}

// ScrollExtent is region's scrollHeight, or the document body's when region
// is nil.
func (p *Page) ScrollExtent(region dom.Element) (int, error) {
	if region == nil {
		res, err := p.page.Eval(`() => document.body.scrollHeight`)
		if err != nil {
			return 0, driverError(err)
		}
		return res.Value.Int(), nil
	}
	el, err := unwrap(region)
	if err != nil {
		return 0, err
	}
	res, err := el.Eval(`function () { return this.scrollHeight }`)
	if err != nil {
		return 0, driverError(err)
	}
	return res.Value.Int(), nil
}

// HTML returns the current rendered document.
func (p *Page) HTML() (string, error) {
	html, err := p.page.HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

// Close stops request interception and closes the tab.
func (p *Page) Close() error {
	if p.router != nil {
		_ = p.router.Stop()
	}
	return p.page.Close()
}

// Element wraps a live DOM element.
type Element struct {
	el *rod.Element
}

func wrap(el *rod.Element) *Element { return &Element{el: el} }

func wrapAll(els rod.Elements, err error) ([]dom.Element, error) {
	if err != nil {
		return nil, driverError(err)
	}
	out := make([]dom.Element, len(els))
	for i, el := range els {
		out[i] = wrap(el)
	}
	return out, nil
}

func first(els []dom.Element, err error) (dom.Element, error) {
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, dom.ErrNotFound
	}
	return els[0], nil
}

func unwrap(e dom.Element) (*rod.Element, error) {
	el, ok := e.(*Element)
	if !ok {
		return nil, fmt.Errorf("browser: %T is not a browser element", e)
	}
	return el.el, nil
}

func (e *Element) Find(q dom.Query) (dom.Element, error) {
	return first(e.FindAll(q))
}

func (e *Element) FindAll(q dom.Query) ([]dom.Element, error) {
	switch q.By {
	case dom.ByCSS:
		return wrapAll(e.el.Elements(q.Expr))
	case dom.ByXPath:
		return wrapAll(e.el.ElementsX(q.Expr))
	}
	return nil, fmt.Errorf("browser: unsupported query %s", q)
}

// Text returns the rendered text of the element.
func (e *Element) Text() (string, error) {
	s, err := e.el.Text()
	return s, driverError(err)
}

// Attribute returns "" for a missing attribute.
func (e *Element) Attribute(name string) (string, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", driverError(err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *Element) Visible() (bool, error) {
	v, err := e.el.Visible()
	return v, driverError(err)
}

func (e *Element) Enabled() (bool, error) {
	disabled, err := e.el.Disabled()
	return !disabled, driverError(err)
}

func (e *Element) Click() error {
	return driverError(e.el.Timeout(clickTimeout).Click(proto.InputMouseButtonLeft, 1))
}

// driverError tags errors caused by a node that left the document with
// dom.ErrStale so callers can treat them as expected absence.
func driverError(err error) error {
	if err == nil {
		return nil
	}
	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) {
		msg := strings.ToLower(cdpErr.Message)
		if strings.Contains(msg, "node") || strings.Contains(msg, "object") || strings.Contains(msg, "context") {
			return fmt.Errorf("%w: %v", dom.ErrStale, err)
		}
	}
	return err
}

// categorizeError wraps raw errors into typed ScrapeErrors so callers can
// map them to exit codes and HTTP statuses.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		slog.Debug("browser error", "error", err)
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
