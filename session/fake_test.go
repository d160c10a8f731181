package session

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/use-agent/gmapreviews/dom"
	"github.com/use-agent/gmapreviews/htmldoc"
	"github.com/use-agent/gmapreviews/models"
	"github.com/use-agent/gmapreviews/sink"
)

// fakePage serves a sequence of HTML snapshots: snapshot i is the document
// after i scrolls (the last one repeats). heights work the same way.
type fakePage struct {
	t         *testing.T
	snapshots []string
	heights   []int

	step          int
	doc           *htmldoc.Document
	navErr        error
	closed        bool
	clicked       []string
	regionScrolls int
	pageScrolls   int
}

func newFakePage(t *testing.T, snapshots []string, heights []int) *fakePage {
	p := &fakePage{t: t, snapshots: snapshots, heights: heights}
	p.load()
	return p
}

func (p *fakePage) load() {
	i := min(p.step, len(p.snapshots)-1)
	doc, err := htmldoc.ParseString(p.snapshots[i])
	require.NoError(p.t, err)
	p.doc = doc
}

// advance simulates the operator scrolling the browser.
func (p *fakePage) advance() {
	p.step++
	p.load()
}

func (p *fakePage) Find(q dom.Query) (dom.Element, error) { return p.doc.Find(q) }

func (p *fakePage) FindAll(q dom.Query) ([]dom.Element, error) {
	els, err := p.doc.FindAll(q)
	for i, el := range els {
		els[i] = clickable{Element: el, page: p, q: q}
	}
	return els, err
}

func (p *fakePage) Navigate(context.Context, string) error { return p.navErr }

func (p *fakePage) WaitFor(_ context.Context, q dom.Query) (dom.Element, error) {
	return p.doc.Find(q)
}

func (p *fakePage) WaitClickable(_ context.Context, q dom.Query) (dom.Element, error) {
	el, err := p.doc.Find(q)
	if err != nil {
		return nil, err
	}
	if v, _ := el.Visible(); !v {
		return nil, dom.ErrNotFound
	}
	if e, _ := el.Enabled(); !e {
		return nil, dom.ErrNotFound
	}
	return clickable{Element: el, page: p, q: q}, nil
}

func (p *fakePage) ScrollToBottom(region dom.Element) error {
	if region == nil {
		p.pageScrolls++
	} else {
		p.regionScrolls++
	}
	p.advance()
	return nil
}

func (p *fakePage) ScrollExtent(dom.Element) (int, error) {
	if len(p.heights) == 0 {
		return 0, nil
	}
	return p.heights[min(p.step, len(p.heights)-1)], nil
}

func (p *fakePage) HTML() (string, error) { return p.doc.HTML() }

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type clickable struct {
	dom.Element
	page *fakePage
	q    dom.Query
}

func (c clickable) Click() error {
	c.page.clicked = append(c.page.clicked, c.q.Expr)
	return nil
}

// spySink records batch sizes and forwards to a real CSV sink.
type spySink struct {
	csv   *sink.CSV
	sizes []int
	err   error
}

func newSpySink(t *testing.T) *spySink {
	return &spySink{csv: sink.NewCSV(t.TempDir(), "reviews.csv")}
}

func (s *spySink) Append(reviews []models.Review) error {
	if s.err != nil {
		return s.err
	}
	s.sizes = append(s.sizes, len(reviews))
	return s.csv.Append(reviews)
}

func (s *spySink) Path() string { return s.csv.Path() }

// scriptedPrompter answers from a fixed script of ints (Choose), bools
// (Confirm) and errors (either). before runs ahead of each answer.
type scriptedPrompter struct {
	t       *testing.T
	answers []any
	before  func(n int)
	asked   int
	out     strings.Builder
}

func (s *scriptedPrompter) next() any {
	require.Less(s.t, s.asked, len(s.answers), "prompter ran out of answers")
	if s.before != nil {
		s.before(s.asked)
	}
	a := s.answers[s.asked]
	s.asked++
	return a
}

func (s *scriptedPrompter) Choose(context.Context, string, []string) (int, error) {
	switch a := s.next().(type) {
	case int:
		return a, nil
	case error:
		return 0, a
	default:
		s.t.Fatalf("Choose got answer %v", a)
		return 0, nil
	}
}

func (s *scriptedPrompter) Confirm(context.Context, string) (bool, error) {
	switch a := s.next().(type) {
	case bool:
		return a, nil
	case error:
		return false, a
	default:
		s.t.Fatalf("Confirm got answer %v", a)
		return false, nil
	}
}

func (s *scriptedPrompter) Printf(format string, args ...any) {
	fmt.Fprintf(&s.out, format, args...)
}

type placeOpts struct {
	noMain  bool
	noPanel bool
	// panel replaces the default "more reviews" button when set.
	panel string
	// noRegion renders the review list without any scrollable container.
	noRegion bool
}

// placePage renders a listing page holding reviews from..to-1.
func placePage(from, to int, o placeOpts) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	if !o.noMain {
		b.WriteString(`<div role="main">`)
	}
	switch {
	case o.panel != "":
		b.WriteString(o.panel)
	case !o.noPanel:
		b.WriteString(`<button jsaction="pane.reviewChart.moreReviews">More</button>`)
	}
	if o.noRegion {
		b.WriteString(`<section class="list">`)
	} else {
		b.WriteString(`<div class="m6QErb DxyBCb kA9KIf dS8AEf XiKgde">`)
	}
	for i := from; i < to; i++ {
		fmt.Fprintf(&b, `<div class="jftiEf fontBodyMedium">`+
			`<div class="d4r55 fontTitleMedium">user-%d</div>`+
			`<span class="kvMYJc" role="img" aria-label="%d of 5"></span>`+
			`<span class="rsqaWe">%d days ago</span>`+
			`<span class="wiI7pd">text %d</span></div>`, i, i%5+1, i, i)
	}
	if o.noRegion {
		b.WriteString(`</section>`)
	} else {
		b.WriteString(`</div>`)
	}
	if !o.noMain {
		b.WriteString(`</div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}
