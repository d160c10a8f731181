// Package htmldoc implements dom.Root over a parsed HTML snapshot, so the
// extractor can run against a saved page without a browser. CSS queries are
// compiled with cascadia and run through goquery; XPath queries go through
// htmlquery against the same x/net/html tree.
package htmldoc

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/use-agent/gmapreviews/dom"
	"golang.org/x/net/html"
)

// Document is a parsed, static HTML page.
type Document struct {
	doc *goquery.Document
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString parses an in-memory HTML document.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Open parses the HTML file at path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Find returns the first element matching q.
func (d *Document) Find(q dom.Query) (dom.Element, error) {
	return find(d.doc.Selection, q)
}

// FindAll returns every element matching q in document order.
func (d *Document) FindAll(q dom.Query) ([]dom.Element, error) {
	return findAll(d.doc.Selection, q)
}

// HTML renders the document back to markup.
func (d *Document) HTML() (string, error) {
	return d.doc.Html()
}

// Element is a node of a Document.
type Element struct {
	sel *goquery.Selection
}

func wrap(n *html.Node) *Element {
	return &Element{sel: goquery.NewDocumentFromNode(n).Selection}
}

func (e *Element) node() *html.Node { return e.sel.Get(0) }

func (e *Element) Find(q dom.Query) (dom.Element, error) { return find(e.sel, q) }

func (e *Element) FindAll(q dom.Query) ([]dom.Element, error) { return findAll(e.sel, q) }

// Text returns the concatenated text content of the element.
func (e *Element) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *Element) Attribute(name string) (string, error) {
	v, _ := e.sel.Attr(name)
	return v, nil
}

// Visible reports false for elements hidden by markup alone: the hidden
// attribute or an inline display:none. Stylesheets are not evaluated.
func (e *Element) Visible() (bool, error) {
	for n := e.node(); n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		s := goquery.NewDocumentFromNode(n).Selection
		if _, hidden := s.Attr("hidden"); hidden {
			return false, nil
		}
		style := strings.ReplaceAll(strings.ToLower(s.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") {
			return false, nil
		}
	}
	return true, nil
}

func (e *Element) Enabled() (bool, error) {
	if _, disabled := e.sel.Attr("disabled"); disabled {
		return false, nil
	}
	return e.sel.AttrOr("aria-disabled", "") != "true", nil
}

// Click always fails: a snapshot has no script to react to input.
func (e *Element) Click() error {
	return dom.ErrNotInteractive
}

var (
	selectorMu    sync.Mutex
	selectorCache = map[string]cascadia.Selector{}
)

func compile(expr string) (cascadia.Selector, error) {
	selectorMu.Lock()
	defer selectorMu.Unlock()
	if s, ok := selectorCache[expr]; ok {
		return s, nil
	}
	s, err := cascadia.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: compile %q: %w", expr, err)
	}
	selectorCache[expr] = s
	return s, nil
}

func findAll(root *goquery.Selection, q dom.Query) ([]dom.Element, error) {
	var nodes []*html.Node
	switch q.By {
	case dom.ByCSS:
		sel, err := compile(q.Expr)
		if err != nil {
			return nil, err
		}
		nodes = root.FindMatcher(sel).Nodes
	case dom.ByXPath:
		if root.Length() == 0 {
			return nil, nil
		}
		found, err := htmlquery.QueryAll(root.Get(0), q.Expr)
		if err != nil {
			return nil, fmt.Errorf("htmldoc: xpath %q: %w", q.Expr, err)
		}
		for _, n := range found {
			if n.Type == html.ElementNode {
				nodes = append(nodes, n)
			}
		}
	default:
		return nil, fmt.Errorf("htmldoc: unsupported query %s", q)
	}

	out := make([]dom.Element, len(nodes))
	for i, n := range nodes {
		out[i] = wrap(n)
	}
	return out, nil
}

func find(root *goquery.Selection, q dom.Query) (dom.Element, error) {
	els, err := findAll(root, q)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, dom.ErrNotFound
	}
	return els[0], nil
}
