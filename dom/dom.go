// Package dom describes the small slice of a rendered document that the
// extractor and the session controller need. It is implemented by the live
// go-rod adapter (package browser) and by parsed HTML snapshots (package
// htmldoc), so every extraction path can run against either.
package dom

import (
	"errors"
	"fmt"
)

// Expected-absence outcomes. Implementations return these instead of
// driver-specific errors so callers can treat them as "try the next query".
var (
	ErrNotFound       = errors.New("dom: element not found")
	ErrStale          = errors.New("dom: stale element reference")
	ErrNotInteractive = errors.New("dom: element is not interactive")
)

// By selects the query language of a Query.
type By int

const (
	ByCSS By = iota
	ByXPath
)

func (b By) String() string {
	switch b {
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	default:
		return fmt.Sprintf("By(%d)", int(b))
	}
}

// Query is one candidate lookup: a selector and the language it is written in.
type Query struct {
	By   By
	Expr string
}

// CSS returns a CSS selector query.
func CSS(expr string) Query { return Query{By: ByCSS, Expr: expr} }

// XPath returns an XPath query. Relative expressions ("./ancestor::div")
// are evaluated against the element they are issued on.
func XPath(expr string) Query { return Query{By: ByXPath, Expr: expr} }

func (q Query) String() string { return q.By.String() + ":" + q.Expr }

// CSSList turns plain CSS selectors into queries, preserving order.
func CSSList(exprs ...string) []Query {
	qs := make([]Query, len(exprs))
	for i, e := range exprs {
		qs[i] = CSS(e)
	}
	return qs
}

// Root is anything that can be searched: the whole document or an element.
// Neither method waits for content to appear.
type Root interface {
	// Find returns the first match in document order, or ErrNotFound.
	Find(q Query) (Element, error)

	// FindAll returns every match in document order. No match is not an error.
	FindAll(q Query) ([]Element, error)
}

// Element is a node of the rendered document.
type Element interface {
	Root

	// Text returns the element's visible text, untrimmed.
	Text() (string, error)

	// Attribute returns the named attribute, or "" when it is absent.
	Attribute(name string) (string, error)

	Visible() (bool, error)
	Enabled() (bool, error)
	Click() error
}
