// Package locator resolves values through ordered fallback chains.
//
// The host page's markup is unversioned and changes without notice, so every
// lookup is expressed as a list of candidates tried in order. One generic
// mechanism (Strategy/First) backs field resolution, card discovery and the
// panel-opening chain; only the data tables differ.
package locator

import (
	"log/slog"
	"strings"

	"github.com/use-agent/gmapreviews/dom"
)

// Strategy is one named probe in a fallback chain. Probe reports whether it
// produced a usable value; failures are absorbed by returning ok=false.
type Strategy[T any] struct {
	Name  string
	Probe func() (T, bool)
}

// First runs strategies in order and returns the value and name of the first
// one that succeeds. ok is false when every strategy failed.
func First[T any](strategies ...Strategy[T]) (value T, name string, ok bool) {
	for _, s := range strategies {
		if v, ok := s.Probe(); ok {
			return v, s.Name, true
		}
	}
	var zero T
	return zero, "", false
}

// Resolve returns the first element matched by any candidate under root.
// Not-found, stale and driver errors all fall through to the next candidate.
func Resolve(root dom.Root, candidates []dom.Query) (dom.Element, bool) {
	el, _, ok := First(queryStrategies(candidates, func(q dom.Query) (dom.Element, bool) {
		el, err := root.Find(q)
		if err != nil {
			return nil, false
		}
		return el, true
	})...)
	return el, ok
}

// ResolveText returns the trimmed text of the first candidate whose element
// exists and has non-blank text, or "".
func ResolveText(root dom.Root, candidates []dom.Query) string {
	v, _, _ := First(queryStrategies(candidates, func(q dom.Query) (string, bool) {
		el, err := root.Find(q)
		if err != nil {
			return "", false
		}
		text, err := el.Text()
		if err != nil {
			return "", false
		}
		text = strings.TrimSpace(text)
		return text, text != ""
	})...)
	return v
}

// ResolveAttribute is ResolveText for a named attribute.
func ResolveAttribute(root dom.Root, candidates []dom.Query, attr string) string {
	return ResolveAttributeFunc(root, candidates, attr, nil)
}

// ResolveAttributeFunc is ResolveAttribute with an extra acceptance test:
// values rejected by accept fall through to the next candidate.
func ResolveAttributeFunc(root dom.Root, candidates []dom.Query, attr string, accept func(string) bool) string {
	v, _, _ := First(queryStrategies(candidates, func(q dom.Query) (string, bool) {
		el, err := root.Find(q)
		if err != nil {
			return "", false
		}
		value, err := el.Attribute(attr)
		if err != nil {
			return "", false
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return "", false
		}
		if accept != nil && !accept(value) {
			return "", false
		}
		return value, true
	})...)
	return v
}

// FirstNonEmpty returns the matches of the first candidate that yields at
// least one element, together with the winning query.
func FirstNonEmpty(root dom.Root, candidates []dom.Query) ([]dom.Element, dom.Query, bool) {
	type hit struct {
		els []dom.Element
		q   dom.Query
	}
	h, _, ok := First(queryStrategies(candidates, func(q dom.Query) (hit, bool) {
		els, err := root.FindAll(q)
		if err != nil {
			slog.Debug("locator: query failed", "query", q.String(), "error", err)
			return hit{}, false
		}
		return hit{els: els, q: q}, len(els) > 0
	})...)
	if !ok {
		return nil, dom.Query{}, false
	}
	return h.els, h.q, true
}

// queryStrategies adapts a candidate list into strategies sharing one probe.
func queryStrategies[T any](candidates []dom.Query, probe func(dom.Query) (T, bool)) []Strategy[T] {
	out := make([]Strategy[T], len(candidates))
	for i, q := range candidates {
		out[i] = Strategy[T]{
			Name:  q.String(),
			Probe: func() (T, bool) { return probe(q) },
		}
	}
	return out
}
