package locator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/gmapreviews/dom"
)

// fakeRoot maps query expressions to canned outcomes.
type fakeRoot struct {
	found map[string]*fakeElement
	errs  map[string]error
	calls []string
}

func (r *fakeRoot) Find(q dom.Query) (dom.Element, error) {
	r.calls = append(r.calls, q.Expr)
	if err, ok := r.errs[q.Expr]; ok {
		return nil, err
	}
	if el, ok := r.found[q.Expr]; ok {
		return el, nil
	}
	return nil, dom.ErrNotFound
}

func (r *fakeRoot) FindAll(q dom.Query) ([]dom.Element, error) {
	el, err := r.Find(q)
	if errors.Is(err, dom.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []dom.Element{el}, nil
}

type fakeElement struct {
	fakeRoot
	text    string
	textErr error
	attrs   map[string]string
}

func (e *fakeElement) Text() (string, error)                { return e.text, e.textErr }
func (e *fakeElement) Attribute(name string) (string, error) { return e.attrs[name], nil }
func (e *fakeElement) Visible() (bool, error)                { return true, nil }
func (e *fakeElement) Enabled() (bool, error)                { return true, nil }
func (e *fakeElement) Click() error                          { return nil }

func TestResolveText_FallsThroughAbsentAndEmpty(t *testing.T) {
	root := &fakeRoot{
		found: map[string]*fakeElement{
			"B": {text: "   "},
			"C": {text: "  Jane Doe \n"},
		},
	}

	got := ResolveText(root, dom.CSSList("A", "B", "C"))

	assert.Equal(t, "Jane Doe", got)
	assert.Equal(t, []string{"A", "B", "C"}, root.calls)
}

func TestResolveText_AllCandidatesFail(t *testing.T) {
	root := &fakeRoot{
		found: map[string]*fakeElement{"B": {text: ""}},
		errs:  map[string]error{"C": dom.ErrStale},
	}

	assert.Equal(t, "", ResolveText(root, dom.CSSList("A", "B", "C")))
}

func TestResolveText_TextErrorFallsThrough(t *testing.T) {
	root := &fakeRoot{
		found: map[string]*fakeElement{
			"A": {textErr: dom.ErrStale},
			"B": {text: "ok"},
		},
	}

	assert.Equal(t, "ok", ResolveText(root, dom.CSSList("A", "B")))
}

func TestResolveAttribute(t *testing.T) {
	root := &fakeRoot{
		found: map[string]*fakeElement{
			"img.a": {attrs: map[string]string{"alt": "x"}},
			"img.b": {attrs: map[string]string{"src": "https://example.com/a.png"}},
			"img.c": {attrs: map[string]string{"src": "https://lh3.googleusercontent.com/a"}},
		},
	}

	assert.Equal(t, "https://example.com/a.png", ResolveAttribute(root, dom.CSSList("img.a", "img.b", "img.c"), "src"))

	got := ResolveAttributeFunc(root, dom.CSSList("img.a", "img.b", "img.c"), "src", func(v string) bool {
		return v == "https://lh3.googleusercontent.com/a"
	})
	assert.Equal(t, "https://lh3.googleusercontent.com/a", got)
}

func TestResolve(t *testing.T) {
	want := &fakeElement{text: "hit"}
	root := &fakeRoot{
		found: map[string]*fakeElement{"second": want},
		errs:  map[string]error{"first": errors.New("boom")},
	}

	el, ok := Resolve(root, dom.CSSList("first", "second"))
	require.True(t, ok)
	assert.Same(t, want, el)

	_, ok = Resolve(root, dom.CSSList("missing"))
	assert.False(t, ok)
}

func TestFirstNonEmpty(t *testing.T) {
	root := &fakeRoot{
		found: map[string]*fakeElement{"div.card": {}},
	}

	els, q, ok := FirstNonEmpty(root, dom.CSSList("div.none", "div.card"))
	require.True(t, ok)
	assert.Len(t, els, 1)
	assert.Equal(t, "div.card", q.Expr)

	_, _, ok = FirstNonEmpty(root, dom.CSSList("div.none"))
	assert.False(t, ok)
}

func TestFirst_StopsAtFirstSuccess(t *testing.T) {
	var ran []string
	mk := func(name string, ok bool) Strategy[int] {
		return Strategy[int]{Name: name, Probe: func() (int, bool) {
			ran = append(ran, name)
			return len(name), ok
		}}
	}

	v, name, ok := First(mk("a", false), mk("bb", true), mk("ccc", true))

	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, "bb", name)
	assert.Equal(t, []string{"a", "bb"}, ran)
}
