package htmldoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/gmapreviews/dom"
)

const page = `<html><body>
<div role="main">
  <div class="wrap" jscontroller="abc">
    <div class="card" data-review-id="1"><span class="name"> Ana </span><button disabled>More</button></div>
    <div class="card" data-review-id="2" style="display: none"><span class="name">Ben</span></div>
  </div>
  <button aria-label="12 Reviews">12 reviews</button>
</div>
</body></html>`

func TestDocument_CSS(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	cards, err := doc.FindAll(dom.CSS("div[data-review-id]"))
	require.NoError(t, err)
	require.Len(t, cards, 2)

	name, err := cards[0].Find(dom.CSS("span.name"))
	require.NoError(t, err)
	text, _ := name.Text()
	assert.Equal(t, " Ana ", text)

	_, err = cards[0].Find(dom.CSS("img"))
	assert.ErrorIs(t, err, dom.ErrNotFound)
}

func TestDocument_XPathAncestor(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	name, err := doc.Find(dom.CSS("span.name"))
	require.NoError(t, err)

	card, err := name.Find(dom.XPath("./ancestor::div[@data-review-id or @jscontroller][1]"))
	require.NoError(t, err)
	id, _ := card.Attribute("data-review-id")
	assert.Equal(t, "1", id)
}

func TestDocument_XPathText(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	el, err := doc.Find(dom.XPath("//button[contains(., 'reviews') or contains(., 'Reviews')]"))
	require.NoError(t, err)
	label, _ := el.Attribute("aria-label")
	assert.Equal(t, "12 Reviews", label)
}

func TestElement_VisibleEnabledClick(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	cards, err := doc.FindAll(dom.CSS("div.card"))
	require.NoError(t, err)

	visible, _ := cards[0].Visible()
	assert.True(t, visible)
	visible, _ = cards[1].Visible()
	assert.False(t, visible)

	btn, err := cards[0].Find(dom.CSS("button"))
	require.NoError(t, err)
	enabled, _ := btn.Enabled()
	assert.False(t, enabled)

	assert.ErrorIs(t, btn.Click(), dom.ErrNotInteractive)
}

func TestDocument_BadSelector(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	_, err = doc.FindAll(dom.CSS("div[["))
	assert.Error(t, err)
	_, err = doc.FindAll(dom.XPath("//div["))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	doc, err := Open(path)
	require.NoError(t, err)
	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, "data-review-id")

	_, err = Open(filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}
