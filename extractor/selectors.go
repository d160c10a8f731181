package extractor

import "github.com/use-agent/gmapreviews/dom"

// Listing-page selectors. The host page ships obfuscated class names that
// change without notice; each list runs from the most specific selector
// to the broadest one.

// cardQueries discover review cards. The first query with any match wins.
var cardQueries = dom.CSSList(
	`div.jftiEf.fontBodyMedium`,
	`div[data-review-id]`,
	`div.bJzME.tTVLSc`,
	`div[jscontroller][data-review-id]`,
	`div[role="article"]`,
	`div[class*="review"]`,
	`div[class*="ulasan"]`,
	`div[jscontroller]`,
)

// authorQueries locate author-name nodes directly when no card query matches.
var authorQueries = dom.CSSList(
	`div.d4r55.fontTitleMedium`,
	`div[class*="d4r55"]`,
)

// cardAncestor walks up from an author node to the nearest card-like div.
var cardAncestor = dom.XPath(`./ancestor::div[contains(@class, 'bJzME') or contains(@class, 'review') or @jscontroller][1]`)

var authorNameQueries = dom.CSSList(
	`div.d4r55.fontTitleMedium`,
	`div[class*="d4r55"]`,
	`a[href^="/maps/contrib/"]`,
)

// ratingQueries point at the star widget; its aria-label carries the value.
var ratingQueries = dom.CSSList(
	`span[role="img"][aria-label*="star"]`,
	`span.kvMYJc[role="img"]`,
)

const ratingAttr = "aria-label"

var publishedAtQueries = dom.CSSList(
	`span.rsqaWe`,
	`span[class*="rsqaWe"]`,
)

var textQueries = dom.CSSList(
	`span[class*="wiI7pd"]`,
	`div[class*="MyEned"] span`,
	`div[class*="review-snippet"]`,
	`span[class*="review-text"]`,
)

var authorImageQueries = dom.CSSList(
	`img.NBa7we`,
	`img[class*="NBa7we"]`,
	`img[alt=""]`,
	`img[src*="googleusercontent"]`,
	`img[src*="lh3.googleusercontent"]`,
)

// ImageHost must appear in an accepted author image URL.
const ImageHost = "googleusercontent"
