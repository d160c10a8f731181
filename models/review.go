package models

import (
	"strconv"
	"strings"
)

// Review is one review record read from the rendered listing page.
// Records are built once per extraction pass and never mutated afterwards.
type Review struct {
	// AuthorName is required: records without it are never produced.
	AuthorName string `json:"author_name"`

	// Rating is nil when the star label could not be parsed.
	Rating *float64 `json:"rating"`

	// PublishedAt is the page's relative label ("2 weeks ago"), verbatim.
	PublishedAt string `json:"published_at"`

	Text string `json:"text"`

	// AuthorImageURL is empty unless it points at the image host.
	AuthorImageURL string `json:"author_image_url"`
}

// CSVHeader is the fixed column order of the output file.
var CSVHeader = []string{"author_name", "rating", "published_at", "text", "author_image_url"}

// CSVRecord renders the review in CSVHeader order.
func (r Review) CSVRecord() []string {
	return []string{r.AuthorName, FormatRating(r.Rating), r.PublishedAt, r.Text, r.AuthorImageURL}
}

// FormatRating renders a rating the way the output file has always carried
// it ("4.5", "5.0"); an absent rating is the empty string.
func FormatRating(rating *float64) string {
	if rating == nil {
		return ""
	}
	s := strconv.FormatFloat(*rating, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Float returns a pointer to v, for building optional ratings.
func Float(v float64) *float64 { return &v }
