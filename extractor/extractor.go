// Package extractor reads review records out of the currently rendered
// listing page. Extraction never fails as a whole: a missing field degrades
// to its zero value and an unreadable card is skipped.
package extractor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/gmapreviews/dom"
	"github.com/use-agent/gmapreviews/locator"
	"github.com/use-agent/gmapreviews/models"
)

// card pairs an effective review container with an author node that was
// already located, if any.
type card struct {
	root   dom.Element
	author dom.Element
}

// Extract returns the reviews visible under root in document order, stopping
// once limit valid records were produced by this call. limit <= 0 means no
// limit. Every call re-scans from the top of the rendered document.
func Extract(root dom.Root, limit int) []models.Review {
	cards := discoverCards(root)

	reviews := make([]models.Review, 0, len(cards))
	for i, c := range cards {
		r, err := parseCard(c)
		if err != nil {
			slog.Debug("extractor: skipping card", "index", i, "error", err)
			continue
		}
		if r.AuthorName == "" {
			continue
		}
		reviews = append(reviews, r)
		if limit > 0 && len(reviews) >= limit {
			slog.Debug("extractor: limit reached", "limit", limit)
			break
		}
	}
	return reviews
}

// Count reports how many valid records Extract would currently return.
func Count(root dom.Root, limit int) int {
	return len(Extract(root, limit))
}

// discoverCards finds review containers, falling back to author nodes and
// their nearest card-like ancestor.
func discoverCards(root dom.Root) []card {
	if els, q, ok := locator.FirstNonEmpty(root, cardQueries); ok {
		slog.Debug("extractor: cards found", "count", len(els), "selector", q.Expr)
		cards := make([]card, len(els))
		for i, el := range els {
			cards[i] = card{root: el}
		}
		return cards
	}

	authors, q, ok := locator.FirstNonEmpty(root, authorQueries)
	if !ok {
		slog.Debug("extractor: no review cards or author nodes found")
		return nil
	}
	slog.Debug("extractor: falling back to author nodes", "count", len(authors), "selector", q.Expr)

	cards := make([]card, 0, len(authors))
	for i, a := range authors {
		anc, err := a.Find(cardAncestor)
		if err != nil {
			slog.Debug("extractor: author node has no card ancestor", "index", i, "error", err)
			continue
		}
		cards = append(cards, card{root: anc, author: a})
	}
	return cards
}

func parseCard(c card) (models.Review, error) {
	var name string
	if c.author != nil {
		text, err := c.author.Text()
		if err != nil {
			return models.Review{}, fmt.Errorf("read author: %w", err)
		}
		name = strings.TrimSpace(text)
	} else {
		name = locator.ResolveText(c.root, authorNameQueries)
	}
	if name == "" {
		return models.Review{}, nil
	}

	return models.Review{
		AuthorName:     name,
		Rating:         ParseRating(locator.ResolveAttribute(c.root, ratingQueries, ratingAttr)),
		PublishedAt:    locator.ResolveText(c.root, publishedAtQueries),
		Text:           locator.ResolveText(c.root, textQueries),
		AuthorImageURL: AuthorImageURL(c.root),
	}, nil
}

// AuthorImageURL returns the first image src under card that points at the
// image host, or "".
func AuthorImageURL(card dom.Root) string {
	return locator.ResolveAttributeFunc(card, authorImageQueries, "src", func(src string) bool {
		return strings.Contains(src, ImageHost)
	})
}
