package ledger

import (
	"github.com/use-agent/gmapreviews/models"
	"github.com/use-agent/gmapreviews/simhash"
)

// textThreshold is the largest Hamming distance at which two review texts
// still count as the same body when text-aware keys are enabled.
const textThreshold = 3

// Key is the identity of a review. Two records with equal keys are the same
// review even when their text differs.
type Key struct {
	AuthorName  string
	PublishedAt string
	Rating      string
}

// KeyOf derives the identity key of r.
func KeyOf(r models.Review) Key {
	return Key{
		AuthorName:  r.AuthorName,
		PublishedAt: r.PublishedAt,
		Rating:      models.FormatRating(r.Rating),
	}
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithTextKey makes the review text part of the identity: records sharing a
// Key are duplicates only when their text fingerprints are near-identical.
func WithTextKey() Option {
	return func(l *Ledger) { l.textKey = true }
}

// Ledger is the accumulated result set of one session. It is not safe for
// concurrent use; a session owns exactly one.
type Ledger struct {
	textKey bool
	seen    map[Key][]simhash.Hash
	all     []models.Review
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{seen: make(map[Key][]simhash.Hash)}
	for _, o := range opts {
		o(l)
	}
	return l
}

// FilterNew returns the records of batch not seen before, in batch order,
// and records them as seen.
func (l *Ledger) FilterNew(batch []models.Review) []models.Review {
	return l.FilterNewUpTo(batch, 0)
}

// FilterNewUpTo is FilterNew that accepts at most max new records;
// max <= 0 means no bound. Records past the bound are left unseen.
func (l *Ledger) FilterNewUpTo(batch []models.Review, max int) []models.Review {
	var fresh []models.Review
	for _, r := range batch {
		if max > 0 && len(fresh) >= max {
			break
		}
		if !l.add(r) {
			continue
		}
		fresh = append(fresh, r)
	}
	return fresh
}

func (l *Ledger) add(r models.Review) bool {
	k := KeyOf(r)
	prints, ok := l.seen[k]
	if ok && !l.textKey {
		return false
	}

	var fp simhash.Hash
	if l.textKey {
		fp = simhash.Of(r.Text)
		for _, p := range prints {
			if p.Near(fp, textThreshold) {
				return false
			}
		}
	}

	l.seen[k] = append(prints, fp)
	l.all = append(l.all, r)
	return true
}

// Len is the number of distinct records accumulated so far.
func (l *Ledger) Len() int { return len(l.all) }

// All returns a copy of the accumulated records in first-seen order.
func (l *Ledger) All() []models.Review {
	out := make([]models.Review, len(l.all))
	copy(out, l.all)
	return out
}
