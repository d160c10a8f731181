package extractor

import (
	"math"
	"strconv"
	"strings"
)

// ParseRating returns the first whitespace-separated token of label that
// parses as a decimal number, accepting a comma decimal separator.
// "4.5 out of 5 stars" yields 4.5; a label with no number yields nil.
// When several numbers appear the first one wins, even if it is not the
// rating itself.
func ParseRating(label string) *float64 {
	for _, token := range strings.Fields(label) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", "."), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		return &v
	}
	return nil
}
