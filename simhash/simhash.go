package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// Hash is a 64-bit SimHash fingerprint. The empty text hashes to 0.
type Hash uint64

// Of fingerprints text. Tokens are runs of letters and digits, lower-cased;
// each token votes on every bit through its FNV-64a hash.
func Of(text string) Hash {
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return 0
	}

	var votes [64]int
	h := fnv.New64a()
	for _, tok := range tokens {
		h.Reset()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for i := range votes {
			if sum>>uint(i)&1 == 1 {
				votes[i]++
			} else {
				votes[i]--
			}
		}
	}

	var out Hash
	for i, v := range votes {
		if v > 0 {
			out |= 1 << uint(i)
		}
	}
	return out
}

// Tokens splits text into the lower-cased word tokens Of hashes.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Distance is the Hamming distance between two fingerprints.
func (h Hash) Distance(o Hash) int {
	return bits.OnesCount64(uint64(h ^ o))
}

// Near reports whether o is within max bits of h.
func (h Hash) Near(o Hash, max int) bool {
	return h.Distance(o) <= max
}
