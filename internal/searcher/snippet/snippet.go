// Package snippet cuts a short window of original text around the first
// literal query term match.
package snippet

import (
	"strings"
)

const (
	// NoMatch is returned when no query term occurs in the text.
	NoMatch = "No relevant snippet found."

	DefaultWindow = 30

	ellipsis = "..."
)

// Extract returns up to window whitespace-separated words of text centred
// on the first word equal, ignoring case, to one of terms. Matching is
// literal: a stemmed term only matches words spelled the same way.
func Extract(text string, terms []string, window int) string {
	if window <= 0 {
		window = DefaultWindow
	}
	words := strings.Fields(text)
	if len(words) == 0 || len(terms) == 0 {
		return NoMatch
	}
	wanted := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		wanted[strings.ToLower(t)] = struct{}{}
	}
	match := -1
	for i, w := range words {
		if _, ok := wanted[strings.ToLower(w)]; ok {
			match = i
			break
		}
	}
	if match < 0 {
		return NoMatch
	}
	half := window / 2
	start := max(0, match-half)
	end := min(len(words), match+half)
	if end <= start {
		end = start + 1
	}
	out := strings.Join(words[start:end], " ")
	if end < len(words) {
		out += ellipsis
	}
	return out
}
