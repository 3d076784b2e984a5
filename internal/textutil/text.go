// Package textutil holds rune-aware helpers shared by the prompt, parser and
// fallback packages. All lengths are in runes, not bytes.
package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var sentenceBreakRe = regexp.MustCompile(`[.!?]+`)

// Len returns the number of runes in s.
func Len(s string) int { return utf8.RuneCountInString(s) }

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// LongSentences splits text on runs of sentence punctuation, looks at the
// first `first` pieces and keeps the trimmed ones longer than minLen runes.
// A non-positive first means all pieces.
func LongSentences(text string, first, minLen int) []string {
	parts := sentenceBreakRe.Split(text, -1)
	if first > 0 && len(parts) > first {
		parts = parts[:first]
	}
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if Len(p) > minLen {
			out = append(out, p)
		}
	}
	return out
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int { return len(strings.Fields(s)) }
