// Package summarizer ranks document vocabulary by frequency. It backs the
// key topic list of extractive summaries.
package summarizer

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// FrequencyRanker ranks words by frequency with stopwords filtered out.
type FrequencyRanker struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
	minLen       int
}

// NewFrequencyRanker creates a ranker ignoring words shorter than four runes.
func NewFrequencyRanker() *FrequencyRanker {
	return &FrequencyRanker{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
		minLen:       4,
	}
}

// TopTerms returns up to n of the most frequent content words in first-seen
// order among equals, so the result is deterministic.
func (f *FrequencyRanker) TopTerms(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	freq := map[string]int{}
	var order []string
	for _, tok := range f.tokens(text) {
		if _, ok := f.stopwords[tok]; ok {
			continue
		}
		if utf8.RuneCountInString(tok) < f.minLen {
			continue
		}
		if freq[tok] == 0 {
			order = append(order, tok)
		}
		freq[tok]++
	}
	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if n > len(order) {
		n = len(order)
	}
	return order[:n]
}

func (f *FrequencyRanker) tokens(text string) []string {
	lower := strings.ToLower(text)
	return f.tokenPattern.FindAllString(lower, -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"have", "has", "had", "there", "their", "they", "them", "which", "while", "what", "when", "where", "also", "each", "other", "some", "more", "most", "only", "would", "could", "our", "your", "its", "not", "all", "any", "both", "were",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
