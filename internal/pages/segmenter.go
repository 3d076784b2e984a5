// Package pages splits a document into display-oriented pages. Pages are the
// unit of generation and are independent of retrieval chunks.
package pages

import (
	"log"
	"regexp"
	"strings"

	"briefing/internal/textutil"
)

var pageBreakRe = regexp.MustCompile(`(?i)\n\s*---\s*\n|\f|\n\s*Page\s+\d+\s*\n`)

// Segmenter splits text on explicit page markers, or packs paragraphs into
// pages of at most maxChars runes when no markers are present.
type Segmenter struct {
	maxChars int
	logger   *log.Logger
}

func NewSegmenter(maxChars int, logger *log.Logger) *Segmenter {
	if maxChars <= 0 {
		maxChars = 3000
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Segmenter{maxChars: maxChars, logger: logger}
}

// Segment always returns at least one page. Whitespace-only input yields a
// single page holding the input unchanged.
func (s *Segmenter) Segment(text string) (pages []string) {
	if strings.TrimSpace(text) == "" {
		return []string{text}
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("page segmentation failed: %v", r)
			pages = []string{text}
		}
	}()

	var marked []string
	for _, p := range pageBreakRe.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			marked = append(marked, p)
		}
	}
	if len(marked) > 1 {
		return marked
	}

	var current string
	for _, para := range strings.Split(text, "\n\n") {
		if current != "" && textutil.Len(current)+len("\n\n")+textutil.Len(para) > s.maxChars {
			pages = append(pages, strings.TrimSpace(current))
			current = para
			continue
		}
		if current == "" {
			current = para
		} else {
			current += "\n\n" + para
		}
	}
	if strings.TrimSpace(current) != "" {
		pages = append(pages, strings.TrimSpace(current))
	}
	if len(pages) == 0 {
		return []string{text}
	}
	return pages
}
