package chunker

import (
	"log"
	"strings"

	"briefing/internal/domain"
	"briefing/internal/textutil"
)

// DefaultSeparators is the break cascade: paragraph, line, sentence, word, rune.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveChunker splits text into pieces of at most chunkSize runes,
// preferring the earliest separator in the cascade that occurs in the text.
// Consecutive chunks share up to chunkOverlap runes.
type RecursiveChunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
	logger       *log.Logger
}

func NewRecursiveChunker(chunkSize, chunkOverlap int, logger *log.Logger) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RecursiveChunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
		logger:       logger,
	}
}

// Chunk never fails: empty input yields no chunks and an internal panic
// yields the whole text as a single chunk.
func (c *RecursiveChunker) Chunk(text string) (chunks []domain.Chunk) {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("chunking failed, using whole text as one chunk: %v", r)
			chunks = []domain.Chunk{{Text: text, Index: 0}}
		}
	}()
	pieces := c.split(text, c.separators)
	if len(pieces) == 0 {
		return []domain.Chunk{{Text: text, Index: 0}}
	}
	chunks = make([]domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = domain.Chunk{Text: p, Index: i}
	}
	return chunks
}

func (c *RecursiveChunker) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if textutil.Len(piece) < c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}
	return final
}

// merge packs pieces into chunks, carrying a tail of at most chunkOverlap
// runes into the next chunk. Separators are already attached to the pieces.
func (c *RecursiveChunker) merge(pieces []string) []string {
	var docs, current []string
	total := 0
	for _, p := range pieces {
		n := textutil.Len(p)
		if total+n > c.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for len(current) > 0 && (total > c.chunkOverlap || total+n > c.chunkSize) {
				total -= textutil.Len(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepSeparator splits on sep and re-attaches it to the start of every
// piece after the first. An empty sep splits into runes.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}
