package domain

import "context"

// Chunk is a bounded, overlapping span of document text used for retrieval.
type Chunk struct {
	Text  string
	Index int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Embedder converts free text into L2-normalized vectors.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(text string) []Chunk
}

// Generator invokes the generative model. It never fails: an empty string is
// the only failure signal.
type Generator interface {
	Invoke(ctx context.Context, prompt, systemMessage string) string
}

// Orchestrator runs the four document flows. Implementations never fail:
// every result is complete, with Success reporting degradation.
type Orchestrator interface {
	Simplify(ctx context.Context, req Request) SimplifyResult
	Ask(ctx context.Context, req Request) AnswerResult
	Summarize(ctx context.Context, req Request) SummaryResult
	Extract(ctx context.Context, req Request) ExtractionResult
}
