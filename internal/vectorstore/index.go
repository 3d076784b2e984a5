package vectorstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"briefing/internal/domain"
)

// ContextSeparator joins retrieved chunks in Query output.
const ContextSeparator = "\n\n---\n\n"

// Index is an immutable brute-force cosine index over one document's chunks.
// A nil *Index is the Unavailable index: every method is safe to call on it
// and returns an empty result.
type Index struct {
	embedder    domain.Embedder
	fingerprint string
	dimension   int
	chunks      []domain.Chunk
	vectors     [][]float64
}

// Fingerprint identifies the source text an index was built from.
func Fingerprint(text string) string {
	h := sha1.Sum([]byte(text))
	return hex.EncodeToString(h[:])
}

// Build embeds every chunk and returns a searchable index. Errors wrap
// domain.ErrIndexBuild or domain.ErrDependencyUnavailable.
func Build(ctx context.Context, chunks []domain.Chunk, emb domain.Embedder, fingerprint string) (ix *Index, err error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks", domain.ErrIndexBuild)
	}
	if emb == nil {
		return nil, fmt.Errorf("%w: no embedder", domain.ErrDependencyUnavailable)
	}
	defer func() {
		if r := recover(); r != nil {
			ix, err = nil, fmt.Errorf("%w: %v", domain.ErrIndexBuild, r)
		}
	}()
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := emb.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed chunks: %v", domain.ErrIndexBuild, err)
	}
	return newIndex(emb, fingerprint, chunks, vectors)
}

func newIndex(emb domain.Embedder, fingerprint string, chunks []domain.Chunk, vectors [][]float64) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: chunks and vectors length mismatch", domain.ErrIndexBuild)
	}
	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, fmt.Errorf("%w: empty vectors", domain.ErrIndexBuild)
	}
	normalized := make([][]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("%w: vector dimension mismatch", domain.ErrIndexBuild)
		}
		normalized[i] = normalize(v)
	}
	owned := make([]domain.Chunk, len(chunks))
	copy(owned, chunks)
	return &Index{
		embedder:    emb,
		fingerprint: fingerprint,
		dimension:   dimension,
		chunks:      owned,
		vectors:     normalized,
	}, nil
}

// Available reports whether the index can serve queries.
func (ix *Index) Available() bool { return ix != nil && len(ix.chunks) > 0 }

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.chunks)
}

// Fingerprint returns the fingerprint of the text the index was built from.
func (ix *Index) Fingerprint() string {
	if ix == nil {
		return ""
	}
	return ix.fingerprint
}

// Search returns the topK most similar chunks to the query text.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if !ix.Available() {
		return nil, fmt.Errorf("%w: index unavailable", domain.ErrRetrieval)
	}
	if topK <= 0 {
		topK = 4
	}
	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrRetrieval, err)
	}
	if len(vecs) != 1 || len(vecs[0]) != ix.dimension {
		return nil, fmt.Errorf("%w: query dimension mismatch", domain.ErrRetrieval)
	}
	qv := normalize(vecs[0])
	// compute cosine similarity (vectors are L2-normalized)
	scores := make([]float64, len(ix.vectors))
	for i := range ix.vectors {
		scores[i] = dot(ix.vectors[i], qv)
	}
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		j := idxs[i]
		results = append(results, domain.SearchResult{Chunk: ix.chunks[j], Score: scores[j]})
	}
	return results, nil
}

// Query returns the topK chunk texts joined by ContextSeparator, or "" when
// the index is unavailable or the lookup fails.
func (ix *Index) Query(ctx context.Context, query string, topK int) (string, error) {
	if !ix.Available() {
		return "", nil
	}
	results, err := ix.Search(ctx, query, topK)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Chunk.Text
	}
	return strings.Join(parts, ContextSeparator), nil
}

// Snapshot returns the persistable form of the index.
func (ix *Index) Snapshot() Snapshot {
	if ix == nil {
		return Snapshot{}
	}
	chunks := make([]string, len(ix.chunks))
	for i, ch := range ix.chunks {
		chunks[i] = ch.Text
	}
	return Snapshot{
		Fingerprint: ix.fingerprint,
		Embedder:    ix.embedder.Name(),
		Dimension:   ix.dimension,
		Chunks:      chunks,
		Vectors:     ix.vectors,
	}
}

// FromSnapshot rebuilds an index from a persisted snapshot. A snapshot written
// by a different embedder, or an inconsistent one, is rejected.
func FromSnapshot(snap *Snapshot, emb domain.Embedder) (*Index, error) {
	if snap == nil || len(snap.Chunks) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot", domain.ErrNotFound)
	}
	if emb == nil {
		return nil, fmt.Errorf("%w: no embedder", domain.ErrDependencyUnavailable)
	}
	if snap.Embedder != emb.Name() {
		return nil, fmt.Errorf("%w: snapshot embedder %q does not match %q", domain.ErrIndexBuild, snap.Embedder, emb.Name())
	}
	if d := emb.Dimension(); d > 0 && snap.Dimension != d {
		return nil, fmt.Errorf("%w: snapshot dimension %d does not match %d", domain.ErrIndexBuild, snap.Dimension, d)
	}
	if len(snap.Vectors) == 0 {
		return nil, fmt.Errorf("%w: snapshot has no vectors", domain.ErrIndexBuild)
	}
	chunks := make([]domain.Chunk, len(snap.Chunks))
	for i, text := range snap.Chunks {
		chunks[i] = domain.Chunk{Text: text, Index: i}
	}
	return newIndex(emb, snap.Fingerprint, chunks, snap.Vectors)
}

func normalize(v []float64) []float64 {
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	quicksort(idxs, vals, 0, len(idxs)-1)
	return idxs
}

func quicksort(idxs []int, vals []float64, lo, hi int) {
	if lo >= hi {
		return
	}
	i, j := lo, hi
	pivot := vals[idxs[(lo+hi)/2]]
	for i <= j {
		for vals[idxs[i]] > pivot { // desc order
			i++
		}
		for vals[idxs[j]] < pivot {
			j--
		}
		if i <= j {
			idxs[i], idxs[j] = idxs[j], idxs[i]
			i++
			j--
		}
	}
	if lo < j {
		quicksort(idxs, vals, lo, j)
	}
	if i < hi {
		quicksort(idxs, vals, i, hi)
	}
}
