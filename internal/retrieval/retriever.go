// Package retrieval builds the per-request vector index for a document and
// turns it into prompt context.
package retrieval

import (
	"context"
	"errors"
	"log"

	"briefing/internal/domain"
	"briefing/internal/embedding"
	"briefing/internal/metrics"
	"briefing/internal/vectorstore"
)

type Config struct {
	// ReusePersisted loads the stored index first and keeps it when it was
	// built from the same text.
	ReusePersisted bool
}

type Retriever struct {
	chunker  domain.Chunker
	provider *embedding.Provider
	store    vectorstore.Storage
	cfg      Config
	logger   *log.Logger
	metrics  *metrics.Metrics
}

// New wires a retriever. store may be nil, which disables persistence.
func New(chunker domain.Chunker, provider *embedding.Provider, store vectorstore.Storage, cfg Config, logger *log.Logger, m *metrics.Metrics) *Retriever {
	if logger == nil {
		logger = log.Default()
	}
	return &Retriever{
		chunker:  chunker,
		provider: provider,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
	}
}

// Index returns a searchable index over text for userID, or nil when
// retrieval is unavailable. It never fails.
func (r *Retriever) Index(ctx context.Context, text, userID string) *vectorstore.Index {
	if r == nil {
		return nil
	}
	key := vectorstore.SanitizeUserID(userID)

	emb, err := r.provider.Get(ctx)
	if err != nil {
		r.logger.Printf("retrieval unavailable for %s: %v", key, err)
		r.metrics.IndexBuild(metrics.Skipped)
		return nil
	}
	fingerprint := vectorstore.Fingerprint(text)

	if r.cfg.ReusePersisted {
		if ix := r.load(ctx, key, emb, fingerprint); ix != nil {
			r.metrics.IndexBuild(metrics.Reused)
			return ix
		}
	}

	chunks := r.chunker.Chunk(text)
	if len(chunks) == 0 {
		r.logger.Printf("no chunks for %s, retrieval disabled", key)
		r.metrics.IndexBuild(metrics.Skipped)
		return nil
	}
	ix, err := vectorstore.Build(ctx, chunks, emb, fingerprint)
	if err != nil {
		r.logger.Printf("index build for %s failed: %v", key, err)
		r.metrics.IndexBuild(metrics.Failed)
		return nil
	}
	r.metrics.IndexBuild(metrics.OK)
	r.logger.Printf("indexed %d chunks for %s", ix.Len(), key)

	r.persist(ctx, key, ix)
	return ix
}

// Load returns the persisted index for userID, or nil when absent, corrupt
// or written by another embedder.
func (r *Retriever) Load(ctx context.Context, userID string) *vectorstore.Index {
	if r == nil {
		return nil
	}
	emb, err := r.provider.Get(ctx)
	if err != nil {
		return nil
	}
	return r.load(ctx, vectorstore.SanitizeUserID(userID), emb, "")
}

// load reads the stored snapshot; a non-empty fingerprint must match.
func (r *Retriever) load(ctx context.Context, key string, emb domain.Embedder, fingerprint string) *vectorstore.Index {
	if r.store == nil {
		return nil
	}
	snap, err := r.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("loading index for %s: %v", key, err)
		}
		return nil
	}
	ix, err := vectorstore.FromSnapshot(snap, emb)
	if err != nil {
		r.logger.Printf("discarding stored index for %s: %v", key, err)
		return nil
	}
	if fingerprint != "" && ix.Fingerprint() != fingerprint {
		return nil
	}
	return ix
}

func (r *Retriever) persist(ctx context.Context, key string, ix *vectorstore.Index) {
	if r.store == nil {
		r.metrics.Persist(metrics.Skipped)
		return
	}
	if err := r.store.Save(ctx, key, ix.Snapshot()); err != nil {
		r.logger.Printf("%v for %s: %v", domain.ErrPersistence, key, err)
		r.metrics.Persist(metrics.Failed)
		return
	}
	r.metrics.Persist(metrics.OK)
}

// Context returns the k chunks of ix closest to query, joined for a prompt.
// An unavailable index or a failed lookup yields "".
func (r *Retriever) Context(ctx context.Context, ix *vectorstore.Index, query string, k int) string {
	out, err := ix.Query(ctx, query, k)
	if err != nil {
		if r != nil {
			r.logger.Printf("retrieval failed: %v", err)
		}
		return ""
	}
	return out
}
