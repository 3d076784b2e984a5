package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"briefing/internal/chunker"
	"briefing/internal/config"
	"briefing/internal/domain"
	"briefing/internal/embedding"
	"briefing/internal/embedding/hashing"
	"briefing/internal/embedding/openai"
	"briefing/internal/llm"
	"briefing/internal/metrics"
	"briefing/internal/pages"
	"briefing/internal/retrieval"
	"briefing/internal/service"
	"briefing/internal/vectorstore"
	"briefing/internal/vectorstore/qdrant"
	"briefing/internal/vectorstore/redis"
	"briefing/internal/vectorstore/sqlite"
)

type app struct {
	cfg     *config.AppConfig
	service *service.Service
	metrics *metrics.Metrics
	close   func()
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

func prefixed(p string) *log.Logger {
	return log.New(log.Writer(), "["+p+"] ", log.LstdFlags)
}

// assemble builds the orchestrator and its collaborators from cfg.
func assemble(cfg *config.AppConfig) (*app, error) {
	m := metrics.New()

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "recursive", "":
		ch = chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap, prefixed("CHUNK"))
	case "sentence":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	var initFn embedding.InitFunc
	switch cfg.Embedder.Type {
	case "hashing", "":
		dim := cfg.Embedder.Dimension
		initFn = func(context.Context) (domain.Embedder, error) { return hashing.NewEmbedder(dim), nil }
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		initFn = func(ctx context.Context) (domain.Embedder, error) {
			client, err := openai.NewClient(openai.Config{
				BaseURL:   oc.BaseURL,
				APIKeyEnv: oc.APIKeyEnv,
				Model:     oc.Model,
				Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
				BatchSize: oc.BatchSize,
			})
			if err != nil {
				return nil, err
			}
			if err := client.Probe(ctx); err != nil {
				return nil, err
			}
			return client, nil
		}
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
	provider := embedding.NewProvider(initFn, prefixed("EMBED"))

	closeFn := func() {}
	var st vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "none":
	case "sqlite", "":
		st = sqlite.NewStorage(cfg.VectorStore.Dir)
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		if q == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		st = qdrant.NewStorage(qdrant.Config{
			URL:              q.URL,
			APIKey:           q.APIKey,
			CollectionPrefix: q.CollectionPrefix,
			Timeout:          time.Duration(q.TimeoutSecs) * time.Second,
		})
	case "redis":
		r := cfg.VectorStore.Redis
		if r == nil {
			return nil, fmt.Errorf("redis config missing")
		}
		rcfg := redis.Config{
			Addr:      r.Addr,
			Password:  r.Password,
			DB:        r.DB,
			KeyPrefix: r.KeyPrefix,
			TTL:       time.Duration(r.TTLSecs) * time.Second,
		}
		rs := redis.NewStorage(redis.NewClient(rcfg), rcfg)
		closeFn = func() { _ = rs.Close() }
		st = rs
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	retriever := retrieval.New(ch, provider, st, retrieval.Config{ReusePersisted: cfg.Retrieval.ReusePersisted}, prefixed("INDEX"), m)
	segmenter := pages.NewSegmenter(cfg.Pages.MaxChars, prefixed("PAGES"))
	model := llm.NewClient(llm.Config{
		BaseURL:           cfg.Model.BaseURL,
		APIKey:            cfg.Model.APIKey(),
		Model:             cfg.Model.Model,
		Temperature:       cfg.Model.Temperature,
		MaxTokens:         cfg.Model.MaxTokens,
		Timeout:           time.Duration(cfg.Model.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Model.RequestsPerSecond,
		Burst:             cfg.Model.Burst,
	}, prefixed("LLM"), m)
	if !model.Available() {
		log.Printf("model credential %s not set, every flow will use fallbacks", cfg.Model.APIKeyEnv)
	}

	svc := service.New(retriever, segmenter, model, service.Config{
		SimplifyTopK:   cfg.Retrieval.SimplifyTopK,
		AskTopK:        cfg.Retrieval.AskTopK,
		MaxConcurrency: cfg.Orchestrator.MaxConcurrency,
	}, prefixed("ORCH"), m)

	return &app{cfg: cfg, service: svc, metrics: m, close: closeFn}, nil
}
