package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "https://api.perplexity.ai", cfg.Model.BaseURL)
	assert.Equal(t, "PERPLEXITY_API_KEY", cfg.Model.APIKeyEnv)
	assert.Equal(t, "sonar-pro", cfg.Model.Model)
	assert.Equal(t, 0.5, cfg.Model.Temperature)
	assert.Equal(t, 2000, cfg.Model.MaxTokens)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, 384, cfg.Embedder.Dimension)
	assert.Equal(t, "recursive", cfg.Chunker.Type)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 3000, cfg.Pages.MaxChars)
	assert.Equal(t, 4, cfg.Retrieval.SimplifyTopK)
	assert.Equal(t, 5, cfg.Retrieval.AskTopK)
	assert.False(t, cfg.Retrieval.ReusePersisted)
	assert.Equal(t, "sqlite", cfg.VectorStore.Type)
	assert.Equal(t, "vector_stores", cfg.VectorStore.Dir)
	assert.Equal(t, 8, cfg.Orchestrator.MaxConcurrency)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
model:
  model: sonar
  temperature: 0.2
chunker:
  type: sentence
vector_store:
  type: redis
  redis:
    db: 2
retrieval:
  reuse_persisted: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sonar", cfg.Model.Model)
	assert.Equal(t, 0.2, cfg.Model.Temperature)
	assert.Equal(t, 2000, cfg.Model.MaxTokens)
	assert.Equal(t, "sentence", cfg.Chunker.Type)
	assert.True(t, cfg.Retrieval.ReusePersisted)
	require.NotNil(t, cfg.VectorStore.Redis)
	assert.Equal(t, 2, cfg.VectorStore.Redis.DB)
	assert.Equal(t, "localhost:6379", cfg.VectorStore.Redis.Addr)
	assert.Equal(t, "briefing:index", cfg.VectorStore.Redis.KeyPrefix)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unterminated"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Server.Addr = ":9090"
	cfg.VectorStore.Type = "qdrant"
	cfg.VectorStore.Qdrant = &QdrantConfig{URL: "http://localhost:6333"}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", got.Server.Addr)
	require.NotNil(t, got.VectorStore.Qdrant)
	assert.Equal(t, "briefing", got.VectorStore.Qdrant.CollectionPrefix)
	assert.Equal(t, 15, got.VectorStore.Qdrant.TimeoutSecs)
}

func TestAPIKey(t *testing.T) {
	m := ModelConfig{APIKeyEnv: "BRIEFING_TEST_KEY"}

	t.Setenv("BRIEFING_TEST_KEY", "secret")
	assert.Equal(t, "secret", m.APIKey())

	t.Setenv("BRIEFING_TEST_KEY", "your_perplexity_api_key_here")
	assert.Equal(t, "", m.APIKey())

	t.Setenv("BRIEFING_TEST_KEY", "")
	assert.Equal(t, "", m.APIKey())
}
