package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ModelConfig configures the OpenAI-compatible chat model used for generation.
type ModelConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	ChunkOverlap      int    `yaml:"chunk_overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// PagesConfig configures display page segmentation.
type PagesConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// RetrievalConfig configures top-k lookups and persisted index reuse.
type RetrievalConfig struct {
	SimplifyTopK   int  `yaml:"simplify_top_k"`
	AskTopK        int  `yaml:"ask_top_k"`
	ReusePersisted bool `yaml:"reuse_persisted"`
}

// VectorStoreConfig selects where per-user indexes are persisted.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Dir    string        `yaml:"dir"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
	Redis  *RedisConfig  `yaml:"redis,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL              string `yaml:"url"`
	APIKey           string `yaml:"api_key"`
	CollectionPrefix string `yaml:"collection_prefix"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// RedisConfig contains connection details for the Redis index store.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TTLSecs   int    `yaml:"ttl_secs"`
}

// OrchestratorConfig bounds the per-request page fan-out.
type OrchestratorConfig struct {
	MaxConcurrency int `yaml:"max_concurrency"`
}

// ServerConfig configures the HTTP request layer.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Model        ModelConfig        `yaml:"model"`
	Embedder     EmbedderConfig     `yaml:"embedder"`
	Chunker      ChunkerConfig      `yaml:"chunker"`
	Pages        PagesConfig        `yaml:"pages"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	VectorStore  VectorStoreConfig  `yaml:"vector_store"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Server       ServerConfig       `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/briefing/config.yaml.
// If neither exists, it writes defaults to ~/.config/briefing/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// APIKey resolves the model credential from the configured environment variable.
// The sample placeholder shipped in .env templates counts as unset.
func (c ModelConfig) APIKey() string {
	key := os.Getenv(c.APIKeyEnv)
	if key == "your_perplexity_api_key_here" {
		return ""
	}
	return key
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "briefing", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "hashing"},
		Chunker:     ChunkerConfig{Type: "recursive"},
		VectorStore: VectorStoreConfig{Type: "sqlite"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	m := &cfg.Model
	if m.BaseURL == "" {
		m.BaseURL = "https://api.perplexity.ai"
	}
	if m.APIKeyEnv == "" {
		m.APIKeyEnv = "PERPLEXITY_API_KEY"
	}
	if m.Model == "" {
		m.Model = "sonar-pro"
	}
	if m.Temperature == 0 {
		m.Temperature = 0.5
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = 2000
	}
	if m.TimeoutSecs == 0 {
		m.TimeoutSecs = 60
	}
	if m.RequestsPerSecond == 0 {
		m.RequestsPerSecond = 2
	}
	if m.Burst == 0 {
		m.Burst = 4
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 384
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "recursive"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 200
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Chunker.OverlapSentences == 0 {
		cfg.Chunker.OverlapSentences = 1
	}

	if cfg.Pages.MaxChars == 0 {
		cfg.Pages.MaxChars = 3000
	}
	if cfg.Retrieval.SimplifyTopK == 0 {
		cfg.Retrieval.SimplifyTopK = 4
	}
	if cfg.Retrieval.AskTopK == 0 {
		cfg.Retrieval.AskTopK = 5
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Dir == "" {
		cfg.VectorStore.Dir = "vector_stores"
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.CollectionPrefix == "" {
			q.CollectionPrefix = "briefing"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if r := cfg.VectorStore.Redis; r != nil {
		if r.Addr == "" {
			r.Addr = "localhost:6379"
		}
		if r.KeyPrefix == "" {
			r.KeyPrefix = "briefing:index"
		}
	}

	if cfg.Orchestrator.MaxConcurrency == 0 {
		cfg.Orchestrator.MaxConcurrency = 8
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
}
