package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig   `yaml:"server"`
	Database     DatabaseConfig `yaml:"database"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	RAG          RAGConfig      `yaml:"rag"`
	Log          LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
}

type DatabaseConfig struct {
	// Driver is one of pgdriver, pq or sqlite
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LLMConfig struct {
	// Provider is openai or ollama for embeddings, together or openai for
	// inference. Both inference providers speak the chat completions API.
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Key         string  `yaml:"key"`
	KeyEnv      string  `yaml:"key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	BatchSize   int     `yaml:"batch_size"`
}

type RAGConfig struct {
	ChunkSize        int    `yaml:"chunk_size"`
	ChunkOverlap     int    `yaml:"chunk_overlap"`
	TopK             int    `yaml:"top_k"`
	MaxContextTokens int    `yaml:"max_context_tokens"`
	TokenEncoding    string `yaml:"token_encoding"`
	PreviewChars     int    `yaml:"preview_chars"`
	DBPath           string `yaml:"db_path"`
	CollectionName   string `yaml:"collection"`
	InMemory         bool   `yaml:"in_memory"`
	Compress         bool   `yaml:"compress"`
	EncryptionKey    string `yaml:"encryption_key"`
	Dedupe           bool   `yaml:"dedupe"`
	UploadDir        string `yaml:"upload_dir"`
	WatchDir         string `yaml:"watch_dir"`
	WatchDelayMs     int    `yaml:"watch_delay_ms"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

const (
	defaultChunkSize        = 500
	defaultChunkOverlap     = 50
	defaultTopK             = 3
	defaultMaxContextTokens = 3000
	defaultPreviewChars     = 500
)

// LoadConfig reads the YAML file at path. A missing file yields defaults.
// Values from a .env file and the environment are applied afterwards.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8000", BodyLimitMB: 32},
		Database: DatabaseConfig{
			Driver: "pgdriver",
		},
		EmbedLLM: LLMConfig{
			Provider: "openai",
			BaseURL:  "https://api.together.xyz/v1",
			Model:    "togethercomputer/m2-bert-80M-8k-retrieval",
			KeyEnv:   "TOGETHER_API_KEY",
		},
		InferenceLLM: LLMConfig{
			Provider:    "together",
			BaseURL:     "https://api.together.xyz/v1",
			Model:       "mistralai/Mixtral-8x7B-Instruct-v0.1",
			KeyEnv:      "TOGETHER_API_KEY",
			MaxTokens:   512,
			Temperature: 0.7,
			TimeoutSecs: 120,
		},
		RAG: RAGConfig{
			ChunkSize:        defaultChunkSize,
			ChunkOverlap:     defaultChunkOverlap,
			TopK:             defaultTopK,
			MaxContextTokens: defaultMaxContextTokens,
			TokenEncoding:    "cl100k_base",
			PreviewChars:     defaultPreviewChars,
			DBPath:           "./rag_index",
			CollectionName:   "rag_collection",
			UploadDir:        os.TempDir(),
			WatchDelayMs:     2000,
		},
		Log: LogConfig{Level: "info", Pretty: true},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.PreviewChars == 0 {
		cfg.RAG.PreviewChars = defaultPreviewChars
	}
	if cfg.RAG.TokenEncoding == "" {
		cfg.RAG.TokenEncoding = "cl100k_base"
	}
	if cfg.RAG.UploadDir == "" {
		cfg.RAG.UploadDir = os.TempDir()
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
}

func applyEnv(cfg *Config) {
	for _, llm := range []*LLMConfig{&cfg.EmbedLLM, &cfg.InferenceLLM} {
		if llm.Key == "" && llm.KeyEnv != "" {
			llm.Key = os.Getenv(llm.KeyEnv)
		}
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
}

func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK < 0 {
		return fmt.Errorf("rag.top_k must not be negative, got %d", c.RAG.TopK)
	}
	if c.RAG.MaxContextTokens < 0 {
		return fmt.Errorf("rag.max_context_tokens must not be negative, got %d", c.RAG.MaxContextTokens)
	}
	switch c.EmbedLLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.EmbedLLM.Provider)
	}
	switch c.InferenceLLM.Provider {
	case "together", "openai":
	default:
		return fmt.Errorf("unknown inference provider: %q", c.InferenceLLM.Provider)
	}
	switch c.Database.Driver {
	case "pgdriver", "pq", "sqlite":
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}
	return nil
}
