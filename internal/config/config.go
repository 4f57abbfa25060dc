// Package config loads the process configuration once at startup.
// The resulting struct is immutable and passed into component
// constructors; nothing reads the environment after Load returns.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all settings for the course RAG system.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Session   SessionConfig   `mapstructure:"session"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// QdrantConfig contains vector store connection settings.
type QdrantConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// OpenAIConfig contains model selection for generation and embeddings.
// The API key itself is read by the OpenAI SDK from OPENAI_API_KEY.
type OpenAIConfig struct {
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	EmbedBatchSize int    `mapstructure:"embed_batch_size"`
}

// IngestConfig controls document chunking and the startup ingest.
type IngestConfig struct {
	DocsPath     string `mapstructure:"docs_path"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

// RetrievalConfig controls search behavior.
type RetrievalConfig struct {
	MaxResults int `mapstructure:"max_results"`
}

// SessionConfig bounds per-conversation history.
type SessionConfig struct {
	MaxHistory int `mapstructure:"max_history"`
}

// Load reads configuration from an optional YAML file and the
// environment (COURSERAG_ prefix, e.g. COURSERAG_QDRANT_HOST).
// Path may be empty, in which case only defaults and env apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8000")
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.max_tokens", 800)
	v.SetDefault("openai.embed_batch_size", 500)
	v.SetDefault("ingest.docs_path", "./docs")
	v.SetDefault("ingest.chunk_size", 800)
	v.SetDefault("ingest.chunk_overlap", 100)
	v.SetDefault("retrieval.max_results", 5)
	v.SetDefault("session.max_history", 2)

	v.SetEnvPrefix("COURSERAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be > 0")
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, chunk_size)")
	}
	if c.Retrieval.MaxResults <= 0 {
		return fmt.Errorf("retrieval.max_results must be > 0")
	}
	if c.Session.MaxHistory <= 0 {
		return fmt.Errorf("session.max_history must be > 0")
	}
	return nil
}
