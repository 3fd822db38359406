package configs

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the explicit configuration record handed to each component at
// construction. Nothing reads ambient global state after startup.
type Config struct {
	Wiki      WikiConfig      `yaml:"wiki"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Storage   StorageConfig   `yaml:"storage"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Server    ServerConfig    `yaml:"server"`
}

type WikiConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Token   string `yaml:"token,omitempty"`
}

type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	Model     string `yaml:"model" validate:"required"`
	Dimension int    `yaml:"dimension" validate:"gt=0"`
	BatchSize int    `yaml:"batch_size" validate:"gt=0"`
}

type QdrantConfig struct {
	Host       string `yaml:"host" validate:"required"`
	Port       int    `yaml:"port" validate:"gt=0"`
	Collection string `yaml:"collection" validate:"required"`
}

type StorageConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type RetrievalConfig struct {
	TopK        int `yaml:"top_k" validate:"gt=0"`
	HistorySize int `yaml:"history_size" validate:"gte=0"`
}

type DedupConfig struct {
	Threshold float32 `yaml:"threshold" validate:"gte=0,lte=1"`
	ScanK     int     `yaml:"scan_k" validate:"gt=1"`
}

type ServerConfig struct {
	Listen string `yaml:"listen" validate:"required"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read configs file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate configs: %w", err)
	}
	return nil
}

func Default() *Config {
	return &Config{
		Wiki: WikiConfig{
			BaseURL: "http://localhost:8080",
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "http://localhost:1234",
			Model:     "text-embedding-nomic-embed-text-v1.5@q8_0",
			Dimension: 512,
			BatchSize: 8,
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "wiki_topics",
		},
		Storage: StorageConfig{
			Path: "data/wiki.db",
		},
		Retrieval: RetrievalConfig{
			TopK:        3,
			HistorySize: 3,
		},
		Dedup: DedupConfig{
			Threshold: 1,
			ScanK:     3,
		},
		Server: ServerConfig{
			Listen: ":8090",
		},
	}
}

// applyDefaults fills fields a partial YAML file zeroed out. yaml.Unmarshal
// overwrites whole structs that appear in the file, so nested defaults need
// to be reapplied.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = def.Embedding.Dimension
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = def.Embedding.BaseURL
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = def.Qdrant.Host
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = def.Qdrant.Port
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = def.Qdrant.Collection
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = def.Storage.Path
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.HistorySize == 0 {
		cfg.Retrieval.HistorySize = def.Retrieval.HistorySize
	}
	if cfg.Dedup.Threshold == 0 {
		cfg.Dedup.Threshold = def.Dedup.Threshold
	}
	if cfg.Dedup.ScanK == 0 {
		cfg.Dedup.ScanK = def.Dedup.ScanK
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = def.Server.Listen
	}
	if cfg.Wiki.BaseURL == "" {
		cfg.Wiki.BaseURL = def.Wiki.BaseURL
	}
}
