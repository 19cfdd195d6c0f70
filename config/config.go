// Package config loads docseek application settings.
//
// Settings come from three layers, later layers winning:
//
//  1. Default()
//  2. a YAML file (docseek.yaml unless another path is given)
//  3. DOCSEEK_* environment variables, after .env has been loaded
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/docseek/ai"
	"github.com/poiesic/docseek/embedding"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "docseek.yaml"

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Storage backend names.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider  string `yaml:"provider"`
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	APIToken  string `yaml:"api_token,omitempty"`

	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	BreakerMinRequests  uint32        `yaml:"breaker_min_requests"`
	BreakerFailureRatio float64       `yaml:"breaker_failure_ratio"`
	BreakerTimeout      time.Duration `yaml:"breaker_timeout"`
}

// StorageConfig selects the embedding cache backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	// Path is a directory for badger and a database file for sqlite.
	// Empty selects a backend-specific default under cache/.
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// ResolvedPath returns Path or the default location for the backend.
func (s StorageConfig) ResolvedPath() string {
	if s.Path != "" {
		return s.Path
	}
	if s.Backend == BackendSQLite {
		return filepath.Join("cache", "embeddings_cache.db")
	}
	return filepath.Join("cache", "embeddings")
}

// IndexConfig selects the vector index strategy.
type IndexConfig struct {
	Strategy string `yaml:"strategy"`
	Workers  int    `yaml:"workers"`
}

// GenerationConfig tunes embedding generation.
type GenerationConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	Workers      int           `yaml:"workers"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	EmbedTimeout time.Duration `yaml:"embed_timeout"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DocumentsDir string `yaml:"documents_dir"`
	TopK         int    `yaml:"top_k"`
	MaxTopK      int    `yaml:"max_top_k"`
}

// Config is the root application configuration.
type Config struct {
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Storage    StorageConfig    `yaml:"storage"`
	Index      IndexConfig      `yaml:"index"`
	Generation GenerationConfig `yaml:"generation"`
	Search     SearchConfig     `yaml:"search"`
}

// Default returns the built-in configuration.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	genDefaults := embedding.DefaultConfig()
	return &Config{
		Embedder: EmbedderConfig{
			Provider:            ProviderOpenAI,
			Host:                aiDefaults.EmbeddingHost,
			Model:               aiDefaults.EmbeddingModel,
			Dimension:           aiDefaults.EmbeddingDimension,
			RequestsPerSecond:   aiDefaults.RequestsPerSecond,
			Burst:               aiDefaults.Burst,
			BreakerMinRequests:  aiDefaults.BreakerMinRequests,
			BreakerFailureRatio: aiDefaults.BreakerFailureRatio,
			BreakerTimeout:      aiDefaults.BreakerTimeout,
		},
		Storage: StorageConfig{Backend: BackendBadger},
		Index:   IndexConfig{Strategy: "flat"},
		Generation: GenerationConfig{
			BatchSize:    genDefaults.BatchSize,
			MaxAttempts:  genDefaults.MaxAttempts,
			RetryDelay:   genDefaults.RetryDelay,
			EmbedTimeout: genDefaults.EmbedTimeout,
		},
		Search: SearchConfig{
			DocumentsDir: "documents",
			TopK:         5,
			MaxTopK:      50,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path reads DefaultPath if it exists. A .env file in
// the working directory is loaded first; variables already set win over it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DOCSEEK_PROVIDER":        &c.Embedder.Provider,
		"DOCSEEK_EMBEDDING_HOST":  &c.Embedder.Host,
		"DOCSEEK_EMBEDDING_MODEL": &c.Embedder.Model,
		"DOCSEEK_API_TOKEN":       &c.Embedder.APIToken,
		"DOCSEEK_STORAGE_BACKEND": &c.Storage.Backend,
		"DOCSEEK_STORAGE_PATH":    &c.Storage.Path,
		"DOCSEEK_INDEX_STRATEGY":  &c.Index.Strategy,
		"DOCSEEK_DOCUMENTS_DIR":   &c.Search.DocumentsDir,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DOCSEEK_EMBEDDING_DIMENSION": &c.Embedder.Dimension,
		"DOCSEEK_BATCH_SIZE":          &c.Generation.BatchSize,
		"DOCSEEK_TOP_K":               &c.Search.TopK,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("DOCSEEK_EMBED_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DOCSEEK_EMBED_TIMEOUT: %w", err)
		}
		c.Generation.EmbedTimeout = d
	}
	return nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	switch c.Embedder.Provider {
	case ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("config: unknown embedder provider %q", c.Embedder.Provider)
	}
	if c.Embedder.Dimension <= 0 {
		return errors.New("config: embedder dimension must be positive")
	}
	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Index.Strategy == "" {
		return errors.New("config: index strategy is required")
	}
	if c.Generation.BatchSize < 1 {
		return errors.New("config: batch size must be at least 1")
	}
	if c.Generation.MaxAttempts < 1 {
		return errors.New("config: max attempts must be at least 1")
	}
	if c.Generation.RetryDelay < 0 || c.Generation.EmbedTimeout < 0 {
		return errors.New("config: durations cannot be negative")
	}
	if c.Search.MaxTopK < 1 {
		return errors.New("config: max top_k must be at least 1")
	}
	if c.Search.TopK < 1 || c.Search.TopK > c.Search.MaxTopK {
		return fmt.Errorf("config: top_k must be between 1 and %d", c.Search.MaxTopK)
	}
	return nil
}

// AIConfig converts the embedder settings into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	e := c.Embedder
	return ai.NewConfig(
		ai.WithEmbeddingHost(e.Host),
		ai.WithEmbeddingModel(e.Model),
		ai.WithEmbeddingDimension(e.Dimension),
		ai.WithAPIToken(e.APIToken),
		ai.WithRateLimit(e.RequestsPerSecond, e.Burst),
		ai.WithBreaker(e.BreakerMinRequests, e.BreakerFailureRatio, e.BreakerTimeout),
	)
}

// GeneratorConfig converts the generation settings into an embedding.Config.
func (c *Config) GeneratorConfig() *embedding.Config {
	g := c.Generation
	return &embedding.Config{
		BatchSize:      g.BatchSize,
		ReportInterval: embedding.DefaultConfig().ReportInterval,
		MaxAttempts:    g.MaxAttempts,
		RetryDelay:     g.RetryDelay,
		EmbedTimeout:   g.EmbedTimeout,
	}
}
