package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"semanticportal/internal/domain"
)

// Config holds all configuration for the portal.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Extraction   ExtractionConfig   `yaml:"extraction"`
	Chunking     ChunkingConfig     `yaml:"chunking"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	VectorStore  VectorStoreConfig  `yaml:"vector_store"`
	Autocomplete AutocompleteConfig `yaml:"autocomplete"`
	Search       SearchConfig       `yaml:"search"`
	Ingest       IngestConfig       `yaml:"ingest"`
	Timeouts     TimeoutConfig      `yaml:"timeouts"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ExtractionConfig holds text extraction configuration.
type ExtractionConfig struct {
	OCRCommand     string   `yaml:"ocr_command" env:"OCR_COMMAND"`
	OCRLanguages   string   `yaml:"ocr_languages" env:"OCR_LANGUAGES"`
	FallbackToRaw  bool     `yaml:"fallback_to_raw" env:"FALLBACK_TO_RAW"` // raw-decode valid UTF-8 when a declared PDF/image fails to convert
	RenderMarkdown bool     `yaml:"render_markdown" env:"RENDER_MARKDOWN"`
	RejectTypes    []string `yaml:"reject_types"`
}

// ChunkingConfig holds chunk window configuration, in characters.
type ChunkingConfig struct {
	Size          int `yaml:"size" env:"CHUNK_SIZE"`
	Overlap       int `yaml:"overlap" env:"CHUNK_OVERLAP"`
	PreviewLength int `yaml:"preview_length"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" env:"EMBEDDING_PROVIDER"` // "http", "openai", "ollama", "mock"
	URL               string  `yaml:"url" env:"EMBED_URL"`
	Model             string  `yaml:"model" env:"EMBEDDING_MODEL"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Dimension         int     `yaml:"dimension"` // mock provider only
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// VectorStoreConfig holds vector store configuration.
type VectorStoreConfig struct {
	Backend    string `yaml:"backend" env:"VECTOR_STORE_BACKEND"` // "http", "bolt", "memory"
	URL        string `yaml:"url" env:"CHROMA_URL"`
	Path       string `yaml:"path" env:"VECTOR_STORE_PATH"`
	Collection string `yaml:"collection" env:"COLLECTION"`
}

// AutocompleteConfig holds fuzzy suggestion configuration.
type AutocompleteConfig struct {
	Limit     int     `yaml:"limit"`
	Threshold float64 `yaml:"threshold"`
}

// SearchConfig holds query configuration.
type SearchConfig struct {
	TopK      int           `yaml:"top_k"`
	CacheSize int           `yaml:"cache_size"` // 0 (default) disables the result cache; only the serving process's own ingests invalidate it
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// IngestConfig holds file selection for directory ingest from the CLI.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// TimeoutConfig bounds every call to an external collaborator.
type TimeoutConfig struct {
	Extract             time.Duration `yaml:"extract"`
	Embed               time.Duration `yaml:"embed"`
	VectorStore         time.Duration `yaml:"vector_store"`
	AutocompleteRebuild time.Duration `yaml:"autocomplete_rebuild"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			MaxUploadBytes:  32 << 20,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    3 * time.Minute,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Extraction: ExtractionConfig{
			OCRCommand:    "tesseract",
			OCRLanguages:  "eng",
			FallbackToRaw: false,
			RejectTypes: []string{
				"application/zip",
				"application/x-tar",
				"application/gzip",
				"application/x-7z-compressed",
				"application/vnd.rar",
				"application/octet-stream",
			},
		},
		Chunking: ChunkingConfig{
			Size:          800,
			Overlap:       200,
			PreviewLength: 200,
		},
		Embedding: EmbeddingConfig{
			Provider:  "http",
			URL:       "http://localhost:8001/embed",
			Model:     "all-MiniLM-L6-v2",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 384,
			BatchSize: 64,
			Burst:     1,
		},
		VectorStore: VectorStoreConfig{
			Backend:    "http",
			URL:        "http://localhost:8002",
			Collection: "knowledge_repo",
		},
		Autocomplete: AutocompleteConfig{
			Limit:     5,
			Threshold: 0.4,
		},
		Search: SearchConfig{
			TopK:     10,
			CacheTTL: 5 * time.Minute,
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.txt", "**/*.md", "**/*.pdf", "**/*.png", "**/*.jpg", "**/*.jpeg", "**/*.tiff", "**/*.csv", "**/*.json", "**/*.html"},
			Excludes: []string{"**/.git/**", "**/node_modules/**", "**/.portal/**"},
		},
		Timeouts: TimeoutConfig{
			Extract:             60 * time.Second,
			Embed:               30 * time.Second,
			VectorStore:         15 * time.Second,
			AutocompleteRebuild: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for portal.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "portal.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".portal", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// ApplyEnv overrides fields from environment variables. Unset variables leave
// the loaded values in place.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate checks values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunking.Overlap < 0 || c.Chunking.Size <= c.Chunking.Overlap {
		return fmt.Errorf("%w: chunk size %d must exceed overlap %d >= 0", domain.ErrInvalidConfiguration, c.Chunking.Size, c.Chunking.Overlap)
	}
	if c.Chunking.PreviewLength <= 0 {
		return fmt.Errorf("%w: preview_length must be positive", domain.ErrInvalidConfiguration)
	}
	switch c.Embedding.Provider {
	case "http", "openai", "ollama", "mock":
	default:
		return fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrInvalidConfiguration, c.Embedding.Provider)
	}
	switch c.VectorStore.Backend {
	case "http", "bolt", "memory":
	default:
		return fmt.Errorf("%w: unsupported vector store backend: %s", domain.ErrInvalidConfiguration, c.VectorStore.Backend)
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("%w: collection name is empty", domain.ErrInvalidConfiguration)
	}
	if c.Autocomplete.Threshold < 0 || c.Autocomplete.Threshold > 1 {
		return fmt.Errorf("%w: autocomplete threshold %.2f outside [0,1]", domain.ErrInvalidConfiguration, c.Autocomplete.Threshold)
	}
	if c.Autocomplete.Limit <= 0 || c.Search.TopK <= 0 {
		return fmt.Errorf("%w: limits must be positive", domain.ErrInvalidConfiguration)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath returns the default path of the local vector store database.
func StorePath(dir string) string {
	return filepath.Join(dir, ".portal", "vectors.db")
}

// EnsurePortalDir ensures the .portal directory exists.
func EnsurePortalDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".portal"), 0755)
}
