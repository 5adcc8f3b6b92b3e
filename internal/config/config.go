// Package config loads service configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bull/docqa/internal/ocr"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "docqa.yaml"

// IndexConfig selects and configures the vector store.
type IndexConfig struct {
	Backend    string `yaml:"backend"`
	Dir        string `yaml:"dir"`
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
	Collection string `yaml:"collection"`
	Dimension  int    `yaml:"dimension"`
}

// OpenAIConfig configures the OpenAI-compatible API used for embeddings,
// theme synthesis and vision OCR.
type OpenAIConfig struct {
	APIKey            string `yaml:"-"`
	BaseURL           string `yaml:"base_url"`
	EmbeddingModel    string `yaml:"embedding_model"`
	ChatModel         string `yaml:"chat_model"`
	VisionModel       string `yaml:"vision_model"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// OCRConfig selects the OCR engine.
type OCRConfig struct {
	Engine        string `yaml:"engine"`
	TesseractPath string `yaml:"tesseract_path"`
}

// WorkersConfig sizes the upload and query pools.
type WorkersConfig struct {
	Upload int `yaml:"upload"`
	Query  int `yaml:"query"`
}

// QueryConfig tunes retrieval and synthesis.
type QueryConfig struct {
	TopK             int           `yaml:"top_k"`
	RetrievalTimeout time.Duration `yaml:"retrieval_timeout"`
	MaxThemeTokens   int           `yaml:"max_theme_tokens"`
}

// Config is the root configuration.
type Config struct {
	Addr       string        `yaml:"addr"`
	UploadDir  string        `yaml:"upload_dir"`
	WatchDir   string        `yaml:"watch_dir"`
	LogLevel   string        `yaml:"log_level"`
	LogFormat  string        `yaml:"log_format"`
	ServerMode bool          `yaml:"server_mode"`
	Index      IndexConfig   `yaml:"index"`
	OpenAI     OpenAIConfig  `yaml:"openai"`
	OCR        OCRConfig     `yaml:"ocr"`
	Workers    WorkersConfig `yaml:"workers"`
	Query      QueryConfig   `yaml:"query"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:       ":8000",
		UploadDir:  "./uploads",
		LogLevel:   "info",
		LogFormat:  "text",
		ServerMode: true,
		Index: IndexConfig{
			Backend:    "sqlite",
			Dir:        "./index",
			QdrantHost: "localhost",
			QdrantPort: 6334,
			Collection: "documents",
			Dimension:  1536,
		},
		OpenAI: OpenAIConfig{
			EmbeddingModel: "text-embedding-3-small",
			ChatModel:      "gpt-4o-mini",
			VisionModel:    "gpt-4o-mini",
		},
		OCR: OCRConfig{
			Engine:        "openai",
			TesseractPath: "tesseract",
		},
		Workers: WorkersConfig{Upload: 4, Query: 4},
		Query: QueryConfig{
			TopK:             2,
			RetrievalTimeout: 30 * time.Second,
			MaxThemeTokens:   500,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes cfg as YAML, creating directories as needed.
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
	setString(&c.Addr, "DOCQA_ADDR")
	setString(&c.UploadDir, "DOCQA_UPLOAD_DIR")
	setString(&c.WatchDir, "DOCQA_WATCH_DIR")
	setString(&c.LogLevel, "DOCQA_LOG_LEVEL")
	setString(&c.Index.Backend, "DOCQA_INDEX_BACKEND")
	setString(&c.Index.Dir, "DOCQA_INDEX_DIR")
	setString(&c.Index.QdrantHost, "QDRANT_HOST")
	setString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.OCR.Engine, "DOCQA_OCR_ENGINE")

	if err := setInt(&c.Index.QdrantPort, "QDRANT_PORT"); err != nil {
		return err
	}
	if v := os.Getenv("SERVER_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SERVER_MODE: %w", err)
		}
		c.ServerMode = b
	}
	return nil
}

// applyDefaults fills zero values left by a partial YAML file.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Workers.Upload == 0 {
		c.Workers.Upload = d.Workers.Upload
	}
	if c.Workers.Query == 0 {
		c.Workers.Query = d.Workers.Query
	}
	if c.Query.TopK == 0 {
		c.Query.TopK = d.Query.TopK
	}
	if c.Query.RetrievalTimeout == 0 {
		c.Query.RetrievalTimeout = d.Query.RetrievalTimeout
	}
	if c.Query.MaxThemeTokens == 0 {
		c.Query.MaxThemeTokens = d.Query.MaxThemeTokens
	}
	if c.Index.Dimension == 0 {
		c.Index.Dimension = d.Index.Dimension
	}
	if c.Index.Collection == "" {
		c.Index.Collection = d.Index.Collection
	}
	c.Index.Backend = strings.ToLower(c.Index.Backend)
	c.OCR.Engine = strings.ToLower(c.OCR.Engine)
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr must not be empty")
	case c.UploadDir == "":
		return errors.New("upload_dir must not be empty")
	case c.Workers.Upload <= 0:
		return fmt.Errorf("workers.upload must be positive, got %d", c.Workers.Upload)
	case c.Workers.Query <= 0:
		return fmt.Errorf("workers.query must be positive, got %d", c.Workers.Query)
	case c.Query.TopK <= 0:
		return fmt.Errorf("query.top_k must be positive, got %d", c.Query.TopK)
	case c.Query.RetrievalTimeout <= 0:
		return fmt.Errorf("query.retrieval_timeout must be positive, got %s", c.Query.RetrievalTimeout)
	case c.Index.Dimension <= 0:
		return fmt.Errorf("index.dimension must be positive, got %d", c.Index.Dimension)
	case c.OpenAI.RequestsPerMinute < 0:
		return fmt.Errorf("openai.requests_per_minute must not be negative, got %d", c.OpenAI.RequestsPerMinute)
	}

	switch c.Index.Backend {
	case "sqlite":
		if c.Index.Dir == "" {
			return errors.New("index.dir is required for the sqlite backend")
		}
	case "qdrant":
		if c.Index.QdrantHost == "" || c.Index.QdrantPort <= 0 {
			return errors.New("index.qdrant_host and index.qdrant_port are required for the qdrant backend")
		}
	default:
		return fmt.Errorf("unknown index.backend %q (want sqlite or qdrant)", c.Index.Backend)
	}

	if !ocr.ValidEngine(c.OCR.Engine) {
		return fmt.Errorf("ocr.engine: %w", &ocr.UnknownEngineError{Engine: c.OCR.Engine})
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q (want text or json)", c.LogFormat)
	}
	return nil
}

// NewLogger builds the slog logger described by log_level and log_format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q", s)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = i
	return nil
}
