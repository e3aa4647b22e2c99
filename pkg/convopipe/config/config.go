// Package config loads deployment settings for pipeline wiring from a
// YAML file, with environment variable overrides. A .env file in the
// working directory is honored when present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML fields accept Go duration
// strings like "10s" or "24h".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config holds everything needed to wire a pipeline deployment.
type Config struct {
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Ollama      OllamaConfig      `yaml:"ollama"`
	Qdrant      QdrantConfig      `yaml:"qdrant"`
	ThreadStore ThreadStoreConfig `yaml:"thread_store"`
}

// PipelineConfig tunes pipeline behavior.
type PipelineConfig struct {
	SessionName       string   `yaml:"session_name"`
	TopK              int      `yaml:"top_k"`
	RetrievalTimeout  Duration `yaml:"retrieval_timeout"`
	GenerationTimeout Duration `yaml:"generation_timeout"`
}

// OllamaConfig locates the Ollama server and models.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// QdrantConfig locates the Qdrant vector store.
// An empty URL disables vector search; the pipeline then runs with the
// in-memory index or no searcher at all.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

// ThreadStoreConfig selects the thread-to-run store.
// An empty Path keeps assignments in memory; a file path makes them
// survive restarts via SQLite.
type ThreadStoreConfig struct {
	Path string   `yaml:"path"`
	TTL  Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			SessionName:       "convopipe",
			TopK:              3,
			RetrievalTimeout:  Duration(10 * time.Second),
			GenerationTimeout: Duration(120 * time.Second),
		},
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "llama3",
			EmbeddingModel: "nomic-embed-text",
		},
		Qdrant: QdrantConfig{
			Collection: "convopipe",
		},
	}
}

// FromFile loads configuration from a YAML file, applying defaults for
// missing fields and environment overrides on top.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds configuration from defaults plus environment variables.
// A .env file in the working directory is loaded first when present.
func FromEnv() (Config, error) {
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	cfg := Default()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays recognized environment variables onto the config.
func (c *Config) applyEnv() {
	setString(&c.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setString(&c.Ollama.Model, "OLLAMA_LLM_MODEL")
	setString(&c.Ollama.EmbeddingModel, "OLLAMA_EMBEDDING_MODEL")
	setString(&c.Qdrant.URL, "QDRANT_URL")
	setString(&c.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&c.Qdrant.Collection, "QDRANT_COLLECTION")
	setString(&c.ThreadStore.Path, "THREAD_STORE_PATH")
	setDuration(&c.Pipeline.RetrievalTimeout, "RETRIEVAL_TIMEOUT")
	setDuration(&c.Pipeline.GenerationTimeout, "GENERATION_TIMEOUT")
}

// Validate reports configuration that cannot produce a working pipeline.
func (c Config) Validate() error {
	if c.Pipeline.TopK <= 0 {
		return fmt.Errorf("pipeline.top_k must be positive, got %d", c.Pipeline.TopK)
	}
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama.base_url cannot be empty")
	}
	if c.Qdrant.URL != "" && c.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant.collection required when qdrant.url is set")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
