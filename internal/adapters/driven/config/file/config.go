// Package file loads lexrag configuration from a TOML file with
// environment-variable overrides.
package file

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Corpus CorpusConfig `toml:"corpus"`
	Groq   GroqConfig   `toml:"groq"`
	Ollama OllamaConfig `toml:"ollama"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string `toml:"port"`
}

// CorpusConfig configures ingestion.
type CorpusConfig struct {
	// DocsDir is the directory holding the PDF corpus.
	DocsDir string `toml:"docs_dir"`

	// Watch enables automatic re-ingestion on directory changes.
	Watch bool `toml:"watch"`
}

// GroqConfig configures the primary backend.
type GroqConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// OllamaConfig configures the secondary backend.
type OllamaConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Load reads the config file (when present), applies environment
// overrides and fills defaults. A .env file in the working directory
// is loaded first, matching local development setups.
func Load(path string) (Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) {
	setIfPresent(&cfg.Server.Port, "LEXRAG_PORT")
	setIfPresent(&cfg.Corpus.DocsDir, "LEXRAG_DOCS_DIR")
	setIfPresent(&cfg.Groq.APIKey, "GROQ_API_KEY")
	setIfPresent(&cfg.Groq.BaseURL, "GROQ_BASE_URL")
	setIfPresent(&cfg.Groq.Model, "GROQ_MODEL")
	setIfPresent(&cfg.Ollama.BaseURL, "OLLAMA_URL")
	setIfPresent(&cfg.Ollama.Model, "OLLAMA_MODEL")
}

// applyDefaults fills values not set by file or environment.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "4000"
	}
	if cfg.Corpus.DocsDir == "" {
		cfg.Corpus.DocsDir = "docs"
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "gemma3:1b"
	}
}

func setIfPresent(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}
