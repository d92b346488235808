// Package config holds the workbench configuration value. It is built
// once (defaults, optional YAML file, env overrides) and passed
// explicitly into every component constructor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every tunable of the analysis engine
type Config struct {
	// Extraction settings
	ExtractionModel       string  `yaml:"extraction_model"`
	ExtractionTemperature float64 `yaml:"extraction_temperature"`
	ExtractionMaxTokens   int     `yaml:"extraction_max_tokens"`

	// Embedding settings
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`

	// Detection settings
	SimilarityThreshold              float64 `yaml:"similarity_threshold"`
	InconsistencyConfidenceThreshold float64 `yaml:"inconsistency_confidence_threshold"`

	// Ollama connection settings
	OllamaBaseURL   string        `yaml:"ollama_base_url"`
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
	EmbedTimeout    time.Duration `yaml:"embed_timeout"`

	// Database settings
	DBFilename string `yaml:"db_filename"`
}

// Default returns the engine defaults. Generation gets a long timeout
// because local CPU inference is slow; embedding calls are cheap.
func Default() Config {
	return Config{
		ExtractionModel:       "mistral:7b",
		ExtractionTemperature: 0.3,
		ExtractionMaxTokens:   2048,

		EmbeddingModel:     "nomic-embed-text",
		EmbeddingDimension: 768,

		SimilarityThreshold:              0.7,
		InconsistencyConfidenceThreshold: 0.6,

		OllamaBaseURL:   "http://localhost:11434",
		GenerateTimeout: 180 * time.Second,
		EmbedTimeout:    60 * time.Second,

		DBFilename: "workbench.db",
	}
}

// Load builds a Config from defaults, then workbench.yaml in caseDir
// if present, then WORKBENCH_* environment overrides.
func Load(caseDir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(caseDir, "workbench.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WORKBENCH_OLLAMA_URL"); v != "" {
		c.OllamaBaseURL = v
	}
	if v := os.Getenv("WORKBENCH_EXTRACTION_MODEL"); v != "" {
		c.ExtractionModel = v
	}
	if v := os.Getenv("WORKBENCH_EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
	if v := os.Getenv("WORKBENCH_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("WORKBENCH_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.InconsistencyConfidenceThreshold = f
		}
	}
}

// DBPath returns the store location inside a case directory
func (c Config) DBPath(caseDir string) string {
	return filepath.Join(caseDir, c.DBFilename)
}
