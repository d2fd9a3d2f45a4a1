// Package config loads configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":5000"`

	// LLMProvider selects the chat completion backend: "openai" covers any
	// OpenAI-compatible endpoint (OpenAI, OpenRouter, xAI, Ollama) via
	// LLMBaseURL; "gemini" uses the Google GenAI API.
	LLMProvider string `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMAPIKey   string `env:"LLM_API_KEY"`
	LLMBaseURL  string `env:"LLM_BASE_URL"`
	LLMModel    string `env:"LLM_MODEL" envDefault:"gemma3:4b"`

	GoogleAPIKey   string `env:"GOOGLE_API_KEY"`
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-004"`

	TTSBaseURL string `env:"TTS_BASE_URL"`
	WorkDir    string `env:"WORK_DIR" envDefault:"."`

	HistoryLimit        int     `env:"HISTORY_LIMIT" envDefault:"10"`
	TopK                int     `env:"TOP_K" envDefault:"3"`
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" envDefault:"0.7"`
	SummaryWorkers      int     `env:"SUMMARY_WORKERS" envDefault:"4"`
}

// Load parses the environment and validates provider requirements.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	switch cfg.LLMProvider {
	case "openai":
		if cfg.LLMAPIKey == "" && cfg.LLMBaseURL == "" {
			return Config{}, fmt.Errorf("LLM_API_KEY or LLM_BASE_URL is required for the openai provider")
		}
	case "gemini":
		if cfg.GoogleAPIKey == "" {
			return Config{}, fmt.Errorf("GOOGLE_API_KEY is required for the gemini provider")
		}
	default:
		return Config{}, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	return cfg, nil
}
