package config

import "time"

// Default values used as the base configuration layer.
const (
	// DefaultModel is the language model used when none is configured.
	DefaultModel = "gpt-4"

	// DefaultEmbeddingModel embeds instruction text for the vector index.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultLLMTimeout bounds one model call.
	DefaultLLMTimeout = 60 * time.Second

	// DefaultExecTimeout bounds one command execution.
	DefaultExecTimeout = 30 * time.Second

	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// DefaultConfig returns a new Config with sensible default values.
// These defaults are used as the base layer that can be overridden by
// config files, environment variables, and CLI flags.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			// Model: "gpt-4" mirrors the provider's general-purpose default.
			Model: DefaultModel,

			// BaseURL: the public OpenAI-compatible endpoint. Self-hosted
			// gateways override this.
			BaseURL: "https://api.openai.com",

			EmbeddingModel: DefaultEmbeddingModel,
			Timeout:        DefaultLLMTimeout,
		},
		Store: StoreConfig{
			Host:      "localhost",
			Port:      6379,
			Index:     "itops_instructions",
			KeyPrefix: "instruction:",
		},
		Agent: AgentConfig{
			// Framework: "toolloop" is the only fully implemented adapter.
			Framework: "toolloop",

			// MaxToolIterations: 6 allows retrieve + a few executions
			// while preventing runaway loops.
			MaxToolIterations: 6,

			RetrieveResults: 5,
		},
		Executor: ExecutorConfig{
			// Policy: "restricted" rejects destructive commands by default.
			// Operators opt into "all" explicitly.
			Policy: "restricted",

			Timeout:     DefaultExecTimeout,
			Environment: "linux",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            7860,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "",
			File:   "",
		},
	}
}
