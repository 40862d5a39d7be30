// Package config provides configuration management for opsagent with
// layered precedence.
//
// Configuration sources are loaded in the following order (highest
// precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (OPSAGENT_* prefix; a local .env file is
//     loaded into the environment first)
//  3. Config file (config.yaml in the working directory or ~/.opsagent/)
//  4. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
// The configuration is constructed once at process start and threaded
// through constructors; there is no mutable settings singleton.
//
// IMPORTANT: This package may import internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for opsagent.
type Config struct {
	// LLM contains settings for language-model calls.
	LLM LLMConfig `yaml:"llm" mapstructure:"llm"`

	// Store contains settings for the instruction vector index.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Agent contains settings for the orchestration layer.
	Agent AgentConfig `yaml:"agent" mapstructure:"agent"`

	// Executor contains settings for command execution.
	Executor ExecutorConfig `yaml:"executor" mapstructure:"executor"`

	// Server contains settings for the HTTP chat surface.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Log contains logging settings.
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// LLMConfig contains settings for language-model calls.
type LLMConfig struct {
	// APIKey authenticates against the model provider. Required:
	// startup fails when it is absent. Usually supplied via
	// OPSAGENT_LLM_API_KEY or OPENAI_API_KEY rather than a config file.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// Model is the model name. Default: "gpt-4".
	Model string `yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint. Default: the public
	// OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// EmbeddingModel is the model used for instruction embeddings.
	// Default: "text-embedding-3-small".
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`

	// Timeout bounds one model call end to end.
	// Default: 60s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// StoreConfig contains settings for the backing vector index.
type StoreConfig struct {
	// Host and Port locate the index service. Default: localhost:6379.
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`

	// Index is the search index / collection name.
	// Default: "itops_instructions".
	Index string `yaml:"index" mapstructure:"index"`

	// KeyPrefix namespaces instruction documents in the index.
	// Default: "instruction:".
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// AgentConfig contains settings for the orchestration layer.
type AgentConfig struct {
	// Framework selects the orchestration adapter
	// (toolloop, graph, crew, multiagent). Default: "toolloop",
	// the only fully implemented variant.
	Framework string `yaml:"framework" mapstructure:"framework"`

	// MaxToolIterations bounds the tool-calling loop per query.
	// Default: 6.
	MaxToolIterations int `yaml:"max_tool_iterations" mapstructure:"max_tool_iterations"`

	// RetrieveResults is how many instructions a retrieval returns
	// by default. Default: 5.
	RetrieveResults int `yaml:"retrieve_results" mapstructure:"retrieve_results"`
}

// ExecutorConfig contains settings for command execution.
type ExecutorConfig struct {
	// Policy is "all" (any non-empty command) or "restricted"
	// (destructive patterns rejected). Default: "restricted".
	Policy string `yaml:"policy" mapstructure:"policy"`

	// Timeout bounds one command execution. Default: 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Environment selects the shell family when auto-detecting
	// ("windows", "linux", or "both"). Default: "linux".
	Environment string `yaml:"environment" mapstructure:"environment"`

	// CloudRegion is passed to the cloud CLI as --region when set.
	CloudRegion string `yaml:"cloud_region" mapstructure:"cloud_region"`

	// CloudProfile is passed to the cloud CLI as --profile when set.
	CloudProfile string `yaml:"cloud_profile" mapstructure:"cloud_profile"`
}

// ServerConfig contains settings for the HTTP chat surface.
type ServerConfig struct {
	// Host and Port for the listener. Default: 0.0.0.0:7860.
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is the zerolog level name (debug, info, warn, error).
	// Default: "info".
	Level string `yaml:"level" mapstructure:"level"`

	// Format is "console" or "json". Default: "console" on a TTY,
	// "json" otherwise.
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path. When set, output is duplicated
	// to a size-rotated file with sensitive data redacted.
	File string `yaml:"file" mapstructure:"file"`
}
