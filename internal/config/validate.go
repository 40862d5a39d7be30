package config

import (
	"github.com/runbookhq/opsagent/internal/errors"
)

// validFrameworks are the accepted agent.framework values.
var validFrameworks = map[string]bool{ //nolint:gochecknoglobals // Closed value set
	"toolloop":   true,
	"graph":      true,
	"crew":       true,
	"multiagent": true,
}

// validEnvironments are the accepted executor.environment values.
var validEnvironments = map[string]bool{ //nolint:gochecknoglobals // Closed value set
	"windows": true,
	"linux":   true,
	"both":    true,
}

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Note: the LLM API key is deliberately NOT checked here — `validate-env`
// and read-only commands must be able to load config without one. Callers
// that invoke the model check RequireAPIKey at startup.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateLLM(&cfg.LLM); err != nil {
		return err
	}
	if err := validateStore(&cfg.Store); err != nil {
		return err
	}
	if err := validateAgent(&cfg.Agent); err != nil {
		return err
	}
	if err := validateExecutor(&cfg.Executor); err != nil {
		return err
	}
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	return nil
}

// RequireAPIKey fails when the language-model API key is absent.
// Commands that call the model run this once at startup.
func RequireAPIKey(cfg *Config) error {
	if cfg.LLM.APIKey == "" {
		return errors.Wrap(errors.ErrAPIKeyMissing,
			"set OPSAGENT_LLM_API_KEY or OPENAI_API_KEY")
	}
	return nil
}

func validateLLM(cfg *LLMConfig) error {
	if cfg.Model == "" {
		return errors.Wrap(errors.ErrConfigInvalidLLM, "llm.model must not be empty")
	}
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidLLM,
			"llm.timeout must be positive, got %s", cfg.Timeout)
	}
	return nil
}

func validateStore(cfg *StoreConfig) error {
	if cfg.Host == "" {
		return errors.Wrap(errors.ErrConfigInvalidStore, "store.host must not be empty")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.Wrapf(errors.ErrConfigInvalidStore,
			"store.port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.Index == "" {
		return errors.Wrap(errors.ErrConfigInvalidStore, "store.index must not be empty")
	}
	return nil
}

func validateAgent(cfg *AgentConfig) error {
	if !validFrameworks[cfg.Framework] {
		return errors.Wrapf(errors.ErrUnknownFramework,
			"agent.framework %q (valid: toolloop, graph, crew, multiagent)", cfg.Framework)
	}
	if cfg.MaxToolIterations < 1 || cfg.MaxToolIterations > 50 {
		return errors.Wrapf(errors.ErrConfigInvalidLLM,
			"agent.max_tool_iterations must be between 1 and 50, got %d", cfg.MaxToolIterations)
	}
	if cfg.RetrieveResults < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidLLM,
			"agent.retrieve_results must be at least 1, got %d", cfg.RetrieveResults)
	}
	return nil
}

func validateExecutor(cfg *ExecutorConfig) error {
	if cfg.Policy != "all" && cfg.Policy != "restricted" {
		return errors.Wrapf(errors.ErrConfigInvalidExecutor,
			"executor.policy must be \"all\" or \"restricted\", got %q", cfg.Policy)
	}
	if cfg.Timeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidExecutor,
			"executor.timeout must be positive, got %s", cfg.Timeout)
	}
	if !validEnvironments[cfg.Environment] {
		return errors.Wrapf(errors.ErrConfigInvalidExecutor,
			"executor.environment must be windows, linux or both, got %q", cfg.Environment)
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.Wrapf(errors.ErrConfigInvalidServer,
			"server.port must be between 1 and 65535, got %d", cfg.Port)
	}
	return nil
}
