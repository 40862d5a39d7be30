package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runbookhq/opsagent/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, Validate(cfg))
	})

	t.Run("expected default values", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, "gpt-4", cfg.LLM.Model)
		assert.Equal(t, "toolloop", cfg.Agent.Framework)
		assert.Equal(t, "restricted", cfg.Executor.Policy)
		assert.Equal(t, 30*time.Second, cfg.Executor.Timeout)
		assert.Equal(t, 7860, cfg.Server.Port)
		assert.Equal(t, "itops_instructions", cfg.Store.Index)
	})
}

func TestValidate(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		err := Validate(nil)
		assert.ErrorIs(t, err, errors.ErrConfigNil)
	})

	t.Run("empty model rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.Model = ""
		assert.ErrorIs(t, Validate(cfg), errors.ErrConfigInvalidLLM)
	})

	t.Run("unknown framework rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Agent.Framework = "swarm"
		assert.ErrorIs(t, Validate(cfg), errors.ErrUnknownFramework)
	})

	t.Run("bad policy rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Executor.Policy = "yolo"
		assert.ErrorIs(t, Validate(cfg), errors.ErrConfigInvalidExecutor)
	})

	t.Run("bad environment rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Executor.Environment = "solaris"
		assert.ErrorIs(t, Validate(cfg), errors.ErrConfigInvalidExecutor)
	})

	t.Run("store port range enforced", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Store.Port = 0
		assert.ErrorIs(t, Validate(cfg), errors.ErrConfigInvalidStore)
	})

	t.Run("negative executor timeout rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Executor.Timeout = -time.Second
		assert.ErrorIs(t, Validate(cfg), errors.ErrConfigInvalidExecutor)
	})
}

func TestRequireAPIKey(t *testing.T) {
	t.Run("missing key fails", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.ErrorIs(t, RequireAPIKey(cfg), errors.ErrAPIKeyMissing)
	})

	t.Run("present key passes", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.APIKey = "sk-test"
		assert.NoError(t, RequireAPIKey(cfg))
	})
}

func TestLoad(t *testing.T) {
	t.Run("environment variables override defaults", func(t *testing.T) {
		t.Setenv("OPSAGENT_LLM_MODEL", "gpt-4o-mini")
		t.Setenv("OPSAGENT_EXECUTOR_POLICY", "all")

		cfg, err := Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
		assert.Equal(t, "all", cfg.Executor.Policy)
	})

	t.Run("OPENAI_API_KEY fallback", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-fallback")

		cfg, err := Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "sk-fallback", cfg.LLM.APIKey)
	})

	t.Run("overrides win over environment", func(t *testing.T) {
		t.Setenv("OPSAGENT_LLM_MODEL", "from-env")

		cfg, err := LoadWithOverrides(context.Background(), map[string]any{
			"llm.model": "from-flag",
		})
		require.NoError(t, err)
		assert.Equal(t, "from-flag", cfg.LLM.Model)
	})
}

func TestValidateEnv(t *testing.T) {
	t.Run("missing api key reported", func(t *testing.T) {
		t.Setenv("OPSAGENT_LLM_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")

		report := ValidateEnv()
		assert.False(t, report.OK())
		assert.ErrorIs(t, report.Err(), errors.ErrEnvInvalid)
		assert.Contains(t, report.MissingRequired, "OPSAGENT_LLM_API_KEY")
	})

	t.Run("present api key is masked", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-supersecretvalue")

		report := ValidateEnv()
		assert.True(t, report.OK())
		require.NotEmpty(t, report.Checks)
		assert.Equal(t, "sk-super...", report.Checks[0].Display)
	})
}
