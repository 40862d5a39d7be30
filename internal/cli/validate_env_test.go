package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runbookhq/opsagent/internal/errors"
)

func TestValidateEnvCommand(t *testing.T) {
	t.Run("passes when the API key is set", func(t *testing.T) {
		t.Setenv("OPSAGENT_LLM_API_KEY", "sk-test-key-for-validation-000000")

		out, err := executeCommand(t, "validate-env")
		require.NoError(t, err)
		assert.Contains(t, out, "Environment OK")
		// The key value itself must be masked.
		assert.NotContains(t, out, "sk-test-key-for-validation-000000")
	})

	t.Run("fails when the API key is missing", func(t *testing.T) {
		t.Setenv("OPSAGENT_LLM_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")

		out, err := executeCommand(t, "validate-env")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrEnvInvalid)
		assert.Contains(t, out, "OPSAGENT_LLM_API_KEY")
	})

	t.Run("reports optional keys", func(t *testing.T) {
		t.Setenv("OPSAGENT_LLM_API_KEY", "sk-test-key-for-validation-000000")
		t.Setenv("OPSAGENT_EXECUTOR_POLICY", "restricted")

		out, err := executeCommand(t, "validate-env")
		require.NoError(t, err)
		assert.Contains(t, out, "OPSAGENT_EXECUTOR_POLICY")
		assert.Contains(t, out, "restricted")
	})
}
