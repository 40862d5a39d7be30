package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE(t *testing.T) {
	t.Run("builds typed error with kind and message", func(t *testing.T) {
		err := E(KindExecution, "command failed")
		require.Error(t, err)
		assert.Equal(t, KindExecution, err.Kind)
		assert.Equal(t, "command failed", err.Error())
	})

	t.Run("with detail attaches structured context", func(t *testing.T) {
		err := E(KindTimeout, "timed out").
			WithDetail("command", "aws iam list-users").
			WithDetail("timeout_seconds", 30)

		assert.Equal(t, "aws iam list-users", err.Details["command"])
		assert.Equal(t, 30, err.Details["timeout_seconds"])
	})

	t.Run("with cause preserves error chain", func(t *testing.T) {
		err := E(KindRetrieval, "retrieve failed").WithCause(ErrIndexUnavailable)
		assert.True(t, Is(err, ErrIndexUnavailable))
		assert.Contains(t, err.Error(), "vector index unavailable")
	})
}

func TestKindOf(t *testing.T) {
	t.Run("typed error reports its own kind", func(t *testing.T) {
		err := E(KindPermission, "denied")
		assert.Equal(t, KindPermission, KindOf(err))
	})

	t.Run("wrapped typed error is unwrapped", func(t *testing.T) {
		err := Wrap(E(KindGeneration, "bad script"), "generate")
		assert.Equal(t, KindGeneration, KindOf(err))
	})

	t.Run("nil error is unknown", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(nil))
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want Kind
	}{
		{"timeout text", "operation timeout after 30s", KindTimeout},
		{"deadline text", "context deadline exceeded", KindTimeout},
		{"permission text", "permission denied for resource", KindPermission},
		{"access denied text", "Access Denied by policy", KindPermission},
		{"connection text", "connection refused", KindNetwork},
		{"network text", "network is unreachable", KindNetwork},
		{"invalid text", "invalid argument --user", KindValidation},
		{"validation text", "validation failed for field", KindValidation},
		{"unmatched text", "something odd happened", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(New(tt.msg)))
		})
	}
}
