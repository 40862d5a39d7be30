package executor

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/errors"
)

func restrictedConfig() config.ExecutorConfig {
	return config.ExecutorConfig{Policy: string(domain.PolicyRestricted), Timeout: 5 * time.Second}
}

func permissiveConfig() config.ExecutorConfig {
	return config.ExecutorConfig{Policy: string(domain.PolicyAll), Timeout: 5 * time.Second}
}

func requireBash(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("bash executor tests require a POSIX host")
	}
}

func TestForType(t *testing.T) {
	t.Run("all known types resolve", func(t *testing.T) {
		for _, et := range []domain.ExecutorType{
			domain.ExecutorCloud, domain.ExecutorPowerShell, domain.ExecutorBash, domain.ExecutorSystem,
		} {
			e, err := ForType(et, restrictedConfig(), zerolog.Nop())
			require.NoError(t, err, et)
			require.NotNil(t, e)
		}
	})

	t.Run("unknown type fails", func(t *testing.T) {
		_, err := ForType("mainframe", restrictedConfig(), zerolog.Nop())
		assert.ErrorIs(t, err, errors.ErrUnknownExecutor)
	})

	t.Run("system resolves the host shell", func(t *testing.T) {
		e, err := ForType(domain.ExecutorSystem, restrictedConfig(), zerolog.Nop())
		require.NoError(t, err)
		if runtime.GOOS == "windows" {
			assert.Equal(t, domain.ExecutorPowerShell, e.Type())
		} else {
			assert.Equal(t, domain.ExecutorBash, e.Type())
		}
	})
}

func TestShellExecutor_ValidateCommand(t *testing.T) {
	t.Run("restricted policy rejects destructive commands", func(t *testing.T) {
		e := NewShellExecutor(domain.ExecutorBash, restrictedConfig(), zerolog.Nop())
		assert.False(t, e.ValidateCommand("rm -rf /tmp/x"))
		assert.False(t, e.ValidateCommand("echo hi && mkfs.ext4 /dev/sda1"))
		assert.False(t, e.ValidateCommand("Del /F /S C:\\temp"))
		assert.True(t, e.ValidateCommand("ls -la /tmp"))
	})

	t.Run("permissive policy accepts any non-empty command", func(t *testing.T) {
		e := NewShellExecutor(domain.ExecutorBash, permissiveConfig(), zerolog.Nop())
		assert.True(t, e.ValidateCommand("rm -rf /tmp/x"))
		assert.False(t, e.ValidateCommand("   "))
	})
}

func TestShellExecutor_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("dry run echoes the command and never spawns", func(t *testing.T) {
		e := NewShellExecutor(domain.ExecutorBash, restrictedConfig(), zerolog.Nop())
		result := e.Execute(ctx, "definitely-not-a-real-binary --flag", Options{DryRun: true})

		assert.True(t, result.Success)
		assert.Contains(t, result.Output, "definitely-not-a-real-binary --flag")
		require.NotNil(t, result.ExitCode)
		assert.Zero(t, *result.ExitCode)
	})

	t.Run("rejected command reports a validation failure", func(t *testing.T) {
		e := NewShellExecutor(domain.ExecutorBash, restrictedConfig(), zerolog.Nop())
		result := e.Execute(ctx, "rm -rf /tmp/x", Options{})

		assert.False(t, result.Success)
		assert.Equal(t, errors.KindValidation, result.ErrorType)
		assert.Nil(t, result.ExitCode)
	})

	t.Run("successful command captures stdout", func(t *testing.T) {
		requireBash(t)
		e := NewShellExecutor(domain.ExecutorBash, restrictedConfig(), zerolog.Nop())
		result := e.Execute(ctx, "echo hello", Options{})

		assert.True(t, result.Success)
		assert.Equal(t, "hello\n", result.Output)
		require.NotNil(t, result.ExitCode)
		assert.Zero(t, *result.ExitCode)
	})

	t.Run("non-zero exit is an execution failure with the exit code", func(t *testing.T) {
		requireBash(t)
		e := NewShellExecutor(domain.ExecutorBash, restrictedConfig(), zerolog.Nop())
		result := e.Execute(ctx, "exit 3", Options{})

		assert.False(t, result.Success)
		assert.Equal(t, errors.KindExecution, result.ErrorType)
		require.NotNil(t, result.ExitCode)
		assert.Equal(t, 3, *result.ExitCode)
	})

	t.Run("permission wording classifies as a permission failure", func(t *testing.T) {
		requireBash(t)
		e := NewShellExecutor(domain.ExecutorBash, restrictedConfig(), zerolog.Nop())
		result := e.Execute(ctx, "echo 'Permission denied' >&2; exit 1", Options{})

		assert.False(t, result.Success)
		assert.Equal(t, errors.KindPermission, result.ErrorType)
		assert.Contains(t, result.Error, "Permission denied")
	})

	t.Run("timeout kills the process and reports a timeout kind", func(t *testing.T) {
		requireBash(t)
		e := NewShellExecutor(domain.ExecutorBash, restrictedConfig(), zerolog.Nop())

		start := time.Now()
		result := e.Execute(ctx, "sleep 5", Options{Timeout: 100 * time.Millisecond})

		assert.Less(t, time.Since(start), 2*time.Second)
		assert.False(t, result.Success)
		assert.Equal(t, errors.KindTimeout, result.ErrorType)
		assert.Nil(t, result.ExitCode)
	})
}

func TestCloudExecutor_ValidateCommand(t *testing.T) {
	t.Run("restricted policy rejects forced destructive forms", func(t *testing.T) {
		e := NewCloudExecutor(restrictedConfig(), zerolog.Nop())
		assert.False(t, e.ValidateCommand("aws s3 rm -rf s3://bucket"))
		assert.False(t, e.ValidateCommand("aws ec2 terminate-instances --force"))
		assert.False(t, e.ValidateCommand("aws s3api delete-bucket --force"))
		assert.True(t, e.ValidateCommand("aws iam update-login-profile --user-name jdoe"))
		assert.False(t, e.ValidateCommand(""))
	})

	t.Run("permissive policy accepts destructive forms", func(t *testing.T) {
		e := NewCloudExecutor(permissiveConfig(), zerolog.Nop())
		assert.True(t, e.ValidateCommand("aws ec2 terminate-instances --force"))
	})
}

func TestCloudExecutor_Argv(t *testing.T) {
	t.Run("injects region and profile and strips the aws prefix", func(t *testing.T) {
		cfg := restrictedConfig()
		cfg.CloudRegion = "eu-west-1"
		cfg.CloudProfile = "ops"
		e := NewCloudExecutor(cfg, zerolog.Nop())

		assert.Equal(t,
			[]string{"aws", "--region", "eu-west-1", "--profile", "ops", "iam", "list-users"},
			e.argv("aws iam list-users"))
	})

	t.Run("accepts commands without the aws prefix", func(t *testing.T) {
		e := NewCloudExecutor(restrictedConfig(), zerolog.Nop())
		assert.Equal(t, []string{"aws", "iam", "list-users"}, e.argv("iam list-users"))
	})
}

func TestCloudExecutor_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("dry run succeeds without an aws CLI installed", func(t *testing.T) {
		e := NewCloudExecutor(restrictedConfig(), zerolog.Nop())
		result := e.Execute(ctx, "aws iam list-users", Options{DryRun: true})

		assert.True(t, result.Success)
		assert.Contains(t, result.Output, "aws iam list-users")
	})

	t.Run("validation failure carries region and profile details", func(t *testing.T) {
		cfg := restrictedConfig()
		cfg.CloudRegion = "eu-west-1"
		e := NewCloudExecutor(cfg, zerolog.Nop())
		result := e.Execute(ctx, "aws s3 rm -rf s3://bucket", Options{})

		assert.False(t, result.Success)
		assert.Equal(t, errors.KindValidation, result.ErrorType)
		assert.Equal(t, "eu-west-1", result.ErrorDetails["region"])
	})
}

func TestNormalizeOutput(t *testing.T) {
	t.Run("json stdout becomes structured data", func(t *testing.T) {
		out := normalizeOutput(`{"Users": [{"UserName": "jdoe"}]}` + "\n")
		m, ok := out.(map[string]any)
		require.True(t, ok)
		assert.Contains(t, m, "Users")
	})

	t.Run("plain text stays text", func(t *testing.T) {
		assert.Equal(t, "3 instances running\n", normalizeOutput("3 instances running\n"))
	})

	t.Run("empty stays empty", func(t *testing.T) {
		assert.Equal(t, "", normalizeOutput(""))
	})
}
