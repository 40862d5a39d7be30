package executor

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/errors"
)

// shellDenySubstrings reject destructive commands under the restricted
// policy, matched case-insensitively as plain substrings.
var shellDenySubstrings = []string{
	"rm -rf",
	"del /f /s",
	"format",
	"fdisk",
	"mkfs",
}

// ShellExecutor runs commands through a local shell: powershell
// -Command on Windows-style hosts, bash -c otherwise.
type ShellExecutor struct {
	shellType domain.ExecutorType
	policy    domain.CommandPolicy
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewShellExecutor builds a ShellExecutor. ExecutorSystem (or an empty
// shell type) auto-detects the host's native shell.
func NewShellExecutor(shellType domain.ExecutorType, cfg config.ExecutorConfig, logger zerolog.Logger) *ShellExecutor {
	if shellType == "" || shellType == domain.ExecutorSystem {
		if runtime.GOOS == "windows" {
			shellType = domain.ExecutorPowerShell
		} else {
			shellType = domain.ExecutorBash
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultExecTimeout
	}
	return &ShellExecutor{
		shellType: shellType,
		policy:    domain.CommandPolicy(cfg.Policy),
		timeout:   timeout,
		logger:    logger.With().Str("component", "executor.shell").Str("shell", string(shellType)).Logger(),
	}
}

// Type identifies the shell family this executor runs.
func (e *ShellExecutor) Type() domain.ExecutorType { return e.shellType }

// ValidateCommand rejects empty commands, and under the restricted
// policy rejects commands containing any denylisted substring.
func (e *ShellExecutor) ValidateCommand(command string) bool {
	if strings.TrimSpace(command) == "" {
		return false
	}
	if e.policy == domain.PolicyRestricted {
		lower := strings.ToLower(command)
		for _, dangerous := range shellDenySubstrings {
			if strings.Contains(lower, dangerous) {
				return false
			}
		}
	}
	return true
}

func (e *ShellExecutor) argv(command string) []string {
	if e.shellType == domain.ExecutorPowerShell {
		return []string{"powershell", "-Command", command}
	}
	return []string{"bash", "-c", command}
}

// Execute runs one shell command. Non-zero exits are classified as
// permission failures when the error output mentions denied access,
// generic execution failures otherwise.
func (e *ShellExecutor) Execute(ctx context.Context, command string, opts Options) domain.ExecutionResult {
	if !e.ValidateCommand(command) {
		return validationResult("Invalid system command", map[string]any{
			"command":    command,
			"shell_type": string(e.shellType),
		})
	}
	if opts.DryRun {
		return dryRunResult(command)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	e.logger.Debug().Str("command", command).Msg("executing shell command")
	outcome := run(ctx, e.argv(command), timeout)

	if outcome.timedOut {
		return domain.ExecutionResult{
			Success:   false,
			Output:    "",
			Error:     fmt.Sprintf("Command execution timed out after %s", timeout),
			ErrorType: errors.KindTimeout,
			ErrorDetails: map[string]any{
				"command":    command,
				"shell_type": string(e.shellType),
				"timeout":    timeout.String(),
			},
		}
	}
	if outcome.startErr != nil {
		return domain.ExecutionResult{
			Success:   false,
			Output:    "",
			Error:     "Failed to execute system command: " + outcome.startErr.Error(),
			ErrorType: errors.KindExecution,
			ErrorDetails: map[string]any{
				"command":    command,
				"shell_type": string(e.shellType),
			},
		}
	}

	exitCode := outcome.exitCode
	if exitCode != 0 {
		errOutput := outcome.errorOutput()
		if containsAny(strings.ToLower(errOutput), "permission denied", "access denied", "unauthorized") {
			return domain.ExecutionResult{
				Success:   false,
				Output:    "",
				Error:     "Permission denied: " + errOutput,
				ExitCode:  &exitCode,
				ErrorType: errors.KindPermission,
				ErrorDetails: map[string]any{
					"shell_type": string(e.shellType),
					"exit_code":  exitCode,
				},
			}
		}
		return domain.ExecutionResult{
			Success:   false,
			Output:    outcome.stdout,
			Error:     fmt.Sprintf("Command failed with exit code %d: %s", exitCode, errOutput),
			ExitCode:  &exitCode,
			ErrorType: errors.KindExecution,
			ErrorDetails: map[string]any{
				"shell_type": string(e.shellType),
				"stderr":     errOutput,
			},
		}
	}

	return domain.ExecutionResult{
		Success:  true,
		Output:   outcome.stdout,
		ExitCode: &exitCode,
	}
}

var _ Executor = (*ShellExecutor)(nil)
