package executor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/errors"
)

// cloudDenyPatterns reject destructive commands under the restricted
// policy.
var cloudDenyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`rm\s+-rf`),
	regexp.MustCompile(`delete.*--force`),
	regexp.MustCompile(`terminate.*--force`),
}

// CloudExecutor runs commands through the aws CLI. A configured region
// and profile are injected as --region/--profile flags on every call.
type CloudExecutor struct {
	region  string
	profile string
	policy  domain.CommandPolicy
	timeout time.Duration
	logger  zerolog.Logger
}

// NewCloudExecutor builds a CloudExecutor from the executor config.
func NewCloudExecutor(cfg config.ExecutorConfig, logger zerolog.Logger) *CloudExecutor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultExecTimeout
	}
	return &CloudExecutor{
		region:  cfg.CloudRegion,
		profile: cfg.CloudProfile,
		policy:  domain.CommandPolicy(cfg.Policy),
		timeout: timeout,
		logger:  logger.With().Str("component", "executor.cloud").Logger(),
	}
}

// Type identifies the executor family.
func (e *CloudExecutor) Type() domain.ExecutorType { return domain.ExecutorCloud }

// ValidateCommand rejects empty commands, and under the restricted
// policy rejects recursive deletes and forced delete/terminate forms.
func (e *CloudExecutor) ValidateCommand(command string) bool {
	if strings.TrimSpace(command) == "" {
		return false
	}
	if e.policy == domain.PolicyRestricted {
		lower := strings.ToLower(command)
		for _, pattern := range cloudDenyPatterns {
			if pattern.MatchString(lower) {
				return false
			}
		}
	}
	return true
}

// argv builds the aws CLI invocation, injecting region and profile and
// dropping a leading "aws" token from the command text.
func (e *CloudExecutor) argv(command string) []string {
	args := []string{"aws"}
	if e.region != "" {
		args = append(args, "--region", e.region)
	}
	if e.profile != "" {
		args = append(args, "--profile", e.profile)
	}
	rest := strings.TrimSpace(command)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "aws "))
	return append(args, strings.Fields(rest)...)
}

// Execute runs one aws CLI command. Failures are classified into
// permission/network/execution kinds by substring-matching the error
// output; the classification is advisory only.
func (e *CloudExecutor) Execute(ctx context.Context, command string, opts Options) domain.ExecutionResult {
	if !e.ValidateCommand(command) {
		return validationResult("Invalid AWS command", map[string]any{
			"command": command,
			"region":  e.region,
			"profile": e.profile,
		})
	}
	if opts.DryRun {
		return dryRunResult(command)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	e.logger.Debug().Str("command", command).Msg("executing aws command")
	outcome := run(ctx, e.argv(command), timeout)

	if outcome.timedOut {
		return domain.ExecutionResult{
			Success:   false,
			Output:    "",
			Error:     fmt.Sprintf("AWS command timed out after %s", timeout),
			ErrorType: errors.KindTimeout,
			ErrorDetails: map[string]any{
				"command": command,
				"region":  e.region,
				"profile": e.profile,
				"timeout": timeout.String(),
			},
		}
	}
	if outcome.startErr != nil {
		return domain.ExecutionResult{
			Success:   false,
			Output:    "",
			Error:     "Failed to execute AWS command: " + outcome.startErr.Error(),
			ErrorType: errors.KindExecution,
			ErrorDetails: map[string]any{
				"command": command,
				"region":  e.region,
				"profile": e.profile,
			},
		}
	}

	output := normalizeOutput(outcome.stdout)
	exitCode := outcome.exitCode

	if exitCode != 0 {
		errOutput := outcome.errorOutput()
		lower := strings.ToLower(errOutput)

		switch {
		case containsAny(lower, "access denied", "unauthorized", "forbidden"):
			return domain.ExecutionResult{
				Success:   false,
				Output:    "",
				Error:     "AWS permission denied: " + errOutput,
				ExitCode:  &exitCode,
				ErrorType: errors.KindPermission,
				ErrorDetails: map[string]any{
					"region":    e.region,
					"profile":   e.profile,
					"exit_code": exitCode,
				},
			}
		case containsAny(lower, "network", "connection", "timeout"):
			return domain.ExecutionResult{
				Success:   false,
				Output:    "",
				Error:     "AWS network error: " + errOutput,
				ExitCode:  &exitCode,
				ErrorType: errors.KindNetwork,
				ErrorDetails: map[string]any{
					"command":   command,
					"exit_code": exitCode,
				},
			}
		default:
			return domain.ExecutionResult{
				Success:   false,
				Output:    output,
				Error:     "AWS command failed: " + errOutput,
				ExitCode:  &exitCode,
				ErrorType: errors.KindExecution,
				ErrorDetails: map[string]any{
					"region":  e.region,
					"profile": e.profile,
					"stderr":  errOutput,
				},
			}
		}
	}

	return domain.ExecutionResult{
		Success:  true,
		Output:   output,
		ExitCode: &exitCode,
	}
}

var _ Executor = (*CloudExecutor)(nil)
