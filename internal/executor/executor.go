// Package executor turns command strings into real side effects through
// the aws CLI or a local shell, and reports structured success/failure.
// Every executor supports a dry-run mode that validates and echoes the
// command without spawning anything.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/errors"
)

// Options adjust one Execute call.
type Options struct {
	// DryRun validates and echoes the command without executing it.
	DryRun bool

	// Timeout bounds the spawned process. Zero means the configured
	// default (30s out of the box).
	Timeout time.Duration
}

// Executor is the common contract of all command executors.
//
// Execute never returns a Go error: failures, including validation
// rejections and timeouts, are reported inside the ExecutionResult so
// callers always get the structured form.
type Executor interface {
	// Execute runs one command and returns its structured outcome.
	Execute(ctx context.Context, command string, opts Options) domain.ExecutionResult

	// ValidateCommand reports whether the command passes this
	// executor's policy checks.
	ValidateCommand(command string) bool

	// Type identifies the executor family.
	Type() domain.ExecutorType
}

// ForType builds the executor for the given family. ExecutorSystem
// yields a shell executor that picks the host's native shell.
func ForType(t domain.ExecutorType, cfg config.ExecutorConfig, logger zerolog.Logger) (Executor, error) {
	switch t {
	case domain.ExecutorCloud:
		return NewCloudExecutor(cfg, logger), nil
	case domain.ExecutorPowerShell, domain.ExecutorBash, domain.ExecutorSystem:
		return NewShellExecutor(t, cfg, logger), nil
	default:
		return nil, errors.Wrapf(errors.ErrUnknownExecutor, "%q", t)
	}
}

// dryRunResult echoes the command that would have run.
func dryRunResult(command string) domain.ExecutionResult {
	zero := 0
	return domain.ExecutionResult{
		Success:  true,
		Output:   "[DRY RUN] Would execute: " + command,
		ExitCode: &zero,
	}
}

// validationResult reports a command rejected before execution.
func validationResult(msg string, details map[string]any) domain.ExecutionResult {
	return domain.ExecutionResult{
		Success:      false,
		Output:       "",
		Error:        msg,
		ErrorType:    errors.KindValidation,
		ErrorDetails: details,
	}
}

// runOutcome is the raw result of one spawned process.
type runOutcome struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
	// startErr is set when the process could not be spawned at all
	// (missing binary, ctx already done).
	startErr error
}

// run spawns argv with the given timeout and captures its output. The
// process is killed when the timeout fires; no partial-output recovery
// is attempted beyond what was buffered.
func run(ctx context.Context, argv []string, timeout time.Duration) runOutcome {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := runOutcome{stdout: stdout.String(), stderr: stderr.String()}

	if cctx.Err() == context.DeadlineExceeded {
		out.timedOut = true
		return out
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.exitCode = exitErr.ExitCode()
		} else {
			out.startErr = err
		}
	}
	return out
}

// errorOutput prefers stderr, falling back to stdout, matching where
// CLIs usually report failures.
func (o runOutcome) errorOutput() string {
	if o.stderr != "" {
		return o.stderr
	}
	return o.stdout
}

// normalizeOutput returns stdout as structured data when it parses as
// JSON, raw text otherwise. Best-effort with a silent fallback.
func normalizeOutput(stdout string) any {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return stdout
	}
	var structured any
	if err := json.Unmarshal([]byte(trimmed), &structured); err == nil {
		return structured
	}
	return stdout
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
