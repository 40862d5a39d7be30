// Package errors provides centralized error handling for opsagent.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application, plus a typed Error carrying the error-kind taxonomy
// used at the executor and agent boundaries. All error types can be checked using
// errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidLLM indicates an invalid language-model configuration value.
	ErrConfigInvalidLLM = errors.New("invalid llm configuration")

	// ErrConfigInvalidStore indicates an invalid instruction-store configuration value.
	ErrConfigInvalidStore = errors.New("invalid store configuration")

	// ErrConfigInvalidServer indicates an invalid HTTP server configuration value.
	ErrConfigInvalidServer = errors.New("invalid server configuration")

	// ErrConfigInvalidExecutor indicates an invalid executor configuration value.
	ErrConfigInvalidExecutor = errors.New("invalid executor configuration")

	// ErrAPIKeyMissing indicates the language-model API key is not configured.
	// Startup fails on this error.
	ErrAPIKeyMissing = errors.New("llm api key not configured")

	// ErrInstructionNotFound indicates the requested instruction does not exist
	// in the backing index.
	ErrInstructionNotFound = errors.New("instruction not found")

	// ErrIndexUnavailable indicates the backing vector index could not be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrInvalidInstruction indicates an instruction failed validation
	// (missing task type, text too short, etc.).
	ErrInvalidInstruction = errors.New("invalid instruction")

	// ErrSessionNotFound indicates the requested conversation session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRequest indicates an HTTP request body failed to decode
	// or failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrCommandInvalid indicates a command was rejected by executor validation.
	ErrCommandInvalid = errors.New("command rejected by validation")

	// ErrCommandFailed indicates that a command execution failed.
	ErrCommandFailed = errors.New("command failed")

	// ErrLLMInvocation indicates the language-model call failed to execute
	// or returned an unusable response.
	ErrLLMInvocation = errors.New("llm invocation failed")

	// ErrNoPlan indicates the model response contained no parsable plan.
	// Callers fall back to single-subtask decomposition on this error.
	ErrNoPlan = errors.New("no plan found in model response")

	// ErrFrameworkUnsupported indicates the selected agent framework adapter
	// is a declared placeholder without a working implementation.
	ErrFrameworkUnsupported = errors.New("agent framework not implemented")

	// ErrUnknownFramework indicates an unrecognized agent framework name.
	ErrUnknownFramework = errors.New("unknown agent framework")

	// ErrUnknownExecutor indicates an unrecognized executor type.
	ErrUnknownExecutor = errors.New("unknown executor type")

	// ErrNoInstructions indicates script generation was invoked without instructions.
	ErrNoInstructions = errors.New("no instructions provided")

	// ErrImportFailed indicates a bulk instruction import completed with failures.
	ErrImportFailed = errors.New("instruction import failed")

	// ErrEnvInvalid indicates the environment validation report found problems.
	ErrEnvInvalid = errors.New("environment configuration invalid")
)

// Is reports whether any error in err's chain matches target.
// Re-exported so callers can use this package exclusively.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// Re-exported so callers can use this package exclusively.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
// Re-exported so callers can use this package exclusively.
func New(text string) error {
	return errors.New(text)
}
