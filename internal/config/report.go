package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/runbookhq/opsagent/internal/errors"
)

// EnvCheck is one line of an environment validation report.
type EnvCheck struct {
	// Key is the environment variable name.
	Key string

	// Present reports whether the variable is set and non-empty.
	Present bool

	// Required distinguishes hard requirements from informational keys.
	Required bool

	// Display is the value rendered for the report, masked for secrets.
	Display string

	// Description explains the key's purpose.
	Description string
}

// EnvReport is the outcome of validating the process environment.
type EnvReport struct {
	// DotEnvPath is the .env file that was loaded, empty if none.
	DotEnvPath string

	// Checks lists every inspected key, required keys first.
	Checks []EnvCheck

	// MissingRequired lists required keys that are absent.
	MissingRequired []string
}

// OK reports whether all required keys are present.
func (r *EnvReport) OK() bool {
	return len(r.MissingRequired) == 0
}

// Err returns ErrEnvInvalid naming the missing keys, nil when OK.
func (r *EnvReport) Err() error {
	if r.OK() {
		return nil
	}
	return errors.Wrapf(errors.ErrEnvInvalid,
		"missing required: %s", strings.Join(r.MissingRequired, ", "))
}

// requiredEnvKeys must be present for the agent to start.
// The API key accepts either the prefixed or the conventional name.
var requiredEnvKeys = []struct { //nolint:gochecknoglobals // Static report definition
	keys        []string
	description string
}{
	{
		keys:        []string{"OPSAGENT_LLM_API_KEY", "OPENAI_API_KEY"},
		description: "language model API key (required)",
	},
}

// optionalEnvKeys are reported informationally.
var optionalEnvKeys = []struct { //nolint:gochecknoglobals // Static report definition
	key         string
	description string
}{
	{"OPSAGENT_LLM_MODEL", "model name (default gpt-4)"},
	{"OPSAGENT_STORE_HOST", "vector index host"},
	{"OPSAGENT_STORE_PORT", "vector index port"},
	{"OPSAGENT_STORE_INDEX", "vector index name"},
	{"OPSAGENT_AGENT_FRAMEWORK", "orchestration framework"},
	{"OPSAGENT_EXECUTOR_POLICY", "command policy (all/restricted)"},
	{"OPSAGENT_EXECUTOR_ENVIRONMENT", "shell environment (windows/linux/both)"},
	{"OPSAGENT_EXECUTOR_CLOUD_REGION", "cloud CLI region"},
	{"OPSAGENT_EXECUTOR_CLOUD_PROFILE", "cloud CLI profile"},
	{"OPSAGENT_SERVER_HOST", "HTTP listen host"},
	{"OPSAGENT_SERVER_PORT", "HTTP listen port"},
	{"OPSAGENT_LOG_LEVEL", "log level"},
	{"OPSAGENT_LOG_FORMAT", "log format (console/json)"},
	{"OPSAGENT_LOG_FILE", "log file path"},
}

// ValidateEnv inspects the process environment (after loading .env) and
// builds a human-reportable summary. Secret values are masked to their
// first characters.
func ValidateEnv() *EnvReport {
	report := &EnvReport{DotEnvPath: LoadDotEnv()}

	for _, req := range requiredEnvKeys {
		check := EnvCheck{
			Key:         strings.Join(req.keys, " | "),
			Required:    true,
			Description: req.description,
		}
		for _, key := range req.keys {
			if value := os.Getenv(key); value != "" {
				check.Present = true
				check.Display = maskSecret(value)
				break
			}
		}
		if !check.Present {
			report.MissingRequired = append(report.MissingRequired, req.keys[0])
		}
		report.Checks = append(report.Checks, check)
	}

	for _, opt := range optionalEnvKeys {
		value := os.Getenv(opt.key)
		report.Checks = append(report.Checks, EnvCheck{
			Key:         opt.key,
			Present:     value != "",
			Display:     value,
			Description: opt.description,
		})
	}

	return report
}

// maskSecret renders a secret as its first characters plus an ellipsis.
func maskSecret(value string) string {
	if len(value) > 8 {
		return fmt.Sprintf("%s...", value[:8])
	}
	return "***"
}
