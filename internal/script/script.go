// Package script turns retrieved instructions plus task parameters into
// runnable command strings for a given executor family, with placeholder
// substitution and a denylist-based validator.
package script

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/domain"
	"github.com/runbookhq/opsagent/internal/llm"
)

// Result is the outcome of generating a script for one set of
// instructions. Validation problems do not suppress the script; the
// caller decides whether to act on them.
type Result struct {
	// Script is the generated command/script text.
	Script string `json:"script"`

	// Commands is Script split into individually executable commands.
	Commands []string `json:"commands"`

	// ValidationErrors lists problems found by the validator.
	ValidationErrors []string `json:"validation_errors"`

	// ExecutorType is the executor family the script targets.
	ExecutorType domain.ExecutorType `json:"executor_type"`
}

// StepResult is Result for one execution plan step.
type StepResult struct {
	Result

	// StepID and Order identify the plan step this script belongs to.
	StepID string `json:"step_id"`
	Order  int    `json:"order"`

	// Subtask is the step's work description.
	Subtask string `json:"subtask"`
}

// MultiStepResult aggregates per-step generation across a whole plan.
type MultiStepResult struct {
	Steps            []StepResult `json:"steps"`
	AllCommands      []string     `json:"all_commands"`
	ValidationErrors []string     `json:"validation_errors"`
	TotalSteps       int          `json:"total_steps"`
}

// Generator produces scripts from instructions. The model is optional:
// without one, generation degrades to naive placeholder substitution
// against the instruction text.
type Generator struct {
	client      llm.Client
	environment string
	logger      zerolog.Logger
}

// NewGenerator returns a Generator. client may be nil. The executor
// configuration supplies the environment preference used when a plan
// step's executor type cannot be inferred from its content.
func NewGenerator(client llm.Client, cfg config.ExecutorConfig, logger zerolog.Logger) *Generator {
	return &Generator{
		client:      client,
		environment: cfg.Environment,
		logger:      logger.With().Str("component", "script").Logger(),
	}
}

// script formats per executor family, used in the generation prompt.
var scriptFormats = map[domain.ExecutorType][2]string{
	domain.ExecutorCloud:      {"AWS CLI command", "aws iam update-login-profile --username USERNAME --password PASSWORD"},
	domain.ExecutorPowerShell: {"PowerShell command", "Get-ADUser -Identity USERNAME"},
	domain.ExecutorSystem:     {"PowerShell command", "Get-ADUser -Identity USERNAME"},
	domain.ExecutorBash:       {"Bash command", "sudo passwd USERNAME"},
}

const generationPrompt = `Generate a %s based on the following instructions and parameters.

Instructions:
%s

Parameters:
%s

Example format: %s

Requirements:
1. Replace placeholders (USERNAME, PASSWORD, etc.) with actual parameter values
2. Generate a valid, executable command
3. Ensure proper escaping of special characters
4. Follow security best practices (e.g., don't echo passwords)

Return only the command/script, no additional explanation.`

// Generate produces one script for the given instructions, parameters,
// and executor family. It never fails outright: problems (no
// instructions, model errors, validation findings) are reported through
// ValidationErrors while the best-effort script is still returned.
func (g *Generator) Generate(ctx context.Context, instructions []domain.ScoredInstruction, params map[string]any, executorType domain.ExecutorType) Result {
	if len(instructions) == 0 {
		return Result{
			Commands:         []string{},
			ValidationErrors: []string{"No instructions provided"},
			ExecutorType:     executorType,
		}
	}

	var parts []string
	for i, inst := range instructions {
		parts = append(parts, fmt.Sprintf("Instruction %d:\n%s", i+1, inst.Text))
	}
	instructionText := strings.Join(parts, "\n\n")

	var script string
	if g.client != nil {
		format, example := "System command", "command with parameters"
		if f, ok := scriptFormats[executorType]; ok {
			format, example = f[0], f[1]
		}
		prompt := fmt.Sprintf(generationPrompt, format, instructionText, formatParams(params), example)

		out, err := g.client.Complete(ctx, prompt)
		if err != nil {
			g.logger.Warn().Err(err).Msg("script generation model call failed")
			return Result{
				Commands:         []string{},
				ValidationErrors: []string{"Error generating script: " + err.Error()},
				ExecutorType:     executorType,
			}
		}
		script = strings.TrimSpace(out)
	} else {
		script = templateReplace(instructionText, params)
	}

	return Result{
		Script:           script,
		Commands:         SplitCommands(script, executorType),
		ValidationErrors: Validate(script, executorType),
		ExecutorType:     executorType,
	}
}

// formatParams renders parameters as "k=v, ..." with stable key order.
func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return strings.Join(pairs, ", ")
}

// commandMarkers identify a line that looks like a runnable command in
// the template fallback.
var commandMarkers = []string{"aws ", "get-", "set-", "sudo ", "command"}

// templateReplace is the no-model fallback: substitute {KEY}, $KEY and
// %KEY% placeholder forms with parameter values (keys upper-cased), then
// return the first line that looks like a command.
func templateReplace(instructionText string, params map[string]any) string {
	script := instructionText
	for key, value := range params {
		placeholder := strings.ToUpper(key)
		v := fmt.Sprintf("%v", value)
		script = strings.ReplaceAll(script, "{"+placeholder+"}", v)
		script = strings.ReplaceAll(script, "$"+placeholder, v)
		script = strings.ReplaceAll(script, "%"+placeholder+"%", v)
	}

	lines := strings.Split(script, "\n")
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, marker := range commandMarkers {
			if strings.Contains(lower, marker) {
				return strings.TrimSpace(line)
			}
		}
	}
	return strings.TrimSpace(lines[0])
}

var (
	powershellSplit = regexp.MustCompile(`[;\n]`)
	bashSplit       = regexp.MustCompile(`[;\n&]`)
)

// SplitCommands breaks a script into individually executable commands
// using the delimiter heuristic of the executor family. Cloud CLI
// scripts are treated as a single command.
func SplitCommands(script string, executorType domain.ExecutorType) []string {
	var raw []string
	switch executorType {
	case domain.ExecutorCloud:
		return []string{script}
	case domain.ExecutorPowerShell, domain.ExecutorSystem:
		raw = powershellSplit.Split(script, -1)
	case domain.ExecutorBash:
		raw = bashSplit.Split(script, -1)
	default:
		return []string{script}
	}

	commands := make([]string, 0, len(raw))
	for _, c := range raw {
		if c = strings.TrimSpace(c); c != "" {
			commands = append(commands, c)
		}
	}
	return commands
}

// dangerousPatterns flag destructive commands regardless of executor
// family. Matching is advisory: the script is still returned and the
// caller decides whether to refuse it.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rm\s+-rf`),
	regexp.MustCompile(`(?i)del\s+/f\s+/s`),
	regexp.MustCompile(`(?i)format\s+`),
	regexp.MustCompile(`(?i)drop\s+database`),
	regexp.MustCompile(`(?i)shutdown`),
}

// placeholderPattern matches unsubstituted {FOO}, $FOO and %FOO% tokens.
var placeholderPattern = regexp.MustCompile(`\{(\w+)\}|\$(\w+)|%(\w+)%`)

// Validate checks a generated script and returns a list of problems
// (empty when the script passes).
func Validate(script string, executorType domain.ExecutorType) []string {
	var errs []string

	if strings.TrimSpace(script) == "" {
		return []string{"Script is empty"}
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(script) {
			errs = append(errs, "Potentially dangerous command detected: "+pattern.String())
		}
	}

	if executorType == domain.ExecutorCloud && !strings.Contains(strings.ToLower(script), "aws ") {
		errs = append(errs, "AWS script should start with 'aws' command")
	}

	if leftover := placeholderPattern.FindAllString(script, -1); len(leftover) > 0 {
		errs = append(errs, "Unreplaced placeholders found: "+strings.Join(leftover, ", "))
	}

	return errs
}

// GenerateMultiStep applies Generate once per plan step, auto-selecting
// the executor family per step from the subtask's task type and the
// instruction text.
func (g *Generator) GenerateMultiStep(ctx context.Context, plan []domain.PlanStep, params map[string]any) MultiStepResult {
	out := MultiStepResult{
		Steps:            make([]StepResult, 0, len(plan)),
		AllCommands:      []string{},
		ValidationErrors: []string{},
	}

	for _, step := range plan {
		executorType := g.DetectExecutorType(step.Subtask.TaskType, step.Instructions)
		result := g.Generate(ctx, step.Instructions, params, executorType)

		out.Steps = append(out.Steps, StepResult{
			Result:  result,
			StepID:  step.StepID,
			Order:   step.Order,
			Subtask: step.Subtask.Subtask,
		})
		out.AllCommands = append(out.AllCommands, result.Commands...)
		out.ValidationErrors = append(out.ValidationErrors, result.ValidationErrors...)
	}

	out.TotalSteps = len(out.Steps)
	return out
}

// DetectExecutorType infers the executor family for a subtask from its
// task type and instruction content, defaulting to the configured
// environment preference when nothing matches.
func (g *Generator) DetectExecutorType(taskType string, instructions []domain.ScoredInstruction) domain.ExecutorType {
	lowerType := strings.ToLower(taskType)
	if strings.Contains(lowerType, "aws") || strings.Contains(lowerType, "iam") {
		return domain.ExecutorCloud
	}

	var texts []string
	for _, inst := range instructions {
		texts = append(texts, inst.Text)
	}
	content := strings.ToLower(strings.Join(texts, " "))

	switch {
	case strings.Contains(content, "aws "):
		return domain.ExecutorCloud
	case strings.Contains(content, "powershell"), strings.Contains(content, "get-ad"):
		return domain.ExecutorPowerShell
	case strings.Contains(content, "bash"), strings.Contains(content, "sudo "):
		return domain.ExecutorBash
	}

	switch g.environment {
	case "windows":
		return domain.ExecutorPowerShell
	case "linux":
		return domain.ExecutorBash
	default:
		return domain.ExecutorSystem
	}
}
