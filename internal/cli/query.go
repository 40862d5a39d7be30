package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/decompose"
)

// AddQueryCommand adds the query command to the root command.
func AddQueryCommand(root *cobra.Command) {
	var (
		dryRun   bool
		showPlan bool
	)

	cmd := &cobra.Command{
		Use:   "query <request>",
		Short: "Run one request through the agent",
		Long: `Run a single natural-language request through the agent and print the
result.

With --plan the request is decomposed into an execution plan and the
scripts for each step are generated and printed without executing
anything.`,
		Example: `  opsagent query "reset the password for user jdoe"
  opsagent query --dry-run "restart the web servers"
  opsagent query --plan "offboard user alice: disable AD account, remove AWS access"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			ctx := logger.WithContext(cmd.Context())
			request := strings.Join(args, " ")

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			app, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}

			if showPlan {
				return printPlan(ctx, cmd, app, request)
			}

			result := app.agent.ProcessQuery(ctx, request, nil, dryRun)

			glyph := "✅"
			if !result.Success {
				glyph = "❌"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", glyph, result.Response)

			if len(result.Steps) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "\nSteps:")
				for i, step := range result.Steps {
					fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s(%s)\n", i+1, step.Tool, step.Input)
				}
			}
			if result.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nError: %s\n", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview commands without executing them")
	cmd.Flags().BoolVar(&showPlan, "plan", false, "print the decomposed execution plan and generated scripts")

	root.AddCommand(cmd)
}

// printPlan decomposes the request, builds the execution plan, and
// prints the generated script for each step.
func printPlan(ctx context.Context, cmd *cobra.Command, app *app, request string) error {
	subtasks := app.decomposer.Decompose(ctx, request, nil)
	instructions, err := app.decomposer.InstructionsForSubtasks(ctx, subtasks, 0)
	if err != nil {
		return err
	}
	plan := decompose.ExecutionPlan(subtasks, instructions)

	result := app.generator.GenerateMultiStep(ctx, plan, nil)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Execution plan (%d steps):\n", result.TotalSteps)
	for _, step := range result.Steps {
		fmt.Fprintf(out, "\n%d. [%s] %s\n", step.Order, step.ExecutorType, step.Subtask)
		fmt.Fprintf(out, "   Script: %s\n", step.Script)
		if len(step.ValidationErrors) > 0 {
			fmt.Fprintf(out, "   Validation: %s\n", strings.Join(step.ValidationErrors, "; "))
		}
	}
	if len(result.ValidationErrors) > 0 {
		fmt.Fprintf(out, "\nValidation problems:\n  %s\n", strings.Join(result.ValidationErrors, "\n  "))
	}
	return nil
}
