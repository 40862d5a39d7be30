package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runbookhq/opsagent/internal/config"
)

// AddValidateEnvCommand adds the validate-env command to the root command.
func AddValidateEnvCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "validate-env",
		Short: "Check that the environment is configured",
		Long: `Inspect the process environment (after loading any .env file) and
print a report of required and optional configuration keys. Secret
values are masked. Exits non-zero when a required key is missing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := config.ValidateEnv()
			out := cmd.OutOrStdout()

			if report.DotEnvPath != "" {
				fmt.Fprintf(out, "Loaded environment from %s\n\n", report.DotEnvPath)
			}

			for _, check := range report.Checks {
				mark := "✗"
				if check.Present {
					mark = "✓"
				}
				requirement := "optional"
				if check.Required {
					requirement = "required"
				}
				display := check.Display
				if display == "" {
					display = "(not set)"
				}
				fmt.Fprintf(out, "%s %-40s %-10s %s\n    %s\n",
					mark, check.Key, requirement, display, check.Description)
			}

			if report.OK() {
				fmt.Fprintln(out, "\nEnvironment OK")
				return nil
			}
			return report.Err()
		},
	}

	root.AddCommand(cmd)
}
