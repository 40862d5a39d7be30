package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/errors"
	"github.com/runbookhq/opsagent/internal/importer"
)

// AddLoadCommand adds the load command to the root command.
func AddLoadCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Bulk-import instruction files into the store",
		Long: `Import runbook instructions from a JSON file, or from every *.json
file in a directory. Each entry needs task_type and instruction_text
(at least 10 characters) plus optional metadata.

Invalid entries are reported individually; the remaining entries are
still imported. The command fails when any entry was rejected.`,
		Example: `  opsagent load ./instructions/passwords.json
  opsagent load ./instructions/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			ctx := logger.WithContext(cmd.Context())
			path := args[0]

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			st, err := buildStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			im := importer.New(st, logger)

			info, err := os.Stat(path)
			if err != nil {
				return errors.Wrapf(errors.ErrImportFailed, "path not found: %s", path)
			}

			out := cmd.OutOrStdout()
			if info.IsDir() {
				result, err := im.ImportDir(ctx, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Processed %d files: imported %d, %d errors\n",
					result.FilesProcessed, result.ImportedCount, result.ErrorCount)
				for _, e := range result.Errors {
					fmt.Fprintf(out, "  %s\n", e)
				}
				if !result.Success {
					return errors.Wrapf(errors.ErrImportFailed, "%d entries rejected", result.ErrorCount)
				}
				return nil
			}

			result, err := im.ImportFile(ctx, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %d instructions, %d errors\n",
				result.ImportedCount, result.ErrorCount)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  %s\n", e)
			}
			if !result.Success {
				return errors.Wrapf(errors.ErrImportFailed, "%d entries rejected", result.ErrorCount)
			}
			return nil
		},
	}

	root.AddCommand(cmd)
}
