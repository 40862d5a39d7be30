// Package main provides the entry point for the opsagent CLI.
package main

import (
	"context"
	"os"

	"github.com/runbookhq/opsagent/internal/cli"
	"github.com/runbookhq/opsagent/internal/signal"
)

// Build information set via ldflags.
var (
	version = "dev"     //nolint:gochecknoglobals // Set at build time
	commit  = "none"    //nolint:gochecknoglobals // Set at build time
	date    = "unknown" //nolint:gochecknoglobals // Set at build time
)

func main() {
	handler := signal.NewHandler(context.Background(), cli.GetLogger)
	defer handler.Stop()

	err := cli.Execute(handler.Context(), cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	cli.CloseLogFile()
	if err != nil {
		os.Exit(cli.ExitError)
	}
}
