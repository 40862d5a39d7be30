package cli

import (
	"github.com/spf13/cobra"

	"github.com/runbookhq/opsagent/internal/agent"
	"github.com/runbookhq/opsagent/internal/config"
	"github.com/runbookhq/opsagent/internal/conversation"
	"github.com/runbookhq/opsagent/internal/metrics"
	"github.com/runbookhq/opsagent/internal/server"
)

// AddServeCommand adds the serve command to the root command.
func AddServeCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP chat server",
		Long: `Start the HTTP front end: the chat API, session management, and the
health and metrics endpoints.

If the agent cannot be initialized (for example the model API key is
missing) the server still starts and reports unhealthy on /health, so
orchestrators see the reason instead of a crash loop.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := GetLogger()
			ctx := logger.WithContext(cmd.Context())

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}

			var ag agent.Agent
			if app, err := buildApp(ctx, cfg, logger); err != nil {
				logger.Error().Err(err).Msg("agent initialization failed, serving unhealthy")
			} else {
				ag = app.agent
			}

			srv := server.New(cfg.Server, ag, conversation.NewManager(logger), metrics.New(), logger)
			return srv.Start(ctx)
		},
	}

	root.AddCommand(cmd)
}
