package commands

import (
	"github.com/spf13/cobra"

	"HealthFetcher/internal/app"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs fetch cycles on the configured cron schedule and serves /metrics.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		application, err := app.New(cmd.Context(), cfg, logger, app.Options{})
		if err != nil {
			return err
		}
		defer application.Close()

		logger.Info("serving",
			"cron", cfg.Scheduler.CronExpression,
			"timezone", cfg.SchedulerLocation().String(),
			"metrics", cfg.Metrics.Addr,
		)
		return application.Serve(cmd.Context())
	},
}
