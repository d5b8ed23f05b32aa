package commands

import (
	"os"

	"github.com/spf13/cobra"

	"HealthFetcher/internal/app"
)

var (
	fetchStates  []string
	fetchPrint   bool
	fetchNoFiles bool
)

func init() {
	fetchCmd.Flags().StringSliceVarP(&fetchStates, "state", "s", nil,
		"Only fetch these states (comma separated); the table is then not reindexed.")
	fetchCmd.Flags().BoolVarP(&fetchPrint, "print", "p", false, "Print the table to stdout.")
	fetchCmd.Flags().BoolVar(&fetchNoFiles, "no-files", false, "Do not write CSV files.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--state AL,CA] [--print]",
	Short: "Runs a single fetch cycle and writes the table to the configured sinks.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		application, err := app.New(cmd.Context(), cfg, logger, app.Options{
			Print:     fetchPrint,
			Out:       os.Stdout,
			SkipFiles: fetchNoFiles,
		})
		if err != nil {
			return err
		}
		defer application.Close()

		var states []string
		if len(fetchStates) > 0 {
			states = fetchStates
		}
		_, err = application.Run(cmd.Context(), states)
		return err
	},
}
