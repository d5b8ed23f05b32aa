package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"HealthFetcher/internal/app"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Loads config, source catalog and mappings without fetching anything.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		catalog, registry, err := app.LoadCatalog(cfg, logger)
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"State", "Queries", "Adapter"})
		for _, id := range catalog.States() {
			src, _ := catalog.Source(id)
			tw.AppendRow(table.Row{id, len(src.Queries), src.Adapter.Name()})
		}
		tw.Render()

		fmt.Fprintf(cmd.OutOrStdout(), "%d sources, %d states in universe, adapters: %v\n",
			catalog.Len(), len(cfg.States), registry.Names())
		return nil
	},
}
