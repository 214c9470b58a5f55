package main

import (
	"github.com/spf13/cobra"

	"lojadash/backend/internal/config"
	"lojadash/backend/internal/ingest"
)

type rootOptions struct {
	layoutFile string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "lojadash",
		Short: "Sales workbook ingestion and dashboard reports",
		Long: `lojadash reads the shop's sales workbook export and either stores it as a
new snapshot or prints the dashboard figures for a date selection.

  lojadash import vendas.xlsx --sqlite ./lojadash.db
  lojadash report vendas.xlsx --year 2024 --month 03`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.layoutFile, "layout", "", "YAML workbook layout (defaults to WORKBOOK_LAYOUT_FILE)")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newImportCmd(opts), newReportCmd(opts), newVersionCmd())
	return cmd
}

// layout resolves the workbook layout from the flag or the environment.
func (o *rootOptions) layout(cfg config.Config) (ingest.Layout, error) {
	path := o.layoutFile
	if path == "" {
		path = cfg.WorkbookLayoutFile
	}
	return config.LoadLayout(path)
}
