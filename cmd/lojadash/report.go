package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lojadash/backend/internal/cache"
	"lojadash/backend/internal/config"
	"lojadash/backend/internal/domain"
	"lojadash/backend/internal/ingest"
	"lojadash/backend/internal/service"
	"lojadash/backend/internal/store/memory"
)

type reportOptions struct {
	year  string
	month string
	days  []string
}

func newReportCmd(root *rootOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report <workbook.xlsx>",
		Short: "Print dashboard figures for a workbook",
		Long: `report aggregates the workbook in memory and prints revenue, top customers,
top products and the payment split. Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.year, "year", "", "Four digit year, e.g. 2024")
	cmd.Flags().StringVar(&opts.month, "month", "", "Two digit month, e.g. 03")
	cmd.Flags().StringSliceVar(&opts.days, "day", nil, "Two digit day, repeatable or comma separated")
	return cmd
}

func runReport(cmd *cobra.Command, root *rootOptions, opts *reportOptions, path string) error {
	layout, err := root.layout(config.Load())
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := cmd.Context()
	svc := service.New(memory.New(), cache.NoopMetricsCache{}, ingest.NewReader(layout), 0)
	report, err := svc.ImportWorkbook(ctx, f, filepath.Base(path))
	if err != nil {
		return err
	}

	metrics, err := svc.Metrics(ctx, domain.FilterSelection{Year: opts.year, Month: opts.month, Days: opts.days})
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout(), root.noColor)
	p.printMetrics(report, metrics)
	return nil
}
