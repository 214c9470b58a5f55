package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"lojadash/backend/internal/cache"
	"lojadash/backend/internal/config"
	"lojadash/backend/internal/ingest"
	"lojadash/backend/internal/service"
	"lojadash/backend/internal/store/sqlstore"
)

type importOptions struct {
	sqlitePath string
	quiet      bool
}

func newImportCmd(root *rootOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import <workbook.xlsx>",
		Short: "Store a workbook as the newest snapshot",
		Long: `import parses the workbook and saves it as a new snapshot in the configured
database (DATABASE_URL with DATABASE_DRIVER, SQLITE_PATH, or --sqlite).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.sqlitePath, "sqlite", "", "SQLite database file, overrides the environment")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

func runImport(cmd *cobra.Command, root *rootOptions, opts *importOptions, path string) error {
	cfg := config.Load()
	if opts.sqlitePath != "" {
		cfg.DatabaseURL = ""
		cfg.SQLitePath = opts.sqlitePath
	}

	layout, err := root.layout(cfg)
	if err != nil {
		return err
	}

	dialect, dsn, err := cfg.DatabaseTarget()
	if err != nil {
		return err
	}
	if dsn == "" {
		return errors.New("no database configured: set DATABASE_URL, SQLITE_PATH or --sqlite")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	db, err := sqlstore.New(ctx, dialect, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", dialect, err)
	}
	defer db.Close()

	var readerOpts []ingest.Option
	if !opts.quiet {
		bar := progressbar.NewOptions(4,
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("reading "+filepath.Base(path)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		readerOpts = append(readerOpts, ingest.WithProgress(func(kind string, done int, total int) {
			bar.Describe("sheet " + kind)
			_ = bar.Set(done)
		}))
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	svc := service.New(db, cache.NoopMetricsCache{}, ingest.NewReader(layout, readerOpts...), 0)
	report, err := svc.ImportWorkbook(ctx, f, filepath.Base(path))
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout(), root.noColor)
	p.success("snapshot %s v%d stored in %s", report.Snapshot.ID, report.Snapshot.Version, dialect)
	p.info("orders %d, customers %d, catalog items %d, stat rows %d", report.Orders, report.Customers, report.CatalogItems, report.StatRows)
	if report.DroppedItems > 0 {
		p.warn("%d line items after the last TOTAL row were dropped", report.DroppedItems)
	}
	for _, kind := range report.MissingSheets {
		p.warn("no %s sheet found", kind)
	}
	return nil
}
