package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Mike-Morrow/Lithium-Analysis/config"
	"github.com/Mike-Morrow/Lithium-Analysis/dbload"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load delimited and spreadsheet files into a database",
	Long: `Loads every .csv, .tsv, .xls (tab separated text) and .xlsx file in the
	load directory into a fresh database, one table per file. The pipeline's
	raw cell tables are skipped. Columns named "notes" are dropped and
	column and table names are made safe identifiers. Legacy .xls files
	keep only rows with a positive numeric county code.

	A file that fails to load is logged and skipped.

	Options:
		--driver: duckdb (default), sqlite or postgres
		--dsn:    Database file, or a postgres connection string`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

var openTarget = dbload.Open

func runLoad(ctx context.Context, cfg *config.Config, out io.Writer) (err error) {
	dir := cfg.Path(cfg.Load.Dir)
	files, err := dbload.ScanDir(dir, cfg.Load.Extensions, cfg.Load.Exclude)
	if err != nil {
		return err
	}

	dsn := cfg.Load.DSN
	if !strings.EqualFold(cfg.Load.Driver, dbload.DriverPostgres) {
		dsn = cfg.Path(dsn)
		// never load the database file into itself
		files = withoutFile(files, dsn)
	}

	target, err := openTarget(ctx, cfg.Load.Driver, dsn)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, target.Close())
	}()
	fmt.Fprintf(out, "Opened %s database: %s\n", cfg.Load.Driver, dsn)

	fmt.Fprintf(out, "\nFound %d files to process:\n", len(files))
	for _, f := range files {
		fmt.Fprintf(out, "  - %s\n", filepath.Base(f))
	}

	results := dbload.Run(ctx, target, files)
	fmt.Fprintln(out)
	dbload.RenderResults(out, results)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	tables, err := target.Tables(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nDatabase summary: %s tables\n", humanize.Comma(int64(len(tables))))
	dbload.RenderTables(out, tables)
	if failed > 0 {
		fmt.Fprintf(out, "\n%d of %d files failed, see log for details\n", failed, len(results))
	}
	return ctx.Err()
}

func withoutFile(files []string, path string) []string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return files
	}
	out := files[:0]
	for _, f := range files {
		if fa, err := filepath.Abs(f); err == nil && fa == abs {
			continue
		}
		out = append(out, f)
	}
	return out
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().String("dir", "", "Directory to scan (default: data-dir)")
	bindFlag(loadCmd.Flags(), "load.dir", "dir")
	loadCmd.Flags().String("driver", dbload.DriverDuckDB, "Database driver: duckdb, sqlite or postgres")
	bindFlag(loadCmd.Flags(), "load.driver", "driver")
	loadCmd.Flags().String("dsn", "data.duckdb", "Database file or connection string")
	bindFlag(loadCmd.Flags(), "load.dsn", "dsn")
	loadCmd.Flags().StringSlice("exclude", nil, "File names to skip")
	bindFlag(loadCmd.Flags(), "load.exclude", "exclude")
}
