package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mike-Morrow/Lithium-Analysis/celltools"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run extract, join and aggregate in order",
	Long: `Runs the three pipeline stages back to back with the configured paths.
	Each stage still writes its output table; later stages reuse the
	previous stage's rows in memory instead of re-reading them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, p := range []string{
			cfg.Extract.DomesticRaster,
			cfg.Extract.PublicRaster,
			cfg.Join.Boundaries,
		} {
			if err := celltools.RequireFile(cfg.Path(p)); err != nil {
				return err
			}
		}

		fmt.Fprintln(out, "== extract ==")
		cells, err := runExtract(cmd.Context(), cfg, out)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, "\n== join ==")
		enriched, err := runJoin(cfg, cells, out)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, "\n== aggregate ==")
		return runAggregate(cfg, enriched, out)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
