package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Mike-Morrow/Lithium-Analysis/cellsio"
	"github.com/Mike-Morrow/Lithium-Analysis/celltools"
	"github.com/Mike-Morrow/Lithium-Analysis/config"
	"github.com/Mike-Morrow/Lithium-Analysis/countyagg"
)

const topAggCounties = 5

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Summarise county-enriched cells per county",
	Long: `Groups the enriched cell table by county and writes one row per county
	with cell counts per well type and category, category percentages, the
	weighted average category and the dominant category, overall and for
	domestic and public wells separately. Cells without a county are
	dropped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAggregate(cfg, nil, cmd.OutOrStdout())
	},
}

// runAggregate summarises cells. When cells is nil they are read from the
// configured input.
func runAggregate(cfg *config.Config, cells []celltools.EnrichedCell, out io.Writer) error {
	if cells == nil {
		input := cfg.Path(cfg.Aggregate.Input)
		fmt.Fprintf(out, "Loading input from %s\n", input)
		var err error
		if cells, err = cellsio.ReadEnrichedCSV(input); err != nil {
			return err
		}
		fmt.Fprintf(out, "  Loaded %s rows\n", humanize.Comma(int64(len(cells))))
	}

	summaries, stats := countyagg.Aggregate(cells)
	fmt.Fprintf(out, "Filtered from %s to %s rows\n",
		humanize.Comma(int64(stats.Input)), humanize.Comma(int64(stats.Input-stats.NoCounty)))
	fmt.Fprintf(out, "  Removed %s rows without county codes\n", humanize.Comma(int64(stats.NoCounty)))

	output := cfg.Path(cfg.Aggregate.Output)
	fmt.Fprintf(out, "Saving output to %s\n", output)
	if err := countyagg.WriteCSV(summaries, output); err != nil {
		return err
	}

	total := countyagg.TotalCells(summaries)
	mean := 0.0
	if len(summaries) > 0 {
		mean = float64(total) / float64(len(summaries))
	}
	fmt.Fprintf(out, "\nAggregation complete\n")
	fmt.Fprintf(out, "  Total counties: %s\n", humanize.Comma(int64(len(summaries))))
	fmt.Fprintf(out, "  Total grid cells across all counties: %s\n", humanize.Comma(int64(total)))
	fmt.Fprintf(out, "  Average cells per county: %.1f\n", mean)

	if top := countyagg.Largest(summaries, topAggCounties); len(top) > 0 {
		fmt.Fprintln(out, "\nCounties with most cells:")
		tw := tablewriter.NewWriter(out)
		tw.SetHeader([]string{"County", "Cells", "Dominant category"})
		for _, s := range top {
			tw.Append([]string{s.Name, humanize.Comma(int64(s.Total)), fmt.Sprint(s.All.Dominant)})
		}
		tw.Render()
	}
	return nil
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringP("input", "i", "", "Enriched cell table (default: the join output)")
	bindFlag(aggregateCmd.Flags(), "aggregate.input", "input")
	aggregateCmd.Flags().StringP("output", "o", "lithium_aggregated_by_county.csv", "Output county summary table")
	bindFlag(aggregateCmd.Flags(), "aggregate.output", "output")
}
