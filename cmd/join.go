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
	"github.com/Mike-Morrow/Lithium-Analysis/countyjoin"
)

const topJoinCounties = 10

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Assign each grid cell to the county that contains it",
	Long: `Reads the extracted cell table (csv or parquet) and a county boundary
	file (shapefile, or any vector format GDAL reads) and writes the cells
	with county_code and county_name added. A cell must lie strictly inside
	a county; cells on a boundary or outside every county get empty county
	fields. Where counties overlap, the first in file order wins.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runJoin(cfg, nil, cmd.OutOrStdout())
		return err
	},
}

// runJoin joins cells to counties. When cells is nil they are read from
// the configured input.
func runJoin(cfg *config.Config, cells []celltools.GridCell, out io.Writer) ([]celltools.EnrichedCell, error) {
	input := cfg.Path(cfg.Join.Input)
	boundaries := cfg.Path(cfg.Join.Boundaries)
	if cells == nil {
		if err := celltools.RequireFile(input); err != nil {
			return nil, err
		}
	}
	if err := celltools.RequireFile(boundaries); err != nil {
		return nil, err
	}

	if cells == nil {
		fmt.Fprintf(out, "Loading cells from %s\n", input)
		var err error
		if cells, err = cellsio.ReadCells(input); err != nil {
			return nil, err
		}
	}
	fmt.Fprintf(out, "  %s cells\n", humanize.Comma(int64(len(cells))))

	fmt.Fprintf(out, "Loading county boundaries from %s\n", boundaries)
	counties, err := countyjoin.LoadCounties(boundaries, countyjoin.BoundaryOptions{
		CodeField: cfg.Join.CodeField,
		NameField: cfg.Join.NameField,
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "  %s counties\n", humanize.Comma(int64(len(counties))))

	fmt.Fprintln(out, "Performing spatial join")
	idx := countyjoin.NewIndex(counties, countyjoin.IndexOpts{
		MaxLevel: cfg.Join.IndexMaxLevel,
		MaxCells: cfg.Join.IndexMaxCells,
	})
	enriched, stats := countyjoin.Join(cells, idx)

	output := cfg.Path(cfg.Join.Output)
	fmt.Fprintf(out, "Saving output to %s\n", output)
	if err := cellsio.WriteEnrichedCSV(enriched, output); err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "\nJoin complete\n")
	fmt.Fprintf(out, "  Total rows: %s\n", humanize.Comma(int64(stats.Total())))
	fmt.Fprintf(out, "  Matched to counties: %s (%.2f%%)\n", humanize.Comma(int64(stats.Matched)), stats.MatchedPct())
	fmt.Fprintf(out, "  Without county match: %s (%.2f%%)\n", humanize.Comma(int64(stats.Unmatched)), stats.UnmatchedPct())

	if top := stats.TopCounties(topJoinCounties); len(top) > 0 {
		fmt.Fprintf(out, "\nTop %d counties by cell count:\n", len(top))
		tw := tablewriter.NewWriter(out)
		tw.SetHeader([]string{"County code", "County", "Cells"})
		for _, c := range top {
			tw.Append([]string{c.Code, c.Name, humanize.Comma(int64(c.Cells))})
		}
		tw.Render()
	}
	return enriched, nil
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringP("input", "i", "", "Cell table to join (default: the extract output)")
	bindFlag(joinCmd.Flags(), "join.input", "input")
	joinCmd.Flags().StringP("boundaries", "b", "tl_2025_us_county/tl_2025_us_county.shp", "County boundary file")
	bindFlag(joinCmd.Flags(), "join.boundaries", "boundaries")
	joinCmd.Flags().StringP("output", "o", "lithium_categories_with_counties.csv", "Output enriched table")
	bindFlag(joinCmd.Flags(), "join.output", "output")
	joinCmd.Flags().String("codeField", "GEOID", "Boundary attribute holding the county code")
	bindFlag(joinCmd.Flags(), "join.code_field", "codeField")
	joinCmd.Flags().String("nameField", "NAME", "Boundary attribute holding the county name")
	bindFlag(joinCmd.Flags(), "join.name_field", "nameField")
	joinCmd.Flags().Int("indexLevel", 10, "Finest S2 level used by the county index")
	bindFlag(joinCmd.Flags(), "join.index_max_level", "indexLevel")
}
