package dbload

import (
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

const previewColumns = 5

// columnPreview joins the first few column names, with "..." when more
// are hidden.
func columnPreview(cols []string) string {
	if len(cols) <= previewColumns {
		return strings.Join(cols, ", ")
	}
	return strings.Join(cols[:previewColumns], ", ") + "..."
}

// RenderTables writes the database summary as a table.
func RenderTables(w io.Writer, tables []Table) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Table", "Rows", "Columns", "Column names"})
	tw.SetAutoWrapText(false)
	for _, t := range tables {
		tw.Append([]string{
			t.Name,
			humanize.Comma(t.Rows),
			strconv.Itoa(len(t.Columns)),
			columnPreview(t.Columns),
		})
	}
	tw.Render()
}

// RenderResults writes one line per processed file.
func RenderResults(w io.Writer, results []FileResult) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"File", "Table", "Rows", "Status"})
	tw.SetAutoWrapText(false)
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "failed"
		}
		tw.Append([]string{r.File, r.Table, humanize.Comma(r.Rows), status})
	}
	tw.Render()
}
