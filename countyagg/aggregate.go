// Package countyagg summarises county-enriched grid cells into one row of
// counts, percentages and derived scores per county.
package countyagg

import (
	"math"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Mike-Morrow/Lithium-Analysis/cellsio"
	"github.com/Mike-Morrow/Lithium-Analysis/celltools"
)

// NumCategories is the number of lithium classes, numbered from 1.
const NumCategories = 4

// CategoryStats holds the per-category breakdown of one subset of a
// county's cells (all cells, domestic only or public only).
type CategoryStats struct {
	Cells    [NumCategories]int
	Pct      [NumCategories]float64
	Avg      float64
	Dominant int
}

// Total is the sum of the category counts.
func (s CategoryStats) Total() int {
	n := 0
	for _, c := range s.Cells {
		n += c
	}
	return n
}

// derive fills Pct, Avg and Dominant from Cells against total. A zero
// total yields zero percentages and average.
func (s *CategoryStats) derive(total int) {
	weighted := 0
	for i, c := range s.Cells {
		s.Pct[i] = finite(round2(float64(c) / float64(total) * 100))
		weighted += (i + 1) * c
	}
	s.Avg = finite(round2(float64(weighted) / float64(total)))
	s.Dominant = argmax(s.Cells) + 1
}

type CountySummary struct {
	Code     string
	Name     string
	Total    int
	Domestic int
	Public   int
	All      CategoryStats
	Dom      CategoryStats
	Pub      CategoryStats
}

// Stats reports rows that did not contribute to the summaries.
type Stats struct {
	Input      int
	NoCounty   int
	OutOfRange int
}

type groupKey struct {
	code string
	name string
}

// Aggregate groups cells by (county code, county name). Cells without a
// county code are dropped. Categories outside 1-4 count towards the totals
// but fall in no category bucket. The result is sorted by code, then name.
func Aggregate(cells []celltools.EnrichedCell) ([]CountySummary, Stats) {
	stats := Stats{Input: len(cells)}
	groups := make(map[groupKey]*CountySummary)

	for _, cell := range cells {
		if cell.CountyCode == "" {
			stats.NoCounty++
			continue
		}
		key := groupKey{cell.CountyCode, cell.CountyName}
		s, ok := groups[key]
		if !ok {
			s = &CountySummary{Code: cell.CountyCode, Name: cell.CountyName}
			groups[key] = s
		}
		s.Total++

		var subset *CategoryStats
		switch cell.WellType {
		case celltools.Domestic:
			s.Domestic++
			subset = &s.Dom
		case celltools.Public:
			s.Public++
			subset = &s.Pub
		default:
			logrus.Warnf("Unknown well type %q in county %s", cell.WellType, cell.CountyCode)
		}

		cat := cell.LithiumCategory
		if cat < 1 || cat > NumCategories {
			stats.OutOfRange++
			continue
		}
		s.All.Cells[cat-1]++
		if subset != nil {
			subset.Cells[cat-1]++
		}
	}

	if stats.OutOfRange > 0 {
		logrus.Warnf("%d cells have a category outside 1-%d", stats.OutOfRange, NumCategories)
	}
	logrus.WithFields(logrus.Fields{
		"input":     stats.Input,
		"no_county": stats.NoCounty,
		"counties":  len(groups),
	}).Info("Aggregated cells by county")

	out := make([]CountySummary, 0, len(groups))
	for _, s := range groups {
		s.All.derive(s.Total)
		s.Dom.derive(s.Domestic)
		s.Pub.derive(s.Public)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Name < out[j].Name
	})
	return out, stats
}

// round2 rounds to two decimals, ties to even.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// argmax returns the first index holding the largest count.
func argmax(counts [NumCategories]int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

// Columns is the header of the county summary table.
func Columns() []string {
	cols := []string{"county_code", "county_name", "total_grid_cells", "domestic_cells", "public_cells"}
	cols = append(cols, subsetColumns("")...)
	cols = append(cols, subsetColumns("dom_")...)
	return append(cols, subsetColumns("pub_")...)
}

func subsetColumns(prefix string) []string {
	var cols []string
	for i := 1; i <= NumCategories; i++ {
		cols = append(cols, prefix+"cells_cat_"+strconv.Itoa(i))
	}
	for i := 1; i <= NumCategories; i++ {
		cols = append(cols, prefix+"pct_cat_"+strconv.Itoa(i))
	}
	return append(cols, prefix+"avg_category", prefix+"dominant_category")
}

// Record renders the summary in Columns order.
func (s CountySummary) Record() []string {
	rec := []string{
		s.Code,
		s.Name,
		strconv.Itoa(s.Total),
		strconv.Itoa(s.Domestic),
		strconv.Itoa(s.Public),
	}
	for _, cs := range []CategoryStats{s.All, s.Dom, s.Pub} {
		rec = append(rec, cs.record()...)
	}
	return rec
}

func (s CategoryStats) record() []string {
	rec := make([]string, 0, 2*NumCategories+2)
	for _, c := range s.Cells {
		rec = append(rec, strconv.Itoa(c))
	}
	for _, p := range s.Pct {
		rec = append(rec, cellsio.FormatFloat(p))
	}
	return append(rec, cellsio.FormatFloat(s.Avg), strconv.Itoa(s.Dominant))
}

// WriteCSV writes the summaries with the Columns header.
func WriteCSV(summaries []CountySummary, path string) error {
	records := make([][]string, len(summaries))
	for i, s := range summaries {
		records[i] = s.Record()
	}
	return cellsio.WriteRecords(path, Columns(), records)
}

// TotalCells sums the cell totals across summaries.
func TotalCells(summaries []CountySummary) int {
	n := 0
	for _, s := range summaries {
		n += s.Total
	}
	return n
}

// Largest returns up to n summaries by descending total, ties by code.
func Largest(summaries []CountySummary, n int) []CountySummary {
	out := make([]CountySummary, len(summaries))
	copy(out, summaries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
