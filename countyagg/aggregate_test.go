package countyagg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mike-Morrow/Lithium-Analysis/celltools"
)

func enriched(code, name string, wt celltools.WellType, cats ...int) []celltools.EnrichedCell {
	out := make([]celltools.EnrichedCell, len(cats))
	for i, c := range cats {
		out[i] = celltools.EnrichedCell{
			GridCell:   celltools.GridCell{WellType: wt, LithiumCategory: c},
			CountyCode: code,
			CountyName: name,
		}
	}
	return out
}

func TestAggregate_SingleCountyScenario(t *testing.T) {
	var cells []celltools.EnrichedCell
	cells = append(cells, enriched("06029", "Kern", celltools.Domestic, 1, 1, 2, 4)...)
	cells = append(cells, enriched("06029", "Kern", celltools.Public, 2, 3, 3, 3)...)

	summaries, stats := Aggregate(cells)
	require.Len(t, summaries, 1)
	s := summaries[0]

	assert.Equal(t, 8, s.Total)
	assert.Equal(t, 4, s.Domestic)
	assert.Equal(t, 4, s.Public)
	assert.Equal(t, [NumCategories]int{2, 2, 3, 1}, s.All.Cells)
	assert.Equal(t, [NumCategories]float64{25, 25, 37.5, 12.5}, s.All.Pct)
	assert.Equal(t, 2.38, s.All.Avg) // 19/8 = 2.375, ties to even
	assert.Equal(t, 3, s.All.Dominant)

	assert.Equal(t, [NumCategories]int{2, 1, 0, 1}, s.Dom.Cells)
	assert.Equal(t, [NumCategories]float64{50, 25, 0, 25}, s.Dom.Pct)
	assert.Equal(t, 2.0, s.Dom.Avg)
	assert.Equal(t, 1, s.Dom.Dominant)

	assert.Equal(t, [NumCategories]int{0, 1, 3, 0}, s.Pub.Cells)
	assert.Equal(t, 2.75, s.Pub.Avg)
	assert.Equal(t, 3, s.Pub.Dominant)

	assert.Equal(t, Stats{Input: 8}, stats)
}

func TestAggregate_DropsCellsWithoutCounty(t *testing.T) {
	var cells []celltools.EnrichedCell
	cells = append(cells, enriched("", "", celltools.Domestic, 1, 2)...)
	cells = append(cells, enriched("48001", "Anderson", celltools.Domestic, 2)...)

	summaries, stats := Aggregate(cells)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, stats.NoCounty)
	assert.Equal(t, 1, summaries[0].Total)
}

func TestAggregate_ZeroSubsetNormalisedToZero(t *testing.T) {
	summaries, _ := Aggregate(enriched("01001", "Autauga", celltools.Domestic, 3, 3))
	require.Len(t, summaries, 1)
	pub := summaries[0].Pub

	assert.Equal(t, 0, summaries[0].Public)
	assert.Equal(t, [NumCategories]float64{}, pub.Pct)
	assert.Equal(t, 0.0, pub.Avg)
	assert.Equal(t, 1, pub.Dominant)
}

func TestAggregate_OutOfRangeCategory(t *testing.T) {
	summaries, stats := Aggregate(enriched("01001", "Autauga", celltools.Public, 2, 7))
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, stats.OutOfRange)
	assert.Equal(t, 2, summaries[0].Total)
	assert.Equal(t, 1, summaries[0].All.Total())
	assert.Equal(t, 50.0, summaries[0].All.Pct[1])
}

func TestAggregate_SortedByCodeAndGroupedByName(t *testing.T) {
	var cells []celltools.EnrichedCell
	cells = append(cells, enriched("53033", "King", celltools.Public, 1)...)
	cells = append(cells, enriched("01001", "Autauga", celltools.Public, 1)...)
	cells = append(cells, enriched("06037", "Los Angeles", celltools.Domestic, 4, 4)...)

	summaries, _ := Aggregate(cells)
	require.Len(t, summaries, 3)
	assert.Equal(t, "01001", summaries[0].Code)
	assert.Equal(t, "06037", summaries[1].Code)
	assert.Equal(t, "53033", summaries[2].Code)

	top := Largest(summaries, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "Los Angeles", top[0].Name)
	assert.Equal(t, 4, TotalCells(summaries))
}

func TestPercentagesSumToHundred(t *testing.T) {
	summaries, _ := Aggregate(enriched("01001", "Autauga", celltools.Domestic, 1, 2, 2, 3, 3, 3, 4))
	sum := 0.0
	for _, p := range summaries[0].All.Pct {
		sum += p
	}
	assert.InDelta(t, 100.0, sum, 0.05)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 2.38, round2(2.375))
	assert.Equal(t, 33.33, round2(100.0/3))
	assert.Equal(t, 0.0, round2(0))
}

func TestArgmaxFirstOnTies(t *testing.T) {
	assert.Equal(t, 1, argmax([NumCategories]int{1, 3, 3, 0}))
	assert.Equal(t, 0, argmax([NumCategories]int{}))
}

func TestColumns(t *testing.T) {
	cols := Columns()
	assert.Len(t, cols, 35)
	assert.Equal(t, "county_code", cols[0])
	assert.Equal(t, "dominant_category", cols[14])
	assert.Equal(t, "dom_cells_cat_1", cols[15])
	assert.Equal(t, "pub_dominant_category", cols[34])
}

func TestWriteCSV(t *testing.T) {
	summaries, _ := Aggregate(enriched("06029", "Kern", celltools.Domestic, 1, 2))
	path := filepath.Join(t.TempDir(), "agg.csv")
	require.NoError(t, WriteCSV(summaries, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(Columns(), ","), lines[0])
	assert.Equal(t,
		"06029,Kern,2,2,0,1,1,0,0,50.0,50.0,0.0,0.0,1.5,1,1,1,0,0,50.0,50.0,0.0,0.0,1.5,1,0,0,0,0,0.0,0.0,0.0,0.0,0.0,1",
		lines[1])
}
