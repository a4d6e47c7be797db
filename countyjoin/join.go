package countyjoin

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/Mike-Morrow/Lithium-Analysis/celltools"
)

// CountyCount is the number of cells assigned to one county.
type CountyCount struct {
	Code  string
	Name  string
	Cells int
}

type JoinStats struct {
	Matched   int
	Unmatched int
	byCounty  map[string]*CountyCount
}

func (s JoinStats) Total() int { return s.Matched + s.Unmatched }

// MatchedPct is the share of matched cells as a percentage, 0 for an empty
// join.
func (s JoinStats) MatchedPct() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Total()) * 100
}

func (s JoinStats) UnmatchedPct() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Unmatched) / float64(s.Total()) * 100
}

// TopCounties returns up to n counties by descending cell count, ties by
// code.
func (s JoinStats) TopCounties(n int) []CountyCount {
	out := make([]CountyCount, 0, len(s.byCounty))
	for _, c := range s.byCounty {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cells != out[j].Cells {
			return out[i].Cells > out[j].Cells
		}
		return out[i].Code < out[j].Code
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Join assigns each cell to the county that strictly contains it. Output
// order and length match the input; unmatched cells carry empty county
// fields.
func Join(cells []celltools.GridCell, idx *Index) ([]celltools.EnrichedCell, JoinStats) {
	stats := JoinStats{byCounty: make(map[string]*CountyCount)}
	out := make([]celltools.EnrichedCell, len(cells))
	for i, cell := range cells {
		out[i].GridCell = cell
		county, ok := idx.Locate(cell.Longitude, cell.Latitude)
		if !ok {
			stats.Unmatched++
			continue
		}
		stats.Matched++
		out[i].CountyCode = county.Code
		out[i].CountyName = county.Name

		cc, ok := stats.byCounty[county.Code]
		if !ok {
			cc = &CountyCount{Code: county.Code, Name: county.Name}
			stats.byCounty[county.Code] = cc
		}
		cc.Cells++
	}

	logrus.WithFields(logrus.Fields{
		"matched":   stats.Matched,
		"unmatched": stats.Unmatched,
	}).Info("Spatial join complete")
	return out, stats
}
