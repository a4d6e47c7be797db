package countyjoin

import (
	"math"
	"sort"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/sirupsen/logrus"
)

// boundsPad widens county bounding boxes so points on their edge still
// reach the exact test.
const boundsPad = 1e-7

// IndexOpts bounds the s2 coverings built for each county.
type IndexOpts struct {
	MaxLevel int
	MaxCells int
}

// Index maps s2 cells to the counties whose bounding box they cover.
// Lookups return candidates; containment is decided by County.Contains.
type Index struct {
	counties []County
	cells    map[s2.CellID][]int
	levels   []int
}

func NewIndex(counties []County, opts IndexOpts) *Index {
	if opts.MaxLevel <= 0 || opts.MaxLevel > s2.MaxLevel {
		opts.MaxLevel = 10
	}
	if opts.MaxCells <= 0 {
		opts.MaxCells = 16
	}
	coverer := &s2.RegionCoverer{MinLevel: 0, MaxLevel: opts.MaxLevel, LevelMod: 1, MaxCells: opts.MaxCells}

	idx := &Index{counties: counties, cells: make(map[s2.CellID][]int)}
	seen := make(map[int]bool)
	for i, c := range counties {
		rect, ok := boundingRect(c)
		if !ok {
			continue
		}
		for _, cell := range coverer.Covering(rect) {
			idx.cells[cell] = append(idx.cells[cell], i)
			seen[cell.Level()] = true
		}
	}
	for level := range seen {
		idx.levels = append(idx.levels, level)
	}
	sort.Ints(idx.levels)

	logrus.WithFields(logrus.Fields{
		"counties": len(counties),
		"cells":    len(idx.cells),
		"levels":   idx.levels,
	}).Debug("Built county index")
	return idx
}

func boundingRect(c County) (s2.Rect, bool) {
	if c.Geom == nil || c.Geom.Empty() {
		return s2.Rect{}, false
	}
	b := c.Geom.Bounds()
	minLng, minLat := b.Min(0)-boundsPad, b.Min(1)-boundsPad
	maxLng, maxLat := b.Max(0)+boundsPad, b.Max(1)+boundsPad
	// endpoints keep the planar west-to-east span, even past 180 degrees wide
	rect := s2.Rect{
		Lat: r1.Interval{Lo: radians(math.Max(minLat, -90)), Hi: radians(math.Min(maxLat, 90))},
		Lng: s1.IntervalFromEndpoints(radians(math.Max(minLng, -180)), radians(math.Min(maxLng, 180))),
	}
	return rect, true
}

func radians(deg float64) float64 { return (s1.Angle(deg) * s1.Degree).Radians() }

// Candidates returns the indices of counties whose covering holds the
// point, in ascending (file) order.
func (idx *Index) Candidates(lng, lat float64) []int {
	leaf := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lng))
	var out []int
	for _, level := range idx.levels {
		out = append(out, idx.cells[leaf.Parent(level)]...)
	}
	if len(out) < 2 {
		return out
	}
	sort.Ints(out)
	uniq := out[:1]
	for _, v := range out[1:] {
		if v != uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	return uniq
}

// Locate returns the first county, in file order, strictly containing the
// point.
func (idx *Index) Locate(lng, lat float64) (County, bool) {
	for _, i := range idx.Candidates(lng, lat) {
		if idx.counties[i].Contains(lng, lat) {
			return idx.counties[i], true
		}
	}
	return County{}, false
}
