package celltools

import (
	"sort"
)

// WellType tags which well survey a grid cell was read from.
type WellType string

const (
	Domestic WellType = "domestic"
	Public   WellType = "public"
)

// GridCell is one valid raster pixel: its centre in WGS84 and its
// lithium class.
type GridCell struct {
	Longitude       float64  `parquet:"longitude"`
	Latitude        float64  `parquet:"latitude"`
	WellType        WellType `parquet:"well_type"`
	LithiumCategory int      `parquet:"lithium_category"`
}

// EnrichedCell is a GridCell with the county it falls in. CountyCode and
// CountyName are empty when no county contains the cell.
type EnrichedCell struct {
	GridCell
	CountyCode string
	CountyName string
}

// Layer is one categorical raster and the well type its cells carry.
type Layer struct {
	Path     string
	WellType WellType
}

// SortCells orders cells by latitude then longitude. The sort is stable so
// cells at the same coordinate keep their layer order.
func SortCells(cells []GridCell) {
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].Latitude != cells[j].Latitude {
			return cells[i].Latitude < cells[j].Latitude
		}
		return cells[i].Longitude < cells[j].Longitude
	})
}
