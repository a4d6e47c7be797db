// Package countyjoin assigns grid cells to the county polygon that contains
// them.
package countyjoin

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// County is one boundary polygon in WGS84 longitude/latitude.
type County struct {
	Code string
	Name string
	Geom *geom.MultiPolygon
}

// Contains reports whether the point lies strictly within the county: in
// the interior of an outer ring and in the exterior of every hole of that
// polygon. Points on a boundary are not contained.
func (c County) Contains(lng, lat float64) bool {
	if c.Geom == nil {
		return false
	}
	pt := geom.Coord{lng, lat}
	for i := 0; i < c.Geom.NumPolygons(); i++ {
		if polygonContains(c.Geom.Polygon(i), pt) {
			return true
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, pt geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	layout := p.Layout()
	if xy.LocatePointInRing(layout, pt, p.LinearRing(0).FlatCoords()) != location.Interior {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.LocatePointInRing(layout, pt, p.LinearRing(i).FlatCoords()) != location.Exterior {
			return false
		}
	}
	return true
}

// ringsToMultiPolygon groups closed rings into polygons. Clockwise rings are
// shells and counter-clockwise rings are holes, as in the shapefile format;
// each hole goes to the first shell that contains its first vertex. When no
// ring is clockwise, or a hole has no shell, the ring is used as a shell.
func ringsToMultiPolygon(rings [][]float64) *geom.MultiPolygon {
	var shells, holes [][]float64
	for _, ring := range rings {
		ring = closeRing(ring)
		if len(ring) < 8 {
			continue
		}
		if xy.IsRingCounterClockwise(geom.XY, ring) {
			holes = append(holes, ring)
		} else {
			shells = append(shells, ring)
		}
	}
	if len(shells) == 0 {
		shells, holes = holes, nil
	}

	polys := make([]*geom.Polygon, len(shells))
	for i, shell := range shells {
		polys[i] = geom.NewPolygon(geom.XY)
		_ = polys[i].Push(geom.NewLinearRingFlat(geom.XY, shell))
	}
	for _, hole := range holes {
		first := geom.Coord{hole[0], hole[1]}
		placed := false
		for i, shell := range shells {
			if xy.LocatePointInRing(geom.XY, first, shell) != location.Exterior {
				_ = polys[i].Push(geom.NewLinearRingFlat(geom.XY, hole))
				placed = true
				break
			}
		}
		if !placed {
			p := geom.NewPolygon(geom.XY)
			_ = p.Push(geom.NewLinearRingFlat(geom.XY, hole))
			polys = append(polys, p)
		}
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for _, p := range polys {
		_ = mp.Push(p)
	}
	return mp
}

// closeRing appends the first vertex when the ring is open.
func closeRing(ring []float64) []float64 {
	n := len(ring)
	if n < 4 {
		return ring
	}
	if ring[0] != ring[n-2] || ring[1] != ring[n-1] {
		closed := make([]float64, n, n+2)
		copy(closed, ring)
		return append(closed, ring[0], ring[1])
	}
	return ring
}
