package celltools

import (
	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const WGS84 = 4326

func wgs84SpatialRef() (*godal.SpatialRef, error) {
	srs, err := godal.NewSpatialRefFromEPSG(WGS84)
	if err != nil {
		return nil, eris.Wrap(err, "celltools: EPSG:4326 spatial ref")
	}
	return srs, nil
}

// SpatialRefFromWKT parses a WKT spatial reference. An empty string yields
// a nil SpatialRef and no error.
func SpatialRefFromWKT(wkt string) (*godal.SpatialRef, error) {
	if wkt == "" {
		return nil, nil
	}
	srs, err := godal.NewSpatialRefFromWKT(wkt)
	if err != nil {
		return nil, eris.Wrap(err, "celltools: parse spatial ref")
	}
	return srs, nil
}

// IsWGS84 reports whether srs is equivalent to EPSG:4326.
func IsWGS84(srs *godal.SpatialRef) (bool, error) {
	wgs84, err := wgs84SpatialRef()
	if err != nil {
		return false, err
	}
	defer wgs84.Close()
	return srs.IsSame(wgs84), nil
}

// ReprojectToWGS84 transforms the coordinate pairs (xs[i], ys[i]) in place
// from src to longitude/latitude.
func ReprojectToWGS84(src *godal.SpatialRef, xs, ys []float64) error {
	if len(xs) != len(ys) {
		return eris.Errorf("celltools: reproject %d x values against %d y values", len(xs), len(ys))
	}
	if len(xs) == 0 {
		return nil
	}

	dst, err := wgs84SpatialRef()
	if err != nil {
		return err
	}
	defer dst.Close()

	trn, err := godal.NewTransform(src, dst)
	if err != nil {
		return eris.Wrap(err, "celltools: create transform to EPSG:4326")
	}
	defer trn.Close()

	if err := trn.TransformEx(xs, ys, nil, nil); err != nil {
		return eris.Wrap(err, "celltools: transform to EPSG:4326")
	}
	return nil
}

// cellsToWGS84 reprojects cell centres in one batch when the raster's
// reference system is projected. Rasters without a reference system, or
// with a geographic one, keep their native coordinates.
func cellsToWGS84(ds *godal.Dataset, cells []GridCell) error {
	src, err := SpatialRefFromWKT(ds.Projection())
	if err != nil {
		return err
	}
	if src == nil {
		logrus.Warn("Raster has no spatial reference, keeping native coordinates")
		return nil
	}
	defer src.Close()

	if src.Geographic() {
		return nil
	}

	logrus.Infof("Converting %d cells to WGS84 (EPSG:4326)", len(cells))
	xs := make([]float64, len(cells))
	ys := make([]float64, len(cells))
	for i, cell := range cells {
		xs[i], ys[i] = cell.Longitude, cell.Latitude
	}
	if err := ReprojectToWGS84(src, xs, ys); err != nil {
		return err
	}
	for i := range cells {
		cells[i].Longitude, cells[i].Latitude = xs[i], ys[i]
	}
	return nil
}
