package countyjoin

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// readShapefile reads county polygons from an ESRI shapefile. Coordinates
// are returned in the file's native reference system, which is described
// by the returned WKT (empty when there is no .prj).
func readShapefile(path string, opts BoundaryOptions) ([]County, string, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, "", eris.Wrapf(err, "countyjoin: open shapefile %s", path)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	fields := reader.Fields()
	codeIdx, err := fieldIndex(fields, opts.CodeField, path)
	if err != nil {
		return nil, "", err
	}
	nameIdx, err := fieldIndex(fields, opts.NameField, path)
	if err != nil {
		return nil, "", err
	}

	var counties []County
	skipped := 0
	for reader.Next() {
		n, shape := reader.Shape()
		rings := shapeRings(shape)
		if rings == nil {
			skipped++
			logrus.Debugf("Skipping shape %d of type %T", n, shape)
			continue
		}
		counties = append(counties, County{
			Code: strings.TrimSpace(reader.Attribute(codeIdx)),
			Name: strings.TrimSpace(reader.Attribute(nameIdx)),
			Geom: ringsToMultiPolygon(rings),
		})
	}
	if err := reader.Err(); err != nil {
		return nil, "", eris.Wrapf(err, "countyjoin: read shapefile %s", path)
	}
	if skipped > 0 {
		logrus.Warnf("Skipped %d non-polygon shapes in %s", skipped, path)
	}

	wkt, err := readPrj(path)
	if err != nil {
		return nil, "", err
	}
	return counties, wkt, nil
}

func fieldIndex(fields []shp.Field, name, path string) (int, error) {
	for i, f := range fields {
		if strings.EqualFold(f.String(), name) {
			return i, nil
		}
	}
	return -1, eris.Errorf("countyjoin: %s has no %q attribute", path, name)
}

// shapeRings splits a polygon shape into flat XY rings, one per part. It
// returns nil for shapes that are not polygons.
func shapeRings(shape shp.Shape) [][]float64 {
	var parts []int32
	var points []shp.Point
	switch s := shape.(type) {
	case *shp.Polygon:
		parts, points = s.Parts, s.Points
	case *shp.PolygonZ:
		parts, points = s.Parts, s.Points
	case *shp.PolygonM:
		parts, points = s.Parts, s.Points
	default:
		return nil
	}

	rings := make([][]float64, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || end > int32(len(points)) {
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for _, p := range points[start:end] {
			flat = append(flat, p.X, p.Y)
		}
		rings = append(rings, flat)
	}
	return rings
}

// readPrj returns the WKT in the shapefile's sibling .prj file, or "" when
// there is none.
func readPrj(path string) (string, error) {
	prj := strings.TrimSuffix(path, path[len(path)-4:]) + ".prj"
	data, err := os.ReadFile(prj)
	if os.IsNotExist(err) {
		logrus.Warnf("%s has no .prj, assuming WGS84", path)
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "countyjoin: read %s", prj)
	}
	return strings.TrimSpace(string(data)), nil
}
