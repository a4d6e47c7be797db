package countyjoin

import (
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Mike-Morrow/Lithium-Analysis/celltools"
)

// BoundaryOptions names the attributes holding the county code and name.
type BoundaryOptions struct {
	CodeField string
	NameField string
}

func (o BoundaryOptions) withDefaults() BoundaryOptions {
	if o.CodeField == "" {
		o.CodeField = "GEOID"
	}
	if o.NameField == "" {
		o.NameField = "NAME"
	}
	return o
}

// LoadCounties reads a county boundary file and returns its polygons in
// WGS84, in file order. Shapefiles are read directly; other formats go
// through OGR.
func LoadCounties(path string, opts BoundaryOptions) ([]County, error) {
	if err := celltools.RequireFile(path); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	var (
		counties []County
		wkt      string
		err      error
	)
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		counties, wkt, err = readShapefile(path, opts)
	} else {
		counties, wkt, err = readOGR(path, opts)
	}
	if err != nil {
		return nil, err
	}
	if err := countiesToWGS84(counties, wkt); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"path":     path,
		"counties": len(counties),
	}).Info("Loaded county boundaries")
	return counties, nil
}

// countiesToWGS84 reprojects every polygon vertex in one batch when wkt
// names a reference system other than EPSG:4326.
func countiesToWGS84(counties []County, wkt string) error {
	src, err := celltools.SpatialRefFromWKT(wkt)
	if err != nil {
		return err
	}
	if src == nil {
		return nil
	}
	defer src.Close()

	same, err := celltools.IsWGS84(src)
	if err != nil {
		return err
	}
	if same {
		return nil
	}

	var xs, ys []float64
	for _, c := range counties {
		flat := c.Geom.FlatCoords()
		for i := 0; i+1 < len(flat); i += 2 {
			xs = append(xs, flat[i])
			ys = append(ys, flat[i+1])
		}
	}
	logrus.Infof("Reprojecting %d boundary vertices to WGS84 (EPSG:4326)", len(xs))
	if err := celltools.ReprojectToWGS84(src, xs, ys); err != nil {
		return err
	}

	k := 0
	for _, c := range counties {
		flat := c.Geom.FlatCoords()
		for i := 0; i+1 < len(flat); i += 2 {
			flat[i], flat[i+1] = xs[k], ys[k]
			k++
		}
	}
	return nil
}
