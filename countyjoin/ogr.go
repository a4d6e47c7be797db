package countyjoin

import (
	"errors"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

var registerOnce sync.Once

// readOGR reads county polygons from any vector format GDAL can open
// (GeoJSON, GeoPackage, ...). Only the first layer is used.
func readOGR(path string, opts BoundaryOptions) (counties []County, wkt string, err error) {
	registerOnce.Do(godal.RegisterAll)

	ds, err := godal.Open(path, godal.VectorOnly())
	if err != nil {
		return nil, "", eris.Wrapf(err, "countyjoin: open vector %s", path)
	}
	defer func() {
		err = errors.Join(err, ds.Close())
	}()

	layers := ds.Layers()
	if len(layers) == 0 {
		return nil, "", eris.Errorf("countyjoin: %s has no layers", path)
	}
	layer := layers[0]
	wkt = layerWKT(layer)
	if wkt == "" {
		logrus.Warnf("%s has no spatial reference, assuming WGS84", path)
	}

	skipped := 0
	for {
		feat := layer.NextFeature()
		if feat == nil {
			break
		}
		county, ok, err := featureToCounty(feat, opts)
		feat.Close()
		if err != nil {
			return nil, "", eris.Wrapf(err, "countyjoin: read %s", path)
		}
		if !ok {
			skipped++
			continue
		}
		counties = append(counties, county)
	}
	if skipped > 0 {
		logrus.Warnf("Skipped %d non-polygon features in %s", skipped, path)
	}
	return counties, wkt, nil
}

// layerWKT returns the layer's spatial reference as WKT, or "" when the
// layer has none.
func layerWKT(layer godal.Layer) string {
	srs := layer.SpatialRef()
	defer srs.Close()
	wkt, err := srs.WKT()
	if err != nil {
		logrus.Debugf("No exportable spatial reference: %v", err)
		return ""
	}
	return strings.TrimSpace(wkt)
}

func featureToCounty(feat *godal.Feature, opts BoundaryOptions) (County, bool, error) {
	var county County
	codeFound, nameFound := false, false
	for name, field := range feat.Fields() {
		switch {
		case strings.EqualFold(name, opts.CodeField):
			county.Code, codeFound = strings.TrimSpace(field.String()), true
		case strings.EqualFold(name, opts.NameField):
			county.Name, nameFound = strings.TrimSpace(field.String()), true
		}
	}
	if !codeFound || !nameFound {
		return County{}, false, eris.Errorf("feature has no %q or %q field", opts.CodeField, opts.NameField)
	}

	g := feat.Geometry()
	defer g.Close()
	// null geometries come back as an empty wrapper
	if g.Empty() {
		return County{}, false, nil
	}
	raw, err := g.WKB()
	if err != nil {
		return County{}, false, eris.Wrap(err, "export feature geometry")
	}
	t, err := wkb.Unmarshal(raw)
	if err != nil {
		return County{}, false, eris.Wrap(err, "decode feature geometry")
	}

	switch gt := t.(type) {
	case *geom.Polygon:
		county.Geom = geom.NewMultiPolygon(geom.XY)
		if err := county.Geom.Push(flatten2D(gt)); err != nil {
			return County{}, false, eris.Wrap(err, "build multipolygon")
		}
	case *geom.MultiPolygon:
		county.Geom = geom.NewMultiPolygon(geom.XY)
		for i := 0; i < gt.NumPolygons(); i++ {
			if err := county.Geom.Push(flatten2D(gt.Polygon(i))); err != nil {
				return County{}, false, eris.Wrap(err, "build multipolygon")
			}
		}
	default:
		return County{}, false, nil
	}
	return county, true, nil
}

// flatten2D drops any Z or M ordinates so every county shares the XY
// layout.
func flatten2D(p *geom.Polygon) *geom.Polygon {
	out := geom.NewPolygon(geom.XY)
	stride := p.Stride()
	for i := 0; i < p.NumLinearRings(); i++ {
		src := p.LinearRing(i).FlatCoords()
		flat := make([]float64, 0, 2*len(src)/stride)
		for j := 0; j+1 < len(src); j += stride {
			flat = append(flat, src[j], src[j+1])
		}
		_ = out.Push(geom.NewLinearRingFlat(geom.XY, flat))
	}
	return out
}
