package pointcloud

import (
	"fmt"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Bound converts the box to an orb.Bound.
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.XMin, b.YMin},
		Max: orb.Point{b.XMax, b.YMax},
	}
}

// BoundsFromOrb converts an orb.Bound to a Bounds.
func BoundsFromOrb(b orb.Bound) Bounds {
	return Bounds{XMin: b.Min[0], XMax: b.Max[0], YMin: b.Min[1], YMax: b.Max[1]}
}

// Bound returns the patch's bounding box as an orb.Bound.
func (p *Patch) Bound() orb.Bound {
	return p.bounds.Bound()
}

// OrbPoint returns the point's X/Y position.
func (pt *Point) OrbPoint() (orb.Point, error) {
	x, y, err := pt.XY()
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{x, y}, nil
}

// MultiPoint returns the X/Y positions of every point in the patch.
func (p *Patch) MultiPoint() (orb.MultiPoint, error) {
	mp := make(orb.MultiPoint, 0, p.npoints)
	for i := 0; i < p.npoints; i++ {
		pt, err := p.Point(i)
		if err != nil {
			return nil, err
		}
		op, err := pt.OrbPoint()
		if err != nil {
			return nil, err
		}
		mp = append(mp, op)
	}
	return mp, nil
}

// FeatureCollection converts the patch to GeoJSON: one Point feature per
// point, every other dimension stored as a numeric property.
func (p *Patch) FeatureCollection() (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	if p.npoints > 0 {
		fc.BBox = geojson.NewBBox(p.Bound())
	}
	s := p.schema
	for i := 0; i < p.npoints; i++ {
		pt, err := p.Point(i)
		if err != nil {
			return nil, err
		}
		values := pt.Doubles()
		f := geojson.NewFeature(orb.Point{values[s.xPosition], values[s.yPosition]})
		for j, d := range s.dims {
			if j == s.xPosition || j == s.yPosition {
				continue
			}
			f.Properties[d.Name] = values[j]
		}
		fc.Append(f)
	}
	return fc, nil
}

// PatchFromFeatureCollection builds a patch of schema s from Point features.
// Dimensions other than X and Y are read from properties of the same name;
// missing properties are stored as zero.
func PatchFromFeatureCollection(s *Schema, fc *geojson.FeatureCollection) (*Patch, error) {
	if s.xPosition == noPosition || s.yPosition == noPosition {
		return nil, fmt.Errorf("%w: schema %d", ErrNoSpatialDimension, s.info.PCID)
	}
	p := MakePatch(s)
	values := make([]float64, len(s.dims))
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue // Skip nil features/geometries
		}
		op, ok := f.Geometry.(orb.Point)
		if !ok {
			p.Free()
			return nil, fmt.Errorf("%w: feature %d is a %s", ErrUnsupportedGeometry, i, f.Geometry.GeoJSONType())
		}
		for j, d := range s.dims {
			switch j {
			case s.xPosition:
				values[j] = op[0]
			case s.yPosition:
				values[j] = op[1]
			default:
				v, _ := toFloat64(f.Properties[d.Name])
				values[j] = v
			}
		}
		if err := p.addDoubles(values); err != nil {
			p.Free()
			return nil, err
		}
	}
	return p, nil
}

// addDoubles appends a point built from values without keeping the point.
func (p *Patch) addDoubles(values []float64) error {
	pt, err := PointFromDoubles(p.schema, values)
	if err != nil {
		return err
	}
	defer pt.Free()
	return p.AddPoint(pt)
}

// pointToFGB converts an X/Y position to a FlatGeobuf writer.Geometry.
func pointToFGB(x, y float64, builder *flatbuffers.Builder) *writer.Geometry {
	g := writer.NewGeometry(builder)
	g.SetType(flattypes.GeometryTypePoint)
	g.SetXY([]float64{x, y})
	return g
}

// pointFromFGB reads the X/Y position of a FlatGeobuf point geometry.
func pointFromFGB(fgbGeom *flattypes.Geometry) (orb.Point, bool) {
	if fgbGeom == nil || fgbGeom.XyLength() < 2 {
		return orb.Point{}, false
	}
	return orb.Point{fgbGeom.Xy(0), fgbGeom.Xy(1)}, true
}
