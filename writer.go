package pointcloud

import (
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

// WritePatch writes the points of p to FlatGeobuf as Point features. X and Y
// become the geometry; every other dimension becomes a Double property
// holding its scaled value.
func WritePatch(w io.Writer, p *Patch, opts *WriterOptions) error {
	if opts == nil {
		opts = DefaultWriterOptions()
	}
	if p == nil || p.npoints == 0 {
		return ErrEmptyInput
	}

	s := p.schema
	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetGeometryType(flattypes.GeometryTypePoint)

	if opts.Name != "" {
		header.SetName(opts.Name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}

	positions := propertyDimensions(s)
	if len(positions) > 0 {
		header.SetColumns(schemaColumns(s, positions, builder))
	}

	crsInfo := opts.CRS
	if crsInfo == nil {
		crsInfo = crsFromSRID(s.info.SRID)
	}
	if crsInfo != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG") // Default organization
		if crsInfo.Code > 0 {
			crs.SetCode(int32(crsInfo.Code))
		}
		if crsInfo.Name != "" {
			crs.SetName(crsInfo.Name)
		}
		if crsInfo.Description != "" {
			crs.SetDescription(crsInfo.Description)
		}
		// WKT can be stored in description if needed
		if crsInfo.WKT != "" && crsInfo.Description == "" {
			crs.SetDescription(crsInfo.WKT)
		}
		header.SetCrs(crs)
	}

	gen := &patchFeatureGenerator{
		patch:     p,
		positions: positions,
	}

	fgbWriter := writer.NewWriter(header, opts.IncludeIndex, gen, nil)
	_, err := fgbWriter.Write(w)
	if err == nil {
		s.log.WithField("points", p.npoints).Debug("patch written as flatgeobuf")
	}
	return err
}

// patchFeatureGenerator generates one feature per point of a patch.
type patchFeatureGenerator struct {
	patch     *Patch
	positions []int
	index     int
}

// Generate returns the next point as a feature, or nil when done.
func (g *patchFeatureGenerator) Generate() *writer.Feature {
	if g.index >= g.patch.npoints {
		return nil
	}

	pt, err := g.patch.Point(g.index)
	g.index++
	if err != nil {
		return nil
	}

	s := g.patch.schema
	values := pt.Doubles()

	builder := flatbuffers.NewBuilder(1024)
	feature := writer.NewFeature(builder)
	feature.SetGeometry(pointToFGB(values[s.xPosition], values[s.yPosition], builder))

	if props := encodeProperties(values, g.positions); len(props) > 0 {
		feature.SetProperties(props)
	}

	return feature
}
