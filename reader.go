package pointcloud

import (
	"fmt"
	"math"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

// Reader provides read access to a FlatGeobuf file of points.
type Reader struct {
	fgb *flatgeobuf.FlatGeoBuf
}

// NewReader creates a reader from a file path.
// The file is memory-mapped for efficient access.
func NewReader(path string) (*Reader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}

	return &Reader{fgb: fgb}, nil
}

// NewReaderFromData creates a reader from byte data.
func NewReaderFromData(data []byte) (*Reader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, err
	}

	return &Reader{fgb: fgb}, nil
}

// Header returns metadata about the FlatGeobuf file.
func (r *Reader) Header() *Header {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	header := &Header{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
	}

	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{
			h.Envelope(0),
			h.Envelope(1),
			h.Envelope(2),
			h.Envelope(3),
		}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	colLen := h.ColumnsLength()
	if colLen > 0 {
		header.Columns = make([]ColumnInfo, 0, colLen)
		for i := 0; i < colLen; i++ {
			var col flattypes.Column
			if h.Columns(&col, i) {
				header.Columns = append(header.Columns, ColumnInfo{
					Name:        string(col.Name()),
					Type:        flattypes.EnumNamesColumnType[col.Type()],
					Title:       string(col.Title()),
					Description: string(col.Description()),
					Nullable:    col.Nullable(),
				})
			}
		}
	}

	return header
}

// ReadPatch reads every point feature into a new patch of schema s. X and Y
// come from the geometry; other dimensions are matched to numeric columns by
// name and default to zero. Features are returned in spatial index order.
func (r *Reader) ReadPatch(s *Schema) (*Patch, error) {
	return r.SearchPatch(s, orb.Bound{
		Min: orb.Point{-math.MaxFloat64, -math.MaxFloat64},
		Max: orb.Point{math.MaxFloat64, math.MaxFloat64},
	})
}

// SearchPatch reads the point features intersecting bounds into a new patch of
// schema s, using the file's spatial index.
func (r *Reader) SearchPatch(s *Schema, bounds orb.Bound) (*Patch, error) {
	if s.xPosition == noPosition || s.yPosition == noPosition {
		return nil, fmt.Errorf("%w: schema %d", ErrNoSpatialDimension, s.info.PCID)
	}
	h := r.fgb.Header()
	if h == nil {
		return nil, ErrInvalidData
	}
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}

	features, err := r.fgb.Search(bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1])
	if err != nil {
		return nil, err
	}

	p := MakePatch(s)
	values := make([]float64, len(s.dims))
	for _, fgbFeature := range features {
		if !featureValues(s, fgbFeature, h, values) {
			continue
		}
		if err := p.addDoubles(values); err != nil {
			p.Free()
			return nil, err
		}
	}
	return p, nil
}

// featureValues fills values from a FlatGeobuf point feature. It reports false
// for features without a point geometry.
func featureValues(s *Schema, fgbFeature *flattypes.Feature, header *flattypes.Header, values []float64) bool {
	if fgbFeature == nil {
		return false
	}

	var geomObj flattypes.Geometry
	op, ok := pointFromFGB(fgbFeature.Geometry(&geomObj))
	if !ok {
		return false
	}

	var props map[string]float64
	propsLen := fgbFeature.PropertiesLength()
	if propsLen > 0 && header.ColumnsLength() > 0 {
		propsBytes := make([]byte, propsLen)
		for i := 0; i < propsLen; i++ {
			propsBytes[i] = byte(fgbFeature.Properties(i))
		}
		props = decodeProperties(propsBytes, header)
	}

	for j, d := range s.dims {
		switch j {
		case s.xPosition:
			values[j] = op[0]
		case s.yPosition:
			values[j] = op[1]
		default:
			values[j] = props[d.Name]
		}
	}
	return true
}

// Close releases resources associated with the reader.
// This is important for memory-mapped files.
func (r *Reader) Close() error {
	// The FlatGeoBuf type doesn't expose a public Close method,
	// but the finalizer will clean up when garbage collected.
	// Setting to nil allows GC to collect it.
	r.fgb = nil
	return nil
}
