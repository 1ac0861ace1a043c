package pointcloud

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Point is one row of a schema. The schema is borrowed and must outlive the
// point. Mutation is not synchronized.
type Point struct {
	schema *Schema
	store  rowStore
}

// MakePoint allocates a zero-filled, writable point.
func MakePoint(s *Schema) (*Point, error) {
	buf, err := s.alloc.Alloc(s.size)
	if err != nil {
		return nil, err
	}
	return &Point{schema: s, store: ownedRows(buf)}, nil
}

// PointFromData wraps data as a read-only point without copying it.
func PointFromData(s *Schema, data []byte) (*Point, error) {
	if len(data) != s.size {
		return nil, fmt.Errorf("%w: point data is %d bytes, schema %d is %d", ErrLengthMismatch, len(data), s.info.PCID, s.size)
	}
	return &Point{schema: s, store: viewRows(data)}, nil
}

// PointFromDataRW wraps data as a writable point without copying it. Writes
// go straight to data, which stays owned by the caller.
func PointFromDataRW(s *Schema, data []byte) (*Point, error) {
	if len(data) != s.size {
		return nil, fmt.Errorf("%w: point data is %d bytes, schema %d is %d", ErrLengthMismatch, len(data), s.info.PCID, s.size)
	}
	return &Point{schema: s, store: sharedRows(data)}, nil
}

// PointFromDoubles allocates a point holding values, one per dimension in
// position order.
func PointFromDoubles(s *Schema, values []float64) (*Point, error) {
	if len(values) != len(s.dims) {
		return nil, fmt.Errorf("%w: %d values for %d dimensions", ErrLengthMismatch, len(values), len(s.dims))
	}
	pt, err := MakePoint(s)
	if err != nil {
		return nil, err
	}
	row := pt.store.bytes()
	for i := range s.dims {
		pt.write(row, &s.dims[i], values[i])
	}
	return pt, nil
}

// Schema returns the schema the point is laid out with.
func (pt *Point) Schema() *Schema { return pt.schema }

// Bytes returns the raw row. It must not be modified when the point is
// read-only.
func (pt *Point) Bytes() []byte { return pt.store.bytes() }

// ReadOnly reports whether the point wraps memory it may not modify.
func (pt *Point) ReadOnly() bool { return pt.store.readOnly() }

// DoubleByIndex returns the scaled value of the dimension at position idx.
func (pt *Point) DoubleByIndex(idx int) (float64, error) {
	d, err := pt.schema.dimension(idx)
	if err != nil {
		return 0, err
	}
	row, err := pt.row()
	if err != nil {
		return 0, err
	}
	return d.read(row), nil
}

// DoubleByName returns the scaled value of the named dimension.
func (pt *Point) DoubleByName(name string) (float64, error) {
	d, err := pt.schema.dimensionByName(name)
	if err != nil {
		return 0, err
	}
	row, err := pt.row()
	if err != nil {
		return 0, err
	}
	return d.read(row), nil
}

// row returns the point's bytes, or an error once the point was freed.
func (pt *Point) row() ([]byte, error) {
	row := pt.store.bytes()
	if len(row) < pt.schema.size {
		return nil, errFreed
	}
	return row, nil
}

// SetDoubleByIndex stores v in the dimension at position idx.
func (pt *Point) SetDoubleByIndex(idx int, v float64) error {
	row, err := pt.store.mutable()
	if err != nil {
		return err
	}
	d, err := pt.schema.dimension(idx)
	if err != nil {
		return err
	}
	pt.write(row, d, v)
	return nil
}

// SetDoubleByName stores v in the named dimension.
func (pt *Point) SetDoubleByName(name string, v float64) error {
	row, err := pt.store.mutable()
	if err != nil {
		return err
	}
	d, err := pt.schema.dimensionByName(name)
	if err != nil {
		return err
	}
	pt.write(row, d, v)
	return nil
}

func (pt *Point) write(row []byte, d *Dimension, v float64) {
	if d.write(row, v) {
		pt.schema.log.WithFields(logrus.Fields{
			"dimension":      d.Name,
			"interpretation": d.Interpretation,
			"value":          v,
		}).Debug("value saturated")
	}
}

// X returns the value of the schema's X dimension.
func (pt *Point) X() (float64, error) {
	if pt.schema.xPosition == noPosition {
		return 0, fmt.Errorf("%w: no X in schema %d", ErrNoSpatialDimension, pt.schema.info.PCID)
	}
	return pt.DoubleByIndex(pt.schema.xPosition)
}

// Y returns the value of the schema's Y dimension.
func (pt *Point) Y() (float64, error) {
	if pt.schema.yPosition == noPosition {
		return 0, fmt.Errorf("%w: no Y in schema %d", ErrNoSpatialDimension, pt.schema.info.PCID)
	}
	return pt.DoubleByIndex(pt.schema.yPosition)
}

// XY returns both spatial coordinates.
func (pt *Point) XY() (x, y float64, err error) {
	if x, err = pt.X(); err != nil {
		return 0, 0, err
	}
	if y, err = pt.Y(); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// Doubles returns every dimension's scaled value in position order, or nil
// after Free.
func (pt *Point) Doubles() []float64 {
	row, err := pt.row()
	if err != nil {
		return nil
	}
	values := make([]float64, len(pt.schema.dims))
	for i := range pt.schema.dims {
		values[i] = pt.schema.dims[i].read(row)
	}
	return values
}

// Free returns an owned buffer to the allocator. Wrapped buffers and the
// schema are left alone. Accessors of a freed point fail with ErrInvalidData.
func (pt *Point) Free() {
	if pt.store == nil {
		return
	}
	pt.store.release(pt.schema.alloc)
	pt.store = freedRows{}
}
