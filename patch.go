package pointcloud

import (
	"fmt"
	"math"
)

// initialPatchCapacity is the capacity, in points, of the first allocation
// made by AddPoint on an empty patch.
const initialPatchCapacity = 16

// Bounds is an axis-aligned box over the X and Y dimensions, in scaled units.
type Bounds struct {
	XMin, XMax, YMin, YMax float64
}

func (b *Bounds) reset(x, y float64) {
	b.XMin, b.XMax = x, x
	b.YMin, b.YMax = y, y
}

func (b *Bounds) extend(x, y float64) {
	b.XMin = math.Min(b.XMin, x)
	b.XMax = math.Max(b.XMax, x)
	b.YMin = math.Min(b.YMin, y)
	b.YMax = math.Max(b.YMax, y)
}

// Patch is a run of points sharing one schema plus their bounding box. The
// schema is borrowed and must outlive the patch. Mutation is not
// synchronized.
type Patch struct {
	schema  *Schema
	store   rowStore
	npoints int
	bounds  Bounds
}

// MakePatch creates an empty, writable patch with no capacity.
func MakePatch(s *Schema) *Patch {
	return &Patch{schema: s, store: ownedRows(nil)}
}

// PatchFromPoints copies the rows of pts into a new patch sized to hold
// exactly len(pts) points. All points must share the first point's schema.
func PatchFromPoints(pts []*Point) (*Patch, error) {
	if len(pts) == 0 {
		return nil, ErrEmptyInput
	}
	s := pts[0].schema

	var bounds Bounds
	for i, pt := range pts {
		if !s.sameLayout(pt.schema) {
			return nil, fmt.Errorf("%w: point %d has pcid %d, expected %d", ErrSchemaMismatch, i, pt.schema.info.PCID, s.info.PCID)
		}
		x, y, err := pt.XY()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			bounds.reset(x, y)
		} else {
			bounds.extend(x, y)
		}
	}

	buf, err := s.alloc.Alloc(len(pts) * s.size)
	if err != nil {
		return nil, err
	}
	for i, pt := range pts {
		copy(buf[i*s.size:], pt.store.bytes())
	}

	return &Patch{
		schema:  s,
		store:   ownedRows(buf),
		npoints: len(pts),
		bounds:  bounds,
	}, nil
}

// NewPatchView wraps npoints rows of data as a read-only patch without
// copying. The bounding box is computed from the rows.
func NewPatchView(s *Schema, data []byte, npoints int) (*Patch, error) {
	rows, err := patchRows(s, data, npoints)
	if err != nil {
		return nil, err
	}
	return newPatch(s, viewRows(rows), npoints)
}

func patchRows(s *Schema, data []byte, npoints int) ([]byte, error) {
	if npoints < 0 {
		return nil, fmt.Errorf("%w: negative point count %d", ErrInvalidData, npoints)
	}
	need := npoints * s.size
	if len(data) < need {
		return nil, fmt.Errorf("%w: %d points need %d bytes, have %d", ErrTruncated, npoints, need, len(data))
	}
	return data[:need], nil
}

func newPatch(s *Schema, store rowStore, npoints int) (*Patch, error) {
	p := &Patch{schema: s, store: store, npoints: npoints}
	rows := store.bytes()
	for i := 0; i < npoints; i++ {
		pt := Point{schema: s, store: viewRows(rows[i*s.size : (i+1)*s.size])}
		x, y, err := pt.XY()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			p.bounds.reset(x, y)
		} else {
			p.bounds.extend(x, y)
		}
	}
	return p, nil
}

// AddPoint appends a copy of pt's row, growing the buffer geometrically when
// it is full, and extends the bounding box.
func (p *Patch) AddPoint(pt *Point) error {
	buf, err := p.store.mutable()
	if err != nil {
		return err
	}
	if !p.schema.sameLayout(pt.schema) {
		return fmt.Errorf("%w: point has pcid %d, patch has %d", ErrSchemaMismatch, pt.schema.info.PCID, p.schema.info.PCID)
	}
	x, y, err := pt.XY()
	if err != nil {
		return err
	}

	size := p.schema.size
	if (p.npoints+1)*size > len(buf) {
		capacity := 2 * (len(buf) / size)
		if capacity < initialPatchCapacity {
			capacity = initialPatchCapacity
		}
		buf, err = p.schema.alloc.Realloc(buf, capacity*size)
		if err != nil {
			return err
		}
		p.store = ownedRows(buf)
	}

	copy(buf[p.npoints*size:], pt.store.bytes())
	if p.npoints == 0 {
		p.bounds.reset(x, y)
	} else {
		p.bounds.extend(x, y)
	}
	p.npoints++
	return nil
}

// Schema returns the schema the patch is laid out with.
func (p *Patch) Schema() *Schema { return p.schema }

// NumPoints returns the number of points held.
func (p *Patch) NumPoints() int { return p.npoints }

// MaxPoints returns the capacity in points, or 0 for a read-only patch.
func (p *Patch) MaxPoints() int {
	if p.store.readOnly() {
		return 0
	}
	return len(p.store.bytes()) / p.schema.size
}

// ReadOnly reports whether the patch wraps memory it may not modify.
func (p *Patch) ReadOnly() bool { return p.store.readOnly() }

// Bytes returns the rows of all points held, back to back.
func (p *Patch) Bytes() []byte {
	return p.store.bytes()[:p.npoints*p.schema.size]
}

// Bounds returns the bounding box. It is meaningless when the patch is empty.
func (p *Patch) Bounds() Bounds { return p.bounds }

// Point returns a read-only view of the i-th point. The view shares the
// patch's memory and is invalidated by the next AddPoint.
func (p *Patch) Point(i int) (*Point, error) {
	if i < 0 || i >= p.npoints {
		return nil, fmt.Errorf("%w: point %d of %d", ErrOutOfRange, i, p.npoints)
	}
	size := p.schema.size
	return &Point{schema: p.schema, store: viewRows(p.store.bytes()[i*size : (i+1)*size])}, nil
}

// Free returns an owned buffer to the allocator. Wrapped buffers and the
// schema are left alone. A freed patch holds no points and refuses AddPoint
// with ErrInvalidData.
func (p *Patch) Free() {
	if p.store == nil {
		return
	}
	p.store.release(p.schema.alloc)
	p.store = freedRows{}
	p.npoints = 0
}
