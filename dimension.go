package pointcloud

import (
	"fmt"
	"math"
)

// Dimension describes one named attribute of a point.
type Dimension struct {
	Name           string
	Description    string
	Position       int // ordinal among the schema's dimensions
	Size           int // bytes
	ByteOffset     int // offset of the value within a row
	Interpretation Interpretation
	Scale          float64
	Offset         float64
	Active         bool
}

// PackDimensions returns a copy of dims laid out back to back in slice order:
// positions count from zero, byte offsets accumulate, a zero Size is taken
// from the interpretation and a zero Scale becomes 1.
func PackDimensions(dims []Dimension) []Dimension {
	packed := make([]Dimension, len(dims))
	offset := 0
	for i, d := range dims {
		if d.Size == 0 {
			d.Size = d.Interpretation.Size()
		}
		if d.Scale == 0 {
			d.Scale = 1
		}
		d.Position = i
		d.ByteOffset = offset
		offset += d.Size
		packed[i] = d
	}
	return packed
}

// check validates the parts of a dimension that do not depend on its
// neighbours.
func (d *Dimension) check() error {
	if d.Name == "" {
		return fmt.Errorf("%w: dimension %d has no name", ErrInvalidSchema, d.Position)
	}
	if d.Interpretation == Unknown || d.Interpretation >= interpretationCount {
		return fmt.Errorf("%w: dimension %q has interpretation %v", ErrInvalidSchema, d.Name, d.Interpretation)
	}
	if d.Size != d.Interpretation.Size() {
		return fmt.Errorf("%w: dimension %q is %d bytes but %v is %d",
			ErrInvalidSchema, d.Name, d.Size, d.Interpretation, d.Interpretation.Size())
	}
	if d.ByteOffset < 0 {
		return fmt.Errorf("%w: dimension %q has negative byte offset", ErrInvalidSchema, d.Name)
	}
	if d.Scale == 0 || math.IsNaN(d.Scale) || math.IsInf(d.Scale, 0) {
		return fmt.Errorf("%w: dimension %q has scale %v", ErrInvalidSchema, d.Name, d.Scale)
	}
	if math.IsNaN(d.Offset) || math.IsInf(d.Offset, 0) {
		return fmt.Errorf("%w: dimension %q has offset %v", ErrInvalidSchema, d.Name, d.Offset)
	}
	return nil
}

// read decodes the dimension's value from a row.
func (d *Dimension) read(row []byte) float64 {
	raw := d.Interpretation.decode(row[d.ByteOffset : d.ByteOffset+d.Size])
	return raw*d.Scale + d.Offset
}

// write encodes v into a row, reporting whether it saturated.
func (d *Dimension) write(row []byte, v float64) bool {
	raw := (v - d.Offset) / d.Scale
	return d.Interpretation.encode(row[d.ByteOffset:d.ByteOffset+d.Size], raw)
}
