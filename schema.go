package pointcloud

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// noPosition marks a schema without an X or Y dimension.
const noPosition = -1

// SchemaInfo carries the metadata of a schema that is not part of its
// dimensions.
type SchemaInfo struct {
	PCID        uint32
	SRID        uint32
	Compression Compression
}

// Schema describes the layout of one point shape. A schema is immutable once
// built and is shared by pointer among the points and patches that use it; it
// does not track them, so it must outlive all of them.
type Schema struct {
	info      SchemaInfo
	dims      []Dimension
	size      int
	xPosition int
	yPosition int
	names     map[string]int

	log   *logrus.Logger
	alloc Allocator
	codec map[Compression]Codec
}

// NewSchema builds a schema from dimension descriptors. Dimensions may be
// given in any order; they are kept sorted by position, which must run from
// zero without gaps. Byte ranges must tile the row without overlapping.
func NewSchema(info SchemaInfo, dims []Dimension, opts *Options) (*Schema, error) {
	opts = opts.resolve()

	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no dimensions", ErrInvalidSchema)
	}

	s := &Schema{
		info:      info,
		dims:      make([]Dimension, len(dims)),
		xPosition: noPosition,
		yPosition: noPosition,
		names:     make(map[string]int, len(dims)),
		log:       opts.Logger,
		alloc:     opts.Allocator,
		codec:     opts.Codecs,
	}
	copy(s.dims, dims)
	sort.SliceStable(s.dims, func(i, j int) bool { return s.dims[i].Position < s.dims[j].Position })

	for i := range s.dims {
		d := &s.dims[i]
		if d.Position != i {
			return nil, fmt.Errorf("%w: dimension %q has position %d, expected %d", ErrInvalidSchema, d.Name, d.Position, i)
		}
		if err := d.check(); err != nil {
			return nil, err
		}
		if _, dup := s.names[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate dimension name %q", ErrInvalidSchema, d.Name)
		}
		s.names[d.Name] = i
		s.size += d.Size

		switch strings.ToLower(d.Name) {
		case "x":
			s.xPosition = i
			d.Active = true
		case "y":
			s.yPosition = i
			d.Active = true
		}
	}

	if s.size == 0 {
		return nil, fmt.Errorf("%w: zero row size", ErrInvalidSchema)
	}
	if err := checkLayout(s.dims, s.size); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"pcid":        info.PCID,
		"ndims":       len(s.dims),
		"size":        s.size,
		"compression": info.Compression,
	}).Debug("schema created")

	return s, nil
}

// checkLayout verifies that every byte range lies within the row and that no
// two ranges overlap.
func checkLayout(dims []Dimension, size int) error {
	order := make([]int, len(dims))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return dims[order[a]].ByteOffset < dims[order[b]].ByteOffset })

	end := 0
	for _, i := range order {
		d := dims[i]
		if d.ByteOffset < end {
			return fmt.Errorf("%w: dimension %q overlaps the previous dimension", ErrInvalidSchema, d.Name)
		}
		end = d.ByteOffset + d.Size
		if end > size {
			return fmt.Errorf("%w: dimension %q ends at byte %d of a %d byte row", ErrInvalidSchema, d.Name, end, size)
		}
	}
	return nil
}

// PCID returns the point cloud id carried in serialized points and patches.
func (s *Schema) PCID() uint32 { return s.info.PCID }

// SRID returns the spatial reference id, 0 when unknown.
func (s *Schema) SRID() uint32 { return s.info.SRID }

// Compression returns the compression applied when patches are serialized.
func (s *Schema) Compression() Compression { return s.info.Compression }

// Info returns the identifying metadata the schema was created with.
func (s *Schema) Info() SchemaInfo { return s.info }

// Size returns the row size in bytes.
func (s *Schema) Size() int { return s.size }

// NumDimensions returns the number of dimensions.
func (s *Schema) NumDimensions() int { return len(s.dims) }

// Logger returns the logger shared by everything built on the schema.
func (s *Schema) Logger() *logrus.Logger { return s.log }

// XPosition returns the position of the X dimension, or -1.
func (s *Schema) XPosition() int { return s.xPosition }

// YPosition returns the position of the Y dimension, or -1.
func (s *Schema) YPosition() int { return s.yPosition }

// Dimension returns a copy of the dimension at position.
func (s *Schema) Dimension(position int) (Dimension, error) {
	d, err := s.dimension(position)
	if err != nil {
		return Dimension{}, err
	}
	return *d, nil
}

// DimensionByName returns a copy of the named dimension.
func (s *Schema) DimensionByName(name string) (Dimension, error) {
	d, err := s.dimensionByName(name)
	if err != nil {
		return Dimension{}, err
	}
	return *d, nil
}

// Dimensions returns a copy of all dimensions in position order.
func (s *Schema) Dimensions() []Dimension {
	dims := make([]Dimension, len(s.dims))
	copy(dims, s.dims)
	return dims
}

func (s *Schema) dimension(position int) (*Dimension, error) {
	if position < 0 || position >= len(s.dims) {
		return nil, fmt.Errorf("%w: %d of %d", ErrOutOfRange, position, len(s.dims))
	}
	return &s.dims[position], nil
}

func (s *Schema) dimensionByName(name string) (*Dimension, error) {
	i, ok := s.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return &s.dims[i], nil
}

// IsValid re-checks the structure of the schema and that it has an X
// dimension. It never modifies the schema.
func (s *Schema) IsValid() bool {
	if s == nil || len(s.dims) == 0 || s.size == 0 {
		return false
	}
	if s.xPosition < 0 || s.xPosition >= len(s.dims) {
		return false
	}
	total := 0
	for i := range s.dims {
		d := s.dims[i]
		if d.Position != i || d.check() != nil {
			return false
		}
		if j, ok := s.names[d.Name]; !ok || j != i {
			return false
		}
		total += d.Size
	}
	return total == s.size && checkLayout(s.dims, s.size) == nil
}

// Free releases the dimension list and name index. Points and patches that
// still reference the schema must not be used afterwards.
func (s *Schema) Free() {
	s.dims = nil
	s.names = nil
	s.size = 0
	s.xPosition = noPosition
	s.yPosition = noPosition
}

// sameLayout reports whether rows of o can be stored under s.
func (s *Schema) sameLayout(o *Schema) bool {
	if s == o {
		return true
	}
	return s != nil && o != nil && s.info.PCID == o.info.PCID && s.size == o.size
}

type dimensionJSON struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Size           int     `json:"size"`
	ByteOffset     int     `json:"byteoffset"`
	Interpretation string  `json:"interpretation"`
	Scale          float64 `json:"scale"`
	Offset         float64 `json:"offset"`
	Position       int     `json:"position"`
	Active         bool    `json:"active"`
}

type schemaJSON struct {
	PCID        uint32          `json:"pcid"`
	SRID        uint32          `json:"srid"`
	Compression string          `json:"compression"`
	Dims        []dimensionJSON `json:"dims"`
}

// ToJSON describes the schema and all its dimensions in position order.
func (s *Schema) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// MarshalJSON implements json.Marshaler.
func (s *Schema) MarshalJSON() ([]byte, error) {
	out := schemaJSON{
		PCID:        s.info.PCID,
		SRID:        s.info.SRID,
		Compression: s.info.Compression.String(),
		Dims:        make([]dimensionJSON, 0, len(s.dims)),
	}
	for _, d := range s.dims {
		out.Dims = append(out.Dims, dimensionJSON{
			Name:           d.Name,
			Description:    d.Description,
			Size:           d.Size,
			ByteOffset:     d.ByteOffset,
			Interpretation: d.Interpretation.String(),
			Scale:          d.Scale,
			Offset:         d.Offset,
			Position:       d.Position,
			Active:         d.Active,
		})
	}
	return json.Marshal(out)
}
