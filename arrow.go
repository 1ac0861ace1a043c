package pointcloud

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowSchema describes a patch of s as an Arrow schema: one non-nullable
// float64 column per dimension holding the scaled value. The storage layout
// is carried in field and schema metadata.
func ArrowSchema(s *Schema) *arrow.Schema {
	fields := make([]arrow.Field, len(s.dims))
	for i, d := range s.dims {
		fields[i] = arrow.Field{
			Name:     d.Name,
			Type:     arrow.PrimitiveTypes.Float64,
			Nullable: false,
			Metadata: arrow.NewMetadata(
				[]string{"interpretation", "scale", "offset", "description"},
				[]string{
					d.Interpretation.String(),
					strconv.FormatFloat(d.Scale, 'g', -1, 64),
					strconv.FormatFloat(d.Offset, 'g', -1, 64),
					d.Description,
				},
			),
		}
	}
	md := arrow.NewMetadata(
		[]string{"pcid", "srid", "compression"},
		[]string{
			strconv.FormatUint(uint64(s.info.PCID), 10),
			strconv.FormatUint(uint64(s.info.SRID), 10),
			s.info.Compression.String(),
		},
	)
	return arrow.NewSchema(fields, &md)
}

// PatchRecord converts the points of p to an Arrow record. A nil mem uses
// the default Arrow allocator. The caller must Release the record.
func (p *Patch) PatchRecord(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	s := p.schema
	b := array.NewRecordBuilder(mem, ArrowSchema(s))
	defer b.Release()

	cols := make([]*array.Float64Builder, len(s.dims))
	for i := range s.dims {
		cols[i] = b.Field(i).(*array.Float64Builder)
		cols[i].Reserve(p.npoints)
	}

	for i := 0; i < p.npoints; i++ {
		pt, err := p.Point(i)
		if err != nil {
			return nil, err
		}
		for j := range s.dims {
			v, err := pt.DoubleByIndex(j)
			if err != nil {
				return nil, err
			}
			cols[j].Append(v)
		}
	}

	return b.NewRecord(), nil
}

// PatchFromRecord builds a patch of schema s from an Arrow record. Columns
// are matched to dimensions by name; dimensions without a column and null
// values are stored as zero. Matching columns must be float64.
func PatchFromRecord(s *Schema, rec arrow.Record) (*Patch, error) {
	cols := make([]*array.Float64, len(s.dims))
	for j, d := range s.dims {
		idx := rec.Schema().FieldIndices(d.Name)
		if len(idx) == 0 {
			continue
		}
		col, ok := rec.Column(idx[0]).(*array.Float64)
		if !ok {
			return nil, fmt.Errorf("%w: column %q is %s, want float64",
				ErrInvalidData, d.Name, rec.Column(idx[0]).DataType())
		}
		cols[j] = col
	}

	p := MakePatch(s)
	values := make([]float64, len(s.dims))
	for i := 0; i < int(rec.NumRows()); i++ {
		for j, col := range cols {
			values[j] = 0
			if col != nil && !col.IsNull(i) {
				values[j] = col.Value(i)
			}
		}
		if err := p.addDoubles(values); err != nil {
			p.Free()
			return nil, err
		}
	}
	return p, nil
}

// MarshalArrow serializes the points of p as an Arrow IPC stream holding a
// single record.
func (p *Patch) MarshalArrow() ([]byte, error) {
	rec, err := p.PatchRecord(memory.DefaultAllocator)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()))
	defer writer.Close()

	if err := writer.Write(rec); err != nil {
		return nil, fmt.Errorf("failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalArrow reads every record of an Arrow IPC stream into one patch of
// schema s.
func UnmarshalArrow(s *Schema, data []byte) (*Patch, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	out := MakePatch(s)
	for reader.Next() {
		p, err := PatchFromRecord(s, reader.Record())
		if err != nil {
			out.Free()
			return nil, err
		}
		for i := 0; i < p.npoints; i++ {
			pt, _ := p.Point(i)
			if err := out.AddPoint(pt); err != nil {
				p.Free()
				out.Free()
				return nil, err
			}
		}
		p.Free()
	}
	if err := reader.Err(); err != nil {
		out.Free()
		return nil, err
	}
	return out, nil
}
