package pointcloud

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SerializePoint encodes pt as [size:u32][pcid:u32][payload]. All fields,
// including the dimension values, are little endian.
func SerializePoint(pt *Point) []byte {
	s := pt.schema
	out := make([]byte, wirePointHeaderSize+s.size)
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(out)))
	binary.LittleEndian.PutUint32(out[4:8], s.info.PCID)
	payload := out[wirePointHeaderSize:]
	copy(payload, pt.store.bytes())
	if MachineEndian() != NDR {
		flipRows(s, payload, 1)
	}
	return out
}

// DeserializePoint decodes a serialized point of schema s. On little-endian
// hosts the result is a read-only view over b.
func DeserializePoint(s *Schema, b []byte) (*Point, error) {
	pcid, err := WirePointPCID(b)
	if err != nil {
		return nil, err
	}
	if pcid != s.info.PCID {
		return nil, fmt.Errorf("%w: serialized point has pcid %d, schema has %d", ErrSchemaMismatch, pcid, s.info.PCID)
	}
	need := wirePointHeaderSize + s.size
	declared := int(binary.LittleEndian.Uint32(b[0:4]))
	if declared < need || declared > len(b) || len(b) < need {
		return nil, fmt.Errorf("%w: point needs %d bytes, header says %d, have %d", ErrTruncated, need, declared, len(b))
	}
	payload := b[wirePointHeaderSize:need]

	if MachineEndian() == NDR {
		return PointFromData(s, payload)
	}
	pt, err := MakePoint(s)
	if err != nil {
		return nil, err
	}
	row := pt.store.bytes()
	copy(row, payload)
	flipRows(s, row, 1)
	return pt, nil
}

// SerializePatch encodes p as
// [size:u32][xmin,xmax,ymin,ymax:f32][pcid:u32][npoints:u32][payload], the
// payload compressed with the codec registered for the schema's compression.
func SerializePatch(p *Patch) ([]byte, error) {
	s := p.schema
	rows := p.Bytes()
	if MachineEndian() != NDR {
		var err error
		if rows, err = FlipEndian(s, rows, p.npoints); err != nil {
			return nil, err
		}
	}
	codec, err := s.codecFor()
	if err != nil {
		return nil, err
	}
	payload, err := codec.Compress(s, rows, p.npoints)
	if err != nil {
		return nil, fmt.Errorf("compressing patch: %w", err)
	}

	out := make([]byte, wirePatchHeaderSize+len(payload))
	le := binary.LittleEndian
	le.PutUint32(out[0:4], uint32(len(out)))
	if p.npoints > 0 {
		le.PutUint32(out[4:8], math.Float32bits(float32(p.bounds.XMin)))
		le.PutUint32(out[8:12], math.Float32bits(float32(p.bounds.XMax)))
		le.PutUint32(out[12:16], math.Float32bits(float32(p.bounds.YMin)))
		le.PutUint32(out[16:20], math.Float32bits(float32(p.bounds.YMax)))
	}
	le.PutUint32(out[20:24], s.info.PCID)
	le.PutUint32(out[24:28], uint32(p.npoints))
	copy(out[wirePatchHeaderSize:], payload)
	return out, nil
}

// DeserializePatch decodes a serialized patch of schema s. The bounding box is
// recomputed from the points at full precision. An uncompressed patch read on
// a little-endian host is a read-only view over b; anything else is decoded
// into a new writable patch.
func DeserializePatch(s *Schema, b []byte) (*Patch, error) {
	h, err := WirePatchHeader(b)
	if err != nil {
		return nil, err
	}
	if h.PCID != s.info.PCID {
		return nil, fmt.Errorf("%w: serialized patch has pcid %d, schema has %d", ErrSchemaMismatch, h.PCID, s.info.PCID)
	}
	if int(h.Size) > len(b) || int(h.Size) < wirePatchHeaderSize {
		return nil, fmt.Errorf("%w: header says %d bytes, have %d", ErrTruncated, h.Size, len(b))
	}
	npoints := int(h.NPoints)
	payload := b[wirePatchHeaderSize:h.Size]

	codec, err := s.codecFor()
	if err != nil {
		return nil, err
	}
	rows, err := codec.Decompress(s, payload, npoints)
	if err != nil {
		return nil, err
	}

	if s.info.Compression == None && MachineEndian() == NDR {
		return NewPatchView(s, rows, npoints)
	}

	buf, err := s.alloc.Alloc(len(rows))
	if err != nil {
		return nil, err
	}
	copy(buf, rows)
	if MachineEndian() != NDR {
		flipRows(s, buf, npoints)
	}
	p, err := newPatch(s, ownedRows(buf), npoints)
	if err != nil {
		s.alloc.Free(buf)
		return nil, err
	}
	return p, nil
}
