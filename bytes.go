package pointcloud

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// MachineEndian returns the byte order of the host.
func MachineEndian() Endian {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 1)
	if probe[0] == 1 {
		return NDR
	}
	return XDR
}

// FlipEndian returns a copy of npoints rows of data with every multi-byte
// dimension value byte-reversed.
func FlipEndian(s *Schema, data []byte, npoints int) ([]byte, error) {
	rows, err := patchRows(s, data, npoints)
	if err != nil {
		return nil, err
	}
	flipped := make([]byte, len(rows))
	copy(flipped, rows)
	flipRows(s, flipped, npoints)
	return flipped, nil
}

// FlipEndianInPlace byte-reverses every multi-byte dimension value of npoints
// rows of data.
func FlipEndianInPlace(s *Schema, data []byte, npoints int) error {
	rows, err := patchRows(s, data, npoints)
	if err != nil {
		return err
	}
	flipRows(s, rows, npoints)
	return nil
}

// NormalizeEndian returns npoints rows of data in host byte order, given the
// order they were written in. Data already in host order is returned without
// copying.
func NormalizeEndian(s *Schema, data []byte, npoints int, from Endian) ([]byte, error) {
	if from == MachineEndian() {
		return patchRows(s, data, npoints)
	}
	return FlipEndian(s, data, npoints)
}

func flipRows(s *Schema, rows []byte, npoints int) {
	for i := 0; i < npoints; i++ {
		row := rows[i*s.size : (i+1)*s.size]
		for j := range s.dims {
			d := &s.dims[j]
			if d.Size < 2 {
				continue
			}
			field := row[d.ByteOffset : d.ByteOffset+d.Size]
			for a, b := 0, len(field)-1; a < b; a, b = a+1, b-1 {
				field[a], field[b] = field[b], field[a]
			}
		}
	}
}

// BytesFromHex decodes a hex string of even length.
func BytesFromHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrInvalidHex, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return b, nil
}

// HexFromBytes encodes b as upper-case hex.
func HexFromBytes(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// Serialized header sizes.
const (
	wirePointHeaderSize = 8  // size, pcid
	wirePatchHeaderSize = 28 // size, xmin, xmax, ymin, ymax, pcid, npoints
)

// WirePointPCID returns the pcid of a serialized point.
func WirePointPCID(b []byte) (uint32, error) {
	if len(b) < wirePointHeaderSize {
		return 0, fmt.Errorf("%w: point header needs %d bytes, have %d", ErrTruncated, wirePointHeaderSize, len(b))
	}
	return binary.LittleEndian.Uint32(b[4:8]), nil
}

// WirePointPayload returns the dimension payload of a serialized point
// without copying it.
func WirePointPayload(b []byte) ([]byte, error) {
	if len(b) < wirePointHeaderSize {
		return nil, fmt.Errorf("%w: point header needs %d bytes, have %d", ErrTruncated, wirePointHeaderSize, len(b))
	}
	return b[wirePointHeaderSize:], nil
}

// PatchHeader is the fixed part of a serialized patch.
type PatchHeader struct {
	Size    uint32
	Bounds  Bounds // float32 precision
	PCID    uint32
	NPoints uint32
}

// WirePatchHeader decodes the header of a serialized patch.
func WirePatchHeader(b []byte) (PatchHeader, error) {
	if len(b) < wirePatchHeaderSize {
		return PatchHeader{}, fmt.Errorf("%w: patch header needs %d bytes, have %d", ErrTruncated, wirePatchHeaderSize, len(b))
	}
	le := binary.LittleEndian
	return PatchHeader{
		Size: le.Uint32(b[0:4]),
		Bounds: Bounds{
			XMin: float64(math.Float32frombits(le.Uint32(b[4:8]))),
			XMax: float64(math.Float32frombits(le.Uint32(b[8:12]))),
			YMin: float64(math.Float32frombits(le.Uint32(b[12:16]))),
			YMax: float64(math.Float32frombits(le.Uint32(b[16:20]))),
		},
		PCID:    le.Uint32(b[20:24]),
		NPoints: le.Uint32(b[24:28]),
	}, nil
}
