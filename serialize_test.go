package pointcloud

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializePointRoundTrip(t *testing.T) {
	s := lidarSchema(t, nil)
	pt := mustPoint(t, s, 12.34, -56.78, 9.1, 4000, 2)

	wire := SerializePoint(pt)
	require.Len(t, wire, 8+s.Size())
	assert.Equal(t, uint32(len(wire)), binary.LittleEndian.Uint32(wire[0:4]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(wire[4:8]))
	// X is stored little endian whatever the host.
	assert.Equal(t, int32(1234), int32(binary.LittleEndian.Uint32(wire[8:12])))

	got, err := DeserializePoint(s, wire)
	require.NoError(t, err)
	assert.Equal(t, pt.Doubles(), got.Doubles())
}

func TestDeserializePointErrors(t *testing.T) {
	s := lidarSchema(t, nil)
	wire := SerializePoint(mustPoint(t, s, 1, 2, 3, 4, 5))

	_, err := DeserializePoint(s, wire[:len(wire)-1])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = DeserializePoint(s, wire[:4])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = DeserializePoint(doubleSchema(t), wire)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	oversized := append([]byte(nil), wire...)
	binary.LittleEndian.PutUint32(oversized[0:4], 1000)
	_, err = DeserializePoint(s, oversized)
	assert.ErrorIs(t, err, ErrTruncated)
}

func lidarPatch(t testing.TB, s *Schema, n int) *Patch {
	t.Helper()
	p := MakePatch(s)
	for i := 0; i < n; i++ {
		pt := mustPoint(t, s,
			float64(i%13)*1.5-4,
			float64(i/13)*0.75,
			float64(i)*0.01,
			float64((i*97)%65536),
			float64(i%8),
		)
		require.NoError(t, p.AddPoint(pt))
		pt.Free()
	}
	return p
}

func TestSerializePatchRoundTrip(t *testing.T) {
	for _, compression := range []Compression{None, Dimensional} {
		t.Run(compression.String(), func(t *testing.T) {
			s, err := NewSchema(SchemaInfo{PCID: 1, SRID: 4326, Compression: compression},
				lidarSchema(t, nil).Dimensions(), quietOptions())
			require.NoError(t, err)

			p := lidarPatch(t, s, 100)
			wire, err := SerializePatch(p)
			require.NoError(t, err)

			h, err := WirePatchHeader(wire)
			require.NoError(t, err)
			assert.Equal(t, uint32(len(wire)), h.Size)
			assert.Equal(t, uint32(1), h.PCID)
			assert.Equal(t, uint32(100), h.NPoints)
			assert.InDelta(t, p.Bounds().XMin, h.Bounds.XMin, 1e-5)
			assert.InDelta(t, p.Bounds().YMax, h.Bounds.YMax, 1e-5)

			got, err := DeserializePatch(s, wire)
			require.NoError(t, err)
			defer got.Free()

			assert.Equal(t, p.NumPoints(), got.NumPoints())
			assert.Equal(t, p.Bounds(), got.Bounds())
			assert.Equal(t, p.Bytes(), got.Bytes())
		})
	}
}

func TestSerializePatchDimensionalIsSmaller(t *testing.T) {
	s, err := NewSchema(SchemaInfo{PCID: 1, Compression: Dimensional},
		lidarSchema(t, nil).Dimensions(), quietOptions())
	require.NoError(t, err)

	p := lidarPatch(t, s, 1000)
	wire, err := SerializePatch(p)
	require.NoError(t, err)
	assert.Less(t, len(wire), 28+len(p.Bytes()))
}

func TestDeserializePatchUncompressedIsView(t *testing.T) {
	if MachineEndian() != NDR {
		t.Skip("views are only produced on little-endian hosts")
	}
	s := lidarSchema(t, nil)
	wire, err := SerializePatch(lidarPatch(t, s, 5))
	require.NoError(t, err)

	got, err := DeserializePatch(s, wire)
	require.NoError(t, err)
	assert.True(t, got.ReadOnly())
	assert.ErrorIs(t, got.AddPoint(mustPoint(t, s, 0, 0, 0, 0, 0)), ErrReadOnly)
}

func TestSerializeEmptyPatch(t *testing.T) {
	s := lidarSchema(t, nil)
	wire, err := SerializePatch(MakePatch(s))
	require.NoError(t, err)
	assert.Len(t, wire, 28)

	got, err := DeserializePatch(s, wire)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumPoints())
}

func TestDeserializePatchErrors(t *testing.T) {
	s := lidarSchema(t, nil)
	wire, err := SerializePatch(lidarPatch(t, s, 10))
	require.NoError(t, err)

	_, err = DeserializePatch(s, wire[:20])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = DeserializePatch(s, wire[:len(wire)-1])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = DeserializePatch(doubleSchema(t), wire)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	lying := append([]byte(nil), wire...)
	binary.LittleEndian.PutUint32(lying[24:28], 11)
	_, err = DeserializePatch(s, lying)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestSerializePatchUnsupportedCompression(t *testing.T) {
	s, err := NewSchema(SchemaInfo{PCID: 1, Compression: GHT},
		lidarSchema(t, nil).Dimensions(), quietOptions())
	require.NoError(t, err)

	_, err = SerializePatch(lidarPatch(t, s, 3))
	assert.ErrorIs(t, err, ErrUnsupportedCompression)
}

func dimensionalSchema(t testing.TB, opts *Options) *Schema {
	t.Helper()
	if opts == nil {
		opts = quietOptions()
	}
	s, err := NewSchema(SchemaInfo{PCID: 1, Compression: Dimensional},
		lidarSchema(t, nil).Dimensions(), opts)
	require.NoError(t, err)
	return s
}

func TestDeserializePatchDimensionalBadCount(t *testing.T) {
	s := dimensionalSchema(t, nil)
	wire, err := SerializePatch(lidarPatch(t, s, 1))
	require.NoError(t, err)

	for _, npoints := range []uint32{0xFFFFFFFF, 1 << 20, 2, 0} {
		corrupt := append([]byte(nil), wire...)
		binary.LittleEndian.PutUint32(corrupt[24:28], npoints)
		_, err := DeserializePatch(s, corrupt)
		assert.ErrorIs(t, err, ErrInvalidData, "npoints %d", npoints)
	}
}

func TestDeserializePatchDimensionalEmpty(t *testing.T) {
	s := dimensionalSchema(t, nil)
	wire, err := SerializePatch(MakePatch(s))
	require.NoError(t, err)

	got, err := DeserializePatch(s, wire)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumPoints())
}

func TestDeserializePatchDimensionalUsesAllocator(t *testing.T) {
	wire, err := SerializePatch(lidarPatch(t, dimensionalSchema(t, nil), 10))
	require.NoError(t, err)

	alloc := NewLimitAllocator(100)
	opts := quietOptions()
	opts.Allocator = alloc
	limited := dimensionalSchema(t, opts)

	_, err = DeserializePatch(limited, wire)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 0, alloc.InUse())
}
