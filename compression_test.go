package pointcloud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensionalCodecRoundTrip(t *testing.T) {
	s := lidarSchema(t, nil)
	p := lidarPatch(t, s, 257)

	codec, err := NewDimensionalCodec(1)
	require.NoError(t, err)

	packed, err := codec.Compress(s, p.Bytes(), p.NumPoints())
	require.NoError(t, err)

	rows, err := codec.Decompress(s, packed, p.NumPoints())
	require.NoError(t, err)
	assert.Equal(t, p.Bytes(), rows)
}

func TestDimensionalCodecErrors(t *testing.T) {
	s := lidarSchema(t, nil)
	p := lidarPatch(t, s, 10)
	codec, err := NewDimensionalCodec(3)
	require.NoError(t, err)

	_, err = codec.Compress(s, p.Bytes()[:20], 10)
	assert.ErrorIs(t, err, ErrTruncated)

	packed, err := codec.Compress(s, p.Bytes(), 10)
	require.NoError(t, err)

	_, err = codec.Decompress(s, packed, 11)
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = codec.Decompress(s, []byte("not zstd"), 10)
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = codec.Decompress(s, packed, 0)
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = codec.Decompress(s, packed, MaxDimensionalPatchSize/s.Size()+1)
	assert.ErrorIs(t, err, ErrInvalidData)

	// Eight bytes of frame cannot expand to a million points.
	_, err = codec.Decompress(s, packed[:8], 1<<20)
	assert.ErrorIs(t, err, ErrInvalidData)

	// Larger frames carry their content size, which must match the count.
	big := lidarPatch(t, s, 100)
	packed, err = codec.Compress(s, big.Bytes(), 100)
	require.NoError(t, err)
	_, err = codec.Decompress(s, packed, 99)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestDimensionalCodecConcurrent(t *testing.T) {
	s := lidarSchema(t, nil)
	p := lidarPatch(t, s, 64)
	codec := defaultDimensionalCodec()

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			packed, err := codec.Compress(s, p.Bytes(), p.NumPoints())
			if err == nil {
				_, err = codec.Decompress(s, packed, p.NumPoints())
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
}

// countingCodec stores rows unchanged and counts calls.
type countingCodec struct {
	compressed, decompressed int
}

func (c *countingCodec) Compress(s *Schema, rows []byte, npoints int) ([]byte, error) {
	c.compressed++
	return append([]byte(nil), rows...), nil
}

func (c *countingCodec) Decompress(s *Schema, data []byte, npoints int) ([]byte, error) {
	c.decompressed++
	return patchRows(s, data, npoints)
}

func TestRegisteredCodec(t *testing.T) {
	codec := &countingCodec{}
	opts := quietOptions()
	opts.Codecs = map[Compression]Codec{GHT: codec}

	s, err := NewSchema(SchemaInfo{PCID: 1, Compression: GHT},
		lidarSchema(t, nil).Dimensions(), opts)
	require.NoError(t, err)

	p := lidarPatch(t, s, 4)
	wire, err := SerializePatch(p)
	require.NoError(t, err)

	got, err := DeserializePatch(s, wire)
	require.NoError(t, err)
	assert.Equal(t, 1, codec.compressed)
	assert.Equal(t, 1, codec.decompressed)
	assert.Equal(t, p.Bytes(), got.Bytes())
	assert.False(t, got.ReadOnly())
}
