package pointcloud

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Codec compresses the rows of a patch. Rows are handed over in wire (little
// endian) byte order; Decompress must return exactly npoints*s.Size() bytes.
type Codec interface {
	Compress(s *Schema, rows []byte, npoints int) ([]byte, error)
	Decompress(s *Schema, data []byte, npoints int) ([]byte, error)
}

// DefaultCodecs returns the codecs registered when Options.Codecs is nil.
// GHT has no codec; patches of a GHT schema cannot be serialized unless one
// is registered.
func DefaultCodecs() map[Compression]Codec {
	return map[Compression]Codec{
		None:        NoneCodec{},
		Dimensional: defaultDimensionalCodec(),
	}
}

// codecFor looks up the codec registered for the schema's compression.
func (s *Schema) codecFor() (Codec, error) {
	codec, ok := s.codec[s.info.Compression]
	if !ok || codec == nil {
		return nil, fmt.Errorf("%w: no codec registered for %v", ErrUnsupportedCompression, s.info.Compression)
	}
	return codec, nil
}

// NoneCodec stores rows as they are.
type NoneCodec struct{}

// Compress returns the first npoints rows unchanged.
func (NoneCodec) Compress(s *Schema, rows []byte, npoints int) ([]byte, error) {
	return patchRows(s, rows, npoints)
}

// Decompress returns the first npoints rows of data without copying.
func (NoneCodec) Decompress(s *Schema, data []byte, npoints int) ([]byte, error) {
	return patchRows(s, data, npoints)
}

const (
	// MaxDimensionalPatchSize caps the decompressed rows of one Dimensional
	// patch.
	MaxDimensionalPatchSize = 1 << 30

	// maxFrameExpansion bounds how many output bytes one input byte of a
	// zstd frame can produce: a 4 byte RLE block yields at most 128 KiB.
	maxFrameExpansion = (128 << 10) / 4
)

// DimensionalCodec transposes rows into one byte plane per dimension, so that
// values of the same dimension sit next to each other, then compresses the
// planes with zstd.
type DimensionalCodec struct {
	encoders sync.Pool
	decoder  *zstd.Decoder
}

// NewDimensionalCodec creates a codec compressing at the given zstd level
// (1 fastest .. 22 smallest).
func NewDimensionalCodec(level int) (*DimensionalCodec, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDimensionalPatchSize))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	encoderLevel := zstd.EncoderLevelFromZstd(level)
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	c := &DimensionalCodec{decoder: decoder}
	c.encoders.New = func() any {
		// options were validated above
		encoder, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel))
		return encoder
	}
	c.encoders.Put(encoder)
	return c, nil
}

var defaultDimensionalCodec = sync.OnceValue(func() Codec {
	c, err := NewDimensionalCodec(3)
	if err != nil {
		panic("pointcloud: " + err.Error())
	}
	return c
})

// Compress transposes the first npoints rows into dimension planes and
// compresses them as a single zstd frame.
func (c *DimensionalCodec) Compress(s *Schema, rows []byte, npoints int) ([]byte, error) {
	rows, err := patchRows(s, rows, npoints)
	if err != nil {
		return nil, err
	}
	if len(rows) > MaxDimensionalPatchSize {
		return nil, fmt.Errorf("%w: %d bytes of rows exceed the %d byte patch limit", ErrInvalidData, len(rows), MaxDimensionalPatchSize)
	}
	planes := make([]byte, len(rows))
	pos := 0
	for i := range s.dims {
		d := &s.dims[i]
		for n := 0; n < npoints; n++ {
			off := n*s.size + d.ByteOffset
			pos += copy(planes[pos:], rows[off:off+d.Size])
		}
	}

	encoder := c.encoders.Get().(*zstd.Encoder)
	defer func() {
		encoder.Reset(nil)
		c.encoders.Put(encoder)
	}()
	return encoder.EncodeAll(planes, make([]byte, 0, len(planes)/2)), nil
}

// Decompress checks the frame against npoints before allocating, decodes the
// planes into a scratch buffer taken from the schema's allocator and
// transposes them back into rows.
func (c *DimensionalCodec) Decompress(s *Schema, data []byte, npoints int) ([]byte, error) {
	if npoints < 0 || npoints > MaxDimensionalPatchSize/s.size {
		return nil, fmt.Errorf("%w: %d points exceed the %d byte patch limit", ErrInvalidData, npoints, MaxDimensionalPatchSize)
	}
	want := npoints * s.size
	if want == 0 {
		if len(data) != 0 {
			return nil, fmt.Errorf("%w: %d payload bytes for an empty patch", ErrInvalidData, len(data))
		}
		return []byte{}, nil
	}
	if want > len(data)*maxFrameExpansion {
		return nil, fmt.Errorf("%w: %d payload bytes cannot hold %d points", ErrInvalidData, len(data), npoints)
	}
	var header zstd.Header
	if err := header.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	// Frames under 256 bytes may omit their content size.
	if header.HasFCS && header.FrameContentSize != uint64(want) || !header.HasFCS && want >= 256 {
		return nil, fmt.Errorf("%w: frame holds %d bytes, %d points need %d", ErrInvalidData, header.FrameContentSize, npoints, want)
	}

	scratch, err := s.alloc.Alloc(want)
	if err != nil {
		return nil, err
	}
	defer s.alloc.Free(scratch)
	planes, err := c.decoder.DecodeAll(data, scratch[:0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if len(planes) != want {
		return nil, fmt.Errorf("%w: decompressed %d bytes, expected %d", ErrInvalidData, len(planes), want)
	}
	rows := make([]byte, want)
	pos := 0
	for i := range s.dims {
		d := &s.dims[i]
		for n := 0; n < npoints; n++ {
			off := n*s.size + d.ByteOffset
			pos += copy(rows[off:off+d.Size], planes[pos:pos+d.Size])
		}
	}
	return rows, nil
}
