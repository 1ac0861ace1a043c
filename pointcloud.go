// Package pointcloud stores and manipulates point-cloud data (LIDAR returns and
// similar) as compact binary rows whose layout is described at runtime by a
// Schema. Points decode each dimension through its interpretation and
// scale/offset; patches aggregate rows of one schema and keep an X/Y bounding
// box up to date. Patches can be exchanged in a compact wire form, as
// FlatGeobuf, GeoJSON or Apache Arrow.
package pointcloud

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Common errors returned by this package.
var (
	ErrInvalidSchema          = errors.New("pointcloud: invalid schema")
	ErrNotFound               = errors.New("pointcloud: dimension not found")
	ErrOutOfRange             = errors.New("pointcloud: dimension index out of range")
	ErrLengthMismatch         = errors.New("pointcloud: length mismatch")
	ErrSchemaMismatch         = errors.New("pointcloud: schema mismatch")
	ErrReadOnly               = errors.New("pointcloud: read-only buffer")
	ErrTruncated              = errors.New("pointcloud: truncated buffer")
	ErrInvalidHex             = errors.New("pointcloud: invalid hex string")
	ErrAllocation             = errors.New("pointcloud: allocation failure")
	ErrNoSpatialDimension     = errors.New("pointcloud: schema has no spatial dimension")
	ErrEmptyInput             = errors.New("pointcloud: empty input")
	ErrUnsupportedCompression = errors.New("pointcloud: unsupported compression")
	ErrInvalidData            = errors.New("pointcloud: invalid data")
	ErrNoIndex                = errors.New("pointcloud: file has no spatial index")
	ErrUnsupportedGeometry    = errors.New("pointcloud: unsupported geometry type")
)

// Compression selects how the points of a patch are stored.
type Compression uint32

const (
	None        Compression = 0
	GHT         Compression = 1 // geohash tree; no codec ships with this package
	Dimensional Compression = 2 // per-dimension byte planes, zstd compressed
)

var compressionNames = map[Compression]string{
	None:        "none",
	GHT:         "ght",
	Dimensional: "dimensional",
}

// String returns the name ParseCompression accepts.
func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("compression(%d)", uint32(c))
}

// ParseCompression maps a compression name (case-insensitive) to its tag.
func ParseCompression(name string) (Compression, error) {
	if name == "" {
		return None, nil
	}
	for c, n := range compressionNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnsupportedCompression, name)
}

// Endian flags the byte order of a buffer produced on another machine.
type Endian uint8

const (
	NDR Endian = iota // little endian
	XDR               // big endian
)

// String returns "XDR" or "NDR".
func (e Endian) String() string {
	if e == XDR {
		return "XDR"
	}
	return "NDR"
}

// Allocator provides the row buffers used by points and patches.
// Alloc must return zero-filled memory. Realloc keeps the existing contents
// and zero-fills any growth.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Realloc(buf []byte, size int) ([]byte, error)
	Free(buf []byte)
}

type heapAllocator struct{}

func (heapAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrAllocation, size)
	}
	return make([]byte, size), nil
}

func (heapAllocator) Realloc(buf []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrAllocation, size)
	}
	if size <= cap(buf) {
		old := len(buf)
		buf = buf[:size]
		if size > old {
			clear(buf[old:])
		}
		return buf, nil
	}
	grown := make([]byte, size)
	copy(grown, buf)
	return grown, nil
}

func (heapAllocator) Free([]byte) {}

// HeapAllocator returns the default allocator backed by the Go heap.
func HeapAllocator() Allocator {
	return heapAllocator{}
}

// LimitAllocator is a heap allocator that refuses to hand out more than a fixed
// number of bytes at once. It is safe for concurrent use.
type LimitAllocator struct {
	mu    sync.Mutex
	limit int
	inUse int
}

// NewLimitAllocator creates an allocator capped at maxBytes outstanding bytes.
func NewLimitAllocator(maxBytes int) *LimitAllocator {
	return &LimitAllocator{limit: maxBytes}
}

// InUse reports the number of bytes currently handed out.
func (a *LimitAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

func (a *LimitAllocator) reserve(delta int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inUse+delta > a.limit {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrAllocation, delta, a.inUse, a.limit)
	}
	a.inUse += delta
	return nil
}

// Alloc hands out size zeroed bytes if they fit under the limit.
func (a *LimitAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrAllocation, size)
	}
	if err := a.reserve(size); err != nil {
		return nil, err
	}
	return make([]byte, size), nil
}

// Realloc grows or shrinks buf, charging only the difference against the limit.
func (a *LimitAllocator) Realloc(buf []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrAllocation, size)
	}
	if err := a.reserve(size - len(buf)); err != nil {
		return nil, err
	}
	grown := make([]byte, size)
	copy(grown, buf)
	return grown, nil
}

// Free credits buf's length back to the limit.
func (a *LimitAllocator) Free(buf []byte) {
	a.mu.Lock()
	a.inUse -= len(buf)
	a.mu.Unlock()
}

// Options configures the facilities shared by a schema and every point and
// patch built on it.
type Options struct {
	Logger    *logrus.Logger        // nil logs to stderr
	Allocator Allocator             // nil uses the Go heap
	Codecs    map[Compression]Codec // nil registers None and Dimensional
}

// DefaultOptions returns options with a stderr logger, the heap allocator and
// the built-in compression codecs.
func DefaultOptions() *Options {
	return &Options{
		Logger:    logrus.New(),
		Allocator: HeapAllocator(),
		Codecs:    DefaultCodecs(),
	}
}

// resolve fills the unset fields of a copy of opts.
func (opts *Options) resolve() *Options {
	o := DefaultOptions()
	if opts == nil {
		return o
	}
	if opts.Logger != nil {
		o.Logger = opts.Logger
	}
	if opts.Allocator != nil {
		o.Allocator = opts.Allocator
	}
	if opts.Codecs != nil {
		o.Codecs = make(map[Compression]Codec, len(opts.Codecs))
		for c, codec := range opts.Codecs {
			o.Codecs[c] = codec
		}
	}
	return o
}
