package pointcloud

import "fmt"

var errFreed = fmt.Errorf("%w: buffer was freed", ErrInvalidData)

// rowStore is the byte buffer behind a point or patch. The variants differ in
// who owns the memory and whether it may be written.
type rowStore interface {
	bytes() []byte
	mutable() ([]byte, error)
	release(a Allocator)
	readOnly() bool
}

// ownedRows were allocated by this package and are returned to the allocator
// on release.
type ownedRows []byte

func (r ownedRows) bytes() []byte { return r }
func (r ownedRows) mutable() ([]byte, error) { return r, nil }
func (r ownedRows) release(a Allocator) { a.Free(r) }
func (r ownedRows) readOnly() bool { return false }

// sharedRows wrap a caller's buffer for writing. The caller keeps ownership.
type sharedRows []byte

func (r sharedRows) bytes() []byte { return r }
func (r sharedRows) mutable() ([]byte, error) { return r, nil }
func (r sharedRows) release(Allocator) {}
func (r sharedRows) readOnly() bool { return false }

// viewRows wrap memory owned elsewhere that must not be modified.
type viewRows []byte

func (r viewRows) bytes() []byte { return r }
func (r viewRows) mutable() ([]byte, error) { return nil, ErrReadOnly }
func (r viewRows) release(Allocator) {}
func (r viewRows) readOnly() bool { return true }

// freedRows replace the store of a point or patch after Free.
type freedRows struct{}

func (freedRows) bytes() []byte { return nil }
func (freedRows) mutable() ([]byte, error) { return nil, errFreed }
func (freedRows) release(Allocator) {}
func (freedRows) readOnly() bool { return true }
