// Package slice provides Slice, a view of bytes owned by someone else.
package slice

import (
	"bytes"
	"fmt"
	"unsafe"
)

// Slice refers to a contiguous range of bytes that it does not own. The
// memory behind a Slice must stay valid and unmodified for as long as the
// Slice, or any copy of it, is in use. Copying a Slice copies the reference,
// never the bytes.
type Slice struct {
	data []byte
}

// New returns a Slice that refers to b.
func New(b []byte) Slice {
	return Slice{data: b}
}

// FromString returns a Slice that refers to the bytes of s without copying
// them.
func FromString(s string) Slice {
	if len(s) == 0 {
		return Slice{}
	}
	return Slice{data: unsafe.Slice(unsafe.StringData(s), len(s))}
}

// FromCString returns a Slice that refers to b up to, but not including, the
// first zero byte. If b has no zero byte, the Slice refers to all of b.
func FromCString(b []byte) Slice {
	if n := bytes.IndexByte(b, 0); n >= 0 {
		return Slice{data: b[:n]}
	}
	return Slice{data: b}
}

// Data returns the referenced bytes; they must not be modified.
func (s Slice) Data() []byte {
	return s.data
}

func (s Slice) Len() int {
	return len(s.data)
}

func (s Slice) Empty() bool {
	return len(s.data) == 0
}

// At returns the byte at index i; i must be in [0, Len()).
func (s Slice) At(i int) byte {
	if i < 0 || i >= len(s.data) {
		panic(fmt.Sprintf("slice: index %d out of range [0:%d]", i, len(s.data)))
	}
	return s.data[i]
}

// Clear changes s to refer to an empty range.
func (s *Slice) Clear() {
	s.data = nil
}

// RemovePrefix drops the first n bytes from s; n must be in [0, Len()].
func (s *Slice) RemovePrefix(n int) {
	if n < 0 || n > len(s.data) {
		panic(fmt.Sprintf("slice: remove prefix %d out of range [0:%d]", n, len(s.data)))
	}
	s.data = s.data[n:]
}

// String returns a copy of the referenced bytes.
func (s Slice) String() string {
	return string(s.data)
}

// Bytes returns a copy of the referenced bytes.
func (s Slice) Bytes() []byte {
	b := make([]byte, len(s.data))
	copy(b, s.data)
	return b
}

// Compare returns -1, 0, or +1 depending on whether s sorts before, equal
// to, or after b. Bytes are compared as unsigned values; when one Slice is
// a prefix of the other, the shorter one sorts first.
func (s Slice) Compare(b Slice) int {
	return bytes.Compare(s.data, b.data)
}

func (s Slice) Equal(b Slice) bool {
	return bytes.Equal(s.data, b.data)
}

// HasPrefix returns true iff x is a prefix of s.
func (s Slice) HasPrefix(x Slice) bool {
	return bytes.HasPrefix(s.data, x.data)
}
