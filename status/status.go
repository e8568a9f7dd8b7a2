// Package status provides Status, the result of every fallible store
// operation. A Status is either OK or carries one error code and a message.
//
// An OK Status holds no buffer, so returning success never allocates. An error
// Status holds a single buffer laid out as:
//
//	state[0:4] == length of message, little endian
//	state[4]   == code
//	state[5:]  == message
package status

import (
	"encoding/binary"
	"fmt"

	"github.com/leftmike/kvcore/slice"
)

type Code byte

const (
	CodeOK Code = iota
	CodeNotFound
	CodeCorruption
	CodeNotSupported
	CodeInvalidArgument
	CodeIOError
)

const headerSize = 5

var (
	separator = []byte{':', ' '}

	codeNames = map[Code]string{
		CodeOK:              "OK",
		CodeNotFound:        "NotFound",
		CodeCorruption:      "Corruption",
		CodeNotSupported:    "NotSupported",
		CodeInvalidArgument: "InvalidArgument",
		CodeIOError:         "IOError",
	}

	codeLabels = map[Code]string{
		CodeNotFound:        "NotFound: ",
		CodeCorruption:      "Corruption: ",
		CodeNotSupported:    "Not implemented: ",
		CodeInvalidArgument: "Invalid argument: ",
		CodeIOError:         "IO error: ",
	}
)

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Unknown code(%d)", c)
}

func (c Code) label() string {
	if l, ok := codeLabels[c]; ok {
		return l
	}
	return fmt.Sprintf("Unknown code(%d): ", c)
}

// Status is OK when state is nil. A constructed state is never written to
// again.
type Status struct {
	state []byte
}

func OK() Status {
	return Status{}
}

func NotFound(msg slice.Slice, msg2 ...slice.Slice) Status {
	return newStatus(CodeNotFound, msg, msg2)
}

func Corruption(msg slice.Slice, msg2 ...slice.Slice) Status {
	return newStatus(CodeCorruption, msg, msg2)
}

func NotSupported(msg slice.Slice, msg2 ...slice.Slice) Status {
	return newStatus(CodeNotSupported, msg, msg2)
}

func InvalidArgument(msg slice.Slice, msg2 ...slice.Slice) Status {
	return newStatus(CodeInvalidArgument, msg, msg2)
}

func IOError(msg slice.Slice, msg2 ...slice.Slice) Status {
	return newStatus(CodeIOError, msg, msg2)
}

func newStatus(code Code, msg slice.Slice, msg2 []slice.Slice) Status {
	if code == CodeOK {
		panic("status: error status with code OK")
	}
	if len(msg2) > 1 {
		panic("status: more than one secondary message")
	}

	len1 := msg.Len()
	size := len1
	var sec slice.Slice
	if len(msg2) == 1 && !msg2[0].Empty() {
		sec = msg2[0]
		size += len(separator) + sec.Len()
	}

	state := make([]byte, headerSize+size)
	binary.LittleEndian.PutUint32(state, uint32(size))
	state[4] = byte(code)
	copy(state[headerSize:], msg.Data())
	if !sec.Empty() {
		copy(state[headerSize+len1:], separator)
		copy(state[headerSize+len1+len(separator):], sec.Data())
	}
	return Status{state: state}
}

func (s Status) IsOK() bool {
	return s.state == nil
}

func (s Status) IsNotFound() bool {
	return s.Code() == CodeNotFound
}

func (s Status) IsCorruption() bool {
	return s.Code() == CodeCorruption
}

func (s Status) IsIOError() bool {
	return s.Code() == CodeIOError
}

func (s Status) IsNotSupported() bool {
	return s.Code() == CodeNotSupported
}

func (s Status) IsInvalidArgument() bool {
	return s.Code() == CodeInvalidArgument
}

func (s Status) Code() Code {
	if s.state == nil {
		return CodeOK
	}
	return Code(s.state[4])
}

func (s Status) message() []byte {
	if s.state == nil {
		return nil
	}
	n := binary.LittleEndian.Uint32(s.state)
	return s.state[headerSize : headerSize+n]
}

// Message returns the message without the label for the code; it is empty
// for OK.
func (s Status) Message() string {
	return string(s.message())
}

// String returns "OK" for success; otherwise a label for the code followed by
// the message.
func (s Status) String() string {
	if s.state == nil {
		return "OK"
	}
	return s.Code().label() + string(s.message())
}

func copyState(state []byte) []byte {
	if state == nil {
		return nil
	}
	c := make([]byte, len(state))
	copy(c, state)
	return c
}

// Clone returns a Status that shares no memory with s.
func (s Status) Clone() Status {
	return Status{state: copyState(s.state)}
}

func sameState(a, b []byte) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return &a[0] == &b[0]
}

// Assign replaces s with a deep copy of rhs. Assigning a Status to itself,
// or OK to OK, does nothing.
func (s *Status) Assign(rhs Status) {
	if !sameState(s.state, rhs.state) {
		s.state = copyState(rhs.state)
	}
}

// Move transfers the contents of rhs to s and leaves rhs OK. Moving a Status
// to itself does nothing.
func (s *Status) Move(rhs *Status) {
	if s == rhs {
		return
	}
	s.state = rhs.state
	rhs.state = nil
}
