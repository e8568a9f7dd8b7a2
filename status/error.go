package status

import (
	"errors"
	"io"
	"os"

	"github.com/leftmike/kvcore/slice"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrCorruption      = errors.New("corruption")
	ErrNotSupported    = errors.New("not supported")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIOError         = errors.New("io error")

	codeErrors = map[Code]error{
		CodeNotFound:        ErrNotFound,
		CodeCorruption:      ErrCorruption,
		CodeNotSupported:    ErrNotSupported,
		CodeInvalidArgument: ErrInvalidArgument,
		CodeIOError:         ErrIOError,
	}
)

type statusError struct {
	st Status
}

func (se statusError) Error() string {
	return se.st.String()
}

func (se statusError) Is(target error) bool {
	return codeErrors[se.st.Code()] == target
}

// Err returns nil for OK and otherwise an error describing s. errors.Is
// matches the error against the sentinel for its code, such as ErrNotFound.
func (s Status) Err() error {
	if s.state == nil {
		return nil
	}
	return statusError{st: s}
}

// FromError converts err to a Status. Errors returned by Err convert back to
// the same Status.
func FromError(err error) Status {
	if err == nil {
		return Status{}
	}

	var se statusError
	if errors.As(err, &se) {
		return se.st.Clone()
	}

	msg := slice.FromString(err.Error())
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, io.EOF):
		return NotFound(msg)
	case errors.Is(err, os.ErrInvalid):
		return InvalidArgument(msg)
	}
	return IOError(msg)
}
