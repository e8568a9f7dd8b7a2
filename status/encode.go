package status

import (
	"encoding/binary"
	"fmt"
)

// Encode returns a copy of the packed representation of s; it is nil for OK.
func (s Status) Encode() []byte {
	return copyState(s.state)
}

// Decode returns the Status encoded in b. A nil or empty b decodes as OK.
// Codes which are not known are accepted; String reports them by number.
func Decode(b []byte) (Status, error) {
	if len(b) == 0 {
		return Status{}, nil
	}
	if len(b) < headerSize {
		return Status{}, fmt.Errorf("status: decode: buffer too short: %d bytes", len(b))
	}
	n := binary.LittleEndian.Uint32(b)
	if uint64(n) != uint64(len(b)-headerSize) {
		return Status{},
			fmt.Errorf("status: decode: length %d does not match %d message bytes", n,
				len(b)-headerSize)
	}
	if Code(b[4]) == CodeOK {
		return Status{}, fmt.Errorf("status: decode: error status with code OK")
	}
	return Status{state: copyState(b)}, nil
}
