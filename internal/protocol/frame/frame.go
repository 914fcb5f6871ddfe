package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the size of the primitive that prefixes every mail.
const HeaderLen = 2

var ErrTooShort = errors.New("frame: buffer shorter than primitive header")

// Primitive names one mail type across every command family.
type Primitive uint16

func (p Primitive) String() string {
	return fmt.Sprintf("0x%04X", uint16(p))
}

// Frame is one mail: a primitive and its family-specific payload.
type Frame struct {
	Primitive Primitive
	Payload   []byte
}

// Encode emits the little-endian primitive followed by payload unchanged.
func Encode(p Primitive, payload []byte) []byte {
	buf := make([]byte, HeaderLen+len(payload))
	binary.LittleEndian.PutUint16(buf[0:HeaderLen], uint16(p))
	copy(buf[HeaderLen:], payload)
	return buf
}

// Decode splits buf into primitive and payload. The payload is copied so the
// frame never aliases a transport buffer.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < HeaderLen {
		return Frame{}, fmt.Errorf("%w: len=%d", ErrTooShort, len(buf))
	}
	payload := make([]byte, len(buf)-HeaderLen)
	copy(payload, buf[HeaderLen:])
	return Frame{
		Primitive: Primitive(binary.LittleEndian.Uint16(buf[0:HeaderLen])),
		Payload:   payload,
	}, nil
}

func (f Frame) Bytes() []byte {
	return Encode(f.Primitive, f.Payload)
}
