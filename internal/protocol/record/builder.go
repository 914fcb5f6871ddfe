package record

import "encoding/binary"

// Builder assembles a request payload in wire order.
type Builder struct {
	buf []byte
}

func NewBuilder(sizeHint int) *Builder {
	return &Builder{buf: make([]byte, 0, sizeHint)}
}

func (b *Builder) Uint8(v uint8) *Builder {
	b.buf = append(b.buf, v)
	return b
}

func (b *Builder) Uint16(v uint16) *Builder {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
	return b
}

func (b *Builder) Uint32(v uint32) *Builder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
	return b
}

func (b *Builder) Bool(v bool) *Builder {
	if v {
		return b.Uint8(1)
	}
	return b.Uint8(0)
}

func (b *Builder) Bytes(v []byte) *Builder {
	b.buf = append(b.buf, v...)
	return b
}

// Fixed writes exactly n bytes, zero padding or truncating v.
func (b *Builder) Fixed(v []byte, n int) *Builder {
	out := make([]byte, n)
	copy(out, v)
	b.buf = append(b.buf, out...)
	return b
}

// Len16Bytes writes a uint16 length followed by v.
func (b *Builder) Len16Bytes(v []byte) *Builder {
	return b.Uint16(uint16(len(v))).Bytes(v)
}

func (b *Builder) Build() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}
