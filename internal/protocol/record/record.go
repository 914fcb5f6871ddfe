// Package record reads and builds fixed-layout mail records.
//
// Every read is bounds-checked against the payload. A record declares its
// fixed size up front; a payload shorter than that size is rejected before any
// field is read. Variable tails are bounded by a length decoded earlier in the
// same record.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrTruncatedRecord = errors.New("record: truncated")

// TruncatedError reports which record ran out of bytes.
type TruncatedError struct {
	Record string
	Offset int
	Need   int
	Have   int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("record: %s truncated at offset %d: need %d bytes, have %d", e.Record, e.Offset, e.Need, e.Have)
}

func (e *TruncatedError) Is(target error) bool {
	return target == ErrTruncatedRecord
}

// Reader walks a payload with a sticky error. After the first failure every
// accessor returns the zero value.
type Reader struct {
	name string
	buf  []byte
	off  int
	err  error
}

// NewReader checks payload against the record's declared fixed size.
func NewReader(name string, payload []byte, size int) (*Reader, error) {
	if len(payload) < size {
		return nil, &TruncatedError{Record: name, Offset: 0, Need: size, Have: len(payload)}
	}
	return &Reader{name: name, buf: payload}, nil
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf)-r.off {
		r.err = &TruncatedError{Record: r.name, Offset: r.off, Need: n, Have: len(r.buf) - r.off}
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Bool() bool {
	return r.Uint8() != 0
}

// Fixed returns a copy of the next n bytes of the fixed layout.
func (r *Reader) Fixed(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Var returns a copy of a variable field whose length was decoded earlier.
// A declared length beyond the remaining payload fails the record.
func (r *Reader) Var(n int) []byte {
	if n == 0 {
		if r.err != nil {
			return nil
		}
		return []byte{}
	}
	return r.Fixed(n)
}

func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) Offset() int {
	return r.off
}

func (r *Reader) Err() error {
	return r.err
}
