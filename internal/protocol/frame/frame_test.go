package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeScenario(t *testing.T) {
	got := Encode(0x1234, []byte{0xAA, 0xBB})
	want := []byte{0x34, 0x12, 0xAA, 0xBB}
	if !bytes.Equal(got, want) {
		t.Fatalf("encode mismatch: got=% X want=% X", got, want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Frame{
		{Primitive: 0x0000, Payload: []byte{}},
		{Primitive: 0x4FFF, Payload: []byte{0x02, 0x02, 0x01, 0x00, 0x00}},
		{Primitive: 0xFFFF, Payload: bytes.Repeat([]byte{0x5A}, 300)},
	}
	for _, in := range cases {
		out, err := Decode(Encode(in.Primitive, in.Payload))
		if err != nil {
			t.Fatalf("decode %s: %v", in.Primitive, err)
		}
		if out.Primitive != in.Primitive {
			t.Fatalf("primitive mismatch: got=%s want=%s", out.Primitive, in.Primitive)
		}
		if !bytes.Equal(out.Payload, in.Payload) {
			t.Fatalf("payload mismatch for %s", in.Primitive)
		}
	}
}

func TestDecodeTooShort(t *testing.T) {
	for _, buf := range [][]byte{nil, {}, {0x01}} {
		_, err := Decode(buf)
		if !errors.Is(err, ErrTooShort) {
			t.Fatalf("expected ErrTooShort for %d bytes, got %v", len(buf), err)
		}
	}
}

func TestDecodeHeaderOnlyHasEmptyPayload(t *testing.T) {
	f, err := Decode([]byte{0x03, 0x40})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Primitive != 0x4003 {
		t.Fatalf("unexpected primitive: %s", f.Primitive)
	}
	if len(f.Payload) != 0 {
		t.Fatalf("expected empty payload, got % X", f.Payload)
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	buf := []byte{0x01, 0x00, 0x07}
	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	buf[2] = 0xFF
	if f.Payload[0] != 0x07 {
		t.Fatalf("payload aliased input buffer")
	}
}

func TestPrimitiveString(t *testing.T) {
	if got := Primitive(0x5a05).String(); got != "0x5A05" {
		t.Fatalf("unexpected string: %q", got)
	}
}
