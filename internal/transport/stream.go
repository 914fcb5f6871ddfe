// Package transport moves raw mails between the host and the module.
//
// On the UART each mail is wrapped as:
//
//	0x10 | length (u16, big endian) | mail | checksum (u8)
//
// where checksum is the byte sum of the mail. The reader resynchronizes on
// the start byte after garbage or a rejected frame.
package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	StartByte         = 0x10
	DefaultMaxMailLen = 2048
)

var (
	ErrChecksum  = errors.New("transport: checksum mismatch")
	ErrOversize  = errors.New("transport: mail exceeds max length")
	ErrEmptyMail = errors.New("transport: empty mail")
)

// Link carries whole mails. ReadFrame blocks until a mail arrives or the
// link fails; it must not be called concurrently with itself.
type Link interface {
	ReadFrame() ([]byte, error)
	WriteFrame(mail []byte) error
	Close() error
}

type StreamConfig struct {
	MaxMailLen   int
	WriteTimeout time.Duration
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Stream frames mails over a byte stream.
type Stream struct {
	rw  io.ReadWriteCloser
	r   *bufio.Reader
	cfg StreamConfig

	wmu sync.Mutex
}

func NewStream(rw io.ReadWriteCloser, cfg StreamConfig) *Stream {
	if cfg.MaxMailLen <= 0 {
		cfg.MaxMailLen = DefaultMaxMailLen
	}
	return &Stream{rw: rw, r: bufio.NewReader(rw), cfg: cfg}
}

func checksum(mail []byte) byte {
	var sum byte
	for _, b := range mail {
		sum += b
	}
	return sum
}

// EncodeFrame wraps mail for the wire.
func EncodeFrame(mail []byte) []byte {
	out := make([]byte, 0, len(mail)+4)
	out = append(out, StartByte)
	out = binary.BigEndian.AppendUint16(out, uint16(len(mail)))
	out = append(out, mail...)
	return append(out, checksum(mail))
}

// ReadFrame returns the next mail. ErrChecksum and ErrOversize reject one
// frame only; the next call resumes scanning for a start byte.
func (s *Stream) ReadFrame() ([]byte, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == StartByte {
			break
		}
	}
	var hdr [2]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(hdr[:]))
	if n > s.cfg.MaxMailLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrOversize, n, s.cfg.MaxMailLen)
	}
	buf := make([]byte, n+1)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, err
	}
	mail := buf[:n]
	if got, want := buf[n], checksum(mail); got != want {
		return nil, fmt.Errorf("%w: got 0x%02X want 0x%02X", ErrChecksum, got, want)
	}
	return mail, nil
}

func (s *Stream) WriteFrame(mail []byte) error {
	if len(mail) == 0 {
		return ErrEmptyMail
	}
	if len(mail) > s.cfg.MaxMailLen {
		return fmt.Errorf("%w: %d > %d", ErrOversize, len(mail), s.cfg.MaxMailLen)
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if d, ok := s.rw.(writeDeadliner); ok && s.cfg.WriteTimeout > 0 {
		_ = d.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if _, err := s.rw.Write(EncodeFrame(mail)); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

func (s *Stream) Close() error {
	return s.rw.Close()
}

// IsFrameError reports errors that reject a single frame without
// affecting the link.
func IsFrameError(err error) bool {
	return errors.Is(err, ErrChecksum) || errors.Is(err, ErrOversize)
}
