package transport

import "net"

// Pipe returns two connected in-memory links. Writes on one side block
// until the other side reads.
func Pipe() (*Stream, *Stream) {
	a, b := net.Pipe()
	return NewStream(a, StreamConfig{}), NewStream(b, StreamConfig{})
}
