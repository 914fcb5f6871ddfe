// Package catalog maps primitives to decode routines.
//
// Ownership boundary:
// - primitive -> decode/notify registry, populated at startup then sealed
// - message role contracts (request, confirmation, indication)
// - decoded outcome shape (typed, logged, unknown)
//
// Command families own their field layouts and register them here.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrDuplicate    = errors.New("catalog: primitive already registered")
	ErrSealed       = errors.New("catalog: sealed")
	ErrInvalidEntry = errors.New("catalog: invalid entry")
)

// DecodeFunc turns a payload into a typed message.
type DecodeFunc func(payload []byte) (Message, error)

// NotifyFunc handles a fire-and-forget primitive that has no structured form.
type NotifyFunc func(payload []byte, logger zerolog.Logger) error

// Entry is one registered primitive. At most one of Decode and Notify is set;
// an entry with neither is logged on receipt.
type Entry struct {
	Primitive frame.Primitive
	Name      string
	Role      Role
	Decode    DecodeFunc
	Notify    NotifyFunc
}

// DecodeError wraps a family decode failure with the primitive that caused it.
type DecodeError struct {
	Primitive frame.Primitive
	Name      string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("catalog: decode %s (%s): %v", e.Name, e.Primitive, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type Catalog struct {
	mu      sync.RWMutex
	entries map[frame.Primitive]Entry
	sealed  bool
}

func New() *Catalog {
	return &Catalog{entries: make(map[frame.Primitive]Entry)}
}

func (c *Catalog) Register(entries ...Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return ErrSealed
	}
	for _, e := range entries {
		if e.Name == "" {
			return fmt.Errorf("%w: %s missing name", ErrInvalidEntry, e.Primitive)
		}
		if e.Decode != nil && e.Notify != nil {
			return fmt.Errorf("%w: %s sets both decode and notify", ErrInvalidEntry, e.Name)
		}
		if prev, ok := c.entries[e.Primitive]; ok {
			return fmt.Errorf("%w: %s as %s and %s", ErrDuplicate, e.Primitive, prev.Name, e.Name)
		}
		c.entries[e.Primitive] = e
	}
	return nil
}

// Seal makes the catalog read-only.
func (c *Catalog) Seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

func (c *Catalog) Lookup(p frame.Primitive) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[p]
	return e, ok
}

// Name returns the registered name, or the hex primitive when unknown.
func (c *Catalog) Name(p frame.Primitive) string {
	if e, ok := c.Lookup(p); ok {
		return e.Name
	}
	return p.String()
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries lists registrations ordered by primitive.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Primitive < out[j].Primitive
	})
	return out
}

// Decode selects exactly one routine for f.Primitive. Unknown primitives are
// not an error.
func (c *Catalog) Decode(f frame.Frame) (Outcome, error) {
	e, ok := c.Lookup(f.Primitive)
	if !ok {
		return Outcome{Kind: KindUnknown, Primitive: f.Primitive, Name: f.Primitive.String()}, nil
	}
	out := Outcome{Primitive: f.Primitive, Name: e.Name}
	switch {
	case e.Decode != nil:
		msg, err := e.Decode(f.Payload)
		if err != nil {
			return Outcome{}, &DecodeError{Primitive: f.Primitive, Name: e.Name, Err: err}
		}
		out.Kind = KindTyped
		out.Message = msg
	case e.Notify != nil:
		logger := log.With().Str("primitive", f.Primitive.String()).Str("name", e.Name).Logger()
		if err := e.Notify(f.Payload, logger); err != nil {
			return Outcome{}, &DecodeError{Primitive: f.Primitive, Name: e.Name, Err: err}
		}
		out.Kind = KindLogged
	default:
		log.Info().Str("primitive", f.Primitive.String()).Str("name", e.Name).Msg("mail received")
		out.Kind = KindLogged
	}
	return out, nil
}

// EncodeRequest renders req as a wire mail.
func EncodeRequest(req Request) []byte {
	return frame.Encode(req.Primitive(), req.Payload())
}
