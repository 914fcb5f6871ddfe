package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/danmuck/dectmail/internal/protocol/frame"
)

var (
	ErrAlreadyPending = errors.New("session: exchange already pending")
	ErrNoExpected     = errors.New("session: exchange expects no primitive")
)

// Exchange tracks one request awaiting a confirmation.
type Exchange struct {
	raw     []byte
	prim    frame.Primitive
	expect  []frame.Primitive
	timeout time.Duration
	done    chan Inbound

	mu          sync.Mutex
	attempts    int
	retriesLeft int
	firstSentAt time.Time
	sentAt      time.Time
	deadlineAt  time.Time
}

// Raw is the encoded request, resent unchanged on every attempt.
func (x *Exchange) Raw() []byte {
	return x.raw
}

func (x *Exchange) Primitive() frame.Primitive {
	return x.prim
}

func (x *Exchange) Timeout() time.Duration {
	return x.timeout
}

// Done delivers the first inbound mail whose primitive is expected.
func (x *Exchange) Done() <-chan Inbound {
	return x.done
}

// MarkSent records a transmission. Call it before writing so a fast reply
// is never stamped earlier than its request.
func (x *Exchange) MarkSent(at time.Time) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.attempts == 0 {
		x.firstSentAt = at
	}
	x.attempts++
	x.sentAt = at
	if x.timeout > 0 {
		x.deadlineAt = at.Add(x.timeout)
	}
}

// Retry consumes one retry. False means the budget is spent.
func (x *Exchange) Retry() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.retriesLeft <= 0 {
		return false
	}
	x.retriesLeft--
	return true
}

func (x *Exchange) sentBefore(at time.Time) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.attempts > 0 && !at.Before(x.firstSentAt)
}

func (x *Exchange) Attempts() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.attempts
}

// ExchangeSnapshot is a point-in-time copy of the pending exchange.
type ExchangeSnapshot struct {
	Primitive   frame.Primitive
	Expect      []frame.Primitive
	Attempts    int
	RetriesLeft int
	SentAt      time.Time
	DeadlineAt  time.Time
}

// Correlator holds at most one exchange in flight.
type Correlator struct {
	mu      sync.Mutex
	pending *Exchange
}

func NewCorrelator() *Correlator {
	return &Correlator{}
}

// Begin claims the slot for a new exchange. retries is the number of
// retransmissions allowed after the first attempt; timeout 0 waits without
// bound and never retransmits.
func (c *Correlator) Begin(raw []byte, expect []frame.Primitive, retries int, timeout time.Duration) (*Exchange, error) {
	if len(expect) == 0 {
		return nil, ErrNoExpected
	}
	f, err := frame.Decode(raw)
	if err != nil {
		return nil, err
	}
	if retries < 0 || timeout <= 0 {
		retries = 0
	}
	x := &Exchange{
		raw:         raw,
		prim:        f.Primitive,
		expect:      slices.Clone(expect),
		timeout:     timeout,
		done:        make(chan Inbound, 1),
		retriesLeft: retries,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return nil, ErrAlreadyPending
	}
	c.pending = x
	return x, nil
}

// Offer resolves the pending exchange if in carries an expected primitive
// and arrived after the first transmission. The slot is released on
// resolution.
func (c *Correlator) Offer(in Inbound) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	x := c.pending
	if x == nil || !matches(x.expect, in.Primitive()) || !x.sentBefore(in.ReceivedAt) {
		return false
	}
	c.pending = nil
	x.done <- in
	return true
}

// Finish releases the slot if x still holds it.
func (c *Correlator) Finish(x *Exchange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == x {
		c.pending = nil
	}
}

func (c *Correlator) Pending() (ExchangeSnapshot, bool) {
	c.mu.Lock()
	x := c.pending
	c.mu.Unlock()
	if x == nil {
		return ExchangeSnapshot{}, false
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return ExchangeSnapshot{
		Primitive:   x.prim,
		Expect:      slices.Clone(x.expect),
		Attempts:    x.attempts,
		RetriesLeft: x.retriesLeft,
		SentAt:      x.sentAt,
		DeadlineAt:  x.deadlineAt,
	}, true
}
