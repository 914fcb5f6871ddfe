package session

import (
	"slices"
	"time"

	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
)

// Inbound is one decoded mail as delivered to an exchange or waiter.
type Inbound struct {
	Frame      frame.Frame
	Outcome    catalog.Outcome
	ReceivedAt time.Time
}

func (in Inbound) Primitive() frame.Primitive {
	return in.Frame.Primitive
}

func matches(targets []frame.Primitive, p frame.Primitive) bool {
	return slices.Contains(targets, p)
}
