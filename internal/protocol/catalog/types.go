package catalog

import (
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/status"
)

type Role uint8

const (
	RoleRequest Role = iota + 1
	RoleConfirmation
	RoleIndication
)

func (r Role) String() string {
	switch r {
	case RoleRequest:
		return "request"
	case RoleConfirmation:
		return "confirmation"
	case RoleIndication:
		return "indication"
	default:
		return "unknown"
	}
}

// Message is any decoded mail.
type Message interface {
	Primitive() frame.Primitive
}

// Request is a host->device mail. Confirms lists the primitives that answer
// it; an empty list means the device answers with indications only.
type Request interface {
	Message
	Payload() []byte
	Confirms() []frame.Primitive
}

// Confirmation is a device->host answer that carries a device status.
type Confirmation interface {
	Message
	DeviceStatus() status.Status
}

type Kind uint8

const (
	KindUnknown Kind = iota
	KindTyped
	KindLogged
)

func (k Kind) String() string {
	switch k {
	case KindTyped:
		return "typed"
	case KindLogged:
		return "logged"
	default:
		return "unknown"
	}
}

// Outcome is the result of a catalog decode. Message is set only for
// KindTyped.
type Outcome struct {
	Kind      Kind
	Primitive frame.Primitive
	Name      string
	Message   Message
}

// Status returns the device status when the message is a Confirmation.
func (o Outcome) Status() (status.Status, bool) {
	c, ok := o.Message.(Confirmation)
	if !ok {
		return 0, false
	}
	return c.DeviceStatus(), true
}
