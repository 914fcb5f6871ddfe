package api

import (
	"fmt"

	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/record"
	"github.com/danmuck/dectmail/internal/protocol/status"
	"github.com/rs/zerolog"
)

// LinkDateLen is the size of a firmware link date: BCD year, month, day,
// hour, minute.
const LinkDateLen = 5

type LinkDate [LinkDateLen]byte

func readLinkDate(r *record.Reader) LinkDate {
	var d LinkDate
	copy(d[:], r.Fixed(LinkDateLen))
	return d
}

func (d LinkDate) String() string {
	return fmt.Sprintf("20%02x-%02x-%02x %02x:%02x", d[0], d[1], d[2], d[3], d[4])
}

// noParams is embedded by requests without a payload.
type noParams struct{}

func (noParams) Payload() []byte { return nil }

func confirms(p ...frame.Primitive) []frame.Primitive {
	return p
}

// statusOnly is the layout of every confirmation that carries just a status.
type statusOnly struct {
	Status status.Status
}

func (c statusOnly) DeviceStatus() status.Status { return c.Status }

func readStatusOnly(name string, payload []byte) (statusOnly, error) {
	r, err := record.NewReader(name, payload, 1)
	if err != nil {
		return statusOnly{}, err
	}
	return statusOnly{Status: status.Parse(r.Uint8())}, r.Err()
}

// notifyStatus logs success or the device error for status-only notifications.
func notifyStatus(name string) func([]byte, zerolog.Logger) error {
	return func(payload []byte, logger zerolog.Logger) error {
		s, err := readStatusOnly(name, payload)
		if err != nil {
			return err
		}
		if s.Status.IsSuccess() {
			logger.Info().Msg("success")
			return nil
		}
		logger.Warn().Str("status", s.Status.String()).Msg("device reported error")
		return nil
	}
}
