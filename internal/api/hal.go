package api

import (
	"fmt"

	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/record"
	"github.com/danmuck/dectmail/internal/protocol/status"
	"github.com/rs/zerolog"
)

type HalArea uint8

const (
	HalAreaMemory   HalArea = 0
	HalAreaRegister HalArea = 1
	HalAreaNvs      HalArea = 2
	HalAreaEeprom   HalArea = 3
)

func (a HalArea) String() string {
	switch a {
	case HalAreaMemory:
		return "memory"
	case HalAreaRegister:
		return "register"
	case HalAreaNvs:
		return "nvs"
	case HalAreaEeprom:
		return "eeprom"
	default:
		return fmt.Sprintf("HalArea(%d)", uint8(a))
	}
}

// LedCmd is one step of an LED pattern. Duration is in device ticks.
type LedCmd struct {
	Command  uint8
	Duration uint16
}

type HalLedReq struct {
	LedId uint8
	Cmds  []LedCmd
}

func (HalLedReq) Primitive() frame.Primitive  { return ApiHalLedReq }
func (HalLedReq) Confirms() []frame.Primitive { return confirms(ApiHalLedCfm) }

func (r HalLedReq) Payload() []byte {
	b := record.NewBuilder(2 + 3*len(r.Cmds)).Uint8(r.LedId).Uint8(uint8(len(r.Cmds)))
	for _, c := range r.Cmds {
		b.Uint8(c.Command).Uint16(c.Duration)
	}
	return b.Build()
}

func notifyLedCfm(payload []byte, logger zerolog.Logger) error {
	s, err := readStatusOnly("ApiHalLedCfm", payload)
	if err != nil {
		return err
	}
	if !s.Status.IsSuccess() {
		logger.Warn().Str("status", s.Status.String()).Msg("LED request failed")
		return nil
	}
	logger.Info().Msg("LEDs toggled")
	return nil
}

type HalReadReq struct {
	Area    HalArea
	Address uint32
	Length  uint16
}

func (HalReadReq) Primitive() frame.Primitive  { return ApiHalReadReq }
func (HalReadReq) Confirms() []frame.Primitive { return confirms(ApiHalReadCfm) }

func (r HalReadReq) Payload() []byte {
	return record.NewBuilder(7).Uint8(uint8(r.Area)).Uint32(r.Address).Uint16(r.Length).Build()
}

type HalReadCfm struct {
	Status  status.Status
	Area    HalArea
	Address uint32
	Data    []byte
}

func (HalReadCfm) Primitive() frame.Primitive    { return ApiHalReadCfm }
func (c HalReadCfm) DeviceStatus() status.Status { return c.Status }

func decodeHalReadCfm(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiHalReadCfm", payload, 8)
	if err != nil {
		return nil, err
	}
	cfm := HalReadCfm{
		Status:  status.Parse(r.Uint8()),
		Area:    HalArea(r.Uint8()),
		Address: r.Uint32(),
	}
	cfm.Data = r.Var(int(r.Uint16()))
	return cfm, r.Err()
}

type HalWriteReq struct {
	Area    HalArea
	Address uint32
	Data    []byte
}

func (HalWriteReq) Primitive() frame.Primitive  { return ApiHalWriteReq }
func (HalWriteReq) Confirms() []frame.Primitive { return confirms(ApiHalWriteCfm) }

func (r HalWriteReq) Payload() []byte {
	return record.NewBuilder(7 + len(r.Data)).
		Uint8(uint8(r.Area)).
		Uint32(r.Address).
		Len16Bytes(r.Data).
		Build()
}

type HalWriteCfm struct {
	Status status.Status
	Area   HalArea
}

func (HalWriteCfm) Primitive() frame.Primitive    { return ApiHalWriteCfm }
func (c HalWriteCfm) DeviceStatus() status.Status { return c.Status }

func decodeHalWriteCfm(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiHalWriteCfm", payload, 2)
	if err != nil {
		return nil, err
	}
	cfm := HalWriteCfm{Status: status.Parse(r.Uint8()), Area: HalArea(r.Uint8())}
	return cfm, r.Err()
}

func halEntries() []catalog.Entry {
	return []catalog.Entry{
		{Primitive: ApiHalLedReq, Name: "API_HAL_LED_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiHalLedCfm, Name: "API_HAL_LED_CFM", Role: catalog.RoleConfirmation, Notify: notifyLedCfm},
		{Primitive: ApiHalReadReq, Name: "API_HAL_READ_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiHalReadCfm, Name: "API_HAL_READ_CFM", Role: catalog.RoleConfirmation, Decode: decodeHalReadCfm},
		{Primitive: ApiHalWriteReq, Name: "API_HAL_WRITE_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiHalWriteCfm, Name: "API_HAL_WRITE_CFM", Role: catalog.RoleConfirmation, Decode: decodeHalWriteCfm},
	}
}
