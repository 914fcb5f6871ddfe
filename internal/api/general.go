package api

import (
	"fmt"

	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/record"
	"github.com/danmuck/dectmail/internal/protocol/status"
	"github.com/rs/zerolog"
)

const fwVersionLen = 1 + 4 + LinkDateLen + 1

type FpResetReq struct{ noParams }

func (FpResetReq) Primitive() frame.Primitive  { return ApiFpResetReq }
func (FpResetReq) Confirms() []frame.Primitive { return confirms(ApiFpResetInd) }

type PpResetReq struct{ noParams }

func (PpResetReq) Primitive() frame.Primitive  { return ApiPpResetReq }
func (PpResetReq) Confirms() []frame.Primitive { return confirms(ApiPpResetInd) }

type FpGetFwVersionReq struct{ noParams }

func (FpGetFwVersionReq) Primitive() frame.Primitive  { return ApiFpGetFwVersionReq }
func (FpGetFwVersionReq) Confirms() []frame.Primitive { return confirms(ApiFpGetFwVersionCfm) }

type PpGetFwVersionReq struct{ noParams }

func (PpGetFwVersionReq) Primitive() frame.Primitive  { return ApiPpGetFwVersionReq }
func (PpGetFwVersionReq) Confirms() []frame.Primitive { return confirms(ApiPpGetFwVersionCfm) }

// FwVersion is the shared layout of the FP and PP firmware version
// confirmations.
type FwVersion struct {
	Status     status.Status
	VersionHex uint32
	LinkDate   LinkDate
	DectType   uint8
}

func (v FwVersion) DeviceStatus() status.Status { return v.Status }

func (v FwVersion) String() string {
	return fmt.Sprintf("%x (linked %s, dect type %d)", v.VersionHex, v.LinkDate, v.DectType)
}

type FpGetFwVersionCfm struct{ FwVersion }

func (FpGetFwVersionCfm) Primitive() frame.Primitive { return ApiFpGetFwVersionCfm }

type PpGetFwVersionCfm struct{ FwVersion }

func (PpGetFwVersionCfm) Primitive() frame.Primitive { return ApiPpGetFwVersionCfm }

func readFwVersion(name string, payload []byte) (FwVersion, error) {
	r, err := record.NewReader(name, payload, fwVersionLen)
	if err != nil {
		return FwVersion{}, err
	}
	v := FwVersion{
		Status:     status.Parse(r.Uint8()),
		VersionHex: r.Uint32(),
		LinkDate:   readLinkDate(r),
		DectType:   r.Uint8(),
	}
	return v, r.Err()
}

func decodeFpGetFwVersionCfm(payload []byte) (catalog.Message, error) {
	v, err := readFwVersion("ApiFpGetFwVersionCfm", payload)
	if err != nil {
		return nil, err
	}
	return FpGetFwVersionCfm{v}, nil
}

func decodePpGetFwVersionCfm(payload []byte) (catalog.Message, error) {
	v, err := readFwVersion("ApiPpGetFwVersionCfm", payload)
	if err != nil {
		return nil, err
	}
	return PpGetFwVersionCfm{v}, nil
}

func notifyTargetReset(_ []byte, logger zerolog.Logger) error {
	logger.Warn().Msg("target reset")
	return nil
}

func generalEntries() []catalog.Entry {
	return []catalog.Entry{
		{Primitive: RtxEapTargetResetInd, Name: "RTX_EAP_TARGET_RESET_IND", Role: catalog.RoleIndication, Notify: notifyTargetReset},
		{Primitive: ApiFpResetReq, Name: "API_FP_RESET_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiFpResetInd, Name: "API_FP_RESET_IND", Role: catalog.RoleIndication, Notify: notifyStatus("ApiFpResetInd")},
		{Primitive: ApiFpGetFwVersionReq, Name: "API_FP_GET_FW_VERSION_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiFpGetFwVersionCfm, Name: "API_FP_GET_FW_VERSION_CFM", Role: catalog.RoleConfirmation, Decode: decodeFpGetFwVersionCfm},
		{Primitive: ApiPpResetReq, Name: "API_PP_RESET_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiPpResetInd, Name: "API_PP_RESET_IND", Role: catalog.RoleIndication, Notify: notifyStatus("ApiPpResetInd")},
		{Primitive: ApiPpGetFwVersionReq, Name: "API_PP_GET_FW_VERSION_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiPpGetFwVersionCfm, Name: "API_PP_GET_FW_VERSION_CFM", Role: catalog.RoleConfirmation, Decode: decodePpGetFwVersionCfm},
	}
}
