package api

import (
	"encoding/hex"
	"strings"

	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/record"
	"github.com/danmuck/dectmail/internal/protocol/status"
	"github.com/rs/zerolog"
)

const (
	RfpiLen       = 5
	AccessCodeLen = 4
)

type FpMmGetIdReq struct{ noParams }

func (FpMmGetIdReq) Primitive() frame.Primitive  { return ApiFpMmGetIdReq }
func (FpMmGetIdReq) Confirms() []frame.Primitive { return confirms(ApiFpMmGetIdCfm) }

type FpMmGetIdCfm struct {
	Status status.Status
	Id     [RfpiLen]byte
}

func (FpMmGetIdCfm) Primitive() frame.Primitive    { return ApiFpMmGetIdCfm }
func (c FpMmGetIdCfm) DeviceStatus() status.Status { return c.Status }

func (c FpMmGetIdCfm) String() string {
	return hex.EncodeToString(c.Id[:])
}

func decodeFpMmGetIdCfm(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiFpMmGetIdCfm", payload, 1+RfpiLen)
	if err != nil {
		return nil, err
	}
	cfm := FpMmGetIdCfm{Status: status.Parse(r.Uint8())}
	copy(cfm.Id[:], r.Fixed(RfpiLen))
	return cfm, r.Err()
}

type FpMmGetAccessCodeReq struct{ noParams }

func (FpMmGetAccessCodeReq) Primitive() frame.Primitive  { return ApiFpMmGetAccessCodeReq }
func (FpMmGetAccessCodeReq) Confirms() []frame.Primitive { return confirms(ApiFpMmGetAccessCodeCfm) }

type FpMmGetAccessCodeCfm struct {
	Status status.Status
	Ac     [AccessCodeLen]byte
}

func (FpMmGetAccessCodeCfm) Primitive() frame.Primitive    { return ApiFpMmGetAccessCodeCfm }
func (c FpMmGetAccessCodeCfm) DeviceStatus() status.Status { return c.Status }

// AccessCode renders the BCD access code; unused digits are 0xF padding.
func (c FpMmGetAccessCodeCfm) AccessCode() string {
	return strings.TrimLeft(hex.EncodeToString(c.Ac[:]), "f")
}

func decodeFpMmGetAccessCodeCfm(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiFpMmGetAccessCodeCfm", payload, 1+AccessCodeLen)
	if err != nil {
		return nil, err
	}
	cfm := FpMmGetAccessCodeCfm{Status: status.Parse(r.Uint8())}
	copy(cfm.Ac[:], r.Fixed(AccessCodeLen))
	return cfm, r.Err()
}

type FpMmSetRegistrationModeReq struct {
	RegistrationEnabled bool
	DeleteLastHandset   bool
}

func (FpMmSetRegistrationModeReq) Primitive() frame.Primitive { return ApiFpMmSetRegistrationModeReq }
func (FpMmSetRegistrationModeReq) Confirms() []frame.Primitive {
	return confirms(ApiFpMmSetRegistrationModeCfm)
}

func (r FpMmSetRegistrationModeReq) Payload() []byte {
	return record.NewBuilder(2).Bool(r.RegistrationEnabled).Bool(r.DeleteLastHandset).Build()
}

// FpMmRegistrationCompleteInd reports a handset that finished registering
// with this base.
type FpMmRegistrationCompleteInd struct {
	Status      status.Status
	HandsetId   uint8
	InfoElement []byte
}

func (FpMmRegistrationCompleteInd) Primitive() frame.Primitive {
	return ApiFpMmRegistrationCompleteInd
}

func decodeFpMmRegistrationCompleteInd(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiFpMmRegistrationCompleteInd", payload, 4)
	if err != nil {
		return nil, err
	}
	ind := FpMmRegistrationCompleteInd{
		Status:    status.Parse(r.Uint8()),
		HandsetId: r.Uint8(),
	}
	ind.InfoElement = r.Var(int(r.Uint16()))
	return ind, r.Err()
}

func notifyHandsetPresent(payload []byte, logger zerolog.Logger) error {
	r, err := record.NewReader("ApiFpMmHandsetPresentInd", payload, 3)
	if err != nil {
		return err
	}
	handset := r.Uint8()
	ie := r.Var(int(r.Uint16()))
	if err := r.Err(); err != nil {
		return err
	}
	logger.Info().Uint8("handset_id", handset).Int("info_element_len", len(ie)).Msg("new handset present")
	return nil
}

func fpmmEntries() []catalog.Entry {
	return []catalog.Entry{
		{Primitive: ApiFpMmGetIdReq, Name: "API_FP_MM_GET_ID_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiFpMmGetIdCfm, Name: "API_FP_MM_GET_ID_CFM", Role: catalog.RoleConfirmation, Decode: decodeFpMmGetIdCfm},
		{Primitive: ApiFpMmGetAccessCodeReq, Name: "API_FP_MM_GET_ACCESS_CODE_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiFpMmGetAccessCodeCfm, Name: "API_FP_MM_GET_ACCESS_CODE_CFM", Role: catalog.RoleConfirmation, Decode: decodeFpMmGetAccessCodeCfm},
		{Primitive: ApiFpMmSetRegistrationModeReq, Name: "API_FP_MM_SET_REGISTRATION_MODE_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiFpMmSetRegistrationModeCfm, Name: "API_FP_MM_SET_REGISTRATION_MODE_CFM", Role: catalog.RoleConfirmation, Notify: notifyStatus("ApiFpMmSetRegistrationModeCfm")},
		{Primitive: ApiFpMmRegistrationCompleteInd, Name: "API_FP_MM_REGISTRATION_COMPLETE_IND", Role: catalog.RoleIndication, Decode: decodeFpMmRegistrationCompleteInd},
		{Primitive: ApiFpMmHandsetPresentInd, Name: "API_FP_MM_HANDSET_PRESENT_IND", Role: catalog.RoleIndication, Notify: notifyHandsetPresent},
	}
}
