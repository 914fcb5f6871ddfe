package api

import (
	"fmt"

	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/record"
	"github.com/danmuck/dectmail/internal/protocol/status"
)

// PpMmLockReq asks the handset to lock to its registered base. The device
// answers with a LOCKED or UNLOCKED indication only.
type PpMmLockReq struct{ noParams }

func (PpMmLockReq) Primitive() frame.Primitive  { return ApiPpMmLockReq }
func (PpMmLockReq) Confirms() []frame.Primitive { return nil }

// PpMmLockedReq queries the current lock state.
type PpMmLockedReq struct{ noParams }

func (PpMmLockedReq) Primitive() frame.Primitive { return ApiPpMmLockedReq }
func (PpMmLockedReq) Confirms() []frame.Primitive {
	return confirms(ApiPpMmLockedInd, ApiPpMmUnlockedInd)
}

type PpMmLockedInd struct{}

func (PpMmLockedInd) Primitive() frame.Primitive { return ApiPpMmLockedInd }

type PpMmUnlockedInd struct{}

func (PpMmUnlockedInd) Primitive() frame.Primitive { return ApiPpMmUnlockedInd }

func decodePpMmLockedInd([]byte) (catalog.Message, error)   { return PpMmLockedInd{}, nil }
func decodePpMmUnlockedInd([]byte) (catalog.Message, error) { return PpMmUnlockedInd{}, nil }

type SearchMode uint8

const (
	SearchContinuous SearchMode = 0
	SearchSingle     SearchMode = 1
)

func (m SearchMode) String() string {
	switch m {
	case SearchContinuous:
		return "continuous"
	case SearchSingle:
		return "single"
	default:
		return fmt.Sprintf("SearchMode(%d)", uint8(m))
	}
}

// PpMmRegistrationSearchReq starts scanning for bases open to registration.
// Results arrive as search indications.
type PpMmRegistrationSearchReq struct {
	SearchMode SearchMode
}

func (PpMmRegistrationSearchReq) Primitive() frame.Primitive  { return ApiPpMmRegistrationSearchReq }
func (PpMmRegistrationSearchReq) Confirms() []frame.Primitive { return nil }

func (r PpMmRegistrationSearchReq) Payload() []byte {
	return record.NewBuilder(1).Uint8(uint8(r.SearchMode)).Build()
}

const searchIndLen = RfpiLen + 4 + 4

type PpMmRegistrationSearchInd struct {
	Rfpi        [RfpiLen]byte
	FpCapBit    uint32
	FpExtCapBit uint32
}

func (PpMmRegistrationSearchInd) Primitive() frame.Primitive { return ApiPpMmRegistrationSearchInd }

// Caps names every capability bit set in the base's announcement.
func (i PpMmRegistrationSearchInd) Caps() []string {
	var out []string
	for _, c := range fpCaps {
		if i.FpCapBit&c.bit != 0 {
			out = append(out, c.name)
		}
	}
	for _, c := range fpExtCaps {
		if i.FpExtCapBit&c.bit != 0 {
			out = append(out, c.name)
		}
	}
	return out
}

func decodePpMmRegistrationSearchInd(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiPpMmRegistrationSearchInd", payload, searchIndLen)
	if err != nil {
		return nil, err
	}
	var ind PpMmRegistrationSearchInd
	copy(ind.Rfpi[:], r.Fixed(RfpiLen))
	ind.FpCapBit = r.Uint32()
	ind.FpExtCapBit = r.Uint32()
	return ind, r.Err()
}

type capBit struct {
	bit  uint32
	name string
}

// Higher layer capabilities a12..a31 of the fixed part, most significant first.
var fpCaps = []capBit{
	{0x00080000, "extended FP info"},
	{0x00040000, "double duplex bearer connections"},
	{0x00020000, "reserved"},
	{0x00010000, "double slot"},
	{0x00008000, "half slot"},
	{0x00004000, "full slot"},
	{0x00002000, "frequency control"},
	{0x00001000, "page repetition"},
	{0x00000800, "C/O setup on dummy allowed"},
	{0x00000400, "C/L uplink"},
	{0x00000200, "C/L downlink"},
	{0x00000100, "basic A-field setup"},
	{0x00000080, "advanced A-field setup"},
	{0x00000040, "B-field setup"},
	{0x00000020, "CF messages"},
	{0x00000010, "IN minimum delay"},
	{0x00000008, "IN normal delay"},
	{0x00000004, "IP error detection"},
	{0x00000002, "IP error correction"},
	{0x00000001, "multibearer connections"},
}

var fpExtCaps = []capBit{
	{0x00800000, "wireless relay stations"},
	{0x00400000, "SYNC proof"},
	{0x00080000, "DPRS"},
	{0x00040000, "ISDN data"},
	{0x00020000, "data services"},
	{0x00001000, "GAP"},
	{0x00000800, "encryption"},
	{0x00000400, "access rights requests"},
	{0x00000200, "external handover"},
	{0x00000100, "intra-cell handover"},
}

// PpMmRegistrationSelectedReq registers with the base identified by Rfpi.
type PpMmRegistrationSelectedReq struct {
	SubscriptionNo uint8
	AcCode         [AccessCodeLen]byte
	Rfpi           [RfpiLen]byte
}

func (PpMmRegistrationSelectedReq) Primitive() frame.Primitive {
	return ApiPpMmRegistrationSelectedReq
}
func (PpMmRegistrationSelectedReq) Confirms() []frame.Primitive { return nil }

func (r PpMmRegistrationSelectedReq) Payload() []byte {
	return record.NewBuilder(1+AccessCodeLen+RfpiLen).
		Uint8(r.SubscriptionNo).
		Bytes(r.AcCode[:]).
		Bytes(r.Rfpi[:]).
		Build()
}

// PpMmRegistrationAutoReq registers with the first base open to registration.
type PpMmRegistrationAutoReq struct {
	SubscriptionNo uint8
	AcCode         [AccessCodeLen]byte
}

func (PpMmRegistrationAutoReq) Primitive() frame.Primitive  { return ApiPpMmRegistrationAutoReq }
func (PpMmRegistrationAutoReq) Confirms() []frame.Primitive { return nil }

func (r PpMmRegistrationAutoReq) Payload() []byte {
	return record.NewBuilder(1 + AccessCodeLen).Uint8(r.SubscriptionNo).Bytes(r.AcCode[:]).Build()
}

type PpMmRegistrationCompleteInd struct {
	Status      status.Status
	InfoElement []byte
}

func (PpMmRegistrationCompleteInd) Primitive() frame.Primitive {
	return ApiPpMmRegistrationCompleteInd
}
func (i PpMmRegistrationCompleteInd) DeviceStatus() status.Status { return i.Status }

func decodePpMmRegistrationCompleteInd(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiPpMmRegistrationCompleteInd", payload, 3)
	if err != nil {
		return nil, err
	}
	ind := PpMmRegistrationCompleteInd{Status: status.Parse(r.Uint8())}
	ind.InfoElement = r.Var(int(r.Uint16()))
	return ind, r.Err()
}

// RejectReason is the DECT MM reject reason carried by a failed registration.
type RejectReason uint8

var rejectReasons = map[RejectReason]string{
	0x01: "TPUI unknown",
	0x02: "IPUI unknown",
	0x03: "network assigned identity unknown",
	0x05: "IPEI not accepted",
	0x06: "IPUI not accepted",
	0x10: "authentication failed",
	0x11: "no authentication algorithm",
	0x12: "authentication algorithm not supported",
	0x13: "authentication key not supported",
	0x14: "UPI not entered",
	0x17: "no cipher algorithm",
	0x18: "cipher algorithm not supported",
	0x19: "cipher key not supported",
	0x20: "incompatible service",
	0x21: "false LCE reply",
	0x22: "late LCE reply",
	0x23: "invalid TPUI",
	0x24: "TPUI assignment limits unacceptable",
	0x2F: "insufficient memory",
	0x30: "overload",
	0x40: "test call back: normal, en-bloc",
	0x41: "test call back: normal, piecewise",
	0x42: "test call back: emergency, en-bloc",
	0x43: "test call back: emergency, piecewise",
	0x5F: "invalid message",
	0x60: "information element error",
	0x64: "invalid information element contents",
	0x70: "timer expiry",
	0x76: "PLMN not allowed",
	0x80: "location area not allowed",
	0x81: "national roaming not allowed in this location area",
}

func (r RejectReason) String() string {
	if name, ok := rejectReasons[r]; ok {
		return name
	}
	return fmt.Sprintf("reject reason 0x%02X", uint8(r))
}

type PpMmRegistrationFailedInd struct {
	Reason      RejectReason
	InfoElement []byte
}

func (PpMmRegistrationFailedInd) Primitive() frame.Primitive { return ApiPpMmRegistrationFailedInd }

func decodePpMmRegistrationFailedInd(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiPpMmRegistrationFailedInd", payload, 3)
	if err != nil {
		return nil, err
	}
	ind := PpMmRegistrationFailedInd{Reason: RejectReason(r.Uint8())}
	ind.InfoElement = r.Var(int(r.Uint16()))
	return ind, r.Err()
}

// PpMmFpNameInd carries the display name of the base the handset locked to.
type PpMmFpNameInd struct {
	Name []byte
}

func (PpMmFpNameInd) Primitive() frame.Primitive { return ApiPpMmFpNameInd }

func (i PpMmFpNameInd) String() string {
	s, err := record.Text(i.Name)
	if err != nil {
		return fmt.Sprintf("%q", i.Name)
	}
	return s
}

func decodePpMmFpNameInd(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiPpMmFpNameInd", payload, 1)
	if err != nil {
		return nil, err
	}
	ind := PpMmFpNameInd{}
	ind.Name = r.Var(int(r.Uint8()))
	return ind, r.Err()
}

func ppmmEntries() []catalog.Entry {
	return []catalog.Entry{
		{Primitive: ApiPpMmLockReq, Name: "API_PP_MM_LOCK_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiPpMmLockedReq, Name: "API_PP_MM_LOCKED_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiPpMmLockedInd, Name: "API_PP_MM_LOCKED_IND", Role: catalog.RoleIndication, Decode: decodePpMmLockedInd},
		{Primitive: ApiPpMmUnlockedInd, Name: "API_PP_MM_UNLOCKED_IND", Role: catalog.RoleIndication, Decode: decodePpMmUnlockedInd},
		{Primitive: ApiPpMmRegistrationAutoReq, Name: "API_PP_MM_REGISTRATION_AUTO_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiPpMmRegistrationSearchReq, Name: "API_PP_MM_REGISTRATION_SEARCH_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiPpMmRegistrationSearchInd, Name: "API_PP_MM_REGISTRATION_SEARCH_IND", Role: catalog.RoleIndication, Decode: decodePpMmRegistrationSearchInd},
		{Primitive: ApiPpMmRegistrationSelectedReq, Name: "API_PP_MM_REGISTRATION_SELECTED_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiPpMmRegistrationCompleteInd, Name: "API_PP_MM_REGISTRATION_COMPLETE_IND", Role: catalog.RoleIndication, Decode: decodePpMmRegistrationCompleteInd},
		{Primitive: ApiPpMmRegistrationFailedInd, Name: "API_PP_MM_REGISTRATION_FAILED_IND", Role: catalog.RoleIndication, Decode: decodePpMmRegistrationFailedInd},
		{Primitive: ApiPpMmFpNameInd, Name: "API_PP_MM_FP_NAME_IND", Role: catalog.RoleIndication, Decode: decodePpMmFpNameInd},
	}
}
