package api

import (
	"fmt"

	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/record"
)

// PtCommand is a production test opcode.
type PtCommand uint16

const (
	PtCmdNvsDefault  PtCommand = 0x0102
	PtCmdSetDectMode PtCommand = 0x0201
	PtCmdGetDectMode PtCommand = 0x0202
)

func (c PtCommand) String() string {
	switch c {
	case PtCmdNvsDefault:
		return "PT_CMD_NVS_DEFAULT"
	case PtCmdSetDectMode:
		return "PT_CMD_SET_DECT_MODE"
	case PtCmdGetDectMode:
		return "PT_CMD_GET_DECT_MODE"
	default:
		return fmt.Sprintf("PT_CMD(0x%04X)", uint16(c))
	}
}

// DectMode selects the regional band plan.
type DectMode uint8

const (
	DectModeEU DectMode = iota
	DectModeUS
	DectModeSA
	DectModeTaiwan
	DectModeMalaysia
	DectModeChina
	DectModeThailand
	DectModeBrazil
	DectModeUSExtended
	DectModeKorea
	DectModeJapan2ch
	DectModeJapan5ch
)

var dectModeNames = [...]string{
	DectModeEU:         "EU",
	DectModeUS:         "US",
	DectModeSA:         "SA",
	DectModeTaiwan:     "Taiwan",
	DectModeMalaysia:   "Malaysia",
	DectModeChina:      "China",
	DectModeThailand:   "Thailand",
	DectModeBrazil:     "Brazil",
	DectModeUSExtended: "US Extended",
	DectModeKorea:      "Korea",
	DectModeJapan2ch:   "Japan (2ch)",
	DectModeJapan5ch:   "Japan (5ch)",
}

func (m DectMode) String() string {
	if int(m) < len(dectModeNames) {
		return dectModeNames[m]
	}
	return "Invalid"
}

func (m DectMode) Valid() bool {
	return int(m) < len(dectModeNames)
}

// ParseDectMode accepts the display name of a mode, case-sensitive.
func ParseDectMode(s string) (DectMode, error) {
	for i, name := range dectModeNames {
		if name == s {
			return DectMode(i), nil
		}
	}
	return 0, fmt.Errorf("api: unknown dect mode %q", s)
}

type ProdTestReq struct {
	Opcode     PtCommand
	Parameters []byte
}

func (ProdTestReq) Primitive() frame.Primitive  { return ApiProdTestReq }
func (ProdTestReq) Confirms() []frame.Primitive { return confirms(ApiProdTestCfm) }

func (r ProdTestReq) Payload() []byte {
	return record.NewBuilder(4 + len(r.Parameters)).
		Uint16(uint16(r.Opcode)).
		Len16Bytes(r.Parameters).
		Build()
}

// NvsDefaultReq restores factory NVS contents.
func NvsDefaultReq() ProdTestReq {
	return ProdTestReq{Opcode: PtCmdNvsDefault, Parameters: []byte{0x01}}
}

func GetDectModeReq() ProdTestReq {
	return ProdTestReq{Opcode: PtCmdGetDectMode, Parameters: []byte{0x00}}
}

func SetDectModeReq(m DectMode) ProdTestReq {
	return ProdTestReq{Opcode: PtCmdSetDectMode, Parameters: []byte{uint8(m)}}
}

type ProdTestCfm struct {
	Opcode     PtCommand
	Parameters []byte
}

func (ProdTestCfm) Primitive() frame.Primitive { return ApiProdTestCfm }

// DectMode reads the mode from a GET_DECT_MODE answer.
func (c ProdTestCfm) DectMode() (DectMode, bool) {
	if c.Opcode != PtCmdGetDectMode || len(c.Parameters) < 1 {
		return 0, false
	}
	return DectMode(c.Parameters[0]), true
}

func decodeProdTestCfm(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiProdTestCfm", payload, 4)
	if err != nil {
		return nil, err
	}
	cfm := ProdTestCfm{Opcode: PtCommand(r.Uint16())}
	cfm.Parameters = r.Var(int(r.Uint16()))
	return cfm, r.Err()
}

func prodTestEntries() []catalog.Entry {
	return []catalog.Entry{
		{Primitive: ApiProdTestReq, Name: "API_PROD_TEST_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiProdTestCfm, Name: "API_PROD_TEST_CFM", Role: catalog.RoleConfirmation, Decode: decodeProdTestCfm},
	}
}
