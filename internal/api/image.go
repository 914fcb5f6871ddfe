package api

import (
	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/record"
	"github.com/danmuck/dectmail/internal/protocol/status"
)

const imageInfoFixedLen = 1 + 1 + 4 + 4 + LinkDateLen + 1 + 1

type ImageInfoReq struct {
	ImageIndex uint8
}

func (ImageInfoReq) Primitive() frame.Primitive  { return ApiImageInfoReq }
func (ImageInfoReq) Confirms() []frame.Primitive { return confirms(ApiImageInfoCfm) }

func (r ImageInfoReq) Payload() []byte {
	return record.NewBuilder(1).Uint8(r.ImageIndex).Build()
}

// ImageInfoCfm describes one firmware image slot. Data holds the name
// followed by the label.
type ImageInfoCfm struct {
	Status      status.Status
	ImageIndex  uint8
	ImageId     uint32
	DeviceId    uint32
	LinkDate    LinkDate
	NameLength  uint8
	LabelLength uint8
	Data        []byte
}

func (ImageInfoCfm) Primitive() frame.Primitive    { return ApiImageInfoCfm }
func (c ImageInfoCfm) DeviceStatus() status.Status { return c.Status }

// Name and Label clamp to Data so hand-built values with stale lengths
// return what is present.
func (c ImageInfoCfm) Name() []byte {
	return c.Data[:min(int(c.NameLength), len(c.Data))]
}

func (c ImageInfoCfm) Label() []byte {
	start := min(int(c.NameLength), len(c.Data))
	end := min(int(c.NameLength)+int(c.LabelLength), len(c.Data))
	return c.Data[start:end]
}

func decodeImageInfoCfm(payload []byte) (catalog.Message, error) {
	r, err := record.NewReader("ApiImageInfoCfm", payload, imageInfoFixedLen)
	if err != nil {
		return nil, err
	}
	cfm := ImageInfoCfm{
		Status:      status.Parse(r.Uint8()),
		ImageIndex:  r.Uint8(),
		ImageId:     r.Uint32(),
		DeviceId:    r.Uint32(),
		LinkDate:    readLinkDate(r),
		NameLength:  r.Uint8(),
		LabelLength: r.Uint8(),
	}
	cfm.Data = r.Var(int(cfm.NameLength) + int(cfm.LabelLength))
	if err := r.Err(); err != nil {
		return nil, err
	}
	return cfm, nil
}

type ImageActivateReq struct {
	ImageIndex uint8
	Restart    bool
}

func (ImageActivateReq) Primitive() frame.Primitive  { return ApiImageActivateReq }
func (ImageActivateReq) Confirms() []frame.Primitive { return confirms(ApiImageActivateCfm) }

func (r ImageActivateReq) Payload() []byte {
	return record.NewBuilder(2).Uint8(r.ImageIndex).Bool(r.Restart).Build()
}

type ImageActivateCfm struct{ statusOnly }

func (ImageActivateCfm) Primitive() frame.Primitive { return ApiImageActivateCfm }

func decodeImageActivateCfm(payload []byte) (catalog.Message, error) {
	s, err := readStatusOnly("ApiImageActivateCfm", payload)
	if err != nil {
		return nil, err
	}
	return ImageActivateCfm{s}, nil
}

func imageEntries() []catalog.Entry {
	return []catalog.Entry{
		{Primitive: ApiImageInfoReq, Name: "API_IMAGE_INFO_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiImageInfoCfm, Name: "API_IMAGE_INFO_CFM", Role: catalog.RoleConfirmation, Decode: decodeImageInfoCfm},
		{Primitive: ApiImageActivateReq, Name: "API_IMAGE_ACTIVATE_REQ", Role: catalog.RoleRequest},
		{Primitive: ApiImageActivateCfm, Name: "API_IMAGE_ACTIVATE_CFM", Role: catalog.RoleConfirmation, Decode: decodeImageActivateCfm},
	}
}
