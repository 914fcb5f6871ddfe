package provision

import (
	"context"
	"fmt"

	"github.com/danmuck/dectmail/internal/api"
	"github.com/danmuck/dectmail/internal/protocol/record"
	"github.com/danmuck/dectmail/internal/protocol/status"
	"github.com/rs/zerolog/log"
)

// Image is one enumerated firmware slot.
type Image struct {
	Index    int    `json:"index" yaml:"index"`
	Status   string `json:"status" yaml:"status"`
	ImageId  uint32 `json:"image_id" yaml:"image_id"`
	DeviceId uint32 `json:"device_id" yaml:"device_id"`
	LinkDate string `json:"link_date" yaml:"link_date"`
	Name     string `json:"name" yaml:"name"`
	Label    string `json:"label" yaml:"label"`
	TextErr  string `json:"text_error,omitempty" yaml:"text_error,omitempty"`
}

// ListImages walks image slots from 0 until the module stops answering,
// reports RSS_NOT_FOUND or returns index 0xFF. Slots without data are
// skipped.
func (p *Provisioner) ListImages(ctx context.Context) ([]Image, error) {
	var images []Image
	for i := 0; i < p.opts.MaxImages && i <= 0xFF; i++ {
		out, ok, err := p.command(ctx, api.ImageInfoReq{ImageIndex: uint8(i)}, 0)
		if err != nil {
			return images, err
		}
		if !ok {
			break
		}
		cfm, isCfm := out.Message.(api.ImageInfoCfm)
		if !isCfm {
			return images, fmt.Errorf("%w: %s", ErrUnexpectedMail, out.Name)
		}
		if cfm.Status == status.NotFound || cfm.ImageIndex == 0xFF {
			log.Debug().Int("images", i).Msg("image enumeration complete")
			break
		}
		if cfm.Status == status.NoData {
			log.Debug().Int("index", i).Msg("skipping image without data")
			continue
		}
		images = append(images, imageFromCfm(i, cfm))
	}
	return images, nil
}

func imageFromCfm(i int, cfm api.ImageInfoCfm) Image {
	img := Image{
		Index:    i,
		Status:   cfm.Status.String(),
		ImageId:  cfm.ImageId,
		DeviceId: cfm.DeviceId,
		LinkDate: cfm.LinkDate.String(),
	}
	name, err := record.Text(cfm.Name())
	if err != nil {
		img.TextErr = fmt.Sprintf("name: %v", err)
	}
	img.Name = name
	label, err := record.Text(cfm.Label())
	if err != nil {
		img.TextErr = fmt.Sprintf("label: %v", err)
	}
	img.Label = label
	return img
}
