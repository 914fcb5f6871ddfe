package provision

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Report summarizes one provisioning run.
type Report struct {
	Mode         Mode          `json:"mode" yaml:"mode"`
	Version      string        `json:"version" yaml:"version"`
	Activated    bool          `json:"activated_pp_image" yaml:"activated_pp_image"`
	DectMode     string        `json:"dect_mode" yaml:"dect_mode"`
	DectChanged  bool          `json:"dect_mode_changed" yaml:"dect_mode_changed"`
	Locked       bool          `json:"locked" yaml:"locked"`
	Images       []Image       `json:"images" yaml:"images"`
	Registration *Registration `json:"registration,omitempty" yaml:"registration,omitempty"`
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Run executes mode check, dect mode, lock status, image listing and, when
// enabled, registration. The partial report is returned with any error.
func (p *Provisioner) Run(ctx context.Context) (rep Report, err error) {
	start := time.Now()
	defer func() {
		rep.Elapsed = time.Since(start)
	}()

	mode, err := p.EnsurePPMode(ctx)
	rep.Mode = mode.Mode
	if mode.Mode != "" {
		rep.Version = mode.Version.String()
	}
	rep.Activated = mode.Activated
	if err != nil {
		return rep, err
	}

	if p.opts.SetDectMode {
		dm, err := p.EnsureDectMode(ctx, p.opts.DectMode)
		rep.DectMode = dm.After.String()
		rep.DectChanged = dm.Changed
		if err != nil {
			return rep, err
		}
	}

	locked, err := p.LockedStatus(ctx)
	if err != nil {
		return rep, err
	}
	rep.Locked = locked

	images, err := p.ListImages(ctx)
	rep.Images = images
	if err != nil {
		return rep, err
	}

	if p.opts.Register {
		reg, err := p.Register(ctx)
		rep.Registration = &reg
		if err != nil {
			return rep, err
		}
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("provisioning complete")
	return rep, nil
}
