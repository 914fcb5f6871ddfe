package provision

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/danmuck/dectmail/internal/api"
	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

type Registration struct {
	Auto     bool     `json:"auto" yaml:"auto"`
	Rfpi     string   `json:"rfpi,omitempty" yaml:"rfpi,omitempty"`
	Caps     []string `json:"caps,omitempty" yaml:"caps,omitempty"`
	Complete bool     `json:"complete" yaml:"complete"`
	Reason   string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

var registrationResult = []frame.Primitive{
	api.ApiPpMmRegistrationCompleteInd,
	api.ApiPpMmRegistrationFailedInd,
}

// Register subscribes before each request so no indication is missed.
// Manual registration searches for a base and selects the first one found;
// automatic registration lets the module pick, selecting explicitly only if
// it reports a search result instead of an outcome.
func (p *Provisioner) Register(ctx context.Context) (Registration, error) {
	reg := Registration{Auto: p.opts.AutoRegister}
	if p.opts.AutoRegister {
		w := p.mb.Subscribe(api.ApiPpMmRegistrationCompleteInd, api.ApiPpMmRegistrationFailedInd, api.ApiPpMmRegistrationSearchInd)
		req := api.PpMmRegistrationAutoReq{SubscriptionNo: p.opts.SubscriptionNo, AcCode: p.opts.AccessCode}
		if err := p.mb.Send(ctx, req); err != nil {
			p.mb.Unsubscribe(w)
			return reg, err
		}
		out, ok, err := p.mb.Await(ctx, w, p.opts.SearchTimeout)
		if err != nil {
			return reg, err
		}
		if !ok {
			return reg, fmt.Errorf("%w to automatic registration", ErrNoResponse)
		}
		ind, isSearch := out.Message.(api.PpMmRegistrationSearchInd)
		if !isSearch {
			return reg, finish(&reg, out)
		}
		log.Info().Msg("base found during automatic registration")
		return p.selectBase(ctx, reg, ind)
	}

	w := p.mb.Subscribe(api.ApiPpMmRegistrationSearchInd)
	if err := p.mb.Send(ctx, api.PpMmRegistrationSearchReq{SearchMode: api.SearchContinuous}); err != nil {
		p.mb.Unsubscribe(w)
		return reg, err
	}
	out, ok, err := p.mb.Await(ctx, w, p.opts.SearchTimeout)
	if err != nil {
		return reg, err
	}
	if !ok {
		return reg, ErrBaseNotFound
	}
	ind, isSearch := out.Message.(api.PpMmRegistrationSearchInd)
	if !isSearch {
		return reg, fmt.Errorf("%w: %s", ErrUnexpectedMail, out.Name)
	}
	return p.selectBase(ctx, reg, ind)
}

func (p *Provisioner) selectBase(ctx context.Context, reg Registration, base api.PpMmRegistrationSearchInd) (Registration, error) {
	reg.Rfpi = hex.EncodeToString(base.Rfpi[:])
	reg.Caps = base.Caps()
	log.Info().Str("rfpi", reg.Rfpi).Strs("caps", reg.Caps).Msg("base station found")

	w := p.mb.Subscribe(registrationResult...)
	req := api.PpMmRegistrationSelectedReq{
		SubscriptionNo: p.opts.SubscriptionNo,
		AcCode:         p.opts.AccessCode,
		Rfpi:           base.Rfpi,
	}
	if err := p.mb.Send(ctx, req); err != nil {
		p.mb.Unsubscribe(w)
		return reg, err
	}
	out, ok, err := p.mb.Await(ctx, w, p.opts.SearchTimeout)
	if err != nil {
		return reg, err
	}
	if !ok {
		return reg, fmt.Errorf("%w to registration", ErrNoResponse)
	}
	return reg, finish(&reg, out)
}

func finish(reg *Registration, out catalog.Outcome) error {
	switch m := out.Message.(type) {
	case api.PpMmRegistrationCompleteInd:
		reg.Complete = true
		log.Info().Str("status", m.Status.String()).Msg("registration complete")
		return nil
	case api.PpMmRegistrationFailedInd:
		reg.Reason = m.Reason.String()
		return fmt.Errorf("%w: %s", ErrRegistrationFailed, m.Reason)
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedMail, out.Name)
	}
}
