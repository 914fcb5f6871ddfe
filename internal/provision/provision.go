// Package provision drives a handset module from power-on to registered:
// firmware mode, regional DECT mode, lock state, image inventory and
// registration with a base.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/dectmail/internal/api"
	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownMode        = errors.New("provision: module answered neither as PP nor FP")
	ErrNoResponse         = errors.New("provision: no response")
	ErrUnexpectedMail     = errors.New("provision: unexpected mail")
	ErrDectModeNotApplied = errors.New("provision: dect mode not applied")
	ErrBaseNotFound       = errors.New("provision: no base station found")
	ErrRegistrationFailed = errors.New("provision: registration failed")
)

// Mailbox is the part of the engine provisioning needs.
type Mailbox interface {
	Command(ctx context.Context, req catalog.Request, timeout time.Duration, maxRetries int) (catalog.Outcome, bool, error)
	Send(ctx context.Context, req catalog.Request) error
	Subscribe(targets ...frame.Primitive) *session.Waiter
	Await(ctx context.Context, w *session.Waiter, timeout time.Duration) (catalog.Outcome, bool, error)
	Unsubscribe(w *session.Waiter)
}

const (
	// NvsDectModeAddr holds the regional band selection; NvsDectModeEU is
	// the value for the EU plan.
	NvsDectModeAddr = 0x05
	NvsDectModeEU   = 0x25

	DefaultSettleDelay    = 12 * time.Second
	DefaultSearchTimeout  = 40 * time.Second
	DefaultLockTimeout    = 30 * time.Second
	DefaultMaxImages      = 16
	DefaultSubscriptionNo = 1
)

// DefaultAccessCode is the factory access code of most bases.
var DefaultAccessCode = [api.AccessCodeLen]byte{0xFF, 0xFF, 0x00, 0x00}

type Options struct {
	CommandTimeout time.Duration
	SettleDelay    time.Duration
	LockTimeout    time.Duration
	SearchTimeout  time.Duration
	MaxImages      int

	DectMode    api.DectMode
	SetDectMode bool

	Register       bool
	AutoRegister   bool
	SubscriptionNo uint8
	AccessCode     [api.AccessCodeLen]byte
}

func DefaultOptions() Options {
	return Options{
		CommandTimeout: session.DefaultCommandTimeout,
		SettleDelay:    DefaultSettleDelay,
		LockTimeout:    DefaultLockTimeout,
		SearchTimeout:  DefaultSearchTimeout,
		MaxImages:      DefaultMaxImages,
		DectMode:       api.DectModeEU,
		SetDectMode:    true,
		Register:       true,
		SubscriptionNo: DefaultSubscriptionNo,
		AccessCode:     DefaultAccessCode,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = d.CommandTimeout
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.LockTimeout <= 0 {
		o.LockTimeout = d.LockTimeout
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = d.SearchTimeout
	}
	if o.MaxImages <= 0 {
		o.MaxImages = d.MaxImages
	}
	if o.SubscriptionNo == 0 {
		o.SubscriptionNo = d.SubscriptionNo
	}
	return o
}

// Provisioner runs the flow against one module.
type Provisioner struct {
	mb   Mailbox
	opts Options
}

func New(mb Mailbox, opts Options) *Provisioner {
	return &Provisioner{mb: mb, opts: opts.withDefaults()}
}

func (p *Provisioner) command(ctx context.Context, req catalog.Request, retries int) (catalog.Outcome, bool, error) {
	return p.mb.Command(ctx, req, p.opts.CommandTimeout, retries)
}

// mustCommand treats a missing confirmation as an error.
func (p *Provisioner) mustCommand(ctx context.Context, req catalog.Request, retries int) (catalog.Outcome, error) {
	out, ok, err := p.command(ctx, req, retries)
	if err != nil {
		return catalog.Outcome{}, err
	}
	if !ok {
		return catalog.Outcome{}, fmt.Errorf("%w to %s", ErrNoResponse, req.Primitive())
	}
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Mode reports which firmware image answered.
type Mode string

const (
	ModePP Mode = "PP"
	ModeFP Mode = "FP"
)

type ModeResult struct {
	Mode      Mode
	Version   api.FwVersion
	Activated bool
}

// EnsurePPMode probes the PP firmware first. If only the FP firmware
// answers, image 0 is activated and the module is given time to restart.
func (p *Provisioner) EnsurePPMode(ctx context.Context) (ModeResult, error) {
	out, ok, err := p.command(ctx, api.PpGetFwVersionReq{}, 2)
	if err != nil {
		return ModeResult{}, err
	}
	if ok {
		if cfm, isCfm := out.Message.(api.PpGetFwVersionCfm); isCfm {
			log.Info().Str("version", cfm.String()).Msg("module is in PP mode")
			return ModeResult{Mode: ModePP, Version: cfm.FwVersion}, nil
		}
	}

	out, ok, err = p.command(ctx, api.FpGetFwVersionReq{}, 1)
	if err != nil {
		return ModeResult{}, err
	}
	if !ok {
		return ModeResult{}, ErrUnknownMode
	}
	res := ModeResult{Mode: ModeFP}
	if cfm, isCfm := out.Message.(api.FpGetFwVersionCfm); isCfm {
		res.Version = cfm.FwVersion
	}
	log.Warn().Str("version", res.Version.String()).Msg("module is in FP mode, activating PP image")

	out, ok, err = p.command(ctx, api.ImageActivateReq{ImageIndex: 0, Restart: false}, 0)
	if err != nil {
		return res, err
	}
	if ok {
		if st, has := out.Status(); has && !st.IsSuccess() {
			log.Warn().Str("status", st.String()).Msg("image activate reported error")
		}
	}
	res.Activated = true
	if err := sleepCtx(ctx, p.opts.SettleDelay); err != nil {
		return res, err
	}
	return res, nil
}

type DectModeResult struct {
	Before  api.DectMode
	After   api.DectMode
	Changed bool
}

// DectMode reads the regional mode through PROD_TEST.
func (p *Provisioner) DectMode(ctx context.Context) (api.DectMode, error) {
	out, err := p.mustCommand(ctx, api.GetDectModeReq(), 0)
	if err != nil {
		return 0, err
	}
	cfm, ok := out.Message.(api.ProdTestCfm)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnexpectedMail, out.Name)
	}
	mode, ok := cfm.DectMode()
	if !ok {
		return 0, fmt.Errorf("%w: %s without dect mode", ErrUnexpectedMail, cfm.Opcode)
	}
	return mode, nil
}

// EnsureDectMode reads the regional mode and, if it differs from target,
// writes it and reads it back.
func (p *Provisioner) EnsureDectMode(ctx context.Context, target api.DectMode) (DectModeResult, error) {
	before, err := p.DectMode(ctx)
	if err != nil {
		return DectModeResult{}, err
	}
	res := DectModeResult{Before: before, After: before}
	log.Info().Str("dect_mode", before.String()).Msg("current dect mode")
	if before == target {
		return res, nil
	}

	log.Warn().Str("from", before.String()).Str("to", target.String()).Msg("changing dect mode")
	if target == api.DectModeEU {
		write := api.HalWriteReq{Area: api.HalAreaNvs, Address: NvsDectModeAddr, Data: []byte{NvsDectModeEU}}
		if _, err := p.mustCommand(ctx, write, 0); err != nil {
			return res, err
		}
	}
	if _, err := p.mustCommand(ctx, api.SetDectModeReq(target), 0); err != nil {
		return res, err
	}
	after, err := p.DectMode(ctx)
	if err != nil {
		return res, err
	}
	res.After = after
	res.Changed = true
	if after != target {
		return res, fmt.Errorf("%w: want %s, module reports %s", ErrDectModeNotApplied, target, after)
	}
	return res, nil
}

// LockedStatus asks whether the handset is locked to a base.
func (p *Provisioner) LockedStatus(ctx context.Context) (bool, error) {
	out, ok, err := p.mb.Command(ctx, api.PpMmLockedReq{}, p.opts.LockTimeout, 1)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("%w to lock status query", ErrNoResponse)
	}
	locked := out.Primitive == api.ApiPpMmLockedInd
	log.Info().Bool("locked", locked).Msg("lock status")
	return locked, nil
}
