package main

import (
	"fmt"

	"github.com/danmuck/dectmail/internal/api"
	"github.com/danmuck/dectmail/internal/config"
	"github.com/danmuck/dectmail/internal/mailbox"
	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/provision"
	"github.com/danmuck/dectmail/internal/transport"
	"github.com/spf13/cobra"
)

func newPortsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := transport.ListPorts()
			if err != nil {
				return fmt.Errorf("list ports: %w", err)
			}
			a.print(cmd, ports)
			return nil
		},
	}
}

type firmwareInfo struct {
	Mode     provision.Mode `json:"mode" yaml:"mode"`
	Status   string         `json:"status" yaml:"status"`
	Version  string         `json:"version" yaml:"version"`
	LinkDate string         `json:"link_date" yaml:"link_date"`
	DectType uint8          `json:"dect_type" yaml:"dect_type"`
}

func newFirmwareInfo(mode provision.Mode, v api.FwVersion) firmwareInfo {
	return firmwareInfo{
		Mode:     mode,
		Status:   v.Status.String(),
		Version:  fmt.Sprintf("%x", v.VersionHex),
		LinkDate: v.LinkDate.String(),
		DectType: v.DectType,
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Probe the firmware version, PP image first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(e *mailbox.Engine) error {
				out, ok, err := e.Do(cmd.Context(), api.PpGetFwVersionReq{})
				if err != nil {
					return err
				}
				if ok {
					if cfm, isCfm := out.Message.(api.PpGetFwVersionCfm); isCfm {
						a.print(cmd, newFirmwareInfo(provision.ModePP, cfm.FwVersion))
						return nil
					}
				}
				out, ok, err = e.Do(cmd.Context(), api.FpGetFwVersionReq{})
				if err != nil {
					return err
				}
				if !ok {
					return provision.ErrUnknownMode
				}
				cfm, isCfm := out.Message.(api.FpGetFwVersionCfm)
				if !isCfm {
					return fmt.Errorf("%w: %s", provision.ErrUnexpectedMail, out.Name)
				}
				a.print(cmd, newFirmwareInfo(provision.ModeFP, cfm.FwVersion))
				return nil
			})
		},
	}
}

type dectModeInfo struct {
	Mode    string `json:"dect_mode" yaml:"dect_mode"`
	Before  string `json:"before,omitempty" yaml:"before,omitempty"`
	Changed bool   `json:"changed" yaml:"changed"`
}

func newModeCmd(a *app) *cobra.Command {
	var set string
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Show the regional DECT mode, or change it with --set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(e *mailbox.Engine) error {
				p := provision.New(e, a.cfg.Provision)
				if set == "" {
					cur, err := p.DectMode(cmd.Context())
					if err != nil {
						return err
					}
					a.print(cmd, dectModeInfo{Mode: cur.String()})
					return nil
				}
				target, err := api.ParseDectMode(set)
				if err != nil {
					return err
				}
				res, err := p.EnsureDectMode(cmd.Context(), target)
				if err != nil {
					return err
				}
				a.print(cmd, dectModeInfo{Mode: res.After.String(), Before: res.Before.String(), Changed: res.Changed})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&set, "set", "", "target mode, e.g. EU or \"US Extended\"")
	return cmd
}

func newLockedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locked",
		Short: "Report whether the handset is locked to a base",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(e *mailbox.Engine) error {
				locked, err := provision.New(e, a.cfg.Provision).LockedStatus(cmd.Context())
				if err != nil {
					return err
				}
				a.print(cmd, struct {
					Locked bool `json:"locked" yaml:"locked"`
				}{locked})
				return nil
			})
		},
	}
}

func newImagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List firmware images",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(e *mailbox.Engine) error {
				images, err := provision.New(e, a.cfg.Provision).ListImages(cmd.Context())
				if err != nil {
					return err
				}
				a.print(cmd, images)
				return nil
			})
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var auto bool
	var accessCode string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register with a base open for registration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := a.cfg.Provision
			if cmd.Flags().Changed("auto") {
				opts.AutoRegister = auto
			}
			if accessCode != "" {
				code, err := config.ParseAccessCode(accessCode)
				if err != nil {
					return err
				}
				opts.AccessCode = code
			}
			return a.withEngine(cmd.Context(), func(e *mailbox.Engine) error {
				reg, err := provision.New(e, opts).Register(cmd.Context())
				a.print(cmd, reg)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&auto, "auto", false, "let the module pick the base")
	cmd.Flags().StringVar(&accessCode, "access-code", "", "base access code as 8 hex digits")
	return cmd
}

func newProvisionCmd(a *app) *cobra.Command {
	var skipRegister bool
	var dectMode string
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Run the full flow: PP mode, DECT mode, lock state, images, registration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := a.cfg.Provision
			if skipRegister {
				opts.Register = false
			}
			if dectMode != "" {
				m, err := api.ParseDectMode(dectMode)
				if err != nil {
					return err
				}
				opts.DectMode = m
				opts.SetDectMode = true
			}
			return a.withEngine(cmd.Context(), func(e *mailbox.Engine) error {
				rep, err := provision.New(e, opts).Run(cmd.Context())
				a.print(cmd, rep)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&skipRegister, "no-register", false, "skip registration")
	cmd.Flags().StringVar(&dectMode, "dect-mode", "", "regional mode to enforce")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	var fp bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the module and wait for it to come back",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req catalog.Request = api.PpResetReq{}
			if fp {
				req = api.FpResetReq{}
			}
			return a.withEngine(cmd.Context(), func(e *mailbox.Engine) error {
				_, ok, err := e.Command(cmd.Context(), req, a.cfg.Mailbox.WaitTimeout, 0)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w to reset", provision.ErrNoResponse)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "module reset")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fp, "fp", false, "reset the FP image instead of the PP image")
	return cmd
}

func newNvsDefaultCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "nvs-default",
		Short: "Restore factory NVS contents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(e *mailbox.Engine) error {
				out, ok, err := e.Do(cmd.Context(), api.NvsDefaultReq())
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w to NVS default", provision.ErrNoResponse)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "NVS restored (%s)\n", out.Name)
				return nil
			})
		},
	}
}
