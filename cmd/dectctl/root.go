package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/dectmail/internal/api"
	"github.com/danmuck/dectmail/internal/config"
	"github.com/danmuck/dectmail/internal/logging"
	"github.com/danmuck/dectmail/internal/mailbox"
	"github.com/danmuck/dectmail/internal/observability"
	"github.com/danmuck/dectmail/internal/output"
	"github.com/danmuck/dectmail/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errNoPort = errors.New("no serial port configured; use --port or serial.port")

// app carries state shared by every subcommand.
type app struct {
	configPath  string
	port        string
	baud        int
	format      string
	metricsAddr string
	logLevel    string

	cfg       config.Config
	formatter output.Formatter
	metrics   *observability.MetricsServer

	openLink func(transport.SerialConfig) (transport.Link, error)
}

func newApp() *app {
	return &app{
		openLink: func(cfg transport.SerialConfig) (transport.Link, error) {
			return transport.OpenSerial(cfg)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "dectctl",
		Short: "Drive a DECT handset module over its serial mailbox interface",
		Long: `dectctl talks to a DECT module over UART using the mail protocol.
It can query firmware and lock state, list images, switch the regional
DECT mode, register with a base and run the whole provisioning flow.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "TOML config file")
	pf.StringVarP(&a.port, "port", "p", "", "serial device, e.g. /dev/ttyUSB0")
	pf.IntVar(&a.baud, "baud", transport.DefaultBaudRate, "serial baud rate")
	pf.StringVarP(&a.format, "output", "o", output.FormatTable, "output format: table, json, yaml")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error, off")

	root.AddCommand(
		newPortsCmd(a),
		newVersionCmd(a),
		newModeCmd(a),
		newLockedCmd(a),
		newImagesCmd(a),
		newRegisterCmd(a),
		newProvisionCmd(a),
		newResetCmd(a),
		newNvsDefaultCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	logging.ConfigureRuntime()

	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := a.applyFlags(cmd, &cfg); err != nil {
		return err
	}
	a.cfg = cfg

	if os.Getenv(logging.EnvLogLevel) == "" {
		lvl, _ := logging.ParseLevel(cfg.LogLevel)
		zerolog.SetGlobalLevel(lvl)
	}
	a.formatter = output.NewFormatter(cfg.Output, true)

	if cfg.Metrics != "" {
		srv, err := observability.StartMetricsServer(cfg.Metrics, log.Logger)
		if err != nil {
			return fmt.Errorf("start metrics endpoint: %w", err)
		}
		a.metrics = srv
	}
	return nil
}

// applyFlags lets explicitly set flags override the config file.
func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.Port = strings.TrimSpace(a.port)
	}
	if flags.Changed("baud") {
		cfg.Serial.BaudRate = a.baud
	}
	if flags.Changed("output") {
		cfg.Output = a.format
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics = strings.TrimSpace(a.metricsAddr)
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	return cfg.Validate()
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.metrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := a.metrics.Shutdown(ctx)
	a.metrics = nil
	return err
}

// withEngine opens the configured link, runs fn against a connected engine
// and closes both.
func (a *app) withEngine(ctx context.Context, fn func(*mailbox.Engine) error) error {
	if a.cfg.Serial.Port == "" {
		return errNoPort
	}
	serialCfg := a.cfg.Serial
	serialCfg.WriteTimeout = a.cfg.Mailbox.WriteTimeout

	link, err := a.openLink(serialCfg)
	if err != nil {
		return err
	}
	cat, err := api.NewCatalog()
	if err != nil {
		_ = link.Close()
		return err
	}
	e, err := mailbox.Connect(ctx, link, cat, a.cfg.Mailbox)
	if err != nil {
		_ = link.Close()
		return err
	}
	defer e.Close()
	return fn(e)
}

func (a *app) print(cmd *cobra.Command, v any) {
	fmt.Fprint(cmd.OutOrStdout(), a.formatter.Format(v))
}
