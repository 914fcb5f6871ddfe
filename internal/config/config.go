// Package config loads dectctl settings from TOML. Keys that are absent
// keep their defaults.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/dectmail/internal/api"
	"github.com/danmuck/dectmail/internal/logging"
	"github.com/danmuck/dectmail/internal/output"
	"github.com/danmuck/dectmail/internal/protocol/session"
	"github.com/danmuck/dectmail/internal/provision"
	"github.com/danmuck/dectmail/internal/transport"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Serial    transport.SerialConfig
	Mailbox   session.Config
	Provision provision.Options
	LogLevel  string
	Output    string
	Metrics   string
}

func Default() Config {
	return Config{
		Serial: transport.SerialConfig{
			BaudRate:   transport.DefaultBaudRate,
			MaxMailLen: transport.DefaultMaxMailLen,
		},
		Mailbox:   session.DefaultConfig(),
		Provision: provision.DefaultOptions(),
		LogLevel:  "info",
		Output:    output.FormatTable,
	}
}

type fileConfig struct {
	Serial struct {
		Port       string `toml:"port"`
		Baud       int    `toml:"baud"`
		AssertDTR  bool   `toml:"assert_dtr"`
		MaxMailLen int    `toml:"max_mail_len"`
	} `toml:"serial"`
	Mailbox struct {
		CommandTimeout string `toml:"command_timeout"`
		MaxRetries     int    `toml:"max_retries"`
		WaitTimeout    string `toml:"wait_timeout"`
		WriteTimeout   string `toml:"write_timeout"`
	} `toml:"mailbox"`
	Provision struct {
		DectMode       string `toml:"dect_mode"`
		SetDectMode    bool   `toml:"set_dect_mode"`
		Register       bool   `toml:"register"`
		Auto           bool   `toml:"auto"`
		SubscriptionNo int    `toml:"subscription_no"`
		AccessCode     string `toml:"access_code"`
		SettleDelay    string `toml:"settle_delay"`
		SearchTimeout  string `toml:"search_timeout"`
		MaxImages      int    `toml:"max_images"`
	} `toml:"provision"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
	Output struct {
		Format string `toml:"format"`
	} `toml:"output"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load dectctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}

	if meta.IsDefined("serial", "port") {
		cfg.Serial.Port = strings.TrimSpace(raw.Serial.Port)
	}
	if meta.IsDefined("serial", "baud") {
		cfg.Serial.BaudRate = raw.Serial.Baud
	}
	if meta.IsDefined("serial", "assert_dtr") {
		cfg.Serial.AssertDTR = raw.Serial.AssertDTR
	}
	if meta.IsDefined("serial", "max_mail_len") {
		cfg.Serial.MaxMailLen = raw.Serial.MaxMailLen
	}

	if meta.IsDefined("mailbox", "command_timeout") {
		if cfg.Mailbox.CommandTimeout, err = parseDuration("mailbox.command_timeout", raw.Mailbox.CommandTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("mailbox", "max_retries") {
		cfg.Mailbox.MaxRetries = raw.Mailbox.MaxRetries
	}
	if meta.IsDefined("mailbox", "wait_timeout") {
		if cfg.Mailbox.WaitTimeout, err = parseDuration("mailbox.wait_timeout", raw.Mailbox.WaitTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("mailbox", "write_timeout") {
		if cfg.Mailbox.WriteTimeout, err = parseDuration("mailbox.write_timeout", raw.Mailbox.WriteTimeout); err != nil {
			return Config{}, err
		}
	}

	if meta.IsDefined("provision", "dect_mode") {
		mode, err := api.ParseDectMode(strings.TrimSpace(raw.Provision.DectMode))
		if err != nil {
			return Config{}, fmt.Errorf("%w: provision.dect_mode: %v", ErrInvalid, err)
		}
		cfg.Provision.DectMode = mode
	}
	if meta.IsDefined("provision", "set_dect_mode") {
		cfg.Provision.SetDectMode = raw.Provision.SetDectMode
	}
	if meta.IsDefined("provision", "register") {
		cfg.Provision.Register = raw.Provision.Register
	}
	if meta.IsDefined("provision", "auto") {
		cfg.Provision.AutoRegister = raw.Provision.Auto
	}
	if meta.IsDefined("provision", "subscription_no") {
		n := raw.Provision.SubscriptionNo
		if n < 1 || n > 0xFF {
			return Config{}, fmt.Errorf("%w: provision.subscription_no %d out of range", ErrInvalid, n)
		}
		cfg.Provision.SubscriptionNo = uint8(n)
	}
	if meta.IsDefined("provision", "access_code") {
		code, err := ParseAccessCode(raw.Provision.AccessCode)
		if err != nil {
			return Config{}, err
		}
		cfg.Provision.AccessCode = code
	}
	if meta.IsDefined("provision", "settle_delay") {
		if cfg.Provision.SettleDelay, err = parseDuration("provision.settle_delay", raw.Provision.SettleDelay); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("provision", "search_timeout") {
		if cfg.Provision.SearchTimeout, err = parseDuration("provision.search_timeout", raw.Provision.SearchTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("provision", "max_images") {
		cfg.Provision.MaxImages = raw.Provision.MaxImages
	}

	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("output", "format") {
		cfg.Output = strings.TrimSpace(raw.Output.Format)
	}
	if meta.IsDefined("metrics", "addr") {
		cfg.Metrics = strings.TrimSpace(raw.Metrics.Addr)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.Provision.CommandTimeout = cfg.Mailbox.CommandTimeout
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("%w: serial.baud must be positive", ErrInvalid)
	}
	if c.Serial.MaxMailLen < 2 || c.Serial.MaxMailLen > 0xFFFF {
		return fmt.Errorf("%w: serial.max_mail_len %d out of range", ErrInvalid, c.Serial.MaxMailLen)
	}
	if c.Mailbox.CommandTimeout < 0 || c.Mailbox.WaitTimeout < 0 || c.Mailbox.WriteTimeout < 0 {
		return fmt.Errorf("%w: mailbox timeouts must not be negative", ErrInvalid)
	}
	if c.Mailbox.MaxRetries < 0 {
		return fmt.Errorf("%w: mailbox.max_retries must not be negative", ErrInvalid)
	}
	if !c.Provision.DectMode.Valid() {
		return fmt.Errorf("%w: provision.dect_mode %d", ErrInvalid, c.Provision.DectMode)
	}
	if c.Provision.MaxImages < 0 || c.Provision.MaxImages > 0x100 {
		return fmt.Errorf("%w: provision.max_images %d out of range", ErrInvalid, c.Provision.MaxImages)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.LogLevel)
	}
	if !output.Valid(c.Output) {
		return fmt.Errorf("%w: output.format %q", ErrInvalid, c.Output)
	}
	return nil
}

// ParseAccessCode accepts eight hex digits, for example "ffff0000".
func ParseAccessCode(s string) ([api.AccessCodeLen]byte, error) {
	var code [api.AccessCodeLen]byte
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil || len(b) != api.AccessCodeLen {
		return code, fmt.Errorf("%w: access code %q must be %d hex bytes", ErrInvalid, s, api.AccessCodeLen)
	}
	copy(code[:], b)
	return code, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %v", ErrInvalid, key, err)
	}
	return d, nil
}
