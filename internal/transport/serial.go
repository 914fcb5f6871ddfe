package transport

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const DefaultBaudRate = 115200

type SerialConfig struct {
	Port         string
	BaudRate     int
	MaxMailLen   int
	WriteTimeout time.Duration
	// AssertDTR raises DTR and RTS after open. USB CDC bridges need it.
	AssertDTR bool
}

// OpenSerial opens the port at 8N1 and frames mails over it.
func OpenSerial(cfg SerialConfig) (*Stream, error) {
	if strings.TrimSpace(cfg.Port) == "" {
		return nil, fmt.Errorf("transport: serial port is required")
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", cfg.Port, err)
	}
	if cfg.AssertDTR {
		_ = port.SetDTR(true)
		_ = port.SetRTS(true)
	}
	return NewStream(port, StreamConfig{MaxMailLen: cfg.MaxMailLen, WriteTimeout: cfg.WriteTimeout}), nil
}

type PortInfo struct {
	Name         string
	USB          bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListPorts enumerates serial ports, with USB identifiers when available.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("transport: list ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{
			Name:         d.Name,
			USB:          d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return out, nil
}
