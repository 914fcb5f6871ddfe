package session

import "time"

const (
	DefaultCommandTimeout = 2 * time.Second
	DefaultMaxRetries     = 2
	DefaultWaitTimeout    = 30 * time.Second
	DefaultWriteTimeout   = time.Second
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config holds the engine's exchange defaults. Per-call arguments override
// CommandTimeout, MaxRetries and WaitTimeout.
type Config struct {
	CommandTimeout time.Duration
	MaxRetries     int
	WaitTimeout    time.Duration
	WriteTimeout   time.Duration
	ReadBackoff    BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		CommandTimeout: DefaultCommandTimeout,
		MaxRetries:     DefaultMaxRetries,
		WaitTimeout:    DefaultWaitTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		ReadBackoff: BackoffConfig{
			InitialDelay: 10 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       false,
		},
	}
}

// WithDefaults fills unset fields. A negative MaxRetries counts as unset.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = d.CommandTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = d.WaitTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReadBackoff.InitialDelay <= 0 {
		c.ReadBackoff = d.ReadBackoff
	}
	return c
}
