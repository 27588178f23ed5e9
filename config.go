package ch341

import (
	"io"
	"log/slog"
	"time"
)

// Config holds the configuration for a driver instance
type Config struct {
	// BaudRate is the bit rate requested by the caller. The
	// initialization sequence always programs the chip default first
	// (DefaultBaudRate); see ApplyBaudRateOnOpen.
	BaudRate int

	// InitialDTR and InitialRTS are the control line states asserted
	// during initialization.
	InitialDTR bool
	InitialRTS bool

	// ApplyBaudRateOnOpen reprograms the chip to BaudRate after the
	// initialization sequence finishes. When false the chip is left at
	// DefaultBaudRate and a SetBaudRate call is required, matching the
	// vendor init script verbatim.
	ApplyBaudRateOnOpen bool

	// CloseDelay is the grace period between halting the read loop and
	// releasing the device, letting an in-flight bulk transfer settle.
	CloseDelay time.Duration

	// EventBuffer is the capacity of the Events channel.
	EventBuffer int

	// Logger receives advisory protocol diagnostics. Defaults to a
	// discard handler.
	Logger *slog.Logger
}

// DefaultBaudRate is the rate the initialization sequence programs before
// any caller-requested rate is applied.
const DefaultBaudRate = 9600

// Option is a functional option for configuring a driver
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:            DefaultBaudRate,
		InitialDTR:          true,
		InitialRTS:          true,
		ApplyBaudRateOnOpen: true,
		CloseDelay:          500 * time.Millisecond,
		EventBuffer:         32,
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithBaudRate sets the requested baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, _, err := encodeBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithInitialDTR sets the DTR state asserted during initialization
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.InitialDTR = state
		return nil
	}
}

// WithInitialRTS sets the RTS state asserted during initialization
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = state
		return nil
	}
}

// WithApplyBaudRateOnOpen controls whether Open programs the configured
// baud rate after initialization or leaves the chip at DefaultBaudRate
func WithApplyBaudRateOnOpen(apply bool) Option {
	return func(c *Config) error {
		c.ApplyBaudRateOnOpen = apply
		return nil
	}
}

// WithCloseDelay sets the grace period Close waits before releasing the
// device
func WithCloseDelay(delay time.Duration) Option {
	return func(c *Config) error {
		if delay < 0 {
			return ErrInvalidConfig
		}
		c.CloseDelay = delay
		return nil
	}
}

// WithEventBuffer sets the capacity of the Events channel
func WithEventBuffer(size int) Option {
	return func(c *Config) error {
		if size < 1 {
			return ErrInvalidConfig
		}
		c.EventBuffer = size
		return nil
	}
}

// WithLogger sets the logger receiving protocol diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return ErrInvalidConfig
		}
		c.Logger = logger
		return nil
	}
}
