package ch341

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != DefaultBaudRate {
		t.Errorf("Expected BaudRate %d, got %d", DefaultBaudRate, config.BaudRate)
	}
	if !config.InitialDTR {
		t.Error("Expected InitialDTR true")
	}
	if !config.InitialRTS {
		t.Error("Expected InitialRTS true")
	}
	if !config.ApplyBaudRateOnOpen {
		t.Error("Expected ApplyBaudRateOnOpen true")
	}
	if config.CloseDelay != 500*time.Millisecond {
		t.Errorf("Expected CloseDelay 500ms, got %v", config.CloseDelay)
	}
	if config.EventBuffer != 32 {
		t.Errorf("Expected EventBuffer 32, got %d", config.EventBuffer)
	}
	if config.Logger == nil {
		t.Error("Expected non-nil default logger")
	}
}

func TestFunctionalOptions(t *testing.T) {
	config := DefaultConfig()

	if err := WithBaudRate(115200)(&config); err != nil {
		t.Errorf("WithBaudRate failed: %v", err)
	}
	if config.BaudRate != 115200 {
		t.Errorf("Expected BaudRate 115200, got %d", config.BaudRate)
	}

	if err := WithInitialDTR(false)(&config); err != nil {
		t.Errorf("WithInitialDTR failed: %v", err)
	}
	if config.InitialDTR {
		t.Error("Expected InitialDTR false")
	}

	if err := WithInitialRTS(false)(&config); err != nil {
		t.Errorf("WithInitialRTS failed: %v", err)
	}
	if config.InitialRTS {
		t.Error("Expected InitialRTS false")
	}

	if err := WithApplyBaudRateOnOpen(false)(&config); err != nil {
		t.Errorf("WithApplyBaudRateOnOpen failed: %v", err)
	}
	if config.ApplyBaudRateOnOpen {
		t.Error("Expected ApplyBaudRateOnOpen false")
	}

	if err := WithCloseDelay(time.Second)(&config); err != nil {
		t.Errorf("WithCloseDelay failed: %v", err)
	}
	if config.CloseDelay != time.Second {
		t.Errorf("Expected CloseDelay 1s, got %v", config.CloseDelay)
	}

	if err := WithEventBuffer(8)(&config); err != nil {
		t.Errorf("WithEventBuffer failed: %v", err)
	}
	if config.EventBuffer != 8 {
		t.Errorf("Expected EventBuffer 8, got %d", config.EventBuffer)
	}

	logger := slog.Default()
	if err := WithLogger(logger)(&config); err != nil {
		t.Errorf("WithLogger failed: %v", err)
	}
	if config.Logger != logger {
		t.Error("Expected configured logger")
	}
}

func TestInvalidOptions(t *testing.T) {
	tests := []struct {
		name     string
		opt      Option
		expected error
	}{
		{"unsupported baud rate", WithBaudRate(1), ErrUnsupportedBaudRate},
		{"negative baud rate", WithBaudRate(-9600), ErrUnsupportedBaudRate},
		{"negative close delay", WithCloseDelay(-time.Second), ErrInvalidConfig},
		{"zero event buffer", WithEventBuffer(0), ErrInvalidConfig},
		{"nil logger", WithLogger(nil), ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := tt.opt(&config)
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestNewRejectsBadOption(t *testing.T) {
	_, err := New(newMockTransport(), WithBaudRate(2))
	if !errors.Is(err, ErrUnsupportedBaudRate) {
		t.Errorf("Expected ErrUnsupportedBaudRate, got %v", err)
	}
}
