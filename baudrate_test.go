package ch341

import (
	"errors"
	"testing"
)

func TestEncodeBaudRateKnownRates(t *testing.T) {
	tests := []struct {
		bitrate   int
		factorReg uint16
		offsetReg uint16
	}{
		{300, 0xD980, 0x06},
		{1200, 0xB281, 0x0C},
		{2400, 0xD981, 0x06},
		{9600, 0xB282, 0x0C},
		{57600, 0x9883, 0x10},
		{115200, 0xCC83, 0x08},
		{921600, 0xF387, 0x00},
	}

	for _, tt := range tests {
		factorReg, offsetReg, err := encodeBaudRate(tt.bitrate)
		if err != nil {
			t.Errorf("encodeBaudRate(%d) returned error: %v", tt.bitrate, err)
			continue
		}
		if factorReg != tt.factorReg {
			t.Errorf("encodeBaudRate(%d) factor register = %#04x, expected %#04x",
				tt.bitrate, factorReg, tt.factorReg)
		}
		if offsetReg != tt.offsetReg {
			t.Errorf("encodeBaudRate(%d) offset register = %#04x, expected %#04x",
				tt.bitrate, offsetReg, tt.offsetReg)
		}
	}
}

func TestEncodeBaudRateDivisorRange(t *testing.T) {
	// For every rate the general formula handles, the factor register's
	// low byte is the divisor with the presence flag set, and the divisor
	// itself stays in 0..3.
	for _, bitrate := range []int{300, 600, 1200, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800} {
		factorReg, _, err := encodeBaudRate(bitrate)
		if err != nil {
			t.Fatalf("encodeBaudRate(%d) returned error: %v", bitrate, err)
		}
		low := uint8(factorReg & 0xFF)
		if low&0x80 == 0 {
			t.Errorf("encodeBaudRate(%d) divisor byte %#02x missing presence flag", bitrate, low)
		}
		if div := low &^ 0x80; div > 3 {
			t.Errorf("encodeBaudRate(%d) divisor %d out of range", bitrate, div)
		}
	}
}

func TestEncodeBaudRateInverse(t *testing.T) {
	// Re-deriving the bit rate from (factor, divisor) must stay within
	// the chip's rounding tolerance.
	for _, bitrate := range []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400} {
		factorReg, offsetReg, err := encodeBaudRate(bitrate)
		if err != nil {
			t.Fatalf("encodeBaudRate(%d) returned error: %v", bitrate, err)
		}

		div := int(factorReg&0xFF) &^ 0x80
		factor := int(factorReg&0xFF00) | int(offsetReg)
		raw := 0x10000 - factor
		derived := baudClockHz / (raw << (3 * (3 - div)))

		diff := derived - bitrate
		if diff < 0 {
			diff = -diff
		}
		if diff*100 > bitrate { // within 1%
			t.Errorf("encodeBaudRate(%d) round-trips to %d", bitrate, derived)
		}
	}
}

func TestEncodeBaudRateDeterministic(t *testing.T) {
	f1, o1, err1 := encodeBaudRate(19200)
	f2, o2, err2 := encodeBaudRate(19200)
	if err1 != nil || err2 != nil {
		t.Fatalf("encodeBaudRate(19200) returned errors: %v, %v", err1, err2)
	}
	if f1 != f2 || o1 != o2 {
		t.Errorf("encodeBaudRate(19200) not deterministic: (%#04x,%#04x) vs (%#04x,%#04x)",
			f1, o1, f2, o2)
	}
}

func TestEncodeBaudRateUnsupported(t *testing.T) {
	for _, bitrate := range []int{0, -9600, 1, 2} {
		_, _, err := encodeBaudRate(bitrate)
		if err == nil {
			t.Errorf("encodeBaudRate(%d) expected error, got none", bitrate)
			continue
		}
		if !errors.Is(err, ErrUnsupportedBaudRate) {
			t.Errorf("encodeBaudRate(%d) = %v, expected ErrUnsupportedBaudRate", bitrate, err)
		}
	}
}
