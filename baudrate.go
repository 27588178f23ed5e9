package ch341

// The CH340/CH341 baud rate generator is driven by two 16-bit registers:
// a divisor/factor register and an offset register. The chip derives the
// bit clock from a 1532620800 Hz reference divided down in steps of 8 per
// divisor decrement. Getting this wrong configures a working-looking UART
// that silently garbles traffic, so the arithmetic below must match the
// chip documentation exactly.
const (
	baudClockHz   = 1532620800
	baudFactorMax = 0xFFF0

	// 921600 baud does not fit the general formula (chip erratum); the
	// vendor driver hardcodes these values instead.
	baud921600Divisor = 7
	baud921600Factor  = 0xF300

	// Flag bit marking "divisor present" in the factor register low byte.
	baudDivisorFlag = 0x0080
)

// encodeBaudRate maps a requested bit rate to the two register values
// programmed into regBaudFactor and regBaudOffset. It is a pure function:
// the same bitrate always yields the same registers.
//
// Returns ErrUnsupportedBaudRate when the divisor search exhausts without
// the factor fitting into its register.
func encodeBaudRate(bitrate int) (factorReg, offsetReg uint16, err error) {
	if bitrate <= 0 {
		return 0, 0, ErrUnsupportedBaudRate
	}

	var divisor, factor uint16
	if bitrate == 921600 {
		divisor = baud921600Divisor
		factor = baud921600Factor
	} else {
		raw := baudClockHz / bitrate
		div := 3
		for raw > baudFactorMax && div > 0 {
			raw >>= 3
			div--
		}
		if raw > baudFactorMax {
			return 0, 0, ErrUnsupportedBaudRate
		}
		divisor = uint16(div)
		factor = uint16(0x10000 - raw)
	}

	divisor |= baudDivisorFlag

	factorReg = (factor & 0xFF00) | divisor
	offsetReg = factor & 0x00FF
	return factorReg, offsetReg, nil
}
