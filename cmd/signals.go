/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"
)

// parseSignalState converts a user-provided state string to a boolean
func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1", "assert":
		return true, nil
	case "low", "off", "false", "0", "deassert":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state '%s': use high/low, on/off, true/false, or 1/0", state)
	}
}

// formatSignalState converts a boolean signal state to a display string
func formatSignalState(state bool) string {
	if state {
		return "HIGH (asserted)"
	}
	return "LOW (deasserted)"
}
