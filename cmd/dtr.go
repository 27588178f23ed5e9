/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <state>",
	Short: "Control DTR (Data Terminal Ready) signal",
	Long: `Manually set the DTR (Data Terminal Ready) signal state.

The bridge drives DTR active-low on the wire; "high" here means the
signal is asserted. Many development boards wire DTR to the reset line,
so toggling it resets the attached microcontroller.

Examples:
  ch341 dtr high
  ch341 dtr low
  ch341 dtr on
  ch341 dtr off

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		state, err := parseSignalState(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		drv, err := newDriver(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening device: %v\n", err)
			os.Exit(1)
		}
		defer drv.Close()

		if err := drv.Open(); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing device: %v\n", err)
			os.Exit(1)
		}

		if err := drv.SetDTR(state); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting DTR: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("DTR set to %s\n", formatSignalState(drv.DTR()))
	},
}

func init() {
	rootCmd.AddCommand(dtrCmd)
}
