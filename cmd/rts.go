/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rtsCmd represents the rts command
var rtsCmd = &cobra.Command{
	Use:   "rts <state>",
	Short: "Control RTS (Request To Send) signal",
	Long: `Manually set the RTS (Request To Send) signal state.

The bridge drives RTS active-low on the wire; "high" here means the
signal is asserted. On ESP32-style boards RTS is often wired to the
boot-mode strap pin.

Examples:
  ch341 rts high
  ch341 rts low
  ch341 rts on
  ch341 rts off

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

		if err := drv.SetRTS(state); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting RTS: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("RTS set to %s\n", formatSignalState(drv.RTS()))
	},
}

func init() {
	rootCmd.AddCommand(rtsCmd)
}
