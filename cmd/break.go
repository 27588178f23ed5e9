/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// breakCmd represents the break command
var breakCmd = &cobra.Command{
	Use:   "break",
	Short: "Send a break condition on the TX line",
	Long: `Hold the TX line in a break condition (continuous low) for the given
duration, then release it.

Some devices use a long break as an attention or reset signal.

Examples:
  ch341 break
  ch341 break --duration 500ms`,
	Run: func(cmd *cobra.Command, args []string) {
		duration, _ := cmd.Flags().GetDuration("duration")

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

		if err := drv.Break(true); err != nil {
			fmt.Fprintf(os.Stderr, "Error asserting break: %v\n", err)
			os.Exit(1)
		}

		time.Sleep(duration)

		if err := drv.Break(false); err != nil {
			fmt.Fprintf(os.Stderr, "Error releasing break: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Break held for %v\n", duration)
	},
}

func init() {
	rootCmd.AddCommand(breakCmd)

	breakCmd.Flags().DurationP("duration", "d", 250*time.Millisecond, "How long to hold the break condition")
}
