/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	ch341 "github.com/allbin/go-ch341"
	"github.com/spf13/cobra"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the attached bridge at the USB level",
	Long: `Perform a USB-level reset on the first attached CH340/CH341 bridge.
This can recover devices that are hung or unresponsive without
physically unplugging them.

The device will re-enumerate after reset, which may change its bus
address. Root/sudo permissions are usually required.

Examples:
  sudo ch341 reset`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, err := ch341.OpenFirst()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer transport.Close()

		fmt.Println("Resetting USB device...")
		if err := transport.Reset(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("USB device reset successfully")
		fmt.Println("Device will re-enumerate (bus address may change)")
		fmt.Println("\nUse 'ch341 list --table' to see updated device list")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
