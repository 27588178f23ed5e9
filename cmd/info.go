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

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display detailed information about the attached bridge",
	Long: `Display detailed information about the first attached CH340/CH341
bridge, including USB metadata and the chip version byte.

Reading the chip version requires initializing the device, so by default
this command performs the full open handshake. Use --no-probe to only
show USB descriptor metadata without touching the chip.

Examples:
  ch341 info
  ch341 info --no-probe`,
	Run: func(cmd *cobra.Command, args []string) {
		devices, err := ch341.ListDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing devices: %v\n", err)
			os.Exit(1)
		}
		if len(devices) == 0 {
			fmt.Fprintln(os.Stderr, "No CH340/CH341 devices found")
			os.Exit(1)
		}

		dev := devices[0]
		chip := "CH341"
		if dev.ProductID == ch341.ProductIDCH340 {
			chip = "CH340"
		}

		fmt.Printf("Device Information: %s\n\n", chip)
		fmt.Printf("  Bus:          %d\n", dev.Bus)
		fmt.Printf("  Address:      %d\n", dev.Address)
		fmt.Printf("  Vendor ID:    %04x\n", dev.VendorID)
		fmt.Printf("  Product ID:   %04x\n", dev.ProductID)
		if dev.Product != "" {
			fmt.Printf("  Product:      %s\n", dev.Product)
		}
		if dev.Serial != "" {
			fmt.Printf("  Serial:       %s\n", dev.Serial)
		}

		noProbe, _ := cmd.Flags().GetBool("no-probe")
		if noProbe {
			return
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

		fmt.Println("\nChip Information:")
		fmt.Printf("  Version:      0x%02x\n", drv.Version())
		fmt.Printf("  Baud rate:    %d\n", drv.BaudRate())
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("no-probe", false, "Skip chip initialization, show USB metadata only")
}
