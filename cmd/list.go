/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	ch341 "github.com/allbin/go-ch341"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

const (
	columnKeyBus     = "bus"
	columnKeyAddress = "address"
	columnKeyIDs     = "ids"
	columnKeyProduct = "product"
	columnKeySerial  = "serial"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attached CH340/CH341 bridges",
	Long: `List all CH340/CH341 USB-to-serial bridges attached to the system.

Devices are matched by vendor/product ID (1a86:7523 for CH340,
1a86:5523 for CH341) regardless of whether a kernel tty driver has
claimed them. Product and serial strings are shown when the device
provides them; many clone boards ship without string descriptors.`,
	Run: func(cmd *cobra.Command, args []string) {
		devices, err := ch341.ListDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing devices: %v\n", err)
			os.Exit(1)
		}

		if len(devices) == 0 {
			fmt.Println("No CH340/CH341 devices found")
			return
		}

		tableFormat, _ := cmd.Flags().GetBool("table")
		if tableFormat {
			renderDeviceTable(devices)
		} else {
			renderDeviceList(devices)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// renderDeviceTable renders the device list in a styled static table
func renderDeviceTable(devices []ch341.DeviceInfo) {
	fmt.Printf("Found %d device(s):\n\n", len(devices))

	columns := []table.Column{
		table.NewColumn(columnKeyBus, "Bus", 5),
		table.NewColumn(columnKeyAddress, "Addr", 6),
		table.NewColumn(columnKeyIDs, "VID:PID", 11),
		table.NewColumn(columnKeyProduct, "Product", 24),
		table.NewColumn(columnKeySerial, "Serial", 16),
	}

	rows := make([]table.Row, 0, len(devices))
	for _, dev := range devices {
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyBus:     fmt.Sprintf("%d", dev.Bus),
			columnKeyAddress: fmt.Sprintf("%d", dev.Address),
			columnKeyIDs:     fmt.Sprintf("%04x:%04x", dev.VendorID, dev.ProductID),
			columnKeyProduct: orDash(dev.Product),
			columnKeySerial:  orDash(dev.Serial),
		}))
	}

	t := table.New(columns).WithRows(rows)
	fmt.Println(t.View())
}

// renderDeviceList renders the device list in simple text format
func renderDeviceList(devices []ch341.DeviceInfo) {
	for _, dev := range devices {
		name := orDash(dev.Product)
		fmt.Printf("bus %d addr %d  %04x:%04x  %s\n",
			dev.Bus, dev.Address, dev.VendorID, dev.ProductID, name)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
