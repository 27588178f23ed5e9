package ch341

import (
	"fmt"
	"sort"

	"github.com/google/gousb"
)

// DeviceInfo describes one attached CH340/CH341 bridge.
type DeviceInfo struct {
	Bus       int
	Address   int
	VendorID  uint16
	ProductID uint16
	Product   string
	Serial    string
}

// ListDevices scans the bus for CH340/CH341 bridges and returns their
// identifying metadata. The product and serial strings are best-effort:
// many clones ship without string descriptors.
func ListDevices() ([]DeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if uint16(desc.Vendor) != VendorID {
			return false
		}
		for _, pid := range productIDs {
			if uint16(desc.Product) == pid {
				return true
			}
		}
		return false
	})
	for _, dev := range devs {
		defer dev.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	infos := make([]DeviceInfo, 0, len(devs))
	for _, dev := range devs {
		info := DeviceInfo{
			Bus:       dev.Desc.Bus,
			Address:   dev.Desc.Address,
			VendorID:  uint16(dev.Desc.Vendor),
			ProductID: uint16(dev.Desc.Product),
		}
		if s, err := dev.Product(); err == nil {
			info.Product = s
		}
		if s, err := dev.SerialNumber(); err == nil {
			info.Serial = s
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Bus != infos[j].Bus {
			return infos[i].Bus < infos[j].Bus
		}
		return infos[i].Address < infos[j].Address
	})
	return infos, nil
}
