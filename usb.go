package ch341

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/gousb"
)

// Identifying constants for the CH340/CH341 bridge family, published for
// the caller's own device-selection step.
const (
	VendorID       uint16 = 0x1A86
	ProductIDCH340 uint16 = 0x7523
	ProductIDCH341 uint16 = 0x5523
)

// productIDs lists the bridge variants this driver speaks to.
var productIDs = []uint16{ProductIDCH340, ProductIDCH341}

// USBTransport implements Transport over libusb via gousb. It owns the
// gousb device handle (and the context, when it created one) for the
// lifetime of the driver session.
type USBTransport struct {
	ctx     *gousb.Context
	ownsCtx bool

	dev    *gousb.Device
	config *gousb.Config

	ifaces map[int]*gousb.Interface
	inEPs  map[uint8]*gousb.InEndpoint
	outEPs map[uint8]*gousb.OutEndpoint
}

var _ Transport = (*USBTransport)(nil)

// NewUSBTransport wraps an already-matched gousb device. The caller keeps
// ownership of the gousb context; the transport takes ownership of the
// device handle.
func NewUSBTransport(dev *gousb.Device) *USBTransport {
	return &USBTransport{
		dev:    dev,
		ifaces: make(map[int]*gousb.Interface),
		inEPs:  make(map[uint8]*gousb.InEndpoint),
		outEPs: make(map[uint8]*gousb.OutEndpoint),
	}
}

// OpenFirst enumerates the bus and returns a transport for the first
// CH340/CH341 bridge found, or ErrDeviceNotFound.
func OpenFirst() (*USBTransport, error) {
	ctx := gousb.NewContext()
	for _, pid := range productIDs {
		dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(VendorID), gousb.ID(pid))
		if err != nil {
			ctx.Close()
			return nil, fmt.Errorf("open device %04x:%04x: %w", VendorID, pid, err)
		}
		if dev != nil {
			t := NewUSBTransport(dev)
			t.ctx = ctx
			t.ownsCtx = true
			return t, nil
		}
	}
	ctx.Close()
	return nil, ErrDeviceNotFound
}

// Open selects the device's active configuration and enables automatic
// kernel driver detach so the stock ch341 tty driver does not hold the
// interface.
func (t *USBTransport) Open() error {
	if err := t.dev.SetAutoDetach(true); err != nil {
		return fmt.Errorf("set auto-detach: %w", mapUSBError(err))
	}

	num, err := t.dev.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("active configuration: %w", mapUSBError(err))
	}
	cfg, err := t.dev.Config(num)
	if err != nil {
		return fmt.Errorf("select configuration %d: %w", num, mapUSBError(err))
	}
	t.config = cfg
	return nil
}

// Close releases all claimed interfaces, the configuration, the device,
// and the context when this transport created it.
func (t *USBTransport) Close() error {
	for _, intf := range t.ifaces {
		intf.Close()
	}
	t.ifaces = make(map[int]*gousb.Interface)
	t.inEPs = make(map[uint8]*gousb.InEndpoint)
	t.outEPs = make(map[uint8]*gousb.OutEndpoint)

	var firstErr error
	if t.config != nil {
		if err := t.config.Close(); err != nil {
			firstErr = mapUSBError(err)
		}
		t.config = nil
	}
	if err := t.dev.Close(); err != nil && firstErr == nil {
		firstErr = mapUSBError(err)
	}
	if t.ownsCtx {
		if err := t.ctx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Interfaces walks the active configuration descriptor and reports each
// interface's first alternate setting.
func (t *USBTransport) Interfaces() ([]InterfaceInfo, error) {
	if t.config == nil {
		return nil, ErrNotReady
	}

	var out []InterfaceInfo
	for _, ifd := range t.config.Desc.Interfaces {
		if len(ifd.AltSettings) == 0 {
			continue
		}
		alt := ifd.AltSettings[0]

		eps := make([]EndpointInfo, 0, len(alt.Endpoints))
		for _, epd := range alt.Endpoints {
			eps = append(eps, EndpointInfo{
				Number:        uint8(epd.Number),
				Direction:     endpointDirection(epd.Direction),
				Type:          endpointType(epd.TransferType),
				MaxPacketSize: epd.MaxPacketSize,
			})
		}
		// Endpoints come out of a map; keep the report deterministic.
		sort.Slice(eps, func(i, j int) bool {
			if eps[i].Number != eps[j].Number {
				return eps[i].Number < eps[j].Number
			}
			return eps[i].Direction < eps[j].Direction
		})

		out = append(out, InterfaceInfo{Number: ifd.Number, Endpoints: eps})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (t *USBTransport) ClaimInterface(number int) error {
	if t.config == nil {
		return ErrNotReady
	}
	intf, err := t.config.Interface(number, 0)
	if err != nil {
		return mapUSBError(err)
	}
	t.ifaces[number] = intf
	return nil
}

func (t *USBTransport) ReleaseInterface(number int) error {
	intf, ok := t.ifaces[number]
	if !ok {
		return nil
	}
	delete(t.ifaces, number)
	intf.Close()
	return nil
}

func (t *USBTransport) ControlOut(request uint8, value, index uint16, payload []byte) (int, error) {
	rType := uint8(gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice)
	n, err := t.dev.Control(rType, request, value, index, payload)
	if err != nil {
		return n, mapUSBError(err)
	}
	return n, nil
}

func (t *USBTransport) ControlIn(request uint8, value, index uint16, length int) ([]byte, error) {
	rType := uint8(gousb.ControlIn | gousb.ControlVendor | gousb.ControlDevice)
	buf := make([]byte, length)
	n, err := t.dev.Control(rType, request, value, index, buf)
	if err != nil {
		return nil, mapUSBError(err)
	}
	return buf[:n], nil
}

func (t *USBTransport) BulkIn(endpoint uint8, length int) ([]byte, error) {
	ep, err := t.inEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := ep.Read(buf)
	if err != nil {
		return nil, mapUSBError(err)
	}
	return buf[:n], nil
}

func (t *USBTransport) BulkOut(endpoint uint8, payload []byte) (int, error) {
	ep, err := t.outEndpoint(endpoint)
	if err != nil {
		return 0, err
	}
	n, err := ep.Write(payload)
	if err != nil {
		return n, mapUSBError(err)
	}
	return n, nil
}

// Reset performs a USB port reset of the device, recovering bridges stuck
// in an unresponsive state. The device re-enumerates afterwards; the
// transport must be reopened.
func (t *USBTransport) Reset() error {
	return mapUSBError(t.dev.Reset())
}

// inEndpoint opens (and caches) the bulk-in endpoint with the given
// number on whichever claimed interface carries it.
func (t *USBTransport) inEndpoint(number uint8) (*gousb.InEndpoint, error) {
	if ep, ok := t.inEPs[number]; ok {
		return ep, nil
	}
	for _, intf := range t.ifaces {
		ep, err := intf.InEndpoint(int(number))
		if err == nil {
			t.inEPs[number] = ep
			return ep, nil
		}
	}
	return nil, ErrNoReadEndpoint
}

func (t *USBTransport) outEndpoint(number uint8) (*gousb.OutEndpoint, error) {
	if ep, ok := t.outEPs[number]; ok {
		return ep, nil
	}
	for _, intf := range t.ifaces {
		ep, err := intf.OutEndpoint(int(number))
		if err == nil {
			t.outEPs[number] = ep
			return ep, nil
		}
	}
	return nil, ErrNoWriteEndpoint
}

func endpointDirection(d gousb.EndpointDirection) EndpointDirection {
	if d == gousb.EndpointDirectionIn {
		return DirectionIn
	}
	return DirectionOut
}

func endpointType(t gousb.TransferType) EndpointType {
	switch t {
	case gousb.TransferTypeBulk:
		return EndpointBulk
	case gousb.TransferTypeInterrupt:
		return EndpointInterrupt
	case gousb.TransferTypeIsochronous:
		return EndpointIsochronous
	default:
		return EndpointControl
	}
}

// mapUSBError folds libusb's device-gone conditions onto ErrDeviceRemoved
// so the driver can errors.Is them.
func mapUSBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gousb.ErrorNoDevice) || errors.Is(err, gousb.TransferNoDevice) {
		return fmt.Errorf("%w: %s", ErrDeviceRemoved, err)
	}
	return err
}
