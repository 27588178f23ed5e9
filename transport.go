package ch341

// Transport is the capability the driver needs from an already-opened USB
// stack: vendor control transfers for register access and bulk transfers
// for the serial data path. Implementations own device enumeration and the
// low-level transfer mechanics; the driver owns the protocol.
//
// Implementations must map their stack's device-gone condition onto
// ErrDeviceRemoved (wrapped or bare) so the driver can detect removal with
// errors.Is.
type Transport interface {
	// Open prepares the device for use. Close releases it.
	Open() error
	Close() error

	// ClaimInterface and ReleaseInterface manage exclusive access to one
	// interface of the active configuration.
	ClaimInterface(number int) error
	ReleaseInterface(number int) error

	// Interfaces describes the active configuration: one entry per
	// interface, each listing the endpoints of its active alternate
	// setting. Valid only after Open.
	Interfaces() ([]InterfaceInfo, error)

	// ControlOut issues a vendor-class, device-recipient control OUT
	// transfer. ControlIn issues the matching IN transfer and returns the
	// bytes the device answered with.
	ControlOut(request uint8, value, index uint16, payload []byte) (int, error)
	ControlIn(request uint8, value, index uint16, length int) ([]byte, error)

	// BulkIn reads up to length bytes from a bulk-in endpoint. BulkOut
	// writes payload to a bulk-out endpoint and returns the byte count.
	BulkIn(endpoint uint8, length int) ([]byte, error)
	BulkOut(endpoint uint8, payload []byte) (int, error)
}

// EndpointDirection distinguishes device-to-host from host-to-device.
type EndpointDirection int

const (
	DirectionOut EndpointDirection = iota
	DirectionIn
)

func (d EndpointDirection) String() string {
	if d == DirectionIn {
		return "in"
	}
	return "out"
}

// EndpointType is the USB transfer type of an endpoint.
type EndpointType int

const (
	EndpointControl EndpointType = iota
	EndpointIsochronous
	EndpointBulk
	EndpointInterrupt
)

func (t EndpointType) String() string {
	switch t {
	case EndpointControl:
		return "control"
	case EndpointIsochronous:
		return "isochronous"
	case EndpointBulk:
		return "bulk"
	case EndpointInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// EndpointInfo identifies one endpoint of an interface alternate setting.
type EndpointInfo struct {
	Number        uint8
	Direction     EndpointDirection
	Type          EndpointType
	MaxPacketSize int
}

// InterfaceInfo describes one interface of the active configuration with
// the endpoints of its active alternate setting.
type InterfaceInfo struct {
	Number    int
	Endpoints []EndpointInfo
}
